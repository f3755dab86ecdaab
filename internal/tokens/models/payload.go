package models

import (
	"encoding/json"
	"fmt"

	id "docufind/pkg/domain"
)

// Payload is the purpose-specific data a token carries.
type Payload interface {
	Purpose() Purpose
}

// ClaimPayload records the phone the claimant gave when starting a claim.
type ClaimPayload struct {
	Phone string `json:"phone,omitempty"`
}

func (ClaimPayload) Purpose() Purpose { return PurposeClaimVerification }

type ImageAccessPayload struct{}

func (ImageAccessPayload) Purpose() Purpose { return PurposeImageAccess }

type RemovalPayload struct {
	Reason id.RemovalReason `json:"reason"`
}

func (RemovalPayload) Purpose() Purpose { return PurposeRemovalConfirmation }

// EmptyPayload returns the zero payload for p.
func EmptyPayload(p Purpose) Payload {
	switch p {
	case PurposeClaimVerification:
		return ClaimPayload{}
	case PurposeImageAccess:
		return ImageAccessPayload{}
	case PurposeRemovalConfirmation:
		return RemovalPayload{}
	}
	return nil
}

// EncodePayload serializes p for storage. The purpose column is the discriminant.
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// DecodePayload restores the payload stored for a token of purpose p.
func DecodePayload(p Purpose, raw []byte) (Payload, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch p {
	case PurposeClaimVerification:
		var out ClaimPayload
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode claim payload: %w", err)
		}
		return out, nil
	case PurposeImageAccess:
		return ImageAccessPayload{}, nil
	case PurposeRemovalConfirmation:
		var out RemovalPayload
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode removal payload: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown token purpose %q", p)
}
