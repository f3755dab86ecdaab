// Package models defines the single-purpose verification token.
package models

import (
	"time"

	recmodels "docufind/internal/records/models"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
)

// Purpose is the one right a token grants.
type Purpose string

const (
	PurposeClaimVerification   Purpose = "claim-verification"
	PurposeImageAccess         Purpose = "image-access"
	PurposeRemovalConfirmation Purpose = "removal-confirmation"
)

func (p Purpose) IsValid() bool {
	switch p {
	case PurposeClaimVerification, PurposeImageAccess, PurposeRemovalConfirmation:
		return true
	}
	return false
}

// DeletedOnUse reports whether redeeming destroys the token. Removal tokens are
// kept and marked consumed instead, so a repeated confirmation reports AlreadyUsed.
func (p Purpose) DeletedOnUse() bool {
	return p != PurposeRemovalConfirmation
}

func (p Purpose) String() string { return string(p) }

// Token is the stored side of an issued credential. The raw identifier is never
// persisted, only Hash.
type Token struct {
	Hash       string
	Purpose    Purpose
	Subject    recmodels.Ref
	Holder     string
	Payload    Payload
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// Expectation is what a redemption request claims the token is for. A nil
// Subject accepts any subject.
type Expectation struct {
	Purpose Purpose
	Subject *recmodels.Ref
}

// ExpectPurpose builds an Expectation that only checks the purpose.
func ExpectPurpose(p Purpose) Expectation { return Expectation{Purpose: p} }

// ExpectScoped builds an Expectation that also pins the subject.
func ExpectScoped(p Purpose, subject recmodels.Ref) Expectation {
	return Expectation{Purpose: p, Subject: &subject}
}

// Allows reports whether the token may be used for e.
func (t *Token) Allows(e Expectation) bool {
	if t.Purpose != e.Purpose {
		return false
	}
	return e.Subject == nil || *e.Subject == t.Subject
}

// IsExpired is true strictly after ExpiresAt; the expiry instant itself is valid.
func (t *Token) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func (t *Token) IsConsumed() bool { return t.ConsumedAt != nil }

// Validate runs the redemption checks in order: scope, consumption, expiry.
// Errors carry domain codes; stores translate them to sentinels.
func (t *Token) Validate(e Expectation, now time.Time) error {
	if !t.Allows(e) {
		return dErrors.New(dErrors.CodeForbidden, "token not valid for this resource")
	}
	if t.IsConsumed() {
		return dErrors.New(dErrors.CodeAlreadyUsed, "token already used")
	}
	if t.IsExpired(now) {
		return dErrors.New(dErrors.CodeExpired, "token expired")
	}
	return nil
}

// MarkConsumed stamps a removal token as used.
func (t *Token) MarkConsumed(now time.Time) {
	t.ConsumedAt = &now
}

// Issued is returned to the issuer once. Secret is the only copy of the raw
// identifier.
type Issued struct {
	Secret string
	Token  *Token
}

// TTLs maps each purpose to its lifetime.
type TTLs map[Purpose]time.Duration

// DefaultTTLs are the lifetimes used when configuration leaves them unset.
func DefaultTTLs() TTLs {
	return TTLs{
		PurposeClaimVerification:   6 * time.Hour,
		PurposeImageAccess:         6 * time.Hour,
		PurposeRemovalConfirmation: 24 * time.Hour,
	}
}

// For returns the lifetime of p, falling back to the defaults.
func (t TTLs) For(p Purpose) time.Duration {
	if ttl, ok := t[p]; ok && ttl > 0 {
		return ttl
	}
	return DefaultTTLs()[p]
}

// RemovalReason returns the reason carried by a removal token's payload.
func (t *Token) RemovalReason() id.RemovalReason {
	if p, ok := t.Payload.(RemovalPayload); ok {
		return p.Reason
	}
	return ""
}
