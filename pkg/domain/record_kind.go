package domain

import (
	"strings"

	dErrors "docufind/pkg/domain-errors"
)

// RecordKind distinguishes the two sides of the registry.
// Invariant: one of RecordKindLost or RecordKindFound.
type RecordKind string

const (
	RecordKindLost  RecordKind = "lost"
	RecordKindFound RecordKind = "found"
)

// ParseRecordKind accepts "lost"/"found" in any case.
func ParseRecordKind(s string) (RecordKind, error) {
	switch RecordKind(strings.ToLower(strings.TrimSpace(s))) {
	case RecordKindLost:
		return RecordKindLost, nil
	case RecordKindFound:
		return RecordKindFound, nil
	case "":
		return "", dErrors.New(dErrors.CodeInvalidInput, "report type cannot be empty")
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "report type must be lost or found")
	}
}

// Opposite returns the kind a record of k is matched against.
func (k RecordKind) Opposite() RecordKind {
	if k == RecordKindLost {
		return RecordKindFound
	}
	return RecordKindLost
}

func (k RecordKind) IsValid() bool {
	return k == RecordKindLost || k == RecordKindFound
}

func (k RecordKind) String() string { return string(k) }

// RemovalReason is why an owner asked for a listing to be taken down.
type RemovalReason string

const (
	RemovalReasonFound          RemovalReason = "FOUND"
	RemovalReasonNoLongerNeeded RemovalReason = "NO_LONGER_NEEDED"
	RemovalReasonDuplicate      RemovalReason = "DUPLICATE"
)

var validRemovalReasons = map[RemovalReason]bool{
	RemovalReasonFound:          true,
	RemovalReasonNoLongerNeeded: true,
	RemovalReasonDuplicate:      true,
}

// ParseRemovalReason constructs a RemovalReason from external input.
func ParseRemovalReason(s string) (RemovalReason, error) {
	r := RemovalReason(strings.ToUpper(strings.TrimSpace(s)))
	if r == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "removal reason cannot be empty")
	}
	if !validRemovalReasons[r] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "removal reason must be FOUND, NO_LONGER_NEEDED or DUPLICATE")
	}
	return r, nil
}
