// Package domain holds the small value types shared across bounded contexts:
// typed identifiers and the enums that appear on the wire.
package domain

import (
	"github.com/google/uuid"

	dErrors "docufind/pkg/domain-errors"
)

// Typed identifiers. Distinct types keep a PaymentID from being passed where a
// RecordID is expected.
type (
	RecordID  uuid.UUID
	ContactID uuid.UUID
	PaymentID uuid.UUID
	GrantID   uuid.UUID
	MatchID   uuid.UUID
)

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

// ParseRecordID parses a record id from external input.
// Errors: CodeInvalidInput when empty, malformed or the nil UUID.
func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record id")
	return RecordID(u), err
}

func ParseContactID(s string) (ContactID, error) {
	u, err := parseUUID(s, "contact id")
	return ContactID(u), err
}

func ParsePaymentID(s string) (PaymentID, error) {
	u, err := parseUUID(s, "payment id")
	return PaymentID(u), err
}

func ParseGrantID(s string) (GrantID, error) {
	u, err := parseUUID(s, "grant id")
	return GrantID(u), err
}

func NewRecordID() RecordID   { return RecordID(uuid.New()) }
func NewContactID() ContactID { return ContactID(uuid.New()) }
func NewPaymentID() PaymentID { return PaymentID(uuid.New()) }
func NewGrantID() GrantID     { return GrantID(uuid.New()) }
func NewMatchID() MatchID     { return MatchID(uuid.New()) }

func (id RecordID) String() string  { return uuid.UUID(id).String() }
func (id ContactID) String() string { return uuid.UUID(id).String() }
func (id PaymentID) String() string { return uuid.UUID(id).String() }
func (id GrantID) String() string   { return uuid.UUID(id).String() }
func (id MatchID) String() string   { return uuid.UUID(id).String() }

func (id RecordID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ContactID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PaymentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id RecordID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id PaymentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *RecordID) UnmarshalText(b []byte) error {
	parsed, err := ParseRecordID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *PaymentID) UnmarshalText(b []byte) error {
	parsed, err := ParsePaymentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
