// Package models defines the lost/found record, its owner contact and the public
// and verified projections the rest of the system hands out.
package models

import (
	"strings"
	"time"

	id "docufind/pkg/domain"
)

// Ref names one record across both kinds.
type Ref struct {
	Kind id.RecordKind `json:"report_type"`
	ID   id.RecordID   `json:"report_id"`
}

func (r Ref) String() string { return r.Kind.String() + "/" + r.ID.String() }

// ParseRef builds a Ref from external input such as path parameters.
func ParseRef(kind, recordID string) (Ref, error) {
	k, err := id.ParseRecordKind(kind)
	if err != nil {
		return Ref{}, err
	}
	rid, err := id.ParseRecordID(recordID)
	if err != nil {
		return Ref{}, err
	}
	return Ref{Kind: k, ID: rid}, nil
}

// Image holds object-storage keys. Blurred is derived from Original.
type Image struct {
	Original string
	Blurred  string
}

// PendingRemoval mirrors the active removal token on the record so confirmation
// can check it is the latest one issued.
type PendingRemoval struct {
	TokenHash string
	ExpiresAt time.Time
	Reason    id.RemovalReason
}

// Record is a lost or found document report. Records are never hard-deleted.
type Record struct {
	ID             id.RecordID
	Kind           id.RecordKind
	DocumentTypeID int
	DocumentType   string
	// Name is the owner's name on lost reports and the name printed on the
	// document on found reports.
	Name           string
	DocumentNumber string
	IssueDate      *time.Time
	EventDate      *time.Time
	Location       string
	Description    string
	Image          Image
	ContactID      id.ContactID
	Contact        *Contact
	CreatedAt      time.Time

	Removed       bool
	RemovedAt     *time.Time
	RemovalReason id.RemovalReason
	Pending       *PendingRemoval

	IsPremium        bool
	PremiumExpiresAt *time.Time
	PremiumPaymentID *id.PaymentID
}

// Ref returns the record's cross-kind reference.
func (r *Record) Ref() Ref { return Ref{Kind: r.Kind, ID: r.ID} }

// IdentityName is the name used for matching and ownership checks.
func (r *Record) IdentityName() string { return r.Name }

// HasDocumentNumber reports whether the record can take part in matching.
func (r *Record) HasDocumentNumber() bool { return strings.TrimSpace(r.DocumentNumber) != "" }

// ContactEmail returns the owner's email or "" when unknown.
func (r *Record) ContactEmail() string {
	if r.Contact == nil {
		return ""
	}
	return r.Contact.Email
}

// MatchesVerification reports whether input equals the record's name or document
// number, ignoring case and surrounding whitespace. Blank input never matches.
func (r *Record) MatchesVerification(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	if strings.EqualFold(input, strings.TrimSpace(r.Name)) {
		return true
	}
	return r.HasDocumentNumber() && strings.EqualFold(input, strings.TrimSpace(r.DocumentNumber))
}

// PremiumActive reports whether the premium window covers now.
func (r *Record) PremiumActive(now time.Time) bool {
	return r.IsPremium && r.PremiumExpiresAt != nil && now.Before(*r.PremiumExpiresAt)
}

// PremiumLapsed reports whether the record still carries a premium flag whose
// window has closed.
func (r *Record) PremiumLapsed(now time.Time) bool {
	return r.IsPremium && (r.PremiumExpiresAt == nil || !now.Before(*r.PremiumExpiresAt))
}

// CanRequestRemoval checks the record can still be taken down.
func (r *Record) CanRequestRemoval() bool { return !r.Removed }

// ApplyRemoval flips the removed flag and clears the pending removal.
func (r *Record) ApplyRemoval(now time.Time) {
	reason := id.RemovalReason("")
	if r.Pending != nil {
		reason = r.Pending.Reason
	}
	r.Removed = true
	r.RemovedAt = &now
	r.RemovalReason = reason
	r.Pending = nil
}

// ActivatePremium opens a premium window from now.
func (r *Record) ActivatePremium(now time.Time, window time.Duration) {
	expires := now.Add(window)
	r.IsPremium = true
	r.PremiumExpiresAt = &expires
}

// Contact is the person behind a report. Contacts are immutable and shared by
// every record submitted with the same name, phone and email.
type Contact struct {
	ID        id.ContactID
	FullName  string
	Phone     string
	Email     string
	CreatedAt time.Time
}

// DocumentType is one kind of identity document (national ID, passport...).
type DocumentType struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Match records that a lost and a found record were paired and the owner notified.
type Match struct {
	ID              id.MatchID
	LostID          id.RecordID
	FoundID         id.RecordID
	NotifiedAddress string
	NotifiedAt      time.Time
}
