package models

import (
	"time"

	"docufind/internal/masking"
	id "docufind/pkg/domain"
)

// PublicView is what anonymous visitors see. Personal fields are masked and the
// contact is never included.
type PublicView struct {
	ID             id.RecordID   `json:"id"`
	Kind           id.RecordKind `json:"report_type"`
	DocumentTypeID int           `json:"document_type"`
	DocumentType   string        `json:"document_type_name"`
	Name           string        `json:"name"`
	DocumentNumber string        `json:"document_number"`
	Location       string        `json:"location"`
	EventDate      *time.Time    `json:"event_date,omitempty"`
	Description    string        `json:"description"`
	ImageURL       string        `json:"image_url,omitempty"`
	IsPremium      bool          `json:"is_premium,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// ContactView is the disclosed contact of a record owner.
type ContactView struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
}

// VerifiedView is the unmasked record. Contact is only filled for callers that
// proved possession of a claim token.
type VerifiedView struct {
	ID             id.RecordID   `json:"id"`
	Kind           id.RecordKind `json:"report_type"`
	DocumentTypeID int           `json:"document_type"`
	DocumentType   string        `json:"document_type_name"`
	Name           string        `json:"name"`
	DocumentNumber string        `json:"document_number"`
	IssueDate      *time.Time    `json:"issue_date,omitempty"`
	EventDate      *time.Time    `json:"event_date,omitempty"`
	Location       string        `json:"location"`
	Description    string        `json:"description"`
	CreatedAt      time.Time     `json:"created_at"`
	Contact        *ContactView  `json:"contact,omitempty"`
}

// ToPublic masks the record. imageURL is resolved by the caller because only the
// image store knows how to address an object.
func (r *Record) ToPublic(imageURL string, now time.Time) PublicView {
	return PublicView{
		ID:             r.ID,
		Kind:           r.Kind,
		DocumentTypeID: r.DocumentTypeID,
		DocumentType:   r.DocumentType,
		Name:           masking.Name(r.Name),
		DocumentNumber: masking.Identifier(r.DocumentNumber),
		Location:       r.Location,
		EventDate:      r.EventDate,
		Description:    r.Description,
		ImageURL:       imageURL,
		IsPremium:      r.Kind == id.RecordKindLost && r.PremiumActive(now),
		CreatedAt:      r.CreatedAt,
	}
}

// ToVerified returns stored values as-is.
func (r *Record) ToVerified(withContact bool) VerifiedView {
	v := VerifiedView{
		ID:             r.ID,
		Kind:           r.Kind,
		DocumentTypeID: r.DocumentTypeID,
		DocumentType:   r.DocumentType,
		Name:           r.Name,
		DocumentNumber: r.DocumentNumber,
		IssueDate:      r.IssueDate,
		EventDate:      r.EventDate,
		Location:       r.Location,
		Description:    r.Description,
		CreatedAt:      r.CreatedAt,
	}
	if withContact && r.Contact != nil {
		c := r.Contact.View()
		v.Contact = &c
	}
	return v
}

// View projects the contact for disclosure.
func (c *Contact) View() ContactView {
	return ContactView{FullName: c.FullName, Phone: c.Phone, Email: c.Email}
}
