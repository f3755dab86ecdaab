package service

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"docufind/internal/images"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
)

const (
	maxNameLen        = 100
	maxNumberLen      = 100
	maxLocationLen    = 200
	maxDescriptionLen = 2000
	maxPhoneLen       = 20
)

// CreateRequest is a lost or found report as submitted. Found reports must
// carry a photo; lost reports may.
type CreateRequest struct {
	Kind           id.RecordKind
	DocumentTypeID int
	Name           string
	DocumentNumber string
	IssueDate      *time.Time
	EventDate      *time.Time
	Location       string
	Description    string

	ContactFullName string
	ContactPhone    string
	ContactEmail    string

	Image *images.Upload
}

func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Kind != id.RecordKindLost && r.Kind != id.RecordKindFound {
		return dErrors.New(dErrors.CodeValidation, "report type must be lost or found")
	}
	if r.DocumentTypeID <= 0 {
		return dErrors.New(dErrors.CodeValidation, "document_type is required")
	}

	r.Name = strings.TrimSpace(r.Name)
	r.DocumentNumber = strings.TrimSpace(r.DocumentNumber)
	r.Location = strings.TrimSpace(r.Location)
	r.ContactFullName = strings.TrimSpace(r.ContactFullName)
	r.ContactPhone = strings.TrimSpace(r.ContactPhone)
	r.ContactEmail = strings.TrimSpace(r.ContactEmail)

	if r.Kind == id.RecordKindLost && r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "owner_name is required")
	}
	if err := maxLen("name", r.Name, maxNameLen); err != nil {
		return err
	}
	if err := maxLen("document_number", r.DocumentNumber, maxNumberLen); err != nil {
		return err
	}
	if err := maxLen("location", r.Location, maxLocationLen); err != nil {
		return err
	}
	if err := maxLen("description", r.Description, maxDescriptionLen); err != nil {
		return err
	}

	if r.ContactFullName == "" {
		return dErrors.New(dErrors.CodeValidation, "contact_full_name is required")
	}
	if err := maxLen("contact_full_name", r.ContactFullName, maxNameLen); err != nil {
		return err
	}
	if r.ContactPhone == "" {
		return dErrors.New(dErrors.CodeValidation, "contact_phone is required")
	}
	if err := maxLen("contact_phone", r.ContactPhone, maxPhoneLen); err != nil {
		return err
	}
	if r.ContactEmail != "" {
		addr, err := mail.ParseAddress(r.ContactEmail)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "contact_email is not a valid address")
		}
		r.ContactEmail = addr.Address
	}

	if r.Kind == id.RecordKindFound && r.Image == nil {
		return dErrors.New(dErrors.CodeValidation, "a photo of the found document is required")
	}
	if r.Image != nil {
		if err := r.Image.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func maxLen(field, value string, n int) error {
	if utf8.RuneCountInString(value) > n {
		return dErrors.New(dErrors.CodeValidation, field+" is too long")
	}
	return nil
}

// VerifyRequest is an instant ownership check against a report.
type VerifyRequest struct {
	VerificationInput string `json:"verification_input"`
}

func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	r.VerificationInput = strings.TrimSpace(r.VerificationInput)
	if r.VerificationInput == "" {
		return dErrors.New(dErrors.CodeValidation, "verification_input is required")
	}
	return nil
}
