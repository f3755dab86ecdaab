package service

import (
	"net/mail"
	"strings"

	recmodels "docufind/internal/records/models"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
)

// StartClaimRequest is submitted by someone who believes a listed document is theirs.
type StartClaimRequest struct {
	ReportType     string `json:"report_type"`
	ReportID       string `json:"report_id"`
	Email          string `json:"contact_email"`
	Phone          string `json:"contact_phone"`
	DocumentNumber string `json:"document_number,omitempty"`

	subject recmodels.Ref
}

// Validate normalizes the request and resolves its subject.
func (r *StartClaimRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	subject, err := recmodels.ParseRef(r.ReportType, r.ReportID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, dErrorsMessage(err))
	}
	r.subject = subject

	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "contact_email is required")
	}
	addr, err := mail.ParseAddress(r.Email)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "contact_email is not a valid address")
	}
	r.Email = addr.Address

	r.Phone = strings.TrimSpace(r.Phone)
	if len(r.Phone) > 32 {
		return dErrors.New(dErrors.CodeValidation, "contact_phone is too long")
	}
	r.DocumentNumber = strings.TrimSpace(r.DocumentNumber)
	return nil
}

// Subject is the record the claim is about. Valid after Validate.
func (r *StartClaimRequest) Subject() recmodels.Ref { return r.subject }

// RemovalRequest asks for a listing to be taken down. The record comes from the path.
type RemovalRequest struct {
	VerificationInput string `json:"verification_input"`
	Reason            string `json:"reason"`

	reason id.RemovalReason
}

func (r *RemovalRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	r.VerificationInput = strings.TrimSpace(r.VerificationInput)
	if r.VerificationInput == "" {
		return dErrors.New(dErrors.CodeValidation, "verification_input is required")
	}
	reason, err := id.ParseRemovalReason(r.Reason)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, dErrorsMessage(err))
	}
	r.reason = reason
	return nil
}

// RemovalReason is the parsed reason. Valid after Validate.
func (r *RemovalRequest) RemovalReason() id.RemovalReason { return r.reason }

func dErrorsMessage(err error) string {
	if de, ok := dErrors.As(err); ok {
		return de.Message
	}
	return "invalid request"
}
