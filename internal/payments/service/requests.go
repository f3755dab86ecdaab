package service

import (
	"net/mail"
	"strings"

	recmodels "docufind/internal/records/models"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
)

// ContactAccessRequest pays for the contact behind a report.
type ContactAccessRequest struct {
	Phone          string `json:"phone_number"`
	ReportType     string `json:"report_type"`
	ReportID       string `json:"report_id"`
	RequesterEmail string `json:"user_email"`

	subject recmodels.Ref
}

func (r *ContactAccessRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	phone, err := NormalizePhone(r.Phone)
	if err != nil {
		return err
	}
	r.Phone = phone

	subject, err := recmodels.ParseRef(r.ReportType, r.ReportID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, messageOf(err))
	}
	r.subject = subject

	r.RequesterEmail = strings.TrimSpace(r.RequesterEmail)
	if r.RequesterEmail == "" {
		return dErrors.New(dErrors.CodeValidation, "user_email is required")
	}
	addr, err := mail.ParseAddress(r.RequesterEmail)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "user_email is not a valid address")
	}
	r.RequesterEmail = addr.Address
	return nil
}

// Subject is valid after Validate.
func (r *ContactAccessRequest) Subject() recmodels.Ref { return r.subject }

// PremiumRequest pays for a featured lost listing.
type PremiumRequest struct {
	RecordID          string `json:"lost_doc_id"`
	VerificationInput string `json:"verification_input"`
	Phone             string `json:"phone_number"`

	recordID id.RecordID
}

func (r *PremiumRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	recordID, err := id.ParseRecordID(strings.TrimSpace(r.RecordID))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, messageOf(err))
	}
	r.recordID = recordID

	r.VerificationInput = strings.TrimSpace(r.VerificationInput)
	if r.VerificationInput == "" {
		return dErrors.New(dErrors.CodeValidation, "verification_input is required")
	}
	phone, err := NormalizePhone(r.Phone)
	if err != nil {
		return err
	}
	r.Phone = phone
	return nil
}

// Record is the lost report to feature. Valid after Validate.
func (r *PremiumRequest) Record() recmodels.Ref {
	return recmodels.Ref{Kind: id.RecordKindLost, ID: r.recordID}
}

// NormalizePhone turns user input into an MSISDN: digits only, country code
// included. Local Rwandan numbers (07XXXXXXXX) get the 250 prefix.
func NormalizePhone(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "phone_number is required")
	}
	var b strings.Builder
	for i, c := range s {
		switch {
		case c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '+' && i == 0:
		case c == ' ' || c == '-' || c == '(' || c == ')':
		default:
			return "", dErrors.New(dErrors.CodeValidation, "phone_number must contain digits only")
		}
	}
	digits := b.String()
	if len(digits) == 10 && strings.HasPrefix(digits, "07") {
		digits = "250" + digits[1:]
	}
	if len(digits) < 9 || len(digits) > 15 {
		return "", dErrors.New(dErrors.CodeValidation, "phone_number must have 9 to 15 digits")
	}
	return digits, nil
}

func messageOf(err error) string {
	if de, ok := dErrors.As(err); ok {
		return de.Message
	}
	return err.Error()
}
