// Package models defines mobile-money payment requests and the access grants
// they unlock.
package models

import (
	"strings"
	"time"

	recmodels "docufind/internal/records/models"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
)

// Purpose says what a payment buys.
type Purpose string

const (
	PurposeContactAccess  Purpose = "contact_access"
	PurposePremiumUpgrade Purpose = "premium_upgrade"
)

func (p Purpose) IsValid() bool {
	return p == PurposeContactAccess || p == PurposePremiumUpgrade
}

func (p Purpose) String() string { return string(p) }

// Status is the payment state. PENDING moves to SUCCESSFUL or FAILED once and
// never leaves a terminal state.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusSuccessful Status = "SUCCESSFUL"
	StatusFailed     Status = "FAILED"
)

func (s Status) IsTerminal() bool {
	return s == StatusSuccessful || s == StatusFailed
}

func (s Status) String() string { return string(s) }

// ParseStatus accepts a stored or gateway status in any case.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusSuccessful:
		return StatusSuccessful, nil
	case StatusFailed:
		return StatusFailed, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown payment status "+s)
	}
}

// PaymentRequest is one request-to-pay sent to the gateway. ReferenceID is
// generated here and doubles as the gateway's idempotency key.
type PaymentRequest struct {
	ID            id.PaymentID
	ReferenceID   string
	Purpose       Purpose
	PayerPhone    string
	Amount        int64
	Currency      string
	Status        Status
	FailureReason string
	TransactionID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// NewPaymentRequest builds a pending request with a fresh reference id.
func NewPaymentRequest(purpose Purpose, phone string, amount int64, currency string, now time.Time) *PaymentRequest {
	pid := id.NewPaymentID()
	return &PaymentRequest{
		ID:          pid,
		ReferenceID: id.NewPaymentID().String(),
		Purpose:     purpose,
		PayerPhone:  phone,
		Amount:      amount,
		Currency:    currency,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Outcome is the terminal result reported for a payment.
type Outcome struct {
	Status        Status
	TransactionID string
	Reason        string
}

// Complete moves a pending payment into a terminal state. It reports false
// without changing anything when the payment already left PENDING.
func (p *PaymentRequest) Complete(o Outcome, now time.Time) (bool, error) {
	if !o.Status.IsTerminal() {
		return false, dErrors.New(dErrors.CodeInvariantViolation, "payment can only complete into a terminal status")
	}
	if p.Status.IsTerminal() {
		return false, nil
	}
	p.Status = o.Status
	p.TransactionID = o.TransactionID
	p.FailureReason = o.Reason
	p.UpdatedAt = now
	p.CompletedAt = &now
	return true, nil
}

func (p *PaymentRequest) Paid() bool { return p.Status == StatusSuccessful }

// AccessGrant binds a contact-access payment to the report and requester it
// pays for. It is written as an intent with the payment and granted once the
// payment is first seen SUCCESSFUL.
type AccessGrant struct {
	ID             id.GrantID
	PaymentID      id.PaymentID
	Subject        recmodels.Ref
	RequesterEmail string
	CreatedAt      time.Time
	GrantedAt      *time.Time
}

func (g *AccessGrant) Granted() bool { return g.GrantedAt != nil }

// Grant stamps the grant. It reports false when it was already granted.
func (g *AccessGrant) Grant(now time.Time) bool {
	if g.GrantedAt != nil {
		return false
	}
	g.GrantedAt = &now
	return true
}
