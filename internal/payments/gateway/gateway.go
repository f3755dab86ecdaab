// Package gateway talks to the mobile-money provider. The provider is treated as
// unreliable: every failure comes back as an *Error with a category, and no
// failure is fatal to the caller.
package gateway

import (
	"context"
	"errors"
	"fmt"
)

//go:generate mockgen -source=gateway.go -destination=mocks/mocks.go -package=mocks Gateway

// Status is the provider-side state of a request-to-pay.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusSuccessful Status = "SUCCESSFUL"
	StatusFailed     Status = "FAILED"
)

// PayRequest asks the payer to approve a debit on their phone.
type PayRequest struct {
	// ReferenceID is caller-generated and identifies the request in later
	// status checks.
	ReferenceID  string
	ExternalID   string
	PayerPhone   string
	Amount       int64
	Currency     string
	PayerMessage string
	PayeeNote    string
}

// StatusResult is one observation of a request-to-pay.
type StatusResult struct {
	Status        Status
	TransactionID string
	Reason        string
}

// Gateway is the request-to-pay API.
type Gateway interface {
	// RequestToPay returns nil once the provider accepted the request.
	RequestToPay(ctx context.Context, req PayRequest) error
	Status(ctx context.Context, referenceID string) (*StatusResult, error)
}

// Category is the normalized failure taxonomy.
type Category string

const (
	CategoryTimeout     Category = "timeout"
	CategoryTransport   Category = "transport"
	CategoryOutage      Category = "provider_outage"
	CategoryRateLimited Category = "rate_limited"
	CategoryAuth        Category = "authentication"
	CategoryRejected    Category = "rejected"
	CategoryNotFound    Category = "not_found"
	CategoryBadData     Category = "bad_data"
	CategoryCircuitOpen Category = "circuit_open"
)

// Error wraps a provider failure.
type Error struct {
	Category   Category
	Op         string
	StatusCode int
	Message    string
	Underlying error
	Retryable  bool
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("gateway %s [%s]", e.Op, e.Category)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Underlying }

// NewError builds an Error; timeouts, outages, rate limits, transport failures
// and an open circuit are retryable.
func NewError(category Category, op, message string, underlying error) *Error {
	retryable := category == CategoryTimeout ||
		category == CategoryTransport ||
		category == CategoryOutage ||
		category == CategoryRateLimited ||
		category == CategoryCircuitOpen
	return &Error{
		Category:   category,
		Op:         op,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable reports whether err is worth trying again later.
func IsRetryable(err error) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Retryable
	}
	return false
}

// CategoryOf extracts the category, defaulting to transport for foreign errors.
func CategoryOf(err error) Category {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Category
	}
	return CategoryTransport
}

// IsRejected reports whether the provider refused the request outright.
func IsRejected(err error) bool {
	return CategoryOf(err) == CategoryRejected
}
