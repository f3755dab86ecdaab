package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally wrapped)
// so services can translate them into domain errors.
//
// - ErrNotFound: entity does not exist in store
// - ErrConflict: unique key already taken
// - ErrExpired: token is past its expiry
// - ErrAlreadyUsed: token was already consumed
// - ErrScopeMismatch: token exists but was presented for another purpose or subject
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrExpired       = errors.New("expired")
	ErrAlreadyUsed   = errors.New("already used")
	ErrScopeMismatch = errors.New("scope mismatch")
	ErrInvalidState  = errors.New("invalid state")
	ErrUnavailable   = errors.New("unavailable")
)
