// Package store persists verification tokens. Every implementation makes
// Redeem atomic per token: of two concurrent redemptions exactly one succeeds.
//
// Error contract:
//   - ErrNotFound when no token has the hash (never issued, or deleted on use)
//   - ErrScopeMismatch when purpose or subject differ; the token is left in place
//   - ErrAlreadyUsed when a removal token was already consumed
//   - ErrExpired when now is past ExpiresAt; the token is left in place
package store

import (
	"fmt"

	"docufind/internal/tokens/models"
	dErrors "docufind/pkg/domain-errors"
	"docufind/pkg/platform/sentinel"
)

// translateValidation maps a failed models.Token.Validate to the store's
// sentinel contract.
func translateValidation(err error) error {
	if err == nil {
		return nil
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeForbidden:
		return fmt.Errorf("%s: %w", err.Error(), sentinel.ErrScopeMismatch)
	case dErrors.CodeAlreadyUsed:
		return fmt.Errorf("%s: %w", err.Error(), sentinel.ErrAlreadyUsed)
	case dErrors.CodeExpired:
		return fmt.Errorf("%s: %w", err.Error(), sentinel.ErrExpired)
	default:
		return fmt.Errorf("%s: %w", err.Error(), sentinel.ErrInvalidState)
	}
}

func notFound() error {
	return fmt.Errorf("token not found: %w", sentinel.ErrNotFound)
}

func clone(t *models.Token) *models.Token {
	cp := *t
	if t.ConsumedAt != nil {
		at := *t.ConsumedAt
		cp.ConsumedAt = &at
	}
	return &cp
}
