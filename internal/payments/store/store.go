// Package store persists payment requests and access grants.
//
// Error contract:
//   - ErrNotFound when no payment or grant exists for the id
//   - ErrConflict when a reference id or grant for the payment already exists
//
// Complete and ActivateGrant are conditional: they report changed=false instead
// of failing when another caller got there first, so a status transition and
// its side effect happen exactly once.
package store

import (
	"fmt"
	"slices"

	"docufind/internal/payments/models"
	id "docufind/pkg/domain"
	"docufind/pkg/platform/sentinel"
)

func paymentNotFound(pid id.PaymentID) error {
	return fmt.Errorf("payment %s: %w", pid, sentinel.ErrNotFound)
}

func grantNotFound(pid id.PaymentID) error {
	return fmt.Errorf("grant for payment %s: %w", pid, sentinel.ErrNotFound)
}

func clonePayment(p *models.PaymentRequest) *models.PaymentRequest {
	cp := *p
	if p.CompletedAt != nil {
		at := *p.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}

func cloneGrant(g *models.AccessGrant) *models.AccessGrant {
	cp := *g
	if g.GrantedAt != nil {
		at := *g.GrantedAt
		cp.GrantedAt = &at
	}
	return &cp
}

func sortByCreated(ps []*models.PaymentRequest) {
	slices.SortFunc(ps, func(a, b *models.PaymentRequest) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
