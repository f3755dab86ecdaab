package gateway

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Sandbox is an in-process gateway for local development. Requests are approved
// once ApproveAfter has elapsed; payers listed in Declined always fail.
type Sandbox struct {
	mu       sync.Mutex
	requests map[string]sandboxRequest

	approveAfter time.Duration
	declined     map[string]bool
	clock        func() time.Time
}

type sandboxRequest struct {
	phone     string
	createdAt time.Time
}

type SandboxOption func(*Sandbox)

func WithApproveAfter(d time.Duration) SandboxOption {
	return func(s *Sandbox) { s.approveAfter = d }
}

func WithDeclined(phones ...string) SandboxOption {
	return func(s *Sandbox) {
		for _, p := range phones {
			s.declined[p] = true
		}
	}
}

func WithSandboxClock(clock func() time.Time) SandboxOption {
	return func(s *Sandbox) { s.clock = clock }
}

func NewSandbox(opts ...SandboxOption) *Sandbox {
	s := &Sandbox{
		requests: make(map[string]sandboxRequest),
		declined: make(map[string]bool),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sandbox) RequestToPay(_ context.Context, req PayRequest) error {
	const op = "request_to_pay"
	if strings.TrimSpace(req.PayerPhone) == "" || req.Amount <= 0 {
		e := NewError(CategoryRejected, op, "payer and amount are required", nil)
		e.StatusCode = 400
		return e
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ReferenceID]; ok {
		e := NewError(CategoryRejected, op, "duplicated reference id", nil)
		e.StatusCode = 409
		return e
	}
	s.requests[req.ReferenceID] = sandboxRequest{phone: req.PayerPhone, createdAt: s.clock()}
	return nil
}

func (s *Sandbox) Status(_ context.Context, referenceID string) (*StatusResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[referenceID]
	if !ok {
		e := NewError(CategoryNotFound, "status", "unknown reference id", nil)
		e.StatusCode = 404
		return nil, e
	}
	if s.declined[r.phone] {
		return &StatusResult{Status: StatusFailed, Reason: "APPROVAL_REJECTED"}, nil
	}
	if s.clock().Sub(r.createdAt) < s.approveAfter {
		return &StatusResult{Status: StatusPending}, nil
	}
	return &StatusResult{Status: StatusSuccessful, TransactionID: "sandbox-" + referenceID}, nil
}
