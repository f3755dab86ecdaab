package service

import (
	"context"
	"errors"
	"time"

	"docufind/internal/audit"
	"docufind/internal/notify"
	"docufind/internal/payments/models"
	recmodels "docufind/internal/records/models"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
	"docufind/pkg/platform/sentinel"
	"docufind/pkg/requestcontext"
)

// PremiumStatus is the result of one premium poll.
type PremiumStatus struct {
	PaymentID        id.PaymentID
	Status           models.Status
	Paid             bool
	Retryable        bool
	PremiumExpiresAt *time.Time
}

// UpgradeToPremium charges the premium fee for a lost listing. The caller proves
// ownership with the owner name or the document number.
func (s *Service) UpgradeToPremium(ctx context.Context, req PremiumRequest) (*PaymentStarted, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	record, err := s.findLive(ctx, req.Record())
	if err != nil {
		return nil, err
	}
	if !record.MatchesVerification(req.VerificationInput) {
		s.auditor.Emit(ctx, audit.Event{
			Action:  string(audit.EventVerificationDenied),
			Subject: record.Ref().String(),
			Detail:  "premium upgrade",
		})
		return nil, dErrors.New(dErrors.CodeForbidden, "verification details do not match this report")
	}
	now := requestcontext.Now(ctx)
	if record.PremiumActive(now) {
		return nil, dErrors.New(dErrors.CodeConflict, "listing is already featured")
	}

	if err := s.settlePreviousPremium(ctx, record); err != nil {
		return nil, err
	}

	p := models.NewPaymentRequest(models.PurposePremiumUpgrade, req.Phone, s.fees.Premium, s.fees.Currency, now)
	retryable, err := s.start(ctx, p, record.Ref(), record.ContactEmail(), "DocuFind featured listing", func(ctx context.Context) error {
		err := s.records.AttachPremiumPayment(ctx, record.ID, record.PremiumPaymentID, p.ID)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "report not found")
		case errors.Is(err, sentinel.ErrConflict):
			return dErrors.New(dErrors.CodeConflict, "another featured listing payment was just started for this report")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to attach payment to report")
		}
	})
	if err != nil {
		return nil, err
	}
	return started(p, retryable), nil
}

// settlePreviousPremium refuses a new upgrade while the record's last premium
// payment may still be approved on the payer's phone. That payment is polled
// once first, so a request the provider already settled does not block.
func (s *Service) settlePreviousPremium(ctx context.Context, record *recmodels.Record) error {
	if record.PremiumPaymentID == nil {
		return nil
	}
	prev, err := s.payments.FindByID(ctx, *record.PremiumPaymentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load previous payment")
	}
	if prev.Status.IsTerminal() {
		return nil
	}
	st, err := s.CheckPremium(ctx, prev.ID)
	if err != nil {
		return err
	}
	switch st.Status {
	case models.StatusPending:
		return dErrors.New(dErrors.CodeConflict, "a featured listing payment is already waiting for approval")
	case models.StatusSuccessful:
		return dErrors.New(dErrors.CodeConflict, "listing is already featured")
	default:
		return nil
	}
}

// CheckPremium polls a premium payment. The first poll that sees it SUCCESSFUL
// opens the premium window on the record that references it.
func (s *Service) CheckPremium(ctx context.Context, pid id.PaymentID) (*PremiumStatus, error) {
	p, err := s.findPayment(ctx, pid, models.PurposePremiumUpgrade)
	if err != nil {
		return nil, err
	}

	var activated *recmodels.Record
	res, err := s.poll(ctx, p, func(ctx context.Context, p *models.PaymentRequest) error {
		r, err := s.records.ActivatePremiumByPayment(ctx, p.ID, requestcontext.Now(ctx), s.fees.PremiumWindow)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				// Payment stays recorded as SUCCESSFUL; there is nothing to feature.
				s.logger.ErrorContext(ctx, "paid premium without a record",
					"payment_id", p.ID.String(),
				)
				return nil
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate premium")
		}
		activated = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &PremiumStatus{
		PaymentID: res.payment.ID,
		Status:    res.payment.Status,
		Paid:      res.payment.Paid(),
		Retryable: res.retryable,
	}
	if !out.Paid {
		return out, nil
	}
	if activated != nil {
		out.PremiumExpiresAt = activated.PremiumExpiresAt
		s.featured(ctx, activated)
		return out, nil
	}

	r, err := s.records.FindByPremiumPayment(ctx, pid)
	switch {
	case err == nil:
		out.PremiumExpiresAt = r.PremiumExpiresAt
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load featured report")
	}
	return out, nil
}

func (s *Service) featured(ctx context.Context, r *recmodels.Record) {
	s.metrics.IncActivation(models.PurposePremiumUpgrade.String())
	s.auditor.Emit(ctx, audit.Event{
		Action:  string(audit.EventPremiumActivated),
		Subject: r.Ref().String(),
		Actor:   r.ContactEmail(),
	})
	expires := ""
	if r.PremiumExpiresAt != nil {
		expires = r.PremiumExpiresAt.UTC().Format("2 January 2006 15:04 MST")
	}
	s.send(ctx, notify.Message{
		Template: notify.TemplatePremiumActivated,
		To:       r.ContactEmail(),
		Data: map[string]string{
			"name":       r.Name,
			"expires_at": expires,
		},
	})
}
