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

// AccessStatus is the result of one contact-access poll. Contact and Receipt are
// only set once the payment is SUCCESSFUL.
type AccessStatus struct {
	PaymentID        id.PaymentID
	Status           models.Status
	Paid             bool
	Retryable        bool
	Contact          *recmodels.ContactView
	Receipt          string
	ReceiptExpiresAt time.Time
}

// Disclosure is the contact behind a paid grant.
type Disclosure struct {
	Subject recmodels.Ref
	Contact recmodels.ContactView
}

// RequestContactAccess charges the contact-access fee for req's report.
func (s *Service) RequestContactAccess(ctx context.Context, req ContactAccessRequest) (*PaymentStarted, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	subject := req.Subject()
	if _, err := s.findLive(ctx, subject); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	p := models.NewPaymentRequest(models.PurposeContactAccess, req.Phone, s.fees.ContactAccess, s.fees.Currency, now)
	g := &models.AccessGrant{
		ID:             id.NewGrantID(),
		PaymentID:      p.ID,
		Subject:        subject,
		RequesterEmail: req.RequesterEmail,
		CreatedAt:      now,
	}
	retryable, err := s.start(ctx, p, subject, req.RequesterEmail, "DocuFind contact access", func(ctx context.Context) error {
		if err := s.payments.CreateGrant(ctx, g); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store access grant")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return started(p, retryable), nil
}

// CheckContactAccess polls a contact-access payment. The first poll that sees
// it SUCCESSFUL grants access and mails the contact to the requester.
func (s *Service) CheckContactAccess(ctx context.Context, pid id.PaymentID) (*AccessStatus, error) {
	p, err := s.findPayment(ctx, pid, models.PurposeContactAccess)
	if err != nil {
		return nil, err
	}

	var granted *models.AccessGrant
	res, err := s.poll(ctx, p, func(ctx context.Context, p *models.PaymentRequest) error {
		g, changed, err := s.payments.ActivateGrant(ctx, p.ID, requestcontext.Now(ctx))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant access")
		}
		if changed {
			granted = g
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &AccessStatus{
		PaymentID: res.payment.ID,
		Status:    res.payment.Status,
		Paid:      res.payment.Paid(),
		Retryable: res.retryable,
	}
	if !out.Paid {
		return out, nil
	}

	g, first := granted, granted != nil
	if g == nil {
		g, first, err = s.paidGrant(ctx, pid)
		if err != nil {
			return nil, err
		}
	}
	record, err := s.records.FindByRef(ctx, g.Subject)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load granted report")
	}
	contact := contactOf(record)
	out.Contact = &contact

	receipt, expires, err := s.receipts.Issue(g, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue receipt")
	}
	out.Receipt = receipt
	out.ReceiptExpiresAt = expires

	if first {
		s.disclosed(ctx, g, contact)
	}
	return out, nil
}

// paidGrant loads the grant of a payment already known to be SUCCESSFUL and
// grants it when an earlier activation did not land. changed reports that this
// call did the granting.
func (s *Service) paidGrant(ctx context.Context, pid id.PaymentID) (*models.AccessGrant, bool, error) {
	g, err := s.payments.FindGrantByPayment(ctx, pid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, false, dErrors.New(dErrors.CodeNotFound, "access grant not found")
		}
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load access grant")
	}
	if g.Granted() {
		return g, false, nil
	}
	g, changed, err := s.payments.ActivateGrant(ctx, pid, requestcontext.Now(ctx))
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant access")
	}
	if changed {
		s.logger.WarnContext(ctx, "access grant repaired for paid payment", "payment_id", pid.String())
	}
	return g, changed, nil
}

func (s *Service) disclosed(ctx context.Context, g *models.AccessGrant, contact recmodels.ContactView) {
	s.metrics.IncActivation(models.PurposeContactAccess.String())
	s.auditor.Emit(ctx, audit.Event{
		Action:  string(audit.EventContactDisclosed),
		Subject: g.Subject.String(),
		Actor:   g.RequesterEmail,
		Detail:  "payment " + g.PaymentID.String(),
	})
	s.send(ctx, notify.Message{
		Template: notify.TemplateContactAccess,
		To:       g.RequesterEmail,
		Data: map[string]string{
			"full_name": contact.FullName,
			"phone":     contact.Phone,
			"email":     contact.Email,
		},
	})
}

// RevealContact returns the contact named by a receipt from a paid poll.
func (s *Service) RevealContact(ctx context.Context, receipt string) (*Disclosure, error) {
	claims, err := s.receipts.Verify(receipt, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	subject, err := claims.Report()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeForbidden, "receipt is not valid")
	}
	pid, err := claims.Payment()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeForbidden, "receipt is not valid")
	}

	g, err := s.payments.FindGrantByPayment(ctx, pid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "receipt is not valid")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load access grant")
	}
	if !g.Granted() || g.Subject != subject {
		return nil, dErrors.New(dErrors.CodeForbidden, "receipt is not valid")
	}

	record, err := s.records.FindByRef(ctx, subject)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load report")
	}
	return &Disclosure{Subject: subject, Contact: contactOf(record)}, nil
}

func contactOf(r *recmodels.Record) recmodels.ContactView {
	if r.Contact == nil {
		return recmodels.ContactView{}
	}
	return r.Contact.View()
}
