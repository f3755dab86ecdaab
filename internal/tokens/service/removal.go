package service

import (
	"context"
	"errors"

	"docufind/internal/audit"
	"docufind/internal/notify"
	recmodels "docufind/internal/records/models"
	"docufind/internal/tokens/models"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
	"docufind/pkg/platform/sentinel"
	"docufind/pkg/requestcontext"
)

// IssueRemoval mints a removal-confirmation token for subject and records it on
// the record as the pending removal. A newer removal token supersedes older ones.
func (s *Service) IssueRemoval(ctx context.Context, subject recmodels.Ref, reason id.RemovalReason) (*models.Issued, error) {
	rec, err := s.findLive(ctx, subject)
	if err != nil {
		return nil, err
	}
	return s.issueRemoval(ctx, rec, reason)
}

func (s *Service) issueRemoval(ctx context.Context, rec *recmodels.Record, reason id.RemovalReason) (*models.Issued, error) {
	issued, err := s.Issue(ctx, models.PurposeRemovalConfirmation, rec.Ref(), rec.ContactEmail(), models.RemovalPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	pending := recmodels.PendingRemoval{
		TokenHash: issued.Token.Hash,
		ExpiresAt: issued.Token.ExpiresAt,
		Reason:    reason,
	}
	if err := s.records.SetPendingRemoval(ctx, rec.Ref(), pending); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeConflict, "report already removed")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record removal request")
		}
	}
	return issued, nil
}

// RequestRemoval proves ownership with the owner name or document number and
// emails a removal-confirmation link to the contact on file.
func (s *Service) RequestRemoval(ctx context.Context, subject recmodels.Ref, verificationInput string, reason id.RemovalReason) error {
	rec, err := s.findLive(ctx, subject)
	if err != nil {
		return err
	}
	if !rec.MatchesVerification(verificationInput) {
		s.auditor.Emit(ctx, audit.Event{
			Action:  string(audit.EventVerificationDenied),
			Subject: subject.String(),
			Detail:  "removal verification mismatch",
		})
		return dErrors.New(dErrors.CodeForbidden, "verification failed")
	}
	email := rec.ContactEmail()
	if email == "" {
		return dErrors.New(dErrors.CodeValidation, "no email on file for this report")
	}

	issued, err := s.issueRemoval(ctx, rec, reason)
	if err != nil {
		return err
	}
	name := ""
	if rec.Contact != nil {
		name = rec.Contact.FullName
	}
	msg := notify.Message{
		Template: notify.TemplateRemovalConfirmation,
		To:       email,
		Data: map[string]string{
			"name":          name,
			"report_type":   rec.Kind.String(),
			"reason":        string(reason),
			"remove_url":    s.links.Remove(issued.Secret),
			"expires_hours": expiresHours(s.ttls.For(models.PurposeRemovalConfirmation)),
		},
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to queue removal confirmation email",
			"request_id", requestcontext.RequestID(ctx),
			"record", subject.String(),
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to send confirmation email")
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:  string(audit.EventRemovalRequested),
		Subject: subject.String(),
		Actor:   email,
		Detail:  string(reason),
	})
	return nil
}

// ConfirmRemoval soft-deletes the record behind a removal token. The token is
// checked first and only consumed once the record update succeeded, so a failed
// update can be retried with the same link. The record update is conditional on
// the token hash stored with the pending removal, which keeps it single-use.
// Expired, unknown or used tokens leave the record untouched; a token
// superseded by a newer removal request is rejected with Conflict.
func (s *Service) ConfirmRemoval(ctx context.Context, secret string) (*recmodels.Ref, error) {
	expect := models.ExpectPurpose(models.PurposeRemovalConfirmation)
	tok, err := s.check(ctx, secret, expect)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	rec, err := s.records.ConfirmRemoval(ctx, tok.Subject, tok.Hash, now)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			s.burn(ctx, secret, expect)
			return nil, dErrors.New(dErrors.CodeAlreadyUsed, "report already removed")
		case errors.Is(err, sentinel.ErrInvalidState):
			s.burn(ctx, secret, expect)
			return nil, dErrors.New(dErrors.CodeConflict, "a newer removal request replaced this link")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove report")
		}
	}
	s.burn(ctx, secret, expect)

	ref := rec.Ref()
	s.auditor.Emit(ctx, audit.Event{
		Action:  string(audit.EventRecordRemoved),
		Subject: ref.String(),
		Actor:   tok.Holder,
		Detail:  string(rec.RemovalReason),
	})
	s.logger.InfoContext(ctx, "report removed",
		"request_id", requestcontext.RequestID(ctx),
		"record", ref.String(),
		"reason", rec.RemovalReason,
	)
	return &ref, nil
}

// burn consumes a token whose work is already done. The record update is the
// source of truth, so a failure here is only logged.
func (s *Service) burn(ctx context.Context, secret string, expect models.Expectation) {
	if _, err := s.consume(ctx, secret, expect); err != nil && dErrors.HasCode(err, dErrors.CodeInternal) {
		s.logger.WarnContext(ctx, "failed to consume removal token",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}
