package service

import (
	"context"
	"strings"
	"time"

	"docufind/internal/audit"
	"docufind/internal/notify"
	recmodels "docufind/internal/records/models"
	"docufind/internal/tokens/models"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
	"docufind/pkg/requestcontext"
)

// ClaimStarted acknowledges a claim. The token itself only travels by email.
type ClaimStarted struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// ClaimResult is returned to a claimant who followed the emailed link.
type ClaimResult struct {
	Record recmodels.VerifiedView `json:"record"`
	// ImageToken unlocks the original photo of a found document once.
	ImageToken          string     `json:"image_token,omitempty"`
	ImageTokenExpiresAt *time.Time `json:"image_token_expires_at,omitempty"`
}

// ImageAccess is a short-lived address of an original photo.
type ImageAccess struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StartClaim checks the optional document number against the record and emails
// a claim-verification link to the claimant.
func (s *Service) StartClaim(ctx context.Context, req StartClaimRequest) (*ClaimStarted, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.findLive(ctx, req.Subject())
	if err != nil {
		return nil, err
	}
	if req.DocumentNumber != "" && rec.HasDocumentNumber() &&
		!strings.EqualFold(req.DocumentNumber, strings.TrimSpace(rec.DocumentNumber)) {
		s.auditor.Emit(ctx, audit.Event{
			Action:  string(audit.EventVerificationDenied),
			Subject: rec.Ref().String(),
			Actor:   req.Email,
			Detail:  "claim document number mismatch",
		})
		return nil, dErrors.New(dErrors.CodeForbidden, "document number does not match our records")
	}

	issued, err := s.Issue(ctx, models.PurposeClaimVerification, rec.Ref(), req.Email, models.ClaimPayload{Phone: req.Phone})
	if err != nil {
		return nil, err
	}
	msg := notify.Message{
		Template: notify.TemplateClaimVerification,
		To:       req.Email,
		Data: map[string]string{
			"verify_url":    s.links.Verify(issued.Secret),
			"report_type":   rec.Kind.String(),
			"expires_hours": expiresHours(s.ttls.For(models.PurposeClaimVerification)),
		},
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to queue claim verification email",
			"request_id", requestcontext.RequestID(ctx),
			"record", rec.Ref().String(),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to send verification email")
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:  string(audit.EventClaimStarted),
		Subject: rec.Ref().String(),
		Actor:   req.Email,
	})
	return &ClaimStarted{ExpiresAt: issued.Token.ExpiresAt}, nil
}

// VerifyClaim redeems a claim token and discloses the unmasked record with its
// contact. Found records with a photo also get a one-time image-access token.
func (s *Service) VerifyClaim(ctx context.Context, secret string) (*ClaimResult, error) {
	red, err := s.Redeem(ctx, secret, models.ExpectPurpose(models.PurposeClaimVerification))
	if err != nil {
		return nil, err
	}
	rec := red.Record
	result := &ClaimResult{Record: rec.ToVerified(true)}

	if rec.Kind == id.RecordKindFound && rec.Image.Original != "" {
		img, err := s.Issue(ctx, models.PurposeImageAccess, rec.Ref(), red.Token.Holder, models.ImageAccessPayload{})
		if err != nil {
			// The claim still succeeds without a photo token.
			s.logger.WarnContext(ctx, "failed to issue image access token",
				"request_id", requestcontext.RequestID(ctx),
				"record", rec.Ref().String(),
				"error", err,
			)
		} else {
			result.ImageToken = img.Secret
			result.ImageTokenExpiresAt = &img.Token.ExpiresAt
		}
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:  string(audit.EventClaimVerified),
		Subject: rec.Ref().String(),
		Actor:   red.Token.Holder,
	})
	return result, nil
}

// ProtectedImage redeems an image-access token scoped to subject and returns a
// short-lived URL of the original photo.
func (s *Service) ProtectedImage(ctx context.Context, secret string, subject recmodels.Ref) (*ImageAccess, error) {
	red, err := s.Redeem(ctx, secret, models.ExpectScoped(models.PurposeImageAccess, subject))
	if err != nil {
		return nil, err
	}
	url, expiresAt, err := s.images.OriginalURL(ctx, red.Record)
	if err != nil {
		return nil, err
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:  string(audit.EventImageAccessed),
		Subject: subject.String(),
		Actor:   red.Token.Holder,
	})
	return &ImageAccess{URL: url, ExpiresAt: expiresAt}, nil
}
