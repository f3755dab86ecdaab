package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	recmodels "docufind/internal/records/models"
	"docufind/internal/tokens/models"
	"docufind/internal/tokens/service"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
	"docufind/pkg/platform/httputil"
	"docufind/pkg/requestcontext"
)

// Service defines the token flows exposed over HTTP.
type Service interface {
	StartClaim(ctx context.Context, req service.StartClaimRequest) (*service.ClaimStarted, error)
	VerifyClaim(ctx context.Context, secret string) (*service.ClaimResult, error)
	ProtectedImage(ctx context.Context, secret string, subject recmodels.Ref) (*service.ImageAccess, error)
	RequestRemoval(ctx context.Context, subject recmodels.Ref, verificationInput string, reason id.RemovalReason) error
	ConfirmRemoval(ctx context.Context, secret string) (*recmodels.Ref, error)
	Inspect(ctx context.Context, secret string, purpose models.Purpose) (*service.TokenPreview, error)
}

// Handler serves claim, protected image and removal endpoints.
type Handler struct {
	logger *slog.Logger
	tokens Service
}

// New creates a token Handler.
func New(tokens Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, tokens: tokens}
}

// Register mounts the token routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/claims/start", h.handleStartClaim)
	// Emailed links are opened with GET, often by mail scanners first, so GET
	// only previews a token and POST spends it.
	r.Get("/claims/verify", h.handlePreview(models.PurposeClaimVerification))
	r.Post("/claims/verify", h.handleVerifyClaim)
	r.Get("/protected-image", h.handleProtectedImage)
	r.Post("/documents/{kind}/{id}/request-removal", h.handleRequestRemoval)
	r.Get("/documents/confirm-removal", h.handlePreview(models.PurposeRemovalConfirmation))
	r.Post("/documents/confirm-removal", h.handleConfirmRemoval)
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (r *tokenRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)
	if r.Token == "" {
		return dErrors.New(dErrors.CodeBadRequest, "missing token")
	}
	return nil
}

type previewResponse struct {
	Valid      bool           `json:"valid"`
	Purpose    models.Purpose `json:"purpose"`
	ReportType id.RecordKind  `json:"report_type"`
	ReportID   id.RecordID    `json:"report_id"`
	ExpiresAt  time.Time      `json:"expires_at"`
}

func (h *Handler) handlePreview(purpose models.Purpose) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token := r.URL.Query().Get("token")
		if token == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing token"))
			return
		}
		preview, err := h.tokens.Inspect(ctx, token, purpose)
		if err != nil {
			h.fail(ctx, w, "preview "+purpose.String(), err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, previewResponse{
			Valid:      true,
			Purpose:    preview.Purpose,
			ReportType: preview.Subject.Kind,
			ReportID:   preview.Subject.ID,
			ExpiresAt:  preview.ExpiresAt,
		})
	}
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) handleStartClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[service.StartClaimRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if _, err := h.tokens.StartClaim(ctx, *req); err != nil {
		h.fail(ctx, w, "start claim", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "Verification email sent. Please check your email.",
	})
}

func (h *Handler) handleVerifyClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[tokenRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := h.tokens.VerifyClaim(ctx, req.Token)
	if err != nil {
		h.fail(ctx, w, "verify claim", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleProtectedImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	token := q.Get("token")
	if token == "" || q.Get("report_type") == "" || q.Get("report_id") == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing params"))
		return
	}
	subject, err := recmodels.ParseRef(q.Get("report_type"), q.Get("report_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	access, err := h.tokens.ProtectedImage(ctx, token, subject)
	if err != nil {
		h.fail(ctx, w, "protected image", err)
		return
	}
	if r.URL.Query().Get("redirect") == "true" {
		http.Redirect(w, r, access.URL, http.StatusFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, access)
}

func (h *Handler) handleRequestRemoval(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	subject, err := recmodels.ParseRef(chi.URLParam(r, "kind"), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[service.RemovalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.tokens.RequestRemoval(ctx, subject, req.VerificationInput, req.RemovalReason()); err != nil {
		h.fail(ctx, w, "request removal", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "Check your email to confirm the removal.",
	})
}

type removalConfirmedResponse struct {
	Success    bool          `json:"success"`
	ReportType id.RecordKind `json:"report_type"`
	ReportID   id.RecordID   `json:"report_id"`
}

func (h *Handler) handleConfirmRemoval(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[tokenRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	ref, err := h.tokens.ConfirmRemoval(ctx, req.Token)
	if err != nil {
		h.fail(ctx, w, "confirm removal", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, removalConfirmedResponse{
		Success:    true,
		ReportType: ref.Kind,
		ReportID:   ref.ID,
	})
}

// fail logs at a level matching the error class and writes the envelope.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, op+" rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
