package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"docufind/internal/payments/models"
	"docufind/internal/payments/service"
	recmodels "docufind/internal/records/models"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
	"docufind/pkg/platform/httputil"
	"docufind/pkg/requestcontext"
)

// Service defines the payment flows exposed over HTTP.
type Service interface {
	RequestContactAccess(ctx context.Context, req service.ContactAccessRequest) (*service.PaymentStarted, error)
	CheckContactAccess(ctx context.Context, pid id.PaymentID) (*service.AccessStatus, error)
	RevealContact(ctx context.Context, receipt string) (*service.Disclosure, error)
	UpgradeToPremium(ctx context.Context, req service.PremiumRequest) (*service.PaymentStarted, error)
	CheckPremium(ctx context.Context, pid id.PaymentID) (*service.PremiumStatus, error)
}

// Handler serves contact-access and premium payment endpoints.
type Handler struct {
	logger   *slog.Logger
	payments Service
}

func New(payments Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, payments: payments}
}

// Register mounts the payment routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/payment/request", h.handleRequestContactAccess)
	r.Get("/payment/status/{id}", h.handleContactAccessStatus)
	r.Post("/payment/reveal", h.handleReveal)
	r.Post("/premium/upgrade", h.handleUpgrade)
	r.Get("/premium/status/{id}", h.handlePremiumStatus)
}

type paymentStartedResponse struct {
	Success   bool          `json:"success"`
	PaymentID id.PaymentID  `json:"payment_id"`
	Amount    int64         `json:"amount"`
	Currency  string        `json:"currency"`
	Status    models.Status `json:"status"`
	Retryable bool          `json:"retryable,omitempty"`
	Message   string        `json:"message"`
}

func toStarted(p *service.PaymentStarted) paymentStartedResponse {
	msg := "Approve the payment on your phone."
	if p.Retryable {
		msg = "The payment provider is slow to respond. If a prompt arrives on your phone, approve it, then check the payment status."
	}
	return paymentStartedResponse{
		Success:   true,
		PaymentID: p.PaymentID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Status:    p.Status,
		Retryable: p.Retryable,
		Message:   msg,
	}
}

type accessStatusResponse struct {
	PaymentID        id.PaymentID           `json:"payment_id"`
	Status           models.Status          `json:"status"`
	Paid             bool                   `json:"paid"`
	Retryable        bool                   `json:"retryable,omitempty"`
	Contact          *recmodels.ContactView `json:"contact,omitempty"`
	Receipt          string                 `json:"receipt,omitempty"`
	ReceiptExpiresAt *time.Time             `json:"receipt_expires_at,omitempty"`
}

type premiumStatusResponse struct {
	PaymentID        id.PaymentID  `json:"payment_id"`
	Status           models.Status `json:"status"`
	Paid             bool          `json:"paid"`
	Retryable        bool          `json:"retryable,omitempty"`
	PremiumExpiresAt *time.Time    `json:"premium_expires_at,omitempty"`
}

type revealRequest struct {
	Receipt string `json:"receipt"`
}

func (r *revealRequest) Validate() error {
	r.Receipt = strings.TrimSpace(r.Receipt)
	if r.Receipt == "" {
		return dErrors.New(dErrors.CodeBadRequest, "receipt is required")
	}
	return nil
}

type revealResponse struct {
	ReportType id.RecordKind         `json:"report_type"`
	ReportID   id.RecordID           `json:"report_id"`
	Contact    recmodels.ContactView `json:"contact"`
}

func (h *Handler) handleRequestContactAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[service.ContactAccessRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	started, err := h.payments.RequestContactAccess(ctx, *req)
	if err != nil {
		h.fail(ctx, w, "request contact access", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStarted(started))
}

func (h *Handler) handleContactAccessStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pid, ok := h.paymentID(w, r)
	if !ok {
		return
	}
	st, err := h.payments.CheckContactAccess(ctx, pid)
	if err != nil {
		h.fail(ctx, w, "contact access status", err)
		return
	}
	resp := accessStatusResponse{
		PaymentID: st.PaymentID,
		Status:    st.Status,
		Paid:      st.Paid,
		Retryable: st.Retryable,
		Contact:   st.Contact,
		Receipt:   st.Receipt,
	}
	if !st.ReceiptExpiresAt.IsZero() {
		expires := st.ReceiptExpiresAt
		resp.ReceiptExpiresAt = &expires
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReveal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[revealRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	d, err := h.payments.RevealContact(ctx, req.Receipt)
	if err != nil {
		h.fail(ctx, w, "reveal contact", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, revealResponse{
		ReportType: d.Subject.Kind,
		ReportID:   d.Subject.ID,
		Contact:    d.Contact,
	})
}

func (h *Handler) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[service.PremiumRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	started, err := h.payments.UpgradeToPremium(ctx, *req)
	if err != nil {
		h.fail(ctx, w, "premium upgrade", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStarted(started))
}

func (h *Handler) handlePremiumStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pid, ok := h.paymentID(w, r)
	if !ok {
		return
	}
	st, err := h.payments.CheckPremium(ctx, pid)
	if err != nil {
		h.fail(ctx, w, "premium status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, premiumStatusResponse{
		PaymentID:        st.PaymentID,
		Status:           st.Status,
		Paid:             st.Paid,
		Retryable:        st.Retryable,
		PremiumExpiresAt: st.PremiumExpiresAt,
	})
}

func (h *Handler) paymentID(w http.ResponseWriter, r *http.Request) (id.PaymentID, bool) {
	pid, err := id.ParsePaymentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.PaymentID{}, false
	}
	return pid, true
}

// fail logs at a level matching the error class and writes the envelope.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal:
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	case dErrors.CodeGatewayUnavailable:
		h.logger.WarnContext(ctx, op+" unavailable",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	default:
		h.logger.InfoContext(ctx, op+" rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
