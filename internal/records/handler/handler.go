package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"docufind/internal/images"
	"docufind/internal/records/models"
	"docufind/internal/records/service"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
	"docufind/pkg/platform/httputil"
	"docufind/pkg/requestcontext"
)

const (
	dateLayout     = "2006-01-02"
	maxFormMemory  = 1 << 20
	maxRequestBody = images.MaxUploadBytes + 1<<20
)

// Service defines the registry operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, req service.CreateRequest) (*service.Created, error)
	List(ctx context.Context, q models.ListQuery) ([]models.PublicView, error)
	Get(ctx context.Context, ref models.Ref) (*models.PublicView, error)
	VerifyInput(ctx context.Context, ref models.Ref, input string) (*models.VerifiedView, error)
	Stats(ctx context.Context) (models.Stats, error)
	DocumentTypes(ctx context.Context) ([]models.DocumentType, error)
}

// Handler serves report submission, listings and instant verification.
type Handler struct {
	logger  *slog.Logger
	records Service
}

func New(records Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, records: records}
}

// Register mounts the registry routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/document-types", h.handleDocumentTypes)
	r.Get("/stats", h.handleStats)
	r.Post("/lost", h.handleCreate(id.RecordKindLost))
	r.Post("/found", h.handleCreate(id.RecordKindFound))
	r.Get("/lost/search", h.handleList(id.RecordKindLost))
	r.Get("/found/search", h.handleList(id.RecordKindFound))
	r.Post("/verify/{kind}/{id}", h.handleVerify)
	r.Get("/{kind}/{id}", h.handleGet)
}

type createdResponse struct {
	Success bool              `json:"success"`
	Record  models.PublicView `json:"record"`
}

type listResponse struct {
	Results []models.PublicView `json:"results"`
	Count   int                 `json:"count"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
}

type verifyResponse struct {
	Verified bool                `json:"verified"`
	Record   models.VerifiedView `json:"record"`
}

func (h *Handler) handleDocumentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.records.DocumentTypes(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "document types", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, types)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.records.Stats(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "stats", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) handleCreate(kind id.RecordKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req, err := parseCreateForm(w, r, kind)
		if err != nil {
			h.logger.WarnContext(ctx, "invalid report form",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		created, err := h.records.Create(ctx, *req)
		if err != nil {
			h.fail(ctx, w, "create "+kind.String()+" report", err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, createdResponse{Success: true, Record: created.View})
	}
}

// parseCreateForm reads a multipart (or urlencoded) report form.
func parseCreateForm(w http.ResponseWriter, r *http.Request, kind id.RecordKind) (*service.CreateRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid form body")
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid form body")
	}

	req := &service.CreateRequest{
		Kind:            kind,
		DocumentNumber:  r.FormValue("document_number"),
		Description:     r.FormValue("description"),
		ContactFullName: r.FormValue("contact_full_name"),
		ContactPhone:    r.FormValue("contact_phone"),
		ContactEmail:    r.FormValue("contact_email"),
	}
	var err error
	if req.DocumentTypeID, err = strconv.Atoi(strings.TrimSpace(r.FormValue("document_type"))); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "document_type must be a number")
	}

	eventField := "when_found"
	if kind == id.RecordKindLost {
		req.Name = firstValue(r, "owner_name", "Owner_name")
		req.Location = r.FormValue("where_lost")
		eventField = "when_lost"
		if req.IssueDate, err = parseDate(r, "issue_date"); err != nil {
			return nil, err
		}
	} else {
		req.Name = r.FormValue("found_name")
		req.Location = r.FormValue("where_found")
	}
	if req.EventDate, err = parseDate(r, eventField); err != nil {
		return nil, err
	}

	upload, err := readImage(r)
	if err != nil {
		return nil, err
	}
	req.Image = upload
	return req, nil
}

func firstValue(r *http.Request, keys ...string) string {
	for _, k := range keys {
		if v := r.FormValue(k); v != "" {
			return v
		}
	}
	return ""
}

func parseDate(r *http.Request, field string) (*time.Time, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, field+" must be YYYY-MM-DD")
	}
	return &t, nil
}

func readImage(r *http.Request) (*images.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid image upload")
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, images.MaxUploadBytes+1))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid image upload")
	}
	return &images.Upload{Data: data, ContentType: header.Header.Get("Content-Type")}, nil
}

func (h *Handler) handleList(kind id.RecordKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()
		query := models.ListQuery{Kind: kind, Search: q.Get("search")}
		var err error
		if query.DocumentTypeID, err = intParam(q.Get("document_type")); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "document_type must be a number"))
			return
		}
		if query.Limit, err = intParam(q.Get("limit")); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a number"))
			return
		}
		if query.Offset, err = intParam(q.Get("offset")); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "offset must be a number"))
			return
		}
		views, err := h.records.List(ctx, query)
		if err != nil {
			h.fail(ctx, w, "list "+kind.String()+" reports", err)
			return
		}
		query.Normalize()
		httputil.WriteJSON(w, http.StatusOK, listResponse{
			Results: views,
			Count:   len(views),
			Limit:   query.Limit,
			Offset:  query.Offset,
		})
	}
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref, err := models.ParseRef(chi.URLParam(r, "kind"), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	view, err := h.records.Get(ctx, ref)
	if err != nil {
		h.fail(ctx, w, "get report", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	ref, err := models.ParseRef(chi.URLParam(r, "kind"), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[service.VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	view, err := h.records.VerifyInput(ctx, ref, req.VerificationInput)
	if err != nil {
		h.fail(ctx, w, "verify report", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verifyResponse{Verified: true, Record: *view})
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
