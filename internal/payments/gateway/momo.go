package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	tokenPath       = "/collection/token/"
	requestToPayURL = "/collection/v1_0/requesttopay"
)

// MoMoConfig holds MTN MoMo collection API credentials.
type MoMoConfig struct {
	BaseURL           string
	SubscriptionKey   string
	APIUser           string
	APIKey            string
	TargetEnvironment string
	Timeout           time.Duration
}

// MoMo is the MTN Mobile Money collection API client. Access tokens are fetched
// with the API user and key and cached until they expire.
type MoMo struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	tracer  trace.Tracer
	logger  *slog.Logger
}

type MoMoOption func(*momoOptions)

type momoOptions struct {
	transport http.RoundTripper
	logger    *slog.Logger
}

// WithTransport replaces the underlying HTTP transport (used by tests).
func WithTransport(rt http.RoundTripper) MoMoOption {
	return func(o *momoOptions) { o.transport = rt }
}

func WithLogger(logger *slog.Logger) MoMoOption {
	return func(o *momoOptions) { o.logger = logger }
}

func NewMoMo(cfg MoMoConfig, opts ...MoMoOption) *MoMo {
	o := momoOptions{transport: http.DefaultTransport, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	apim := &apimTransport{
		base:              o.transport,
		subscriptionKey:   cfg.SubscriptionKey,
		targetEnvironment: cfg.TargetEnvironment,
	}
	tokenClient := &http.Client{Transport: apim, Timeout: timeout}
	cc := clientcredentials.Config{
		ClientID:     cfg.APIUser,
		ClientSecret: cfg.APIKey,
		TokenURL:     baseURL + tokenPath,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, tokenClient)

	return &MoMo{
		baseURL: baseURL,
		timeout: timeout,
		client: &http.Client{
			Transport: &oauth2.Transport{
				Source: bearerSource{src: cc.TokenSource(tokenCtx)},
				Base:   apim,
			},
		},
		tracer: otel.Tracer("docufind/payments/gateway"),
		logger: o.logger,
	}
}

// apimTransport adds the API management headers every MoMo call needs,
// including the token request.
type apimTransport struct {
	base              http.RoundTripper
	subscriptionKey   string
	targetEnvironment string
}

func (t *apimTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Ocp-Apim-Subscription-Key", t.subscriptionKey)
	if t.targetEnvironment != "" {
		r.Header.Set("X-Target-Environment", t.targetEnvironment)
	}
	return t.base.RoundTrip(r)
}

// bearerSource fixes the token type. MoMo answers with token_type
// "access_token" but expects a Bearer authorization header.
type bearerSource struct {
	src oauth2.TokenSource
}

func (b bearerSource) Token() (*oauth2.Token, error) {
	t, err := b.src.Token()
	if err != nil {
		return nil, err
	}
	cp := *t
	cp.TokenType = "Bearer"
	return &cp, nil
}

type momoParty struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

type momoPayBody struct {
	Amount       string    `json:"amount"`
	Currency     string    `json:"currency"`
	ExternalID   string    `json:"externalId"`
	Payer        momoParty `json:"payer"`
	PayerMessage string    `json:"payerMessage"`
	PayeeNote    string    `json:"payeeNote"`
}

type momoStatusBody struct {
	Status                 string          `json:"status"`
	FinancialTransactionID string          `json:"financialTransactionId"`
	Reason                 json.RawMessage `json:"reason"`
}

// RequestToPay sends the debit request. The provider answers 202 Accepted and
// processes it asynchronously.
func (m *MoMo) RequestToPay(ctx context.Context, req PayRequest) (err error) {
	const op = "request_to_pay"
	ctx, span := m.tracer.Start(ctx, "gateway.RequestToPay", trace.WithAttributes(
		attribute.String("payment.reference_id", req.ReferenceID),
		attribute.Int64("payment.amount", req.Amount),
	))
	defer func() { endSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	body, err := json.Marshal(momoPayBody{
		Amount:       strconv.FormatInt(req.Amount, 10),
		Currency:     req.Currency,
		ExternalID:   req.ExternalID,
		Payer:        momoParty{PartyIDType: "MSISDN", PartyID: req.PayerPhone},
		PayerMessage: req.PayerMessage,
		PayeeNote:    req.PayeeNote,
	})
	if err != nil {
		return NewError(CategoryBadData, op, "encode request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+requestToPayURL, bytes.NewReader(body))
	if err != nil {
		return NewError(CategoryBadData, op, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Reference-Id", req.ReferenceID)

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return classifyTransport(op, err)
	}
	defer drain(resp)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusAccepted {
		return classifyResponse(op, resp)
	}
	m.logger.InfoContext(ctx, "request to pay accepted",
		"reference_id", req.ReferenceID,
		"amount", req.Amount,
		"currency", req.Currency,
	)
	return nil
}

// Status reads the current state of a request-to-pay.
func (m *MoMo) Status(ctx context.Context, referenceID string) (_ *StatusResult, err error) {
	const op = "status"
	ctx, span := m.tracer.Start(ctx, "gateway.Status", trace.WithAttributes(
		attribute.String("payment.reference_id", referenceID),
	))
	defer func() { endSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		m.baseURL+requestToPayURL+"/"+url.PathEscape(referenceID), nil)
	if err != nil {
		return nil, NewError(CategoryBadData, op, "build request", err)
	}
	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(op, err)
	}
	defer drain(resp)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		return nil, classifyResponse(op, resp)
	}
	var body momoStatusBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return nil, NewError(CategoryBadData, op, "decode status", err)
	}
	status, ok := normalizeStatus(body.Status)
	if !ok {
		return nil, NewError(CategoryBadData, op, "unknown status "+body.Status, nil)
	}
	span.SetAttributes(attribute.String("payment.status", string(status)))
	return &StatusResult{
		Status:        status,
		TransactionID: body.FinancialTransactionID,
		Reason:        reasonText(body.Reason),
	}, nil
}

func normalizeStatus(s string) (Status, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SUCCESSFUL":
		return StatusSuccessful, true
	case "PENDING", "CREATED", "ONGOING":
		return StatusPending, true
	case "FAILED", "REJECTED", "TIMEOUT", "EXPIRED":
		return StatusFailed, true
	default:
		return "", false
	}
}

// reasonText accepts both the string and the {code, message} reason shapes.
func reasonText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Code != "" {
			return obj.Code
		}
		return obj.Message
	}
	return ""
}

func classifyTransport(op string, err error) *Error {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		category := CategoryAuth
		if retrieve.Response != nil && retrieve.Response.StatusCode >= 500 {
			category = CategoryOutage
		}
		return NewError(category, op, "access token request failed", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(CategoryTimeout, op, "gateway timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(CategoryTimeout, op, "gateway timed out", err)
	}
	return NewError(CategoryTransport, op, "gateway unreachable", err)
}

func classifyResponse(op string, resp *http.Response) *Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	msg := strings.TrimSpace(string(raw))
	var category Category
	switch code := resp.StatusCode; {
	case code == http.StatusBadRequest || code == http.StatusConflict || code == http.StatusUnprocessableEntity:
		category = CategoryRejected
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		category = CategoryAuth
	case code == http.StatusNotFound:
		category = CategoryNotFound
	case code == http.StatusTooManyRequests:
		category = CategoryRateLimited
	case code >= 500:
		category = CategoryOutage
	default:
		category = CategoryBadData
	}
	e := NewError(category, op, msg, nil)
	e.StatusCode = resp.StatusCode
	return e
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(CategoryOf(err)))
	}
	span.End()
}
