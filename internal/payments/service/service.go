// Package service runs the payment-gated flows: paying for a report's contact
// details and paying for a featured lost listing.
//
// Every flow has the same shape. A PaymentRequest is stored PENDING together
// with what it will unlock, the gateway is asked to debit the payer, and the
// client polls. The poll that first observes SUCCESSFUL records the transition
// and performs the unlock in one transaction; later polls see a terminal status
// and never call the gateway or unlock again.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"docufind/internal/audit"
	"docufind/internal/notify"
	"docufind/internal/payments/gateway"
	"docufind/internal/payments/grant"
	"docufind/internal/payments/metrics"
	"docufind/internal/payments/models"
	recmodels "docufind/internal/records/models"
	id "docufind/pkg/domain"
	dErrors "docufind/pkg/domain-errors"
	"docufind/pkg/platform/sentinel"
	txcontext "docufind/pkg/platform/tx"
	"docufind/pkg/requestcontext"
)

// Store persists payments and access grants. Complete and ActivateGrant must be
// conditional so only one caller observes changed=true.
type Store interface {
	Create(ctx context.Context, p *models.PaymentRequest) error
	FindByID(ctx context.Context, pid id.PaymentID) (*models.PaymentRequest, error)
	Complete(ctx context.Context, pid id.PaymentID, o models.Outcome, now time.Time) (*models.PaymentRequest, bool, error)
	CreateGrant(ctx context.Context, g *models.AccessGrant) error
	FindGrantByPayment(ctx context.Context, pid id.PaymentID) (*models.AccessGrant, error)
	ActivateGrant(ctx context.Context, pid id.PaymentID, now time.Time) (*models.AccessGrant, bool, error)
	ListPending(ctx context.Context, cutoff time.Time, limit int) ([]*models.PaymentRequest, error)
}

// RecordStore is the slice of the record repository payments touch.
type RecordStore interface {
	FindByRef(ctx context.Context, ref recmodels.Ref) (*recmodels.Record, error)
	AttachPremiumPayment(ctx context.Context, recordID id.RecordID, prev *id.PaymentID, paymentID id.PaymentID) error
	ActivatePremiumByPayment(ctx context.Context, paymentID id.PaymentID, now time.Time, window time.Duration) (*recmodels.Record, error)
	FindByPremiumPayment(ctx context.Context, paymentID id.PaymentID) (*recmodels.Record, error)
}

// Receipts signs and checks contact-access receipts.
type Receipts interface {
	Issue(g *models.AccessGrant, now time.Time) (string, time.Time, error)
	Verify(receipt string, now time.Time) (*grant.Claims, error)
}

// Fees are charged per flow, in whole currency units.
type Fees struct {
	Currency      string
	ContactAccess int64
	Premium       int64
	PremiumWindow time.Duration
}

func DefaultFees() Fees {
	return Fees{
		Currency:      "RWF",
		ContactAccess: 2000,
		Premium:       500,
		PremiumWindow: 7 * 24 * time.Hour,
	}
}

// Service is the disclosure and premium payment controller.
type Service struct {
	payments Store
	records  RecordStore
	gateway  gateway.Gateway
	tx       txcontext.Runner
	receipts Receipts
	notifier notify.Dispatcher
	fees     Fees
	auditor  *audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithFees(fees Fees) Option {
	return func(s *Service) { s.fees = fees }
}

func WithAuditor(p *audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(payments Store, records RecordStore, gw gateway.Gateway, tx txcontext.Runner, receipts Receipts, notifier notify.Dispatcher, opts ...Option) *Service {
	s := &Service{
		payments: payments,
		records:  records,
		gateway:  gw,
		tx:       tx,
		receipts: receipts,
		notifier: notifier,
		fees:     DefaultFees(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PaymentStarted is returned once a request-to-pay is on its way. Retryable is
// set when the gateway could not confirm receipt; the payment stays PENDING and
// status polls settle it.
type PaymentStarted struct {
	PaymentID id.PaymentID
	Status    models.Status
	Amount    int64
	Currency  string
	Retryable bool
}

func started(p *models.PaymentRequest, retryable bool) *PaymentStarted {
	return &PaymentStarted{PaymentID: p.ID, Status: p.Status, Amount: p.Amount, Currency: p.Currency, Retryable: retryable}
}

// unknownReferenceGrace is how long a pending payment may be unknown to the
// provider before it is treated as never received.
const unknownReferenceGrace = 2 * time.Minute

// pollResult is one status check. Retryable is set when the gateway could not
// be asked and the payment stays PENDING.
type pollResult struct {
	payment   *models.PaymentRequest
	changed   bool
	retryable bool
}

// unlockFunc performs a flow's side effect inside the transaction that records
// the first SUCCESSFUL status.
type unlockFunc func(ctx context.Context, p *models.PaymentRequest) error

// start stores p with its flow-specific intent, then asks the gateway to debit
// the payer. A refused request marks p FAILED. When the outcome is unknown
// (timeout, transport error, provider outage) the provider may still have taken
// the request, so p stays PENDING and start reports retryable.
func (s *Service) start(ctx context.Context, p *models.PaymentRequest, subject recmodels.Ref, actor, note string, intent func(ctx context.Context) error) (bool, error) {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.payments.Create(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store payment")
		}
		return intent(ctx)
	})
	if err != nil {
		return false, err
	}

	gerr := s.gateway.RequestToPay(ctx, gateway.PayRequest{
		ReferenceID:  p.ReferenceID,
		ExternalID:   p.ID.String(),
		PayerPhone:   p.PayerPhone,
		Amount:       p.Amount,
		Currency:     p.Currency,
		PayerMessage: note,
		PayeeNote:    note,
	})
	retryable := false
	if gerr != nil {
		if !outcomeUnknown(gerr) {
			return false, s.failInitiation(ctx, p, subject, actor, gerr)
		}
		retryable = true
		category := gateway.CategoryOf(gerr)
		s.metrics.IncGatewayError("request_to_pay", string(category))
		s.logger.WarnContext(ctx, "request to pay outcome unknown, payment left pending",
			"request_id", requestcontext.RequestID(ctx),
			"payment_id", p.ID.String(),
			"category", string(category),
			"error", gerr,
		)
	}

	s.metrics.IncRequested(p.Purpose.String())
	s.auditor.Emit(ctx, audit.Event{
		Action:  string(audit.EventPaymentRequested),
		Subject: subject.String(),
		Actor:   actor,
		Detail:  p.Purpose.String() + " payment " + p.ID.String(),
	})
	s.logger.InfoContext(ctx, "payment requested",
		"request_id", requestcontext.RequestID(ctx),
		"payment_id", p.ID.String(),
		"purpose", p.Purpose.String(),
		"subject", subject.String(),
		"amount", p.Amount,
		"retryable", retryable,
	)
	return retryable, nil
}

// outcomeUnknown is true for failures after which the provider may or may not
// hold the request. An open circuit or a rate limit means it was never sent.
func outcomeUnknown(err error) bool {
	switch gateway.CategoryOf(err) {
	case gateway.CategoryTimeout, gateway.CategoryTransport, gateway.CategoryOutage:
		return true
	default:
		return false
	}
}

func (s *Service) failInitiation(ctx context.Context, p *models.PaymentRequest, subject recmodels.Ref, actor string, gerr error) error {
	category := gateway.CategoryOf(gerr)
	s.metrics.IncGatewayError("request_to_pay", string(category))

	now := requestcontext.Now(ctx)
	if _, changed, err := s.payments.Complete(ctx, p.ID, models.Outcome{Status: models.StatusFailed, Reason: string(category)}, now); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark payment failed",
			"payment_id", p.ID.String(),
			"error", err,
		)
	} else if changed {
		s.metrics.IncTransition(p.Purpose.String(), models.StatusFailed.String())
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:  string(audit.EventPaymentFailed),
		Subject: subject.String(),
		Actor:   actor,
		Detail:  string(category),
	})
	s.logger.WarnContext(ctx, "request to pay failed",
		"request_id", requestcontext.RequestID(ctx),
		"payment_id", p.ID.String(),
		"category", string(category),
		"error", gerr,
	)
	if gateway.IsRejected(gerr) {
		return dErrors.Wrap(gerr, dErrors.CodePaymentRejected, "payment was rejected by the mobile money provider")
	}
	return dErrors.Wrap(gerr, dErrors.CodeGatewayUnavailable, "mobile money provider is unavailable, please try again")
}

// poll asks the gateway once unless p is already terminal.
func (s *Service) poll(ctx context.Context, p *models.PaymentRequest, unlock unlockFunc) (*pollResult, error) {
	if p.Status.IsTerminal() {
		return &pollResult{payment: p}, nil
	}

	res, err := s.gateway.Status(ctx, p.ReferenceID)
	if err != nil && gateway.CategoryOf(err) == gateway.CategoryNotFound &&
		requestcontext.Now(ctx).Sub(p.CreatedAt) > unknownReferenceGrace {
		// The provider never received the request-to-pay.
		res, err = &gateway.StatusResult{Status: gateway.StatusFailed, Reason: string(gateway.CategoryNotFound)}, nil
	}
	if err != nil {
		category := gateway.CategoryOf(err)
		s.metrics.IncGatewayError("status", string(category))
		s.logger.WarnContext(ctx, "payment status check failed",
			"request_id", requestcontext.RequestID(ctx),
			"payment_id", p.ID.String(),
			"category", string(category),
			"error", err,
		)
		return &pollResult{payment: p, retryable: true}, nil
	}
	status, err := models.ParseStatus(string(res.Status))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "unexpected gateway status")
	}
	if status == models.StatusPending {
		s.metrics.IncPending()
		return &pollResult{payment: p}, nil
	}

	outcome := models.Outcome{Status: status, TransactionID: res.TransactionID, Reason: res.Reason}
	var (
		updated *models.PaymentRequest
		changed bool
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		updated, changed, err = s.payments.Complete(ctx, p.ID, outcome, requestcontext.Now(ctx))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment status")
		}
		if changed && updated.Paid() {
			return unlock(ctx, updated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.metrics.IncTransition(updated.Purpose.String(), updated.Status.String())
		s.logger.InfoContext(ctx, "payment completed",
			"request_id", requestcontext.RequestID(ctx),
			"payment_id", updated.ID.String(),
			"purpose", updated.Purpose.String(),
			"status", updated.Status.String(),
		)
	}
	return &pollResult{payment: updated, changed: changed}, nil
}

func (s *Service) findPayment(ctx context.Context, pid id.PaymentID, purpose models.Purpose) (*models.PaymentRequest, error) {
	p, err := s.payments.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "payment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
	}
	if p.Purpose != purpose {
		return nil, dErrors.New(dErrors.CodeNotFound, "payment not found")
	}
	return p, nil
}

// findLive loads a record that is still publicly listed.
func (s *Service) findLive(ctx context.Context, ref recmodels.Ref) (*recmodels.Record, error) {
	r, err := s.records.FindByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load report")
	}
	if r.Removed {
		return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
	}
	return r, nil
}

func (s *Service) send(ctx context.Context, msg notify.Message) {
	if msg.To == "" {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to send payment notification",
			"template", string(msg.Template),
			"error", err,
		)
	}
}

// Reconcile polls payments left pending for longer than olderThan, so flows
// whose client stopped polling still settle. It returns how many reached a
// terminal status.
func (s *Service) Reconcile(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	cutoff := requestcontext.Now(ctx).Add(-olderThan)
	pending, err := s.payments.ListPending(ctx, cutoff, limit)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending payments")
	}
	settled := 0
	for _, p := range pending {
		var status models.Status
		switch p.Purpose {
		case models.PurposeContactAccess:
			st, err := s.CheckContactAccess(ctx, p.ID)
			if err != nil {
				s.logger.WarnContext(ctx, "reconcile contact payment failed", "payment_id", p.ID.String(), "error", err)
				continue
			}
			status = st.Status
		case models.PurposePremiumUpgrade:
			st, err := s.CheckPremium(ctx, p.ID)
			if err != nil {
				s.logger.WarnContext(ctx, "reconcile premium payment failed", "payment_id", p.ID.String(), "error", err)
				continue
			}
			status = st.Status
		}
		if status.IsTerminal() {
			settled++
		}
	}
	return settled, nil
}
