// Package app assembles the process: it picks backing implementations from
// configuration, builds every service and owns their shutdown order. Both the
// API server and the maintenance CLI start from here.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"docufind/internal/audit"
	httpapi "docufind/internal/http"
	"docufind/internal/images"
	"docufind/internal/jobs"
	"docufind/internal/matching"
	"docufind/internal/notify"
	"docufind/internal/payments/gateway"
	"docufind/internal/payments/grant"
	payhandler "docufind/internal/payments/handler"
	paymetrics "docufind/internal/payments/metrics"
	payservice "docufind/internal/payments/service"
	paystore "docufind/internal/payments/store"
	"docufind/internal/platform/config"
	"docufind/internal/platform/metrics"
	"docufind/internal/platform/postgres"
	redisclient "docufind/internal/platform/redis"
	rechandler "docufind/internal/records/handler"
	recservice "docufind/internal/records/service"
	recstore "docufind/internal/records/store"
	tokhandler "docufind/internal/tokens/handler"
	tokmetrics "docufind/internal/tokens/metrics"
	tokmodels "docufind/internal/tokens/models"
	tokservice "docufind/internal/tokens/service"
	tokstore "docufind/internal/tokens/store"
	"docufind/pkg/platform/circuit"
	txcontext "docufind/pkg/platform/tx"
)

// recordStore is the full record repository every feature shares.
type recordStore interface {
	recservice.Store
	tokservice.RecordStore
	payservice.RecordStore
	matching.RecordStore
}

// App holds the assembled services.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry

	Records  *recservice.Service
	Tokens   *tokservice.Service
	Payments *payservice.Service
	Matching *matching.Engine
	Pool     *jobs.Pool
	Audit    *audit.Publisher

	metrics *metrics.Metrics
	db      *sql.DB
	redis   *redisclient.Client
	broker  jobs.Broker
	health  map[string]httpapi.HealthCheck
	closers []func()
}

// New connects to the configured backends, applies pending migrations and wires
// the services. Empty connection settings fall back to in-memory implementations.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		health:   make(map[string]httpapi.HealthCheck),
	}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.Registry)

	if err := a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config
	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(ctx, postgres.Config{DSN: cfg.Postgres.DSN, MaxOpenConns: cfg.Postgres.MaxOpenConns})
		if err != nil {
			return err
		}
		a.db = db
		a.closers = append(a.closers, func() { _ = db.Close() })
		a.health["postgres"] = db.PingContext
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
	}

	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		a.redis = rc
		a.closers = append(a.closers, func() { _ = rc.Close() })
		a.health["redis"] = rc.Health
		rc.RegisterPoolMetrics(a.Registry)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kb, err := jobs.NewKafkaBroker(cfg.Kafka, a.Logger)
		if err != nil {
			return err
		}
		if err := kb.EnsureTopic(ctx, cfg.Kafka.Partitions); err != nil {
			kb.Close()
			return err
		}
		a.broker = kb
	} else {
		a.broker = jobs.NewChannelBroker(cfg.Workers.QueueSize, jobs.WithEnqueueWait(cfg.Workers.EnqueueWait))
	}
	a.closers = append(a.closers, a.broker.Close)
	return nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config
	logger := a.Logger

	var (
		records  recordStore
		tokens   tokservice.Store
		payments payservice.Store
		events   audit.Store
		tx       txcontext.Runner
	)
	if a.db != nil {
		records = recstore.NewPostgres(a.db)
		payments = paystore.NewPostgres(a.db)
		events = audit.NewPostgresStore(a.db)
		tx = txcontext.NewSQLRunner(a.db)
		tokens = tokstore.NewPostgres(a.db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		records = recstore.NewInMemory()
		payments = paystore.NewInMemory()
		events = audit.NewInMemoryStore()
		tx = txcontext.NewLockRunner()
		tokens = tokstore.NewInMemory()
	}
	if a.redis != nil {
		tokens = tokstore.NewRedis(a.redis.Client, tokstore.WithExpiredRetention(cfg.Tokens.ExpiredRetention))
	}
	a.Audit = audit.NewPublisher(events, logger)

	storage, err := a.imageStorage(ctx)
	if err != nil {
		return err
	}
	imgs := images.NewService(storage, images.GaussianBlurrer{},
		images.WithLogger(logger),
		images.WithURLTTL(cfg.S3.PresignTTL),
	)

	notifier, err := a.notifier()
	if err != nil {
		return err
	}
	links := notify.Links{BaseURL: cfg.Frontend.BaseURL}

	a.Records = recservice.New(records, imgs, a.broker,
		recservice.WithLogger(logger),
		recservice.WithAuditor(a.Audit),
		recservice.WithMetrics(a.metrics),
	)
	if err := a.seed(ctx); err != nil {
		return err
	}

	a.Tokens = tokservice.New(tokens, records, imgs, notifier.queued,
		tokservice.WithLogger(logger),
		tokservice.WithTTLs(tokmodels.TTLs{
			tokmodels.PurposeClaimVerification:   cfg.Tokens.ClaimTTL,
			tokmodels.PurposeImageAccess:         cfg.Tokens.ImageAccessTTL,
			tokmodels.PurposeRemovalConfirmation: cfg.Tokens.RemovalTTL,
		}),
		tokservice.WithRetention(cfg.Tokens.ExpiredRetention),
		tokservice.WithLinks(links),
		tokservice.WithAuditor(a.Audit),
		tokservice.WithMetrics(tokmetrics.New(a.Registry)),
	)

	a.Payments = payservice.New(payments, records, a.gateway(), tx,
		grant.NewSigner(cfg.Grants.SigningKey, cfg.Grants.TTL),
		notifier.queued,
		payservice.WithLogger(logger),
		payservice.WithFees(payservice.Fees{
			Currency:      cfg.Fees.Currency,
			ContactAccess: cfg.Fees.ContactAccess,
			Premium:       cfg.Fees.Premium,
			PremiumWindow: cfg.Fees.PremiumWindow,
		}),
		payservice.WithAuditor(a.Audit),
		payservice.WithMetrics(paymetrics.New(a.Registry)),
	)

	a.Matching = matching.New(records, a.Tokens, notifier.queued,
		matching.WithLogger(logger),
		matching.WithLinks(links),
		matching.WithMetrics(matching.NewMetrics(a.Registry)),
		matching.WithClaimTTL(cfg.Tokens.ClaimTTL),
	)

	a.Pool = jobs.NewPool(a.broker,
		jobs.WithWorkers(cfg.Workers.Count),
		jobs.WithLogger(logger),
		jobs.WithMetrics(jobs.NewMetrics(a.Registry)),
	)
	a.Pool.Register(jobs.KindMatchRecord, matching.NewJobHandler(a.Matching, logger))
	a.Pool.Register(jobs.KindSendEmail, notify.NewEmailJobHandler(notifier.direct, logger))
	return nil
}

func (a *App) imageStorage(ctx context.Context) (images.Storage, error) {
	if a.Config.S3.Bucket == "" {
		a.Logger.Warn("S3_BUCKET not set, keeping photos in memory")
		return images.NewMemoryStorage(), nil
	}
	s3, err := images.NewS3Storage(ctx, a.Config.S3)
	if err != nil {
		return nil, err
	}
	return s3, nil
}

type dispatchers struct {
	direct *notify.DirectDispatcher
	queued *notify.QueuedDispatcher
}

func (a *App) notifier() (dispatchers, error) {
	renderer, err := notify.NewRenderer()
	if err != nil {
		return dispatchers{}, err
	}
	var transport notify.Transport
	if a.Config.SMTP.Host != "" {
		smtp, err := notify.NewSMTPTransport(a.Config.SMTP)
		if err != nil {
			return dispatchers{}, err
		}
		transport = smtp
	} else {
		a.Logger.Warn("SMTP_HOST not set, emails are logged instead of sent")
		transport = notify.NewLogTransport(a.Logger)
	}
	return dispatchers{
		direct: notify.NewDirectDispatcher(renderer, transport),
		queued: notify.NewQueuedDispatcher(a.broker),
	}, nil
}

func (a *App) gateway() gateway.Gateway {
	cfg := a.Config.MoMo
	var gw gateway.Gateway
	if cfg.BaseURL == "" {
		a.Logger.Warn("MOMO_BASE_URL not set, payments use the sandbox gateway")
		gw = gateway.NewSandbox()
	} else {
		gw = gateway.NewMoMo(gateway.MoMoConfig{
			BaseURL:           cfg.BaseURL,
			SubscriptionKey:   cfg.SubscriptionKey,
			APIUser:           cfg.APIUser,
			APIKey:            cfg.APIKey,
			TargetEnvironment: cfg.TargetEnvironment,
			Timeout:           cfg.Timeout,
		}, gateway.WithLogger(a.Logger))
	}
	return gateway.NewGuarded(gw, circuit.New("momo"), a.Logger)
}

func (a *App) seed(ctx context.Context) error {
	var raw []byte
	if path := a.Config.Seeds.DocumentTypesFile; path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read document type seeds: %w", err)
		}
		raw = b
	}
	n, err := a.Records.SeedDocumentTypes(ctx, raw)
	if err != nil {
		return err
	}
	a.Logger.Info("document types seeded", "count", n)
	return nil
}

// Handler is the full HTTP surface.
func (a *App) Handler() http.Handler {
	return httpapi.NewRouter(httpapi.Options{
		Logger:         a.Logger,
		Metrics:        a.metrics,
		Gatherer:       a.Registry,
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		RequestTimeout: a.Config.Server.RequestTimeout,
		Health:         a.health,
	},
		rechandler.New(a.Records, a.Logger),
		tokhandler.New(a.Tokens, a.Logger),
		payhandler.New(a.Payments, a.Logger),
	)
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
