package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	apphandler "fintrust/internal/application/handler"
	appservice "fintrust/internal/application/service"
	appstore "fintrust/internal/application/store"
	consenthandler "fintrust/internal/consent/handler"
	consentservice "fintrust/internal/consent/service"
	consentstore "fintrust/internal/consent/store"
	httpapi "fintrust/internal/http"
	jwttoken "fintrust/internal/jwt_token"
	"fintrust/internal/platform/config"
	"fintrust/internal/platform/httpserver"
	"fintrust/internal/platform/logger"
	"fintrust/internal/platform/metrics"
	"fintrust/internal/platform/postgres"
	platformredis "fintrust/internal/platform/redis"
	"fintrust/internal/platform/tracing"
	scorehandler "fintrust/internal/scoring/handler"
	"fintrust/internal/scoring/inference"
	scoringmetrics "fintrust/internal/scoring/metrics"
	"fintrust/internal/scoring/ports"
	scoringservice "fintrust/internal/scoring/service"
	scorestore "fintrust/internal/scoring/store"
	"fintrust/internal/scoring/worker"
	audit "fintrust/pkg/platform/audit"
	"fintrust/pkg/platform/audit/publisher"
	"fintrust/pkg/platform/audit/publishers/compliance"
	auditkafka "fintrust/pkg/platform/audit/store/kafka"
	auditmemory "fintrust/pkg/platform/audit/store/memory"
	auditpostgres "fintrust/pkg/platform/audit/store/postgres"
	"fintrust/pkg/platform/circuit"
)

const (
	auditBufferSize      = 1024
	auditTopicPartitions = 3
	auditTopicReplicas   = 1
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fintrust: %v\n", err)
		os.Exit(1)
	}
}

type storage struct {
	db           *sql.DB
	consents     consentservice.Store
	applications appservice.Store
	scores       ports.ScoreStore
	audit        audit.Store
}

type jobs struct {
	queue  worker.Queue
	locker ports.Locker
	close  func()
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(cfg.TracesEnabled, os.Stdout)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	reg := metrics.New()

	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}

	sink, closeSink := openAuditSink(ctx, cfg, log)
	defer closeSink()

	// Compliance events are written inside the consent transaction, so they
	// go to the primary store only and reach Kafka after commit.
	compliancePub := compliance.New(st.audit,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics(reg.Registerer())),
	)
	opsStore := st.audit
	if sink != nil {
		opsStore = audit.Tee{st.audit, sink}
	}
	opsPub := publisher.NewPublisher(opsStore,
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(log),
	)
	defer opsPub.Close()

	q, err := buildJobs(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer q.close()

	consentOpts := []consentservice.Option{
		consentservice.WithAuditor(compliancePub),
		consentservice.WithMetrics(consentservice.NewMetrics(reg.Registerer())),
		consentservice.WithLogger(log),
	}
	if st.db != nil {
		consentOpts = append(consentOpts, consentservice.WithTx(newConsentPostgresTx(st.db)))
	}
	if sink != nil {
		forwarder := publisher.NewPublisher(sink,
			publisher.WithAsyncBuffer(auditBufferSize),
			publisher.WithLogger(log),
		)
		defer forwarder.Close()
		consentOpts = append(consentOpts, consentservice.WithForwarder(forwarder))
	}
	consents := consentservice.New(st.consents, consentOpts...)

	adapter := loadModel(cfg.Model, log)
	scoreMetrics := scoringmetrics.New(reg.Registerer())
	scoringOpts := []scoringservice.Option{
		scoringservice.WithAuditor(opsPub),
		scoringservice.WithMetrics(scoreMetrics),
		scoringservice.WithLogger(log),
	}
	if q.locker != nil {
		scoringOpts = append(scoringOpts, scoringservice.WithLocker(q.locker))
	}
	orchestrator := scoringservice.New(st.scores, adapter, scoringOpts...)

	applications := appservice.New(st.applications,
		appservice.WithQueue(q.queue),
		appservice.WithAuditor(opsPub),
		appservice.WithMetrics(scoreMetrics),
		appservice.WithLogger(log),
	)

	jwtService := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer)
	router := httpapi.NewRouter(httpapi.Deps{
		Logger:         log,
		Metrics:        reg,
		TokenValidator: jwtService,
		ConsentChecker: consents,
		Consent:        consenthandler.New(consents, log),
		Applications:   apphandler.New(applications, log),
		Scores:         scorehandler.New(orchestrator, log),
		ModelReady:     adapter.Ready,
	})
	srv := httpserver.New(cfg.Addr, router, log)
	pool := worker.NewPool(q.queue, applications, orchestrator, cfg.Scoring.Workers, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting fintrust", "addr", cfg.Addr, "model_version", adapter.ModelVersion(), "model_ready", adapter.Ready())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return pool.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStorage(ctx context.Context, cfg config.Server, log *slog.Logger) (storage, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return storage{
			consents:     consentstore.NewInMemoryStore(),
			applications: appstore.NewInMemoryStore(),
			scores:       scorestore.NewInMemoryStore(),
			audit:        auditmemory.NewInMemoryStore(),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return storage{}, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return storage{}, err
	}
	return storage{
		db:           db,
		consents:     consentstore.NewPostgres(db),
		applications: appstore.NewPostgres(db),
		scores:       scorestore.NewPostgres(db),
		audit:        auditpostgres.New(db),
	}, nil
}

// openAuditSink connects the Kafka audit sink when brokers are set. A nil
// sink means audit stays in the primary store.
func openAuditSink(ctx context.Context, cfg config.Server, log *slog.Logger) (*auditkafka.Sink, func()) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, func() {}
	}
	sink, err := auditkafka.NewSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		log.Error("kafka audit sink unavailable, continuing without it", "error", err)
		return nil, func() {}
	}
	topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sink.EnsureTopic(topicCtx, auditTopicPartitions, auditTopicReplicas); err != nil {
		log.Warn("could not ensure audit topic", "topic", cfg.Kafka.Topic, "error", err)
	}
	return sink, sink.Close
}

func buildJobs(ctx context.Context, cfg config.Server, log *slog.Logger) (jobs, error) {
	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return jobs{}, err
	}
	if client == nil {
		q := worker.NewMemoryQueue(cfg.Scoring.QueueSize)
		log.Info("REDIS_URL not set, scoring jobs are kept in process", "queue_size", cfg.Scoring.QueueSize)
		return jobs{queue: q, close: q.Close}, nil
	}
	return jobs{
		queue:  worker.NewRedisQueue(client),
		locker: worker.NewRedisLocker(client, 0),
		close:  func() { _ = client.Close() },
	}, nil
}

// loadModel threads the startup load result into the adapter. A failed load
// leaves the adapter without a runtime and every score takes the fallback.
func loadModel(cfg config.ModelConfig, log *slog.Logger) *inference.Adapter {
	if cfg.RemoteURL != "" {
		log.Info("using remote classifier", "url", cfg.RemoteURL)
		remote := inference.NewRemoteRuntime(cfg.RemoteURL, "", cfg.Timeout)
		breaker := circuit.New("remote-classifier", circuit.WithCooldown(cfg.BreakerCooldown))
		return inference.NewAdapter(inference.NewGuardedRuntime(remote, breaker, log))
	}
	artifact, err := inference.LoadArtifact(cfg.Path)
	if err != nil {
		log.Error("classifier failed to load, scores will use the fallback", "path", cfg.Path, "error", err)
		return inference.NewAdapter(nil)
	}
	return inference.NewAdapter(artifact)
}
