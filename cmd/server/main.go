package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"enroll/internal/captcha"
	"enroll/internal/email"
	"enroll/internal/events"
	"enroll/internal/flow"
	"enroll/internal/password"
	"enroll/internal/platform/config"
	"enroll/internal/platform/httpserver"
	"enroll/internal/platform/logger"
	"enroll/internal/platform/metrics"
	platformredis "enroll/internal/platform/redis"
	"enroll/internal/profile"
	"enroll/internal/register"
	httptransport "enroll/internal/transport/http"
	"enroll/internal/user"
)

// main wires dependencies and runs the server plus the event worker under one
// lifecycle. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Attempt store: Redis when configured, otherwise in-process.
	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err.Error())
		os.Exit(1)
	}
	var attempts flow.Store
	if rdb != nil {
		defer rdb.Close()
		attempts = flow.NewRedisStore(rdb.Client, cfg.Realm.AttemptTTL)
		log.Info("using redis attempt store")
	} else {
		attempts = flow.NewMemoryStore(cfg.Realm.AttemptTTL)
		log.Info("using in-memory attempt store")
	}

	// User store: Postgres when configured, otherwise in-process.
	var users user.Store
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			log.Error("postgres connection failed", "error", err.Error())
			os.Exit(1)
		}
		defer pool.Close()
		pg := user.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("postgres schema setup failed", "error", err.Error())
			os.Exit(1)
		}
		users = pg
		log.Info("using postgres user store")
	} else {
		users = user.NewMemoryStore()
		log.Info("using in-memory user store")
	}

	// Registration event pipeline: Kafka sink when brokers are configured.
	var sink events.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka connection failed", "error", err.Error())
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info("publishing registration events to kafka", "topic", cfg.Kafka.Topic)
	} else {
		sink = events.NewMemorySink()
	}
	publisher := events.NewChannelPublisher(256, log)
	worker := events.NewWorker(sink, publisher.Inbox(), log)

	// Email delivery: Brevo primary (when an API key is present) with the
	// local relay as unconditional fallback.
	var primary email.Sender
	if cfg.Email.APIKey != "" {
		primary = email.NewBrevoClient(cfg.Email.APIURL, cfg.Email.APIKey, cfg.Email.SenderEmail, cfg.Email.SenderName)
	}
	secondary := email.NewSMTPRelay(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SenderEmail, cfg.Email.SenderName)
	router, err := email.NewRouter(primary, secondary, cfg.Email.Theme,
		email.WithLogger(log),
		email.WithMetrics(m),
	)
	if err != nil {
		log.Error("email router setup failed", "error", err.Error())
		os.Exit(1)
	}
	links := email.NewActionLinks(cfg.Realm.BaseURL, cfg.Realm.Name, cfg.Realm.SigningKey, cfg.Email.ActionTTL)
	notifier := email.NewNotifier(router, links)

	// The registration flow itself.
	validator := profile.NewSchemaValidator(profile.RegistrationSchema())
	finalizer := register.NewFinalizer(attempts, users, user.NewHasher(0), cfg.Realm.Name,
		register.WithFinalizerLogger(log),
		register.WithFinalizerMetrics(m),
		register.WithFinalizerEvents(publisher),
	)
	gate := captcha.Config(cfg.Captcha)
	steps := []flow.Step{
		register.NewCredentialsStep(attempts, users, password.Default(),
			email.ResetCredentialsURL(cfg.Realm.BaseURL, cfg.Realm.Name)),
		register.NewPersonalDataStep(attempts, validator),
		register.NewConsentsStep(attempts, validator, gate,
			captcha.NewClient(gate.VerifyURL, gate.SecretKey), finalizer,
			register.WithConsentsLogger(log),
			register.WithConsentsMetrics(m),
		),
	}
	coordinator, err := flow.NewCoordinator(attempts, cfg.Realm.FlowID, steps,
		flow.WithLogger(log),
		flow.WithMetrics(m),
	)
	if err != nil {
		log.Error("flow setup failed", "error", err.Error())
		os.Exit(1)
	}

	handler := httptransport.NewRegisterHandler(coordinator, users, notifier, log)
	srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(httptransport.RouterConfig{
		Register: handler,
		Logger:   log,
		Redis:    rdb,
	}))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting registration gateway", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("gateway stopped", "error", err.Error())
		os.Exit(1)
	}
	log.Info("gateway stopped")
}
