package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"taskflow/internal/identity"
	identitymetrics "taskflow/internal/identity/metrics"
	"taskflow/internal/identity/token"
	notificationhandler "taskflow/internal/notification/handler"
	notificationmetrics "taskflow/internal/notification/metrics"
	"taskflow/internal/notification/publisher"
	notificationservice "taskflow/internal/notification/service"
	"taskflow/internal/platform/config"
	"taskflow/internal/platform/httpserver"
	"taskflow/internal/platform/kafka"
	"taskflow/internal/platform/logger"
	"taskflow/internal/platform/metrics"
	"taskflow/internal/ratelimit"
	"taskflow/internal/task/cascade"
	taskhandler "taskflow/internal/task/handler"
	taskmetrics "taskflow/internal/task/metrics"
	taskservice "taskflow/internal/task/service"
	httptransport "taskflow/internal/transport/http"
	userhandler "taskflow/internal/user/handler"
	usermetrics "taskflow/internal/user/metrics"
	"taskflow/internal/user/password"
	userservice "taskflow/internal/user/service"
)

// main wires the stores, services and HTTP router, then runs the server
// until SIGINT or SIGTERM.
func main() {
	cfg, cfgErr := config.FromEnv()
	log := logger.New(cfg.Log)
	if cfgErr != nil {
		log.Warn("configuration fell back to defaults", "error", cfgErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	m := metrics.New()

	deps, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	nm := notificationmetrics.New(m.Registry)
	var pub eventPublisher = publisher.Noop{}
	producer, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return err
	}
	if producer != nil {
		defer producer.Close()
		if err := kafka.EnsureTopic(ctx, producer, cfg.Kafka); err != nil {
			log.Warn("could not ensure notification topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		pub = publisher.NewKafka(producer, cfg.Kafka.Topic,
			publisher.WithLogger(log),
			publisher.WithMetrics(nm),
		)
		log.Info("publishing notification events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	notifications := notificationservice.New(deps.notifications,
		notificationservice.WithLogger(log),
		notificationservice.WithMetrics(nm),
		notificationservice.WithPublisher(pub),
	)

	tm := taskmetrics.New(m.Registry)
	reconciler := cascade.New(notifications, deps.pending,
		cascade.WithLogger(log),
		cascade.WithMetrics(tm),
		cascade.WithRetry(cfg.Cascade.MaxAttempts, cfg.Cascade.InitialInterval),
	)
	if drained, err := reconciler.Drain(ctx); err != nil {
		log.Warn("pending notification cleanups remain", "error", err)
	} else if drained > 0 {
		log.Info("completed pending notification cleanups", "tasks", drained)
	}

	tokens := token.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	guard := identity.NewGuard(tokens, deps.revocations,
		identity.WithLogger(log),
		identity.WithMetrics(identitymetrics.New(m.Registry)),
	)

	lockout := ratelimit.New(deps.lockouts,
		ratelimit.WithLogger(log),
		ratelimit.WithConfig(ratelimit.Config{
			MaxAttempts:  cfg.Lockout.MaxAttempts,
			Window:       cfg.Lockout.Window,
			LockDuration: cfg.Lockout.LockDuration,
		}),
	)
	users := userservice.New(deps.users, password.NewHasher(cfg.Auth.PasswordCost), tokens, guard,
		userservice.WithLogger(log),
		userservice.WithMetrics(usermetrics.New(m.Registry)),
		userservice.WithLoginLimiter(lockout),
	)
	tasks := taskservice.New(deps.tasks, notifications, reconciler,
		taskservice.WithLogger(log),
		taskservice.WithMetrics(tm),
		taskservice.WithDirectory(users),
	)

	userHTTP := userhandler.New(users, log)
	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		Metrics:        m,
		Authenticator:  guard,
		RequestTimeout: cfg.Server.RequestTimeout,
		Health:         deps.health,
		Public:         []httptransport.PublicRouteRegistrar{userHTTP},
		Protected: []httptransport.RouteRegistrar{
			userHTTP,
			taskhandler.New(tasks, users, log),
			notificationhandler.New(notifications, users, log),
		},
	})

	srv := httpserver.New(cfg.Server, router, log)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting taskflow", "addr", cfg.Server.Addr, "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if deps.sweep != nil {
		g.Go(func() error {
			deps.sweep(gctx, log)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		log.Info("shutting down")
		err := srv.Shutdown(shutdownCtx)
		if flushErr := pub.Flush(shutdownCtx); flushErr != nil {
			log.Warn("undelivered notification events at shutdown", "error", flushErr)
		}
		return err
	})

	return g.Wait()
}

type eventPublisher interface {
	notificationservice.EventPublisher
	Flush(ctx context.Context) error
}

// sweepEvery runs fn on a fixed interval until ctx ends.
func sweepEvery(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
