package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"taskflow/internal/identity"
	"taskflow/internal/identity/revocation"
	notificationservice "taskflow/internal/notification/service"
	notificationstore "taskflow/internal/notification/store"
	"taskflow/internal/platform/config"
	platformmongo "taskflow/internal/platform/mongo"
	"taskflow/internal/platform/postgres"
	"taskflow/internal/platform/redis"
	"taskflow/internal/ratelimit"
	"taskflow/internal/task/cascade"
	taskservice "taskflow/internal/task/service"
	taskstore "taskflow/internal/task/store"
	transport "taskflow/internal/transport/http"
	userservice "taskflow/internal/user/service"
	userstore "taskflow/internal/user/store"
)

const revocationSweepInterval = 10 * time.Minute

// backend holds the stores selected by configuration and the resources
// that must be released on shutdown.
type backend struct {
	users         userservice.Store
	tasks         taskservice.TaskStore
	notifications notificationservice.Store
	pending       cascade.PendingLog
	revocations   identity.RevocationList
	lockouts      ratelimit.Store
	health        *transport.Health
	sweep         func(ctx context.Context, log *slog.Logger)
	closers       []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend connects the configured document store and, when REDIS_URL is
// set, moves token revocation and login lockouts to Redis.
func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (*backend, error) {
	b := &backend{
		health:   transport.NewHealth(2 * time.Second),
		lockouts: ratelimit.NewInMemory(),
	}

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			b.close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		revocations := revocation.NewPostgres(db)
		b.users = userstore.NewPostgres(db)
		b.tasks = taskstore.NewPostgres(db)
		b.notifications = notificationstore.NewPostgres(db)
		b.pending = cascade.NewPostgresPendingLog(db)
		b.revocations = revocations
		b.sweep = func(ctx context.Context, log *slog.Logger) {
			sweepEvery(ctx, revocationSweepInterval, func(ctx context.Context) {
				if n, err := revocations.PurgeExpired(ctx); err != nil {
					log.WarnContext(ctx, "failed to purge expired revocations", "error", err)
				} else if n > 0 {
					log.DebugContext(ctx, "purged expired revocations", "count", n)
				}
			})
		}
		b.health.Add("postgres", db.PingContext)

	case config.BackendMongo:
		client, db, err := platformmongo.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Disconnect(context.Background()) })
		if err := platformmongo.EnsureIndexes(ctx, db); err != nil {
			b.close()
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		b.users = userstore.NewMongo(db)
		b.tasks = taskstore.NewMongo(db)
		b.notifications = notificationstore.NewMongo(db)
		b.pending = cascade.NewMongoPendingLog(db)
		b.revocations = revocation.NewMongo(db)
		b.health.Add("mongo", func(ctx context.Context) error { return client.Ping(ctx, nil) })

	default:
		b.users = userstore.NewInMemory()
		b.tasks = taskstore.NewInMemory()
		b.notifications = notificationstore.NewInMemory()
		b.pending = cascade.NewInMemoryPendingLog()
		b.revocations = revocation.NewInMemory()
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		b.close()
		return nil, err
	}
	if rdb != nil {
		b.closers = append(b.closers, func() { _ = rdb.Close() })
		b.revocations = revocation.NewRedis(rdb)
		b.lockouts = ratelimit.NewRedis(rdb)
		b.sweep = nil
		if cfg.Store.Backend == config.BackendMemory {
			b.pending = cascade.NewRedisPendingLog(rdb)
		}
		b.health.Add("redis", func(ctx context.Context) error { return redis.Ping(ctx, rdb) })
		log.Info("using redis for token revocation and login lockouts")
	}
	return b, nil
}
