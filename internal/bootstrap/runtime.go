// Package bootstrap wires process-wide infrastructure shared by the binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"skillswap/internal/cache"
	"skillswap/internal/config"
	"skillswap/internal/database"
	"skillswap/internal/email"
	"skillswap/internal/middleware"
	"skillswap/internal/observability"
	"skillswap/internal/server"
	"skillswap/internal/service"
	"skillswap/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const memoryQueueSize = 256

// Options control runtime initialization behavior.
type Options struct {
	ServiceName string
	// SkipStorage leaves object storage unconfigured (worker processes never upload).
	SkipStorage bool
}

// Runtime holds the connections a binary needs.
type Runtime struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Objects service.ObjectStore
	Queue   email.Queue
	Sender  email.Sender

	shutdownTracing func(context.Context) error
}

// InitRuntime connects to DB, Redis and object storage and builds the email queue.
// Redis and storage are optional; the database is not.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  opts.ServiceName,
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     tracingExporter(cfg),
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplerRatio: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		if !errors.Is(err, cache.ErrDisabled) {
			middleware.Logger.Warn("continuing without redis", slog.String("error", err.Error()))
		}
		rdb = nil
	}

	queue, err := NewEmailQueue(cfg, rdb)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		DB:              db,
		Redis:           rdb,
		Queue:           queue,
		Sender:          email.NewSender(cfg.ResendAPIKey, cfg.EmailFrom),
		shutdownTracing: shutdownTracing,
	}
	if !opts.SkipStorage {
		rt.Objects = NewObjectStore(ctx, cfg)
	}
	return rt, nil
}

// Deps adapts the runtime to the HTTP server's dependencies.
func (r *Runtime) Deps() server.Deps {
	return server.Deps{
		DB:          r.DB,
		Redis:       r.Redis,
		Objects:     r.Objects,
		EmailQueue:  r.Queue,
		EmailSender: r.Sender,
	}
}

// Close flushes traces and releases the connection pools.
func (r *Runtime) Close(ctx context.Context) {
	if r.shutdownTracing != nil {
		if err := r.shutdownTracing(ctx); err != nil {
			middleware.Logger.Warn("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}
	if r.Redis != nil {
		_ = r.Redis.Close()
	}
	database.Close()
}

// NewEmailQueue picks the queue backend named by EMAIL_QUEUE.
func NewEmailQueue(cfg *config.Config, rdb *redis.Client) (email.Queue, error) {
	switch cfg.EmailQueue {
	case "", "memory":
		return email.NewMemoryQueue(memoryQueueSize), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("EMAIL_QUEUE=redis requires a reachable REDIS_URL")
		}
		return email.NewRedisQueue(rdb), nil
	default:
		return nil, fmt.Errorf("unsupported EMAIL_QUEUE %q", cfg.EmailQueue)
	}
}

// NewObjectStore returns the S3 store, or nil when storage is not configured or the
// bucket cannot be prepared. Avatar uploads then fail with a dependency error.
func NewObjectStore(ctx context.Context, cfg *config.Config) service.ObjectStore {
	client, err := storage.NewS3Client(cfg)
	if err != nil {
		if !errors.Is(err, storage.ErrNotConfigured) {
			middleware.Logger.Warn("object storage disabled", slog.String("error", err.Error()))
		}
		return nil
	}
	store := storage.NewS3Storage(client, cfg.S3Bucket, cfg.S3PublicBaseURL)
	if err := store.EnsureBucket(ctx); err != nil {
		middleware.Logger.Warn("object storage bucket unavailable", slog.String("bucket", cfg.S3Bucket),
			slog.String("error", err.Error()))
		return nil
	}
	return store
}

func tracingExporter(cfg *config.Config) string {
	if cfg.OTLPEndpoint != "" {
		return "otlp"
	}
	return "stdout"
}
