// Package bootstrap provides dependency initialization for the Veo gateway.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jblabs/veo-gateway/internal/auth"
	"github.com/jblabs/veo-gateway/internal/config"
	"github.com/jblabs/veo-gateway/internal/generate"
	"github.com/jblabs/veo-gateway/internal/quota"
	"github.com/jblabs/veo-gateway/internal/server"
	"github.com/jblabs/veo-gateway/internal/storage"
	"github.com/jblabs/veo-gateway/internal/veo"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Handlers *server.Handlers
	// Close releases long-lived resources (the Redis connection).
	Close func()
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	counter, closeCounter := initQuota(ctx, cfg, logger)

	archiver, err := initArchiver(cfg, logger)
	if err != nil {
		closeCounter()
		return nil, err
	}

	// The provider client exists only when a credential resolves; the
	// orchestrator re-resolves per call so the process can start without one
	// (health and env-check still work).
	var provider veo.Client
	if apiKey, err := cfg.ResolveAPIKey(); err == nil {
		client, err := veo.NewClient(apiKey, veo.WithBaseURL(cfg.ProviderBaseURL))
		if err != nil {
			closeCounter()
			return nil, fmt.Errorf("create provider client: %w", err)
		}
		provider = client
	} else {
		logger.Warn("no provider credential configured; generation requests will fail until one is set")
	}

	service := generate.NewService(cfg, nil, logger)
	verifier := auth.NewVerifier(cfg.GoogleClientID)

	handlers := server.NewHandlers(cfg, service, counter, verifier, archiver, provider, logger)

	return &Dependencies{
		Handlers: handlers,
		Close:    closeCounter,
	}, nil
}

// initQuota builds the admission counter: Redis primary with an in-process
// fallback, or the in-process counter alone when Redis is not configured.
func initQuota(ctx context.Context, cfg *config.Config, logger *slog.Logger) (quota.Counter, func()) {
	local := quota.NewMemoryCounter()

	if !cfg.RedisEnabled() {
		logger.Info("quota store: in-process counter (REDIS_ADDR not set)")
		return local, func() {}
	}

	redisCounter, err := quota.NewRedisCounter(ctx, quota.RedisConfig{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		UseTLS:   cfg.RedisUseTLS,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("quota store: redis unavailable, using in-process counter",
			slog.String("addr", cfg.RedisAddr),
			slog.String("error", err.Error()),
		)
		return local, func() {}
	}

	logger.Info("quota store: redis",
		slog.String("addr", cfg.RedisAddr),
	)
	return quota.NewFallbackCounter(redisCounter, local, logger), func() { _ = redisCounter.Close() }
}

// initArchiver creates the artifact archive backend based on configuration.
func initArchiver(cfg *config.Config, logger *slog.Logger) (storage.Archiver, error) {
	if cfg.S3Enabled() {
		s3Archiver, err := storage.NewS3Archiver(storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 archiver: %w", err)
		}
		logger.Info("S3 archive configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Archiver, nil
	}

	localArchiver, err := storage.NewLocalArchiver(cfg.ArchiveDir)
	if err != nil {
		return nil, fmt.Errorf("create local archiver: %w", err)
	}
	logger.Info("local archive configured",
		slog.String("dir", localArchiver.Dir()),
	)
	return localArchiver, nil
}
