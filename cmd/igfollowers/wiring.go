package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"igfollowers/pkg/auth"
	"igfollowers/pkg/checkpoint"
	"igfollowers/pkg/config"
	errs "igfollowers/pkg/errors"
	"igfollowers/pkg/instagram"
	"igfollowers/pkg/logger"
	"igfollowers/pkg/metrics"
	"igfollowers/pkg/ratelimit"
	"igfollowers/pkg/storage"
)

// resolveCredential prefers credential material from config or env, then the credential store
func resolveCredential(cfg *config.Config) (instagram.Credential, string, error) {
	ig := cfg.Instagram
	if ig.Token != "" {
		return instagram.Credential{
			Token:    ig.Token,
			MID:      ig.CookieMID,
			DSUserID: ig.CookieDSUserID,
			Rur:      ig.CookieRur,
		}, "", nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return instagram.Credential{}, "", fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var account *auth.Account
	if ig.Account != "" {
		account, err = manager.Retrieve(ig.Account)
	} else {
		account, err = manager.RetrieveDefault()
	}
	if err != nil {
		if errors.Is(err, errs.ErrCredentialsNotFound) {
			return instagram.Credential{}, "", fmt.Errorf("no credential found: run 'igfollowers auth login' or set %s", auth.EnvToken)
		}
		return instagram.Credential{}, "", err
	}
	return account.Credential(), account.UserAgent, nil
}

func clientOptions(cfg *config.Config, userAgent string, limiter ratelimit.Limiter) instagram.ClientOptions {
	ig := cfg.Instagram
	if userAgent == "" {
		userAgent = ig.UserAgent
	}
	return instagram.ClientOptions{
		BaseURL:        ig.BaseURL,
		Timeout:        ig.Timeout,
		UserAgent:      userAgent,
		AppID:          ig.AppID,
		DeviceID:       ig.DeviceID,
		Capabilities:   ig.Capabilities,
		AcceptLanguage: ig.AcceptLanguage,
		Limiter:        limiter,
	}
}

func newLimiter(cfg *config.Config) ratelimit.Limiter {
	return ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)
}

// openCheckpoints returns nil with no error when checkpointing is disabled
func openCheckpoints(ctx context.Context, cfg *config.Config, log logger.Logger) (checkpoint.Store, func(), error) {
	noop := func() {}
	if !cfg.Checkpoint.Enabled {
		return nil, noop, nil
	}

	switch cfg.Checkpoint.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Checkpoint.RedisAddr,
			DB:   cfg.Checkpoint.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Checkpoint.RedisAddr, err)
		}
		log.WithField("addr", cfg.Checkpoint.RedisAddr).Debug("Using redis checkpoints")
		return checkpoint.NewRedisStore(client, cfg.Checkpoint.TTL), func() { client.Close() }, nil

	default:
		store, err := checkpoint.NewFileStore("")
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	}
}

// openSinks always includes the file sink and adds Postgres when a DSN is configured
func openSinks(ctx context.Context, cfg *config.Config) (*storage.FileSink, storage.Sink, func(), error) {
	noop := func() {}
	files, err := storage.NewFileSink(cfg.Output.Directory, cfg.Output.Format)
	if err != nil {
		return nil, nil, noop, err
	}
	if cfg.Output.PostgresDSN == "" {
		return files, files, noop, nil
	}

	pool, err := storage.OpenPool(ctx, cfg.Output.PostgresDSN, 4, false)
	if err != nil {
		return nil, nil, noop, err
	}
	pg, err := storage.NewPostgresSink(pool, cfg.Output.Schema, cfg.Output.BatchSize)
	if err != nil {
		pool.Close()
		return nil, nil, noop, err
	}
	return files, storage.MultiSink{files, pg}, pool.Close, nil
}

// startMetrics serves /metrics until ctx ends. The recorder is a no-op when no address is set.
func startMetrics(ctx context.Context, cfg *config.Config, log logger.Logger) (metrics.Recorder, error) {
	if cfg.Metrics.Addr == "" {
		return metrics.Nop{}, nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	srv, err := metrics.Listen(cfg.Metrics.Addr, reg)
	if err != nil {
		return nil, err
	}
	log.WithField("addr", srv.Addr()).Info("Serving metrics")
	go func() {
		if err := srv.Serve(ctx); err != nil {
			log.WithError(err).Warn("Metrics server stopped")
		}
	}()
	return rec, nil
}
