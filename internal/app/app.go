// Package app wires configuration into a ready processor, shared by the API
// server and the operator CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"call-insights-go/internal/config"
	"call-insights-go/internal/dataset"
	"call-insights-go/internal/extractor"
	"call-insights-go/internal/history"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/metrics"
	"call-insights-go/internal/processor"
	"call-insights-go/internal/prompt"
	"call-insights-go/internal/reps"
	"call-insights-go/internal/transcription"
)

// redisWait bounds how long startup waits for Redis to answer PING.
const redisWait = 30 * time.Second

// App holds the long-lived components built from a Config.
type App struct {
	Config    *config.Config
	Processor *processor.Service
	Reps      *reps.Directory
	Metrics   *metrics.Recorder

	redis *redis.Client
}

// Build constructs every component named by cfg. Call Close when done.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	rec, err := metrics.New()
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	tr, err := transcription.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("transcription: %w", err)
	}
	gen, err := extractor.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	build, err := prompt.ForStyle(cfg.Analysis.PromptStyle)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Metrics: rec}

	var store history.Store
	switch cfg.History.Backend {
	case config.BackendRedis:
		a.redis = history.NewRedisClient(cfg.History.RedisURL)
		if err := history.WaitForRedis(ctx, a.redis, redisWait, log); err != nil {
			a.Close()
			return nil, err
		}
		store = history.NewRedisStore(a.redis, cfg.History.TTL)
	default:
		store = history.NewMemoryStore()
	}
	log.WithField("history_backend", cfg.History.Backend).Info("history store ready")

	if cfg.Reps.Path != "" {
		list, err := dataset.LoadReps(cfg.Reps.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load reps: %w", err)
		}
		if a.Reps, err = reps.New(list); err != nil {
			a.Close()
			return nil, fmt.Errorf("load reps: %w", err)
		}
		log.WithField("reps_path", cfg.Reps.Path).WithField("reps", a.Reps.Len()).Info("rep directory loaded")
	} else {
		a.Reps = reps.Seed()
	}

	a.Processor, err = processor.New(processor.Options{
		Transcriber: tr,
		Generator:   gen,
		Prompt:      build,
		History:     store,
		Metrics:     rec,
		Logger:      log,
		Language:    cfg.Transcription.Language,
		TempDir:     cfg.Upload.TempDir,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the Redis connection, if any.
func (a *App) Close() error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}
