package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/drpaneas/voiceprint/internal/authfilter"
	"github.com/drpaneas/voiceprint/internal/cache"
	"github.com/drpaneas/voiceprint/internal/config"
	"github.com/drpaneas/voiceprint/internal/llm"
	"github.com/drpaneas/voiceprint/internal/metrics"
	"github.com/drpaneas/voiceprint/internal/pipeline"
	"github.com/drpaneas/voiceprint/internal/report"
	"github.com/drpaneas/voiceprint/internal/socialdata"
	"github.com/drpaneas/voiceprint/internal/style"
	"github.com/drpaneas/voiceprint/internal/synth"
	"github.com/prometheus/client_golang/prometheus"
)

// app is one command's wired pipeline.
type app struct {
	cfg     *config.Config
	orch    *pipeline.Orchestrator
	reg     *prometheus.Registry
	closers []func() error
}

// newApp wires the pipeline from cfg. The model provider is only built when
// withModel is set, so style and posts work without model credentials.
func newApp(ctx context.Context, cfg *config.Config, withModel bool) (*app, error) {
	a := &app{cfg: cfg, reg: prometheus.NewRegistry()}
	m := metrics.New(a.reg)

	src, err := newSource(cfg)
	if err != nil {
		return nil, err
	}

	store, err := a.newStore(ctx)
	if err != nil {
		return nil, err
	}
	c := cache.New(store, cache.Options{
		TTLs: map[cache.Kind]time.Duration{
			cache.KindSignature: cfg.SignatureTTL,
			cache.KindPosts:     cfg.PostsTTL,
		},
		Metrics: m,
	})

	rules, err := authfilter.LoadRules(cfg.DenylistPath)
	if err != nil {
		a.close()
		return nil, err
	}
	bounds := authfilter.Bounds{
		MinChars: cfg.MinChars,
		MaxChars: cfg.MaxChars,
		MinWords: cfg.MinWords,
		MaxWords: cfg.MaxWords,
	}
	filter, err := authfilter.New(rules, bounds)
	if err != nil {
		a.close()
		return nil, err
	}

	deps := pipeline.Deps{
		Source:   src,
		Profiler: style.NewProfiler(cfg.MinHistory),
		Filter:   filter,
		Cache:    c,
		Recorder: report.NewWriter(cfg.OutputDir),
		Metrics:  m,
	}
	if withModel {
		provider, err := llm.NewProvider(ctx, llm.ProviderConfig{
			Name:       cfg.Provider,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			OllamaHost: cfg.OllamaHost,
			BaseURL:    cfg.OpenAIBaseURL,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("creating LLM provider: %w", err)
		}
		deps.Generator = synth.New(provider, synth.Options{
			Approaches:  cfg.Approaches,
			Temperature: &cfg.Temperature,
			Bounds:      bounds,
		})
		slog.Info("using model", "provider", cfg.Provider, "model", cfg.Model)
	}

	retries := cfg.RetriesPerSlot
	if retries == 0 {
		retries = -1
	}
	a.orch = pipeline.New(deps, pipeline.Config{
		RecencyWindow:  cfg.RecencyWindow,
		Variations:     cfg.Variations,
		RetriesPerSlot: retries,
		CallTimeout:    cfg.CallTimeout,
	})
	return a, nil
}

func newSource(cfg *config.Config) (pipeline.Source, error) {
	if cfg.DataSource == config.SourceFile {
		fs, err := socialdata.LoadFile(cfg.DataFile)
		if err != nil {
			return nil, err
		}
		slog.Info("reading profiles from export", "path", cfg.DataFile)
		return fs, nil
	}
	return socialdata.NewClient(socialdata.Options{
		BaseURL:         cfg.DataAPIBaseURL,
		Host:            cfg.DataAPIHost,
		APIKey:          cfg.DataAPIKey,
		BearerToken:     cfg.DataBearerToken,
		RequestsPerHour: cfg.RequestsPerHour,
		MaxPages:        cfg.MaxPages,
	}), nil
}

func (a *app) newStore(ctx context.Context) (cache.Store, error) {
	switch a.cfg.CacheBackend {
	case config.CacheRedis:
		rs, err := cache.NewRedisStore(ctx, a.cfg.RedisURL, "voiceprint:")
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rs.Close)
		return rs, nil
	case config.CacheSQLite:
		ss, err := cache.NewSQLiteStore(ctx, a.cfg.CachePath)
		if err != nil {
			return nil, err
		}
		slog.Debug("using cache file", "path", a.cfg.CachePath)
		a.closers = append(a.closers, ss.Close)
		return ss, nil
	default:
		return cache.NewMemoryStore(10 * time.Minute), nil
	}
}

func (a *app) close() {
	if a.cfg.Verbose {
		if err := metrics.LogSummary(a.reg); err != nil {
			slog.Warn("gathering metrics", "error", err)
		}
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("closing", "error", err)
		}
	}
}
