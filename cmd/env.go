package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/payscore/internal/gateway"
	"github.com/sells-group/payscore/internal/scoring"
	"github.com/sells-group/payscore/internal/source"
	"github.com/sells-group/payscore/pkg/anthropic"
)

// Env bundles the wired pipeline dependencies shared by all commands.
type Env struct {
	Source   source.RecordSource
	Resolver *scoring.Resolver
}

// Close releases the record source.
func (e *Env) Close() {
	if err := e.Source.Close(); err != nil {
		zap.L().Warn("close record source", zap.Error(err))
	}
}

// initEnv builds the record source, reasoning gateway, and resolver from
// configuration. The gateway is only constructed when the AI path is enabled
// and a key is present; otherwise every score comes from the fallback
// formula.
func initEnv(ctx context.Context) (*Env, error) {
	src, err := buildSource(ctx)
	if err != nil {
		return nil, err
	}

	bands := scoring.Bands{
		LowMin:    cfg.Scoring.LowBandMin,
		MediumMin: cfg.Scoring.MediumBandMin,
	}

	var evaluator scoring.Evaluator
	aiEnabled := cfg.Scoring.AIEnabled
	if aiEnabled && cfg.Anthropic.Key == "" {
		zap.L().Warn("anthropic key missing, forcing fallback scoring")
		aiEnabled = false
	}
	if aiEnabled {
		evaluator = gateway.New(anthropic.NewClient(cfg.Anthropic.Key), gateway.Config{
			Model:       cfg.Anthropic.Model,
			MaxTokens:   cfg.Anthropic.MaxTokens,
			Temperature: cfg.Anthropic.Temperature,
			Timeout:     time.Duration(cfg.Scoring.AITimeoutSecs) * time.Second,
			RatePerSec:  cfg.Anthropic.RatePerSec,
			Bands:       bands,
		})
	}

	resolver := scoring.NewResolver(evaluator, scoring.Options{
		AIEnabled:   aiEnabled,
		Concurrency: cfg.Scoring.MaxConcurrentCustomers,
		Bands:       bands,
	})

	zap.L().Info("pipeline initialized",
		zap.String("source_driver", cfg.Source.Driver),
		zap.Bool("ai_enabled", aiEnabled),
	)

	return &Env{Source: src, Resolver: resolver}, nil
}

func buildSource(ctx context.Context) (source.RecordSource, error) {
	switch cfg.Source.Driver {
	case "erpnext":
		return source.NewERPNext(source.ERPNextConfig{
			URL:        cfg.ERPNext.URL,
			APIKey:     cfg.ERPNext.APIKey,
			APISecret:  cfg.ERPNext.APISecret,
			Timeout:    time.Duration(cfg.ERPNext.TimeoutSecs) * time.Second,
			RatePerSec: cfg.ERPNext.RatePerSec,
		}), nil
	case "sqlite":
		src, err := source.NewSQLite(cfg.Source.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := src.Migrate(ctx); err != nil {
			src.Close()
			return nil, err
		}
		return src, nil
	default:
		return nil, eris.Errorf("unknown source driver %q", cfg.Source.Driver)
	}
}
