package main

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/dispatch"
	"github.com/sells-group/leadscore/internal/enrich"
	"github.com/sells-group/leadscore/internal/engine"
	"github.com/sells-group/leadscore/internal/resilience"
	"github.com/sells-group/leadscore/internal/store"
	anthropicpkg "github.com/sells-group/leadscore/pkg/anthropic"
)

const defaultSQLitePath = "leadscore.db"

// scoringEnv holds the store and engine shared by every command.
type scoringEnv struct {
	Store  store.Store
	Engine *engine.Engine
}

// Close drains background work, then releases the store.
func (se *scoringEnv) Close() {
	if se.Engine != nil {
		se.Engine.Close()
	}
	if se.Store != nil {
		_ = se.Store.Close()
	}
}

// initEnv validates config for mode, opens and migrates the store, and
// builds the engine. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*scoringEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var client anthropicpkg.Client
	if cfg.Scoring.EnrichmentEnabled && cfg.Anthropic.Key != "" {
		client = anthropicpkg.NewClient(cfg.Anthropic.Key, option.WithMaxRetries(0))
	}

	return &scoringEnv{Store: st, Engine: newEngine(cfg, st, client)}, nil
}

func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite":
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}

// newEngine wires the engine's collaborators from config. A nil client
// leaves enrichment off.
func newEngine(c *config.Config, st store.Store, client anthropicpkg.Client) *engine.Engine {
	opts := []engine.Option{
		engine.WithStore(st),
		engine.WithEnrichmentTimeout(time.Duration(c.Scoring.EnrichmentTimeoutSecs) * time.Second),
		engine.WithPersistTimeout(time.Duration(c.Scoring.PersistTimeoutSecs) * time.Second),
		engine.WithNotifier(newNotifier(c)),
	}

	if client != nil {
		breaker := resilience.NewBreaker(resilience.NewBreakerConfig(
			"anthropic",
			c.Resilience.BreakerFailureThreshold,
			c.Resilience.BreakerResetSecs,
		))
		opts = append(opts, engine.WithEnricher(enrich.NewAnthropic(client, enrich.AnthropicConfig{
			Model:     c.Anthropic.Model,
			MaxTokens: c.Anthropic.MaxTokens,
			RPS:       c.Scoring.EnrichmentRPS,
			Burst:     c.Scoring.EnrichmentBurst,
		}, breaker)))
		zap.L().Info("claude enrichment enabled", zap.String("model", c.Anthropic.Model))
	} else {
		zap.L().Debug("claude enrichment disabled")
	}

	return engine.New(opts...)
}

func newNotifier(c *config.Config) dispatch.Notifier {
	if c.Dispatch.WebhookURL == "" {
		return dispatch.LogNotifier{}
	}
	return dispatch.NewWebhookNotifier(
		c.Dispatch.WebhookURL,
		time.Duration(c.Dispatch.TimeoutSecs)*time.Second,
		resilience.NewPolicy("dispatch.webhook", c.Resilience.RetryMaxAttempts, c.Resilience.RetryInitialBackoffMs),
	)
}
