package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/engine"
	"github.com/sells-group/leadscore/internal/store"
	anthropicpkg "github.com/sells-group/leadscore/pkg/anthropic"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "leadscore.db"),
		},
		Scoring: config.ScoringConfig{
			EnrichmentEnabled:     true,
			EnrichmentTimeoutSecs: 5,
			PersistTimeoutSecs:    5,
		},
		Resilience: config.ResilienceConfig{
			BreakerFailureThreshold: 5,
			BreakerResetSecs:        30,
			RetryMaxAttempts:        1,
		},
		Monitoring: config.MonitoringConfig{
			FallbackRateThreshold: 0.1,
			LookbackWindowHours:   24,
		},
		Batch:  config.BatchConfig{MaxConcurrentLeads: 4, DefaultLimit: 100},
		Server: config.ServerConfig{Port: 8080, AllowedOrigins: []string{"*"}},
		Log:    config.LogConfig{Level: "info", Format: "json"},
	}
}

func newTestStore(t *testing.T, c *config.Config) store.Store {
	t.Helper()
	st, err := initStore(context.Background(), c.Store)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// newTestEngine builds an engine without enrichment and drains it on
// cleanup.
func newTestEngine(t *testing.T, c *config.Config, st store.Store) *engine.Engine {
	t.Helper()
	eng := newEngine(c, st, nil)
	t.Cleanup(eng.Close)
	return eng
}

func ptrInt(v int) *int { return &v }

func ptrFloat64(v float64) *float64 { return &v }

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropicpkg.MessageRequest) (*anthropicpkg.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropicpkg.MessageResponse), args.Error(1)
}
