package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/dispatch"
	"github.com/sells-group/leadscore/internal/engine"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/store"
	anthropicpkg "github.com/sells-group/leadscore/pkg/anthropic"
)

func TestInitStore_SQLite(t *testing.T) {
	c := testConfig(t)
	st, err := initStore(context.Background(), c.Store)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	_, ok := st.(*store.SQLiteStore)
	assert.True(t, ok)
	assert.NoError(t, st.Ping(context.Background()))
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	_, err := initStore(context.Background(), config.StoreConfig{Driver: "mysql"})
	assert.ErrorContains(t, err, "unsupported store driver: mysql")
}

func TestInitEnv_InvalidConfig(t *testing.T) {
	old := cfg
	t.Cleanup(func() { cfg = old })

	cfg = testConfig(t)
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""

	_, err := initEnv(context.Background(), "score")
	assert.ErrorContains(t, err, "store.database_url is required")
}

func TestInitEnv_SQLite(t *testing.T) {
	old := cfg
	t.Cleanup(func() { cfg = old })
	cfg = testConfig(t)

	env, err := initEnv(context.Background(), "score")
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Engine)
	_, err = env.Store.ListLeads(context.Background(), store.LeadFilter{})
	assert.NoError(t, err)
}

func TestNewNotifier(t *testing.T) {
	c := testConfig(t)
	_, ok := newNotifier(c).(dispatch.LogNotifier)
	assert.True(t, ok)

	c.Dispatch.WebhookURL = "http://example.invalid/hook"
	_, ok = newNotifier(c).(*dispatch.WebhookNotifier)
	assert.True(t, ok)
}

func TestNewEngine_WithoutClientSkipsEnrichment(t *testing.T) {
	c := testConfig(t)
	eng := newTestEngine(t, c, newTestStore(t, c))

	r, err := eng.Score(context.Background(), &model.LeadProfile{ContactID: "c-1"})
	require.NoError(t, err)
	assert.Nil(t, r.Enrichment)
}

func TestNewEngine_WithClientEnriches(t *testing.T) {
	c := testConfig(t)
	c.Anthropic.Model = "claude-haiku-4-5-20251001"

	client := &mockAnthropicClient{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropicpkg.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001"
	})).Return(&anthropicpkg.MessageResponse{
		Model: "claude-haiku-4-5-20251001",
		Content: []anthropicpkg.ContentBlock{{Type: "text", Text: `{
			"summary": "Ready to start.",
			"conversion_probability": 80,
			"lifetime_value": 1500,
			"recommended_service": "Premium"
		}`}},
	}, nil)

	eng := newEngine(c, newTestStore(t, c), client)
	t.Cleanup(eng.Close)

	r, err := eng.Score(context.Background(), &model.LeadProfile{ContactID: "c-2", CreditScore: ptrInt(600)})
	require.NoError(t, err)
	require.NotNil(t, r.Enrichment)
	assert.InDelta(t, 80.0, r.Enrichment.ConversionProbability, 1e-9)

	skipped, err := eng.Score(context.Background(), &model.LeadProfile{ContactID: "c-3"}, engine.ScoreOptions{SkipEnrichment: true})
	require.NoError(t, err)
	assert.Nil(t, skipped.Enrichment)
	client.AssertNumberOfCalls(t, "CreateMessage", 1)
}
