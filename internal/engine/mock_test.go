package engine

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/leadscore/internal/dispatch"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/store"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetLead(ctx context.Context, contactID string) (*model.LeadProfile, error) {
	args := m.Called(ctx, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LeadProfile), args.Error(1)
}

func (m *mockStore) UpsertLead(ctx context.Context, p *model.LeadProfile) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockStore) UpsertLeads(ctx context.Context, leads []model.LeadProfile) (int64, error) {
	args := m.Called(ctx, leads)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) ListLeads(ctx context.Context, filter store.LeadFilter) ([]model.LeadProfile, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LeadProfile), args.Error(1)
}

func (m *mockStore) SaveScore(ctx context.Context, p *model.LeadProfile, r *model.ScoringResult) error {
	return m.Called(ctx, p, r).Error(0)
}

func (m *mockStore) ListScores(ctx context.Context, filter store.ScoreFilter) ([]store.ScoreRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.ScoreRecord), args.Error(1)
}

func (m *mockStore) AppendPattern(ctx context.Context, lp model.LearningPattern) error {
	return m.Called(ctx, lp).Error(0)
}

func (m *mockStore) LatestPattern(ctx context.Context, contactID string) (*model.LearningPattern, error) {
	args := m.Called(ctx, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LearningPattern), args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error    { return m.Called(ctx).Error(0) }
func (m *mockStore) Migrate(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockStore) Close() error                      { return m.Called().Error(0) }

// --- Enricher Mock ---

type mockEnricher struct {
	mock.Mock
}

func (m *mockEnricher) Enrich(ctx context.Context, s model.Summary) (*model.Enrichment, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Enrichment), args.Error(1)
}

// --- Notifier Mock ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, d dispatch.Directive) error {
	return m.Called(ctx, d).Error(0)
}
