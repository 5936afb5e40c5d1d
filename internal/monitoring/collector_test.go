package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/store"
)

type mockLister struct {
	mock.Mock
}

func (m *mockLister) ListScores(ctx context.Context, filter store.ScoreFilter) ([]store.ScoreRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.ScoreRecord), args.Error(1)
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCollector(l ScoreLister) *Collector {
	c := NewCollector(l)
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestCollector_Collect(t *testing.T) {
	l := &mockLister{}
	l.On("ListScores", mock.Anything, store.ScoreFilter{
		Since: fixedNow.Add(-24 * time.Hour),
		Limit: maxScoresPerWindow,
	}).Return([]store.ScoreRecord{
		{ContactID: "a", Score: 10, ServicePlan: "Premium", Priority: "critical"},
		{ContactID: "b", Score: 6, ServicePlan: "Acceleration", Priority: "high"},
		{ContactID: "c", Score: 5, ServicePlan: "Standard", Priority: "medium", Fallback: true},
		{ContactID: "d", Score: 8, ServicePlan: "Premium", Priority: "critical"},
	}, nil)

	snap, err := newTestCollector(l).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 4, snap.ScoresTotal)
	assert.Equal(t, 1, snap.FallbackCount)
	assert.InDelta(t, 0.25, snap.FallbackRate, 1e-9)
	assert.InDelta(t, 8.0, snap.AvgScore, 1e-9)
	assert.Equal(t, map[string]int{"Premium": 2, "Acceleration": 1}, snap.PlanCounts)
	assert.Equal(t, map[string]int{"critical": 2, "high": 1}, snap.PriorityCount)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.Equal(t, fixedNow, snap.CollectedAt)
	l.AssertExpectations(t)
}

func TestCollector_Empty(t *testing.T) {
	l := &mockLister{}
	l.On("ListScores", mock.Anything, mock.Anything).Return([]store.ScoreRecord{}, nil)

	snap, err := newTestCollector(l).Collect(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.ScoresTotal)
	assert.Zero(t, snap.FallbackRate)
	assert.Zero(t, snap.AvgScore)
	assert.Empty(t, snap.PlanCounts)
}

func TestCollector_AllFallback(t *testing.T) {
	l := &mockLister{}
	l.On("ListScores", mock.Anything, mock.Anything).Return([]store.ScoreRecord{
		{Score: 5, Fallback: true},
		{Score: 5, Fallback: true},
	}, nil)

	snap, err := newTestCollector(l).Collect(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, snap.FallbackRate, 1e-9)
	assert.Zero(t, snap.AvgScore)
}

func TestCollector_ListError(t *testing.T) {
	l := &mockLister{}
	l.On("ListScores", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	snap, err := newTestCollector(l).Collect(context.Background(), 24)
	assert.Nil(t, snap)
	assert.ErrorContains(t, err, "monitoring: list scores")
}
