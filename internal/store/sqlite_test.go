package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }

func sampleResult(contactID string, score int, plan string, at time.Time) *model.ScoringResult {
	return &model.ScoringResult{
		ContactID:       contactID,
		Score:           score,
		Total:           float64(score) - 0.2,
		Recommendations: model.Recommendations{ServicePlan: plan},
		Routing:         model.Routing{Priority: "high"},
		ScoredAt:        at,
		Version:         model.ScoringVersion,
	}
}

func TestSQLite_Ping(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Ping(context.Background()))
}

func TestSQLite_MigrateIsIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_UpsertAndGetLead(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	p := &model.LeadProfile{
		ContactID:     "c-1",
		FirstName:     "Ada",
		CreditScore:   ptrInt(540),
		NegativeItems: map[string]int{"collection": 2},
		MonthlyIncome: ptrFloat64(6100),
	}
	require.NoError(t, st.UpsertLead(ctx, p))

	got, err := st.GetLead(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	p.FirstName = "Ada L."
	require.NoError(t, st.UpsertLead(ctx, p))
	got, err = st.GetLead(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", got.FirstName)
}

func TestSQLite_GetLead_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetLead(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_UpsertLeadsAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.UpsertLeads(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	leads := []model.LeadProfile{
		{ContactID: "a", LeadSource: "referral"},
		{ContactID: "b", LeadSource: "organic"},
		{ContactID: "c", LeadSource: "paid"},
	}
	n, err = st.UpsertLeads(ctx, leads)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	all, err := st.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	page, err := st.ListLeads(ctx, LeadFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := st.ListLeads(ctx, LeadFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestSQLite_SaveScoreAndListScores(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	p := &model.LeadProfile{ContactID: "c-7"}
	require.NoError(t, st.SaveScore(ctx, p, sampleResult("c-7", 6, "Acceleration", base)))
	require.NoError(t, st.SaveScore(ctx, p, sampleResult("c-7", 8, "Premium", base.Add(time.Hour))))

	fallback := sampleResult("c-8", 5, "Standard", base.Add(2*time.Hour))
	fallback.Error = "scorer: malformed"
	require.NoError(t, st.SaveScore(ctx, &model.LeadProfile{ContactID: "c-8"}, fallback))

	// the scored lead row exists even though it was never upserted directly
	got, err := st.GetLead(ctx, "c-8")
	require.NoError(t, err)
	assert.Equal(t, "c-8", got.ContactID)

	recs, err := st.ListScores(ctx, ScoreFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "c-8", recs[0].ContactID)
	assert.True(t, recs[0].Fallback)
	assert.Equal(t, "Premium", recs[1].ServicePlan)
	assert.Equal(t, 8, recs[1].Score)
	assert.Equal(t, "high", recs[1].Priority)
	assert.True(t, recs[1].ScoredAt.Equal(base.Add(time.Hour)))

	recs, err = st.ListScores(ctx, ScoreFilter{ContactID: "c-7"})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = st.ListScores(ctx, ScoreFilter{Since: base.Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = st.ListScores(ctx, ScoreFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSQLite_Patterns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	_, err := st.LatestPattern(ctx, "c-1")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, st.AppendPattern(ctx, model.LearningPattern{
		ContactID: "c-1", Score: 4, RecommendedTier: "Standard", CreatedAt: base,
	}))
	require.NoError(t, st.AppendPattern(ctx, model.LearningPattern{
		ContactID: "c-1", Score: 9, RecommendedTier: "Premium", LeadSource: "referral",
		CreditScore: ptrInt(480), MonthlyIncome: ptrFloat64(9100), CreatedAt: base.Add(time.Minute),
	}))

	lp, err := st.LatestPattern(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, 9, lp.Score)
	assert.Equal(t, "Premium", lp.RecommendedTier)
	assert.Equal(t, "referral", lp.LeadSource)
	require.NotNil(t, lp.CreditScore)
	assert.Equal(t, 480, *lp.CreditScore)
	require.NotNil(t, lp.MonthlyIncome)
	assert.InDelta(t, 9100, *lp.MonthlyIncome, 0.001)
	assert.False(t, lp.Converted)
}

var _ Store = (*SQLiteStore)(nil)
var _ Store = (*PostgresStore)(nil)
