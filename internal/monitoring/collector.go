// Package monitoring summarizes recent scoring activity and raises alerts
// when it looks unhealthy.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/store"
)

// maxScoresPerWindow caps how many history rows one snapshot reads.
const maxScoresPerWindow = 10000

// MetricsSnapshot holds a point-in-time view of scoring health.
type MetricsSnapshot struct {
	ScoresTotal   int            `json:"scores_total" yaml:"scores_total"`
	FallbackCount int            `json:"fallback_count" yaml:"fallback_count"`
	FallbackRate  float64        `json:"fallback_rate" yaml:"fallback_rate"`
	AvgScore      float64        `json:"avg_score" yaml:"avg_score"`
	PlanCounts    map[string]int `json:"plan_counts" yaml:"plan_counts"`
	PriorityCount map[string]int `json:"priority_counts" yaml:"priority_counts"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours" yaml:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at" yaml:"collected_at"`
}

// ScoreLister is the slice of store.Store the collector reads.
type ScoreLister interface {
	ListScores(ctx context.Context, filter store.ScoreFilter) ([]store.ScoreRecord, error)
}

// Collector gathers metrics from score history.
type Collector struct {
	scores ScoreLister
	now    func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(scores ScoreLister) *Collector {
	return &Collector{scores: scores, now: time.Now}
}

// Collect summarizes score history over the lookback window. Fallback
// results count toward the total but not toward the average score.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		PlanCounts:    map[string]int{},
		PriorityCount: map[string]int{},
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	recs, err := c.scores.ListScores(ctx, store.ScoreFilter{
		Since: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit: maxScoresPerWindow,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list scores")
	}

	snap.ScoresTotal = len(recs)
	var sum, scored int
	for _, r := range recs {
		if r.Fallback {
			snap.FallbackCount++
			continue
		}
		sum += r.Score
		scored++
		snap.PlanCounts[r.ServicePlan]++
		snap.PriorityCount[r.Priority]++
	}

	if snap.ScoresTotal > 0 {
		snap.FallbackRate = float64(snap.FallbackCount) / float64(snap.ScoresTotal)
	}
	if scored > 0 {
		snap.AvgScore = float64(sum) / float64(scored)
	}
	return snap, nil
}
