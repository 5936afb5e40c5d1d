// Package store persists lead profiles, score history, and learning patterns.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/model"
)

// ErrNotFound is returned when a lead or pattern does not exist.
var ErrNotFound = eris.New("store: not found")

// LeadFilter pages through stored leads, oldest first.
type LeadFilter struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ScoreFilter selects score history rows, newest first.
type ScoreFilter struct {
	ContactID string    `json:"contact_id,omitempty"`
	Since     time.Time `json:"since,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// ScoreRecord is one row of score history.
type ScoreRecord struct {
	ID          string    `json:"id"`
	ContactID   string    `json:"contact_id"`
	Score       int       `json:"score"`
	Total       float64   `json:"total"`
	ServicePlan string    `json:"service_plan"`
	Priority    string    `json:"priority"`
	Fallback    bool      `json:"fallback"`
	Version     string    `json:"version"`
	ScoredAt    time.Time `json:"scored_at"`
}

// Store is the persistence collaborator of the scoring engine and CLI.
type Store interface {
	// Leads
	GetLead(ctx context.Context, contactID string) (*model.LeadProfile, error)
	UpsertLead(ctx context.Context, p *model.LeadProfile) error
	UpsertLeads(ctx context.Context, leads []model.LeadProfile) (int64, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadProfile, error)

	// Scores
	SaveScore(ctx context.Context, p *model.LeadProfile, r *model.ScoringResult) error
	ListScores(ctx context.Context, filter ScoreFilter) ([]ScoreRecord, error)

	// Learning patterns
	AppendPattern(ctx context.Context, lp model.LearningPattern) error
	LatestPattern(ctx context.Context, contactID string) (*model.LearningPattern, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func limitOrDefault(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

func newScoreRecord(id string, r *model.ScoringResult) ScoreRecord {
	return ScoreRecord{
		ID:          id,
		ContactID:   r.ContactID,
		Score:       r.Score,
		Total:       r.Total,
		ServicePlan: r.Recommendations.ServicePlan,
		Priority:    r.Routing.Priority,
		Fallback:    r.IsFallback(),
		Version:     r.Version,
		ScoredAt:    r.ScoredAt.UTC(),
	}
}
