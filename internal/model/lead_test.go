package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		profile *LeadProfile
		wantErr bool
	}{
		{"nil profile", nil, true},
		{"missing contact id", &LeadProfile{Email: "a@b.com"}, true},
		{"blank contact id", &LeadProfile{ContactID: "   "}, true},
		{"identity only", &LeadProfile{ContactID: "c-1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidProfile))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLeadProfile_Income(t *testing.T) {
	p := LeadProfile{ContactID: "c-1"}
	assert.Zero(t, p.Income())

	income := 4200.0
	p.MonthlyIncome = &income
	assert.InDelta(t, 4200, p.Income(), 0.001)
}

func TestLeadProfile_SummarizeOmitsContactDetails(t *testing.T) {
	cs := 580
	p := LeadProfile{
		ContactID:   "c-1",
		Email:       "jane@example.com",
		Phone:       "555-0100",
		CreditScore: &cs,
		PrimaryGoal: "buyingHome",
		LeadSource:  "referral",
	}

	s := p.Summarize()
	assert.Equal(t, &cs, s.CreditScore)
	assert.Equal(t, "buyingHome", s.PrimaryGoal)
	assert.Equal(t, "referral", s.LeadSource)
}

func TestNewLearningPattern(t *testing.T) {
	cs := 610
	p := &LeadProfile{ContactID: "c-9", LeadSource: "organic", CreditScore: &cs}
	r := &ScoringResult{
		Score:           6,
		Recommendations: Recommendations{ServicePlan: "Acceleration"},
		ScoredAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	lp := NewLearningPattern(p, r)
	assert.Equal(t, "c-9", lp.ContactID)
	assert.Equal(t, 6, lp.Score)
	assert.Equal(t, "Acceleration", lp.RecommendedTier)
	assert.Equal(t, "organic", lp.LeadSource)
	assert.False(t, lp.Converted)
	assert.Equal(t, r.ScoredAt, lp.CreatedAt)
	assert.Nil(t, lp.MonthlyIncome)

	cs = 500
	require.NotNil(t, lp.CreditScore)
	assert.Equal(t, 610, *lp.CreditScore)
	assert.NotSame(t, p.CreditScore, lp.CreditScore)
}

func TestScoringResult_IsFallback(t *testing.T) {
	assert.False(t, (&ScoringResult{Score: 7}).IsFallback())
	assert.True(t, (&ScoringResult{Score: 5, Error: "boom"}).IsFallback())
}
