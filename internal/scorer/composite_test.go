package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/model"
)

func neutralBreakdown() Breakdown {
	return Breakdown{
		Credit:     CreditResult{Score: 5, Urgency: "medium"},
		Financial:  FinancialResult{Score: 5, AffordabilityTier: "limited"},
		Behavioral: BehavioralResult{Score: 5, EngagementLevel: "medium"},
		Urgency:    UrgencyResult{Score: 5, PriorityLevel: "normal"},
	}
}

func scenarioProfile() *model.LeadProfile {
	return &model.LeadProfile{
		ContactID:     "lead-450",
		CreditScore:   ptrInt(450),
		NegativeItems: map[string]int{"bankruptcy": 1, "collection": 3},
		MonthlyIncome: ptrFloat64(9000),
		LeadSource:    "referral",
		PrimaryGoal:   "buyingHome",
		Timeline:      "immediate",
	}
}

func TestComposite_NeutralIsFive(t *testing.T) {
	c := Composite(neutralBreakdown(), nil)
	assert.InDelta(t, 5.0, c.Total, 1e-9)
	assert.Equal(t, 5, RoundScore(c.Total))
	assert.Empty(t, c.Adjustments)
	assert.Equal(t, DefaultWeights(), c.Weights)
	assert.InDelta(t, 1.75, c.Contributions[model.ComponentCredit], 1e-9)
	assert.InDelta(t, 1.25, c.Contributions[model.ComponentFinancial], 1e-9)
}

func TestNeutral(t *testing.T) {
	b := Neutral("Error calculating")
	assert.Equal(t, neutralBreakdown().Credit.Urgency, b.Credit.Urgency)
	assert.Equal(t, "limited", b.Financial.AffordabilityTier)
	assert.Equal(t, []string{"Error calculating"}, b.Urgency.Factors)

	c := Composite(b, nil)
	assert.InDelta(t, 5.0, c.Total, 1e-9)
	assert.Empty(t, c.Adjustments)
}

func TestComposite_Scenario(t *testing.T) {
	b, err := ScoreAll(scenarioProfile(), testNow)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, b.Credit.Score, 0.001)
	assert.InDelta(t, 8.0, b.Financial.Score, 0.001)
	assert.InDelta(t, 8.0, b.Behavioral.Score, 0.001)
	assert.InDelta(t, 10.0, b.Urgency.Score, 0.001)
	assert.Equal(t, "very_high", b.Behavioral.EngagementLevel)
	assert.Equal(t, "critical", b.Urgency.PriorityLevel)

	c := Composite(b, nil)
	// 3.5 + 2.0 + 1.6 + 2.0 + 0.5 income/credit override
	assert.InDelta(t, 9.6, c.Total, 1e-9)
	assert.Equal(t, 10, RoundScore(c.Total))
	assert.Equal(t, []string{"Strong income with damaged credit (+0.5)"}, c.Adjustments)
}

func TestComposite_Enrichment(t *testing.T) {
	tests := []struct {
		name      string
		e         *model.Enrichment
		wantTotal float64
	}{
		{"absent", nil, 5.0},
		{"zero probability ignored", &model.Enrichment{ConversionProbability: 0}, 5.0},
		{"optimistic", &model.Enrichment{ConversionProbability: 80}, 5.3},
		{"pessimistic", &model.Enrichment{ConversionProbability: 20}, 4.7},
		{"clamped above 100", &model.Enrichment{ConversionProbability: 250}, 5.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Composite(neutralBreakdown(), tt.e)
			assert.InDelta(t, tt.wantTotal, c.Total, 1e-9)
		})
	}
}

func TestComposite_Overrides(t *testing.T) {
	t.Run("many negative items", func(t *testing.T) {
		b := neutralBreakdown()
		b.Credit.NegativeItemCount = 11
		assert.InDelta(t, 6.0, Composite(b, nil).Total, 1e-9)

		b.Credit.NegativeItemCount = 10
		assert.InDelta(t, 5.0, Composite(b, nil).Total, 1e-9)
	})

	t.Run("income with damaged credit", func(t *testing.T) {
		b := neutralBreakdown()
		b.Financial.MonthlyIncome = 6000
		b.Credit.Score = 6
		assert.InDelta(t, 5.35, Composite(b, nil).Total, 1e-9)

		b.Credit.Score = 7
		assert.InDelta(t, 6.2, Composite(b, nil).Total, 1e-9)
	})

	t.Run("engaged and critical", func(t *testing.T) {
		b := neutralBreakdown()
		b.Behavioral.EngagementLevel = "high"
		b.Urgency.PriorityLevel = "critical"
		c := Composite(b, nil)
		assert.InDelta(t, 6.0, c.Total, 1e-9)
		assert.Len(t, c.Adjustments, 1)

		b.Behavioral.EngagementLevel = "very_high"
		assert.InDelta(t, 5.0, Composite(b, nil).Total, 1e-9)
	})
}

func TestComposite_Clamps(t *testing.T) {
	high := Breakdown{
		Credit:     CreditResult{Score: 10, NegativeItemCount: 20},
		Financial:  FinancialResult{Score: 10, MonthlyIncome: 20000},
		Behavioral: BehavioralResult{Score: 10, EngagementLevel: "high"},
		Urgency:    UrgencyResult{Score: 10, PriorityLevel: "critical"},
	}
	c := Composite(high, &model.Enrichment{ConversionProbability: 100})
	assert.InDelta(t, 10.0, c.Total, 1e-9)

	low := Breakdown{
		Credit:     CreditResult{Score: 1},
		Financial:  FinancialResult{Score: 1},
		Behavioral: BehavioralResult{Score: 1},
		Urgency:    UrgencyResult{Score: 1},
	}
	c = Composite(low, &model.Enrichment{ConversionProbability: 1})
	assert.InDelta(t, 1.0, c.Total, 1e-9)
	assert.Equal(t, 1, RoundScore(c.Total))
}

func TestExplain(t *testing.T) {
	c := Composite(neutralBreakdown(), nil)
	assert.Equal(t, []string{
		"Strongest factor: credit (35%)",
		"Needs improvement: urgency (20%)",
		"Good potential - standard follow-up",
	}, Explain(c))

	b, err := ScoreAll(scenarioProfile(), testNow)
	require.NoError(t, err)
	out := Explain(Composite(b, nil))
	require.Len(t, out, 3)
	assert.Equal(t, "Strongest factor: credit (36%)", out[0])
	assert.Equal(t, "Needs improvement: behavioral (17%)", out[1])
	assert.Equal(t, "High-value lead - prioritize immediately", out[2])

	low := model.CompositeScore{
		Total:         2,
		Contributions: map[string]float64{"credit": 0.3, "financial": 0.5, "behavioral": 0.6, "urgency": 0.55},
	}
	out = Explain(low)
	assert.Equal(t, "Strongest factor: behavioral (30%)", out[0])
	assert.Equal(t, "Needs improvement: credit (15%)", out[1])
	assert.Equal(t, "Needs nurturing - long-term approach", out[2])
}

func TestValidateWeights(t *testing.T) {
	require.NoError(t, ValidateWeights(DefaultWeights()))

	bad := DefaultWeights()
	bad[model.ComponentUrgency] = 0.5
	err := ValidateWeights(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1")

	missing := DefaultWeights()
	delete(missing, model.ComponentCredit)
	err = ValidateWeights(missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing weight for credit")
}
