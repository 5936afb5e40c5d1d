package model

import "time"

// ScoringVersion identifies the rule set that produced a result.
// Bump it when weights, ladders, or tables change.
const ScoringVersion = "1.0.0"

// Component names, in weight order.
const (
	ComponentCredit     = "credit"
	ComponentFinancial  = "financial"
	ComponentBehavioral = "behavioral"
	ComponentUrgency    = "urgency"
)

// ComponentOrder is the canonical iteration order over components.
var ComponentOrder = []string{ComponentCredit, ComponentFinancial, ComponentBehavioral, ComponentUrgency}

// ComponentScore is one sub-score in [1,10] with the rules that fired.
type ComponentScore struct {
	Name     string         `json:"name" yaml:"name"`
	Score    float64        `json:"score" yaml:"score"`
	Factors  []string       `json:"factors" yaml:"factors"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Components groups the four component scores.
type Components struct {
	Credit     ComponentScore `json:"credit" yaml:"credit"`
	Financial  ComponentScore `json:"financial" yaml:"financial"`
	Behavioral ComponentScore `json:"behavioral" yaml:"behavioral"`
	Urgency    ComponentScore `json:"urgency" yaml:"urgency"`
}

// CompositeScore is the weighted combination of the component scores.
// Total is clamped to [1,10] but not rounded.
type CompositeScore struct {
	Total         float64            `json:"total" yaml:"total"`
	Weights       map[string]float64 `json:"weights" yaml:"weights"`
	Contributions map[string]float64 `json:"contributions" yaml:"contributions"`
	Adjustments   []string           `json:"adjustments,omitempty" yaml:"adjustments,omitempty"`
}

// Enrichment is the qualitative block returned by the enrichment service.
type Enrichment struct {
	Summary               string   `json:"summary" yaml:"summary"`
	Strengths             []string `json:"strengths" yaml:"strengths"`
	Challenges            []string `json:"challenges" yaml:"challenges"`
	Strategy              string   `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	ConversionProbability float64  `json:"conversion_probability" yaml:"conversion_probability"` // 0-100
	LifetimeValue         float64  `json:"lifetime_value" yaml:"lifetime_value"`
	RecommendedService    string   `json:"recommended_service" yaml:"recommended_service"`
	PriorityActions       []string `json:"priority_actions" yaml:"priority_actions"`
	Confidence            float64  `json:"confidence" yaml:"confidence"`
	Model                 string   `json:"model,omitempty" yaml:"model,omitempty"`
}

// TimeToConvert is a band of days rather than a point estimate.
type TimeToConvert struct {
	MinDays      int     `json:"min_days" yaml:"min_days"`
	MaxDays      int     `json:"max_days" yaml:"max_days"`
	ExpectedDays float64 `json:"expected_days" yaml:"expected_days"`
}

// Predictions holds the outcome estimates derived from the composite total.
type Predictions struct {
	ConversionProbability float64       `json:"conversion_probability" yaml:"conversion_probability"`
	LifetimeValue         float64       `json:"lifetime_value" yaml:"lifetime_value"`
	ChurnRisk             float64       `json:"churn_risk" yaml:"churn_risk"`
	TimeToConvert         TimeToConvert `json:"time_to_convert" yaml:"time_to_convert"`
	UpsellPotential       int           `json:"upsell_potential" yaml:"upsell_potential"`
}

// Recommendations is the service-tier bundle plus next steps.
type Recommendations struct {
	ServicePlan       string   `json:"service_plan" yaml:"service_plan"`
	Pricing           int      `json:"pricing" yaml:"pricing"`
	Approach          []string `json:"approach" yaml:"approach"`
	UrgentActions     []string `json:"urgent_actions" yaml:"urgent_actions"`
	NurturePath       string   `json:"nurture_path" yaml:"nurture_path"`
	ExpectedTimeframe string   `json:"expected_timeframe" yaml:"expected_timeframe"`
}

// Routing is a directive for downstream dispatch. The engine never executes it.
type Routing struct {
	AssignTo    string   `json:"assign_to" yaml:"assign_to"`
	Priority    string   `json:"priority" yaml:"priority"`
	Workflow    string   `json:"workflow" yaml:"workflow"`
	Automations []string `json:"automations" yaml:"automations"`
	Alerts      []string `json:"alerts" yaml:"alerts"`
}

// ScoringResult is the single value returned for every scoring call.
type ScoringResult struct {
	ContactID       string          `json:"contact_id" yaml:"contact_id"`
	Score           int             `json:"score" yaml:"score"`
	Total           float64         `json:"total" yaml:"total"`
	Components      Components      `json:"components" yaml:"components"`
	Enrichment      *Enrichment     `json:"enrichment,omitempty" yaml:"enrichment,omitempty"`
	Predictions     Predictions     `json:"predictions" yaml:"predictions"`
	Recommendations Recommendations `json:"recommendations" yaml:"recommendations"`
	Routing         Routing         `json:"routing" yaml:"routing"`
	Explanation     []string        `json:"explanation" yaml:"explanation"`
	ScoredAt        time.Time       `json:"scored_at" yaml:"scored_at"`
	Version         string          `json:"version" yaml:"version"`
	Error           string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// IsFallback reports whether the result is the neutral fallback.
func (r *ScoringResult) IsFallback() bool {
	return r.Error != ""
}

// LearningPattern records what the engine recommended for a contact so the
// true outcome can later be compared against it.
type LearningPattern struct {
	ContactID       string    `json:"contact_id"`
	Score           int       `json:"score"`
	RecommendedTier string    `json:"recommended_tier"`
	LeadSource      string    `json:"lead_source,omitempty"`
	CreditScore     *int      `json:"credit_score,omitempty"`
	MonthlyIncome   *float64  `json:"monthly_income,omitempty"`
	Converted       bool      `json:"converted"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewLearningPattern builds the pattern recorded after a scoring call.
func NewLearningPattern(p *LeadProfile, r *ScoringResult) LearningPattern {
	return LearningPattern{
		ContactID:       p.ContactID,
		Score:           r.Score,
		RecommendedTier: r.Recommendations.ServicePlan,
		LeadSource:      p.LeadSource,
		CreditScore:     clonePtr(p.CreditScore),
		MonthlyIncome:   clonePtr(p.MonthlyIncome),
		CreatedAt:       r.ScoredAt,
	}
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
