package scorer

import "github.com/sells-group/leadscore/internal/model"

// Service plan names.
const (
	PlanPremium      = "Premium"
	PlanAcceleration = "Acceleration"
	PlanStandard     = "Standard"
	PlanHybrid       = "Hybrid"
	PlanDIY          = "DIY"
)

type planTier struct {
	min       float64
	plan      string
	price     int
	approach  []string
	timeframe string
}

// planLadder is ordered from the highest floor down; the first floor the
// total meets wins.
var planLadder = []planTier{
	{8, PlanPremium, 349, []string{"VIP white-glove service", "Dedicated account manager"}, "45-60 days for major improvements"},
	{6, PlanAcceleration, 199, []string{"Fast-track dispute process", "Weekly check-ins"}, "60-90 days for results"},
	{4, PlanStandard, 149, []string{"Comprehensive dispute coverage", "Monthly progress reviews"}, "90-120 days typical"},
	{2, PlanHybrid, 99, []string{"Guided self-service", "AI-powered assistance"}, "120-180 days with effort"},
	{0, PlanDIY, 39, []string{"Educational resources", "Dispute letter templates"}, "Self-paced progress"},
}

type actionTier struct {
	min     float64
	actions []string
	nurture string
}

// actionLadder is maintained separately from planLadder even though both
// read the same total.
var actionLadder = []actionTier{
	{7, []string{"Call within 1 hour", "Send Premium plan details", "Schedule consultation today"}, "immediate_conversion"},
	{5, []string{"Send personalized email", "Include success stories", "Offer free credit review"}, "active_engagement"},
	{0, []string{"Add to nurture campaign", "Send educational content", "Check in weekly"}, "long_term_education"},
}

func planFor(total float64) planTier {
	for _, t := range planLadder {
		if total >= t.min {
			return t
		}
	}
	return planLadder[len(planLadder)-1]
}

func actionsFor(total float64) actionTier {
	for _, t := range actionLadder {
		if total >= t.min {
			return t
		}
	}
	return actionLadder[len(actionLadder)-1]
}

// ServicePlan returns the plan name for a composite total.
func ServicePlan(total float64) string {
	return planFor(total).plan
}

// Recommend builds the service-tier bundle and next steps for a composite
// total.
func Recommend(total float64) model.Recommendations {
	plan := planFor(total)
	next := actionsFor(total)
	return model.Recommendations{
		ServicePlan:       plan.plan,
		Pricing:           plan.price,
		Approach:          append([]string(nil), plan.approach...),
		UrgentActions:     append([]string(nil), next.actions...),
		NurturePath:       next.nurture,
		ExpectedTimeframe: plan.timeframe,
	}
}
