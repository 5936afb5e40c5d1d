// Package scorer implements the rule-based lead scoring pipeline: four
// component scorers, the weighted composite, and the tier ladders that turn a
// composite total into recommendations, predictions, routing, and an
// explanation.
package scorer

import (
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/model"
)

// ErrMalformedInput marks a profile value no rule can interpret, such as a
// negative debt or a negative item count.
var ErrMalformedInput = eris.New("malformed lead input")

const (
	baselineScore = 5.0
	minScore      = 1.0
	maxScore      = 10.0
)

// clamp bounds a score to [1,10].
func clamp(score float64) float64 {
	return math.Min(maxScore, math.Max(minScore, score))
}

// Breakdown holds the four component results for one profile.
type Breakdown struct {
	Credit     CreditResult
	Financial  FinancialResult
	Behavioral BehavioralResult
	Urgency    UrgencyResult
}

// Components converts the breakdown into the result's component block.
func (b Breakdown) Components() model.Components {
	return model.Components{
		Credit:     b.Credit.Component(),
		Financial:  b.Financial.Component(),
		Behavioral: b.Behavioral.Component(),
		Urgency:    b.Urgency.Component(),
	}
}

// ScoreAll runs the four component scorers. now anchors deadline math.
func ScoreAll(p *model.LeadProfile, now time.Time) (Breakdown, error) {
	var (
		b   Breakdown
		err error
	)
	if b.Credit, err = ScoreCredit(p); err != nil {
		return Breakdown{}, err
	}
	if b.Financial, err = ScoreFinancial(p); err != nil {
		return Breakdown{}, err
	}
	if b.Behavioral, err = ScoreBehavioral(p); err != nil {
		return Breakdown{}, err
	}
	if b.Urgency, err = ScoreUrgency(p, now); err != nil {
		return Breakdown{}, err
	}
	return b, nil
}

// Neutral returns a breakdown with every component at the baseline and a
// single factor, used when a profile cannot be scored.
func Neutral(factor string) Breakdown {
	return Breakdown{
		Credit:     CreditResult{Score: baselineScore, Factors: []string{factor}, Urgency: creditUrgency(baselineScore)},
		Financial:  FinancialResult{Score: baselineScore, Factors: []string{factor}, AffordabilityTier: affordabilityTier(0)},
		Behavioral: BehavioralResult{Score: baselineScore, Factors: []string{factor}, EngagementLevel: engagementLevel(baselineScore)},
		Urgency:    UrgencyResult{Score: baselineScore, Factors: []string{factor}, PriorityLevel: priorityLevel(baselineScore)},
	}
}

// checkAmount rejects negative and non-finite values for an optional field.
func checkAmount(field string, v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return eris.Wrapf(ErrMalformedInput, "%s is not a finite number", field)
	}
	if *v < 0 {
		return eris.Wrapf(ErrMalformedInput, "%s must be >= 0, got %v", field, *v)
	}
	return nil
}

// newFactors returns an empty, non-nil factor list so results serialize as [].
func newFactors() []string {
	return []string{}
}
