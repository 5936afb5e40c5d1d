package scorer

import (
	"fmt"
	"math"

	"github.com/sells-group/leadscore/internal/model"
)

// Override thresholds applied after the weighted sum, in this order.
const (
	manyNegativeItems    = 10
	strongIncome         = 5000.0
	highCreditComponent  = 6.0
	neutralConversionPct = 50.0
)

// Composite combines the four component scores into the weighted total, adds
// the enrichment adjustment when present, applies the override rules, and
// clamps. Total is left unrounded.
func Composite(b Breakdown, e *model.Enrichment) model.CompositeScore {
	contributions := map[string]float64{
		model.ComponentCredit:     b.Credit.Score * CreditWeight,
		model.ComponentFinancial:  b.Financial.Score * FinancialWeight,
		model.ComponentBehavioral: b.Behavioral.Score * BehavioralWeight,
		model.ComponentUrgency:    b.Urgency.Score * UrgencyWeight,
	}

	total := 0.0
	for _, name := range model.ComponentOrder {
		total += contributions[name]
	}

	adjustments := []string{}

	if e != nil && e.ConversionProbability != 0 {
		cp := math.Min(100, math.Max(0, e.ConversionProbability))
		delta := (cp - neutralConversionPct) / 100
		total += delta
		adjustments = append(adjustments, fmt.Sprintf("Enrichment conversion estimate %.0f%% (%+.2f)", cp, delta))
	}

	if b.Credit.NegativeItemCount > manyNegativeItems {
		total++
		adjustments = append(adjustments, "More than 10 negative items (+1)")
	}

	if b.Financial.MonthlyIncome > strongIncome && b.Credit.Score > highCreditComponent {
		total += 0.5
		adjustments = append(adjustments, "Strong income with damaged credit (+0.5)")
	}

	if b.Behavioral.EngagementLevel == "high" && b.Urgency.PriorityLevel == "critical" {
		total++
		adjustments = append(adjustments, "Engaged and critical priority (+1)")
	}

	return model.CompositeScore{
		Total:         clamp(total),
		Weights:       DefaultWeights(),
		Contributions: contributions,
		Adjustments:   adjustments,
	}
}

// RoundScore converts a composite total to the integer 1-10 score.
func RoundScore(total float64) int {
	return int(math.Round(clamp(total)))
}
