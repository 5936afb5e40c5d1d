package scorer

import (
	"math"

	"github.com/sells-group/leadscore/internal/model"
)

var baseLifetimeValue = map[string]float64{
	PlanPremium:      3500,
	PlanAcceleration: 2000,
	PlanStandard:     1500,
	PlanHybrid:       800,
	PlanDIY:          200,
}

type convertBand struct {
	min      float64
	from, to int
}

var convertBands = []convertBand{
	{8, 1, 2},
	{6, 3, 7},
	{4, 7, 13},
	{0, 14, 33},
}

// Predict estimates conversion, lifetime value, churn, time to convert, and
// upsell potential from the composite total and the lead's income.
func Predict(total float64, p *model.LeadProfile) model.Predictions {
	ltv := baseLifetimeValue[ServicePlan(total)]
	hasIncome := p != nil && p.MonthlyIncome != nil
	income := 0.0
	if hasIncome {
		income = *p.MonthlyIncome
		switch {
		case income > 8000:
			ltv *= 1.5
		case income < 3000:
			ltv *= 0.7
		}
	}

	upsell := 25
	switch {
	case hasIncome && income > 5000 && total > 5:
		upsell = 75
	case hasIncome && income > 3000 && total > 3:
		upsell = 50
	}

	return model.Predictions{
		ConversionProbability: math.Min(95, total*12),
		LifetimeValue:         ltv,
		ChurnRisk:             math.Max(5, 100-total*10),
		TimeToConvert:         timeToConvert(total),
		UpsellPotential:       upsell,
	}
}

// timeToConvert returns the days band for a total with its midpoint as the
// expected value.
func timeToConvert(total float64) model.TimeToConvert {
	band := convertBands[len(convertBands)-1]
	for _, b := range convertBands {
		if total >= b.min {
			band = b
			break
		}
	}
	return model.TimeToConvert{
		MinDays:      band.from,
		MaxDays:      band.to,
		ExpectedDays: float64(band.from+band.to) / 2,
	}
}
