package scorer

import (
	"fmt"
	"math"

	"github.com/sells-group/leadscore/internal/model"
)

// FinancialResult is the financial component plus parsed income details the
// predictor and composite read.
type FinancialResult struct {
	Score             float64
	Factors           []string
	MonthlyIncome     float64
	AffordabilityTier string
}

// Component returns the serializable component score.
func (r FinancialResult) Component() model.ComponentScore {
	return model.ComponentScore{
		Name:    model.ComponentFinancial,
		Score:   r.Score,
		Factors: r.Factors,
		Metadata: map[string]any{
			"monthly_income":     r.MonthlyIncome,
			"affordability_tier": r.AffordabilityTier,
		},
	}
}

// ScoreFinancial scores ability to pay from income, debt-to-income,
// utilization, employment, and home ownership.
func ScoreFinancial(p *model.LeadProfile) (FinancialResult, error) {
	for field, v := range map[string]*float64{
		"monthly_income":     p.MonthlyIncome,
		"monthly_debt":       p.MonthlyDebt,
		"credit_utilization": p.CreditUtilization,
	} {
		if err := checkAmount(field, v); err != nil {
			return FinancialResult{}, err
		}
	}

	factors := newFactors()
	score := baselineScore
	income := p.Income()

	if income > 0 {
		switch {
		case income < 2000:
			score -= 2
			factors = append(factors, "Limited income (<$2k/mo)")
		case income < 4000:
			factors = append(factors, "Moderate income ($2-4k/mo)")
		case income < 8000:
			score += 2
			factors = append(factors, "Good income ($4-8k/mo)")
		default:
			score += 3
			factors = append(factors, "High income ($8k+/mo)")
		}
	}

	if p.MonthlyDebt != nil && *p.MonthlyDebt > 0 && income > 0 {
		dti := *p.MonthlyDebt / income * 100
		switch {
		case dti > 50:
			score -= 3
			factors = append(factors, fmt.Sprintf("High DTI: %.0f%%", dti))
		case dti > 36:
			score--
			factors = append(factors, fmt.Sprintf("Elevated DTI: %.0f%%", dti))
		case dti < 20:
			score += 2
			factors = append(factors, fmt.Sprintf("Healthy DTI: %.0f%%", dti))
		}
	}

	if p.CreditUtilization != nil {
		util := math.Trunc(*p.CreditUtilization)
		switch {
		case util == 0:
			score--
			factors = append(factors, "0% utilization (not optimal)")
		case util < 10:
			score += 2
			factors = append(factors, fmt.Sprintf("Optimal utilization: %.0f%%", util))
		case util < 20:
			score++
			factors = append(factors, fmt.Sprintf("Good utilization: %.0f%%", util))
		case util < 30:
			factors = append(factors, fmt.Sprintf("Acceptable utilization: %.0f%%", util))
		case util < 50:
			score--
			factors = append(factors, fmt.Sprintf("High utilization: %.0f%%", util))
		case util < 75:
			score -= 2
			factors = append(factors, fmt.Sprintf("Very high utilization: %.0f%%", util))
		default:
			score -= 3
			factors = append(factors, fmt.Sprintf("Maxed out: %.0f%%", util))
		}
	}

	switch p.EmploymentStatus {
	case "employed_full":
		score++
		factors = append(factors, "Stable employment")
	case "self_employed":
		factors = append(factors, "Self-employed")
	case "unemployed":
		score -= 2
		factors = append(factors, "Currently unemployed")
	}

	switch p.HomeOwnership {
	case "own":
		score++
		factors = append(factors, "Homeowner")
	case "rent":
		factors = append(factors, "Renter")
	}

	return FinancialResult{
		Score:             clamp(score),
		Factors:           factors,
		MonthlyIncome:     income,
		AffordabilityTier: affordabilityTier(income),
	}, nil
}
