package scorer

import (
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/model"
)

// CreditResult is the credit component plus the values the composite
// overrides read.
type CreditResult struct {
	Score             float64
	Factors           []string
	NegativeItemCount int
	Urgency           string
}

// Component returns the serializable component score.
func (r CreditResult) Component() model.ComponentScore {
	return model.ComponentScore{
		Name:    model.ComponentCredit,
		Score:   r.Score,
		Factors: r.Factors,
		Metadata: map[string]any{
			"negative_item_count": r.NegativeItemCount,
			"urgency":             r.Urgency,
		},
	}
}

// ScoreCredit maps the FICO score and negative items to a 1-10 credit score.
// Identity theft forces 10; a recent bankruptcy forces at least 9.
func ScoreCredit(p *model.LeadProfile) (CreditResult, error) {
	factors := newFactors()
	score := baselineScore

	if p.CreditScore != nil && *p.CreditScore > 0 {
		for _, band := range creditBands {
			if *p.CreditScore < band.below {
				score = band.score
				factors = append(factors, band.factor)
				break
			}
		}
	}

	types := make([]string, 0, len(p.NegativeItems))
	for t := range p.NegativeItems {
		types = append(types, t)
	}
	sort.Strings(types)

	impact := 0.0
	count := 0
	for _, t := range types {
		n := p.NegativeItems[t]
		if n < 0 {
			return CreditResult{}, eris.Wrapf(ErrMalformedInput, "negative item %q has count %d", t, n)
		}
		severity, known := negativeItemSeverity[t]
		if n == 0 || !known {
			continue
		}
		impact += severity * float64(min(n, maxCountedPerItem))
		count += n
		factors = append(factors, fmt.Sprintf("%d %s(s)", n, t))
	}

	if count > 0 {
		score = math.Min(maxScore, score+impact/10)
		factors = append(factors, fmt.Sprintf("Total %d negative items", count))
	}

	if p.IdentityTheft {
		score = maxScore
		factors = append(factors, "Identity theft victim - URGENT")
	}

	if p.RecentBankruptcy {
		score = math.Max(score, 9)
		factors = append(factors, "Recent bankruptcy - needs specialized help")
	}

	return CreditResult{
		Score:             clamp(score),
		Factors:           factors,
		NegativeItemCount: count,
		Urgency:           creditUrgency(score),
	}, nil
}
