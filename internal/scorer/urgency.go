package scorer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/sells-group/leadscore/internal/model"
)

// UrgencyResult is the urgency component plus its priority label.
type UrgencyResult struct {
	Score         float64
	Factors       []string
	PriorityLevel string
}

// Component returns the serializable component score.
func (r UrgencyResult) Component() model.ComponentScore {
	return model.ComponentScore{
		Name:    model.ComponentUrgency,
		Score:   r.Score,
		Factors: r.Factors,
		Metadata: map[string]any{
			"priority_level": r.PriorityLevel,
		},
	}
}

// ScoreUrgency scores how soon the lead needs help. now anchors the
// days-until-deadline calculation.
func ScoreUrgency(p *model.LeadProfile, now time.Time) (UrgencyResult, error) {
	factors := newFactors()
	score := baselineScore

	if p.PrimaryGoal != "" {
		mult, ok := goalMultipliers[p.PrimaryGoal]
		if !ok {
			mult = 1.0
		}
		// Multiplied, then rounded, before any additive rule.
		score = math.Round(score * mult)
		switch {
		case mult > 1.3:
			factors = append(factors, "Urgent goal: "+p.PrimaryGoal)
		case mult > 1.1:
			factors = append(factors, "Time-sensitive: "+p.PrimaryGoal)
		default:
			factors = append(factors, "Goal: "+p.PrimaryGoal)
		}
	}

	if tl, ok := timelineDeltas[p.Timeline]; ok {
		score += tl.delta
		factors = append(factors, tl.factor)
	}

	if found := matchUrgentKeywords(p.Notes, p.Comments); len(found) > 0 {
		score += float64(min(maxKeywordBonus, len(found)))
		factors = append(factors, "Urgent language: "+strings.Join(found, ", "))
	}

	if p.HasDeadline {
		score += 2
		factors = append(factors, "Has specific deadline")

		if p.DeadlineDate != nil {
			days := int(math.Floor(p.DeadlineDate.Sub(now).Hours() / 24))
			switch {
			case days < 7:
				score += 2
				factors = append(factors, fmt.Sprintf("Deadline in %d days!", days))
			case days < 30:
				score++
				factors = append(factors, fmt.Sprintf("Deadline in %d days", days))
			}
		}
	}

	return UrgencyResult{
		Score:         clamp(score),
		Factors:       factors,
		PriorityLevel: priorityLevel(score),
	}, nil
}

// matchUrgentKeywords returns the urgent keywords contained in the free text,
// in keyword-list order. Matching is substring-based on case-folded text.
func matchUrgentKeywords(notes, comments string) []string {
	if notes == "" && comments == "" {
		return nil
	}
	// Casers carry state and are not safe for concurrent use.
	text := cases.Fold().String(notes + " " + comments)

	var found []string
	for _, kw := range urgentKeywords {
		if strings.Contains(text, kw) {
			found = append(found, kw)
		}
	}
	return found
}
