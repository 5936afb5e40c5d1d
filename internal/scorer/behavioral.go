package scorer

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/model"
)

// BehavioralResult is the behavioral component plus its engagement label.
type BehavioralResult struct {
	Score           float64
	Factors         []string
	EngagementLevel string
}

// Component returns the serializable component score.
func (r BehavioralResult) Component() model.ComponentScore {
	return model.ComponentScore{
		Name:    model.ComponentBehavioral,
		Score:   r.Score,
		Factors: r.Factors,
		Metadata: map[string]any{
			"engagement_level": r.EngagementLevel,
		},
	}
}

const maxDocumentBonus = 3

// ScoreBehavioral scores engagement: where the lead came from and how much
// effort they have already put in.
func ScoreBehavioral(p *model.LeadProfile) (BehavioralResult, error) {
	if err := checkAmount("form_completeness", p.FormCompleteness); err != nil {
		return BehavioralResult{}, err
	}
	if err := checkAmount("response_time", p.ResponseTime); err != nil {
		return BehavioralResult{}, err
	}
	if p.DocumentsUploaded < 0 {
		return BehavioralResult{}, eris.Wrapf(ErrMalformedInput, "documents_uploaded must be >= 0, got %d", p.DocumentsUploaded)
	}

	factors := newFactors()
	score := baselineScore

	if src, ok := leadSourceDeltas[p.LeadSource]; ok {
		score += src.delta
		factors = append(factors, src.factor)
	}

	if p.FormCompleteness != nil && *p.FormCompleteness > 0 {
		pct := math.Trunc(*p.FormCompleteness)
		switch {
		case pct == 100:
			score += 2
			factors = append(factors, "Fully completed form")
		case pct > 75:
			score++
			factors = append(factors, fmt.Sprintf("%.0f%% form completion", pct))
		case pct < 50:
			score--
			factors = append(factors, fmt.Sprintf("Low engagement: %.0f%%", pct))
		}
	}

	if p.EmailVerified {
		score++
		factors = append(factors, "Email verified")
	}
	if p.PhoneVerified {
		score += 2
		factors = append(factors, "Phone verified")
	}

	if p.DocumentsUploaded > 0 {
		score += float64(min(maxDocumentBonus, p.DocumentsUploaded))
		factors = append(factors, fmt.Sprintf("%d documents uploaded", p.DocumentsUploaded))
	}

	if p.IsPreviousClient {
		score += 5
		factors = append(factors, "Previous client (high value)")
	}

	if p.ResponseTime != nil && *p.ResponseTime > 0 {
		switch minutes := *p.ResponseTime; {
		case minutes < 5:
			score += 2
			factors = append(factors, "Immediate response (<5 min)")
		case minutes < 60:
			score++
			factors = append(factors, "Quick response (<1 hour)")
		case minutes > 24*60:
			score--
			factors = append(factors, "Slow response (>24 hours)")
		}
	}

	if p.AppointmentScheduled {
		score += 3
		factors = append(factors, "Appointment scheduled")
	}

	return BehavioralResult{
		Score:           clamp(score),
		Factors:         factors,
		EngagementLevel: engagementLevel(score),
	}, nil
}
