package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/model"
)

// Composite weights (sum = 1).
const (
	CreditWeight     = 0.35
	FinancialWeight  = 0.25
	BehavioralWeight = 0.20
	UrgencyWeight    = 0.20
)

// DefaultWeights returns a fresh copy of the composite weights keyed by
// component name.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		model.ComponentCredit:     CreditWeight,
		model.ComponentFinancial:  FinancialWeight,
		model.ComponentBehavioral: BehavioralWeight,
		model.ComponentUrgency:    UrgencyWeight,
	}
}

func init() {
	if err := ValidateWeights(DefaultWeights()); err != nil {
		panic(err)
	}
}

// ValidateWeights checks that a weight set covers every component, has no
// negative entries, and sums to 1.
func ValidateWeights(w map[string]float64) error {
	var errs []string
	sum := 0.0
	for _, name := range model.ComponentOrder {
		v, ok := w[name]
		if !ok {
			errs = append(errs, fmt.Sprintf("missing weight for %s", name))
			continue
		}
		if v < 0 {
			errs = append(errs, fmt.Sprintf("%s weight must be >= 0", name))
		}
		sum += v
	}
	if math.Abs(sum-1) > 0.001 {
		errs = append(errs, fmt.Sprintf("weights should sum to 1, got %.3f", sum))
	}
	if len(errs) > 0 {
		return eris.Errorf("scorer: weight validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// creditBand maps a FICO range to a component score. Lower FICO means more
// dispute opportunity, so the ladder runs inverse.
type creditBand struct {
	below  int
	score  float64
	factor string
}

var creditBands = []creditBand{
	{500, 9, "Critical credit score (<500)"},
	{550, 8, "Very poor credit (500-549)"},
	{600, 7, "Poor credit (550-599)"},
	{650, 6, "Fair credit (600-649)"},
	{700, 5, "Good credit (650-699)"},
	{750, 4, "Very good credit (700-749)"},
	{math.MaxInt, 2, "Excellent credit (750+)"},
}

// negativeItemSeverity weights each negative-item type. Unknown types are
// ignored.
var negativeItemSeverity = map[string]float64{
	"bankruptcy":         10,
	"foreclosure":        9,
	"repossession":       8,
	"taxLien":            9,
	"judgement":          8,
	"collection":         6,
	"chargeOff":          7,
	"latePayment90":      6,
	"latePayment60":      4,
	"latePayment30":      2,
	"medicalCollection":  4,
	"studentLoanDefault": 8,
	"inquiryHard":        1,
	"duplicateAccount":   3,
	"identityTheft":      10,
}

// negativeItemKinds maps a folded item name (lowercase, no separators) to
// its key in negativeItemSeverity.
var negativeItemKinds = func() map[string]string {
	m := make(map[string]string, len(negativeItemSeverity))
	for k := range negativeItemSeverity {
		m[foldItemKind(k)] = k
	}
	return m
}()

func foldItemKind(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// NegativeItemKind returns the canonical name of a negative-item type,
// matching case and separators loosely ("tax_lien", "TaxLien" and "taxlien"
// all give "taxLien"). ok is false for types the credit scorer does not
// weigh.
func NegativeItemKind(name string) (kind string, ok bool) {
	kind, ok = negativeItemKinds[foldItemKind(name)]
	return kind, ok
}

// maxCountedPerItem caps how many of one item type add to the impact.
const maxCountedPerItem = 3

// sourceDelta is the behavioral adjustment for a lead source.
type sourceDelta struct {
	delta  float64
	factor string
}

var leadSourceDeltas = map[string]sourceDelta{
	"affiliate":        {4, "Affiliate partner"},
	"referral":         {3, "Referral (high trust)"},
	"ai_receptionist":  {3, "AI Receptionist call"},
	"ai_assisted_call": {3, "AI Receptionist call"},
	"returning":        {2, "Returning visitor"},
	"organic":          {1, "Organic search"},
	"paid":             {0, "Paid advertising"},
}

// goalMultipliers scale the urgency baseline by how time-sensitive the
// lead's goal is.
var goalMultipliers = map[string]float64{
	"buyingHome":         1.5,
	"jobApplication":     1.4,
	"businessLoan":       1.4,
	"carPurchase":        1.3,
	"rentingApartment":   1.3,
	"refinancing":        1.2,
	"creditCards":        1.1,
	"generalImprovement": 1.0,
}

var timelineDeltas = map[string]sourceDelta{
	"immediate": {3, "Needs help immediately"},
	"asap":      {3, "Needs help immediately"},
	"30_days":   {2, "30-day deadline"},
	"60_days":   {1, "60-day timeline"},
	"90_days":   {0, "90-day timeline"},
	"no_rush":   {-1, "No immediate urgency"},
}

var urgentKeywords = []string{
	"help", "asap", "urgent", "immediately", "emergency",
	"desperate", "quickly", "fast", "now", "today",
}

const maxKeywordBonus = 3

// Component labels are bucketed from the running (pre-clamp) score.

func creditUrgency(score float64) string {
	switch {
	case score >= 8:
		return "critical"
	case score >= 6:
		return "high"
	case score >= 4:
		return "medium"
	default:
		return "low"
	}
}

func affordabilityTier(income float64) string {
	switch {
	case income >= 8000:
		return "premium"
	case income >= 5000:
		return "high"
	case income >= 3000:
		return "medium"
	case income >= 2000:
		return "budget"
	default:
		return "limited"
	}
}

func engagementLevel(score float64) string {
	switch {
	case score >= 8:
		return "very_high"
	case score >= 6:
		return "high"
	case score >= 4:
		return "medium"
	default:
		return "low"
	}
}

func priorityLevel(score float64) string {
	switch {
	case score >= 8:
		return "critical"
	case score >= 6:
		return "urgent"
	case score >= 4:
		return "normal"
	default:
		return "low"
	}
}
