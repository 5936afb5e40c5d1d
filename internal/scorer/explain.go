package scorer

import (
	"fmt"

	"github.com/sells-group/leadscore/internal/model"
)

// Explain names the strongest and weakest weighted contributors and adds a
// headline for the total. Ties resolve to the later component in
// ComponentOrder.
func Explain(c model.CompositeScore) []string {
	strongest := model.ComponentOrder[0]
	weakest := model.ComponentOrder[0]
	for _, name := range model.ComponentOrder[1:] {
		if c.Contributions[name] >= c.Contributions[strongest] {
			strongest = name
		}
		if c.Contributions[name] <= c.Contributions[weakest] {
			weakest = name
		}
	}

	share := func(name string) float64 {
		if c.Total == 0 {
			return 0
		}
		return c.Contributions[name] / c.Total * 100
	}

	out := []string{
		fmt.Sprintf("Strongest factor: %s (%.0f%%)", strongest, share(strongest)),
		fmt.Sprintf("Needs improvement: %s (%.0f%%)", weakest, share(weakest)),
	}

	switch {
	case c.Total >= 7:
		out = append(out, "High-value lead - prioritize immediately")
	case c.Total >= 5:
		out = append(out, "Good potential - standard follow-up")
	default:
		out = append(out, "Needs nurturing - long-term approach")
	}
	return out
}
