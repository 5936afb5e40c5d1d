package scorer

import "github.com/sells-group/leadscore/internal/model"

type routeTier struct {
	min         float64
	assignTo    string
	priority    string
	workflow    string
	automations []string
	alerts      []string
}

// routeLadder shares breakpoints with planLadder but is its own table.
var routeLadder = []routeTier{
	{8, "senior_sales", "critical", "fast_track",
		[]string{"immediate_welcome_call", "premium_email_sequence"},
		[]string{"notify_sales_manager", "create_priority_task"}},
	{6, "sales_team", "high", "standard_sales",
		[]string{"welcome_email", "schedule_callback"},
		[]string{"notify_sales_team"}},
	{4, "inside_sales", "medium", "nurture",
		[]string{"nurture_email_sequence", "educational_content"},
		nil},
	{0, "marketing", "low", "long_term_nurture",
		[]string{"monthly_newsletter", "diy_resources"},
		nil},
}

// Route returns the routing directive for a composite total. The directive
// is handed to a notifier; nothing here executes it.
func Route(total float64) model.Routing {
	tier := routeLadder[len(routeLadder)-1]
	for _, t := range routeLadder {
		if total >= t.min {
			tier = t
			break
		}
	}
	return model.Routing{
		AssignTo:    tier.assignTo,
		Priority:    tier.priority,
		Workflow:    tier.workflow,
		Automations: append([]string{}, tier.automations...),
		Alerts:      append([]string{}, tier.alerts...),
	}
}

var priorityRank = map[string]int{"low": 0, "medium": 1, "high": 2, "critical": 3}

// PriorityRank orders routing priorities from low (0) to critical (3).
func PriorityRank(priority string) int {
	return priorityRank[priority]
}
