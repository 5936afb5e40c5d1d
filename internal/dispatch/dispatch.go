// Package dispatch hands routing directives to downstream systems.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/resilience"
)

// Directive is what a Notifier receives after a lead is scored.
type Directive struct {
	ContactID string        `json:"contact_id"`
	Score     int           `json:"score"`
	Routing   model.Routing `json:"routing"`
}

// NewDirective extracts the routing directive from a result.
func NewDirective(r *model.ScoringResult) Directive {
	return Directive{ContactID: r.ContactID, Score: r.Score, Routing: r.Routing}
}

// Notifier accepts routing directives. What it does with them is opaque to
// the engine.
type Notifier interface {
	Notify(ctx context.Context, d Directive) error
}

// LogNotifier only logs the directive.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, d Directive) error {
	zap.L().Info("dispatch: routing directive",
		zap.String("contact_id", d.ContactID),
		zap.Int("score", d.Score),
		zap.String("assign_to", d.Routing.AssignTo),
		zap.String("priority", d.Routing.Priority),
		zap.String("workflow", d.Routing.Workflow),
		zap.Strings("alerts", d.Routing.Alerts),
	)
	return nil
}

// WebhookNotifier POSTs directives as JSON, retrying transient failures.
type WebhookNotifier struct {
	url    string
	client *http.Client
	policy resilience.Policy
}

// NewWebhookNotifier creates a notifier for url. A zero timeout uses 10s.
func NewWebhookNotifier(url string, timeout time.Duration, policy resilience.Policy) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if policy.Name == "" {
		policy.Name = "dispatch.webhook"
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		policy: policy,
	}
}

func (w *WebhookNotifier) Notify(ctx context.Context, d Directive) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return eris.Wrap(err, "dispatch: marshal directive")
	}
	return resilience.Retry(ctx, w.policy, func(ctx context.Context) error {
		return w.post(ctx, payload)
	})
}

func (w *WebhookNotifier) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "dispatch: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return resilience.Transient(eris.Wrap(err, "dispatch: webhook request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 300 {
		return resilience.StatusError("dispatch: webhook", resp.StatusCode)
	}
	return nil
}
