package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFallbackRate AlertType = "fallback_rate"
	AlertNoScores     AlertType = "no_scores"
)

const (
	// minScoresForRate is the smallest sample the fallback rate alert trusts.
	minScoresForRate = 5
	defaultCooldown  = time.Hour
)

// Alert is one threshold breach.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// alertBatch is the webhook body.
type alertBatch struct {
	Source string  `json:"source"`
	Alerts []Alert `json:"alerts"`
}

// Alerter turns snapshots into alerts and posts them to a webhook. An alert
// type that was delivered is muted for the cooldown so a periodic checker
// does not page on every tick.
type Alerter struct {
	cfg      config.MonitoringConfig
	client   *http.Client
	policy   resilience.Policy
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[AlertType]time.Time
}

// NewAlerter creates an Alerter. Delivery retries transient webhook failures
// with a short policy.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:      cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		policy:   resilience.NewPolicy("monitoring.webhook", 3, 250),
		cooldown: defaultCooldown,
		now:      time.Now,
		lastSent: make(map[AlertType]time.Time),
	}
}

// Evaluate returns the alerts snap triggers. An empty window only raises
// no_scores since a rate over nothing means nothing.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	now := a.now().UTC()

	if snap.ScoresTotal == 0 {
		return []Alert{{
			Type:      AlertNoScores,
			Severity:  "medium",
			Message:   fmt.Sprintf("No leads scored in last %dh", snap.LookbackHours),
			Timestamp: now,
		}}
	}

	var alerts []Alert
	threshold := a.cfg.FallbackRateThreshold
	if snap.ScoresTotal >= minScoresForRate && snap.FallbackRate > threshold {
		severity := "high"
		if snap.FallbackRate >= 2*threshold {
			severity = "critical"
		}
		alerts = append(alerts, Alert{
			Type:     AlertFallbackRate,
			Severity: severity,
			Message: fmt.Sprintf("%d of %d leads fell back to the neutral score in last %dh (%.1f%%, threshold %.1f%%)",
				snap.FallbackCount, snap.ScoresTotal, snap.LookbackHours,
				snap.FallbackRate*100, threshold*100),
			Details: map[string]any{
				"fallback_rate": snap.FallbackRate,
				"threshold":     threshold,
				"fallback":      snap.FallbackCount,
				"total":         snap.ScoresTotal,
			},
			Timestamp: now,
		})
	}
	return alerts
}

// SendAlerts posts the alerts not muted by a recent delivery as one batch
// and returns how many went out. Without a webhook it only logs.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	due := a.due(alerts)
	if len(due) == 0 {
		return 0
	}

	if a.cfg.WebhookURL == "" {
		for _, al := range due {
			zap.L().Warn("monitoring: alert",
				zap.String("type", string(al.Type)),
				zap.String("severity", al.Severity),
				zap.String("message", al.Message),
			)
		}
		return 0
	}

	payload, err := json.Marshal(alertBatch{Source: "leadscore", Alerts: due})
	if err != nil {
		zap.L().Error("monitoring: marshal alerts", zap.Error(err))
		return 0
	}

	err = resilience.Retry(ctx, a.policy, func(ctx context.Context) error {
		return a.post(ctx, payload)
	})
	if err != nil {
		zap.L().Error("monitoring: failed to send alerts",
			zap.Int("alerts", len(due)),
			zap.String("class", resilience.Classify(err)),
			zap.Error(err),
		)
		return 0
	}

	a.markSent(due)
	return len(due)
}

func (a *Alerter) due(alerts []Alert) []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	var out []Alert
	for _, al := range alerts {
		if last, ok := a.lastSent[al.Type]; ok && now.Sub(last) < a.cooldown {
			continue
		}
		out = append(out, al)
	}
	return out
}

func (a *Alerter) markSent(alerts []Alert) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	for _, al := range alerts {
		a.lastSent[al.Type] = now
	}
}

func (a *Alerter) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return resilience.Transient(eris.Wrap(err, "monitoring: webhook request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 300 {
		return resilience.StatusError("monitoring: webhook", resp.StatusCode)
	}
	return nil
}
