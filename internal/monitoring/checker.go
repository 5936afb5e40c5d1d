package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/config"
)

const defaultCheckInterval = 5 * time.Minute

// Checker evaluates scoring health on a fixed interval.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	lookback  int
	interval  time.Duration
}

// NewChecker creates a Checker. A non-positive check interval uses five
// minutes.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &Checker{
		collector: collector,
		alerter:   alerter,
		lookback:  cfg.LookbackWindowHours,
		interval:  interval,
	}
}

// Run checks once per interval until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("alert checker started",
		zap.Duration("interval", c.interval),
		zap.Int("lookback_hours", c.lookback),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check runs one collect, evaluate, and send cycle and returns the number
// of alerts raised. Collection errors are logged and count as none.
func (c *Checker) Check(ctx context.Context) int {
	snap, err := c.collector.Collect(ctx, c.lookback)
	if err != nil {
		zap.L().Error("monitoring: collect failed", zap.Error(err))
		return 0
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) > 0 {
		sent := c.alerter.SendAlerts(ctx, alerts)
		zap.L().Info("monitoring: alerts raised",
			zap.Int("raised", len(alerts)),
			zap.Int("sent", sent),
			zap.Int("scores_total", snap.ScoresTotal),
			zap.Float64("fallback_rate", snap.FallbackRate),
		)
	}
	return len(alerts)
}
