package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/store"
)

func TestChecker_Check(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.MonitoringConfig{
		WebhookURL:            srv.URL,
		FallbackRateThreshold: 0.1,
		LookbackWindowHours:   24,
	}

	l := &mockLister{}
	l.On("ListScores", mock.Anything, mock.Anything).Return([]store.ScoreRecord{}, nil)

	c := NewChecker(newTestCollector(l), NewAlerter(cfg), cfg)
	assert.Equal(t, 1, c.Check(context.Background()))
	assert.Equal(t, int32(1), hits.Load())
}

func TestChecker_Check_Healthy(t *testing.T) {
	cfg := config.MonitoringConfig{FallbackRateThreshold: 0.1, LookbackWindowHours: 24}
	l := &mockLister{}
	l.On("ListScores", mock.Anything, mock.Anything).Return([]store.ScoreRecord{
		{Score: 7, ServicePlan: "Acceleration"},
	}, nil)

	c := NewChecker(newTestCollector(l), NewAlerter(cfg), cfg)
	assert.Equal(t, 0, c.Check(context.Background()))
}

func TestChecker_Check_CollectError(t *testing.T) {
	cfg := config.MonitoringConfig{LookbackWindowHours: 24}
	l := &mockLister{}
	l.On("ListScores", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	c := NewChecker(newTestCollector(l), NewAlerter(cfg), cfg)
	assert.Equal(t, 0, c.Check(context.Background()))
}

func TestChecker_Run_StopsOnCancel(t *testing.T) {
	cfg := config.MonitoringConfig{CheckIntervalSecs: 1, LookbackWindowHours: 1}
	l := &mockLister{}
	l.On("ListScores", mock.Anything, mock.Anything).Return([]store.ScoreRecord{}, nil).Maybe()

	c := NewChecker(newTestCollector(l), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("checker did not stop after cancel")
	}
}
