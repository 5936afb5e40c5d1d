// Package engine orchestrates one scoring call: component scorers, optional
// enrichment, composite, ladders, and the fire-and-forget side effects that
// follow.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/dispatch"
	"github.com/sells-group/leadscore/internal/enrich"
	"github.com/sells-group/leadscore/internal/learning"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/scorer"
	"github.com/sells-group/leadscore/internal/store"
)

const (
	defaultEnrichTimeout  = 5 * time.Second
	defaultPersistTimeout = 10 * time.Second

	fallbackFactor = "Error calculating"
)

// ScoreOptions tunes a single Score call.
type ScoreOptions struct {
	SkipEnrichment bool
}

// Engine scores lead profiles. It is safe for concurrent use.
type Engine struct {
	enricher       enrich.Enricher
	cache          learning.Cache
	store          store.Store
	notifier       dispatch.Notifier
	now            func() time.Time
	enrichTimeout  time.Duration
	persistTimeout time.Duration

	pending sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithEnricher sets the enrichment adapter. The default never enriches.
func WithEnricher(e enrich.Enricher) Option {
	return func(en *Engine) { en.enricher = e }
}

// WithCache sets the learning cache.
func WithCache(c learning.Cache) Option {
	return func(en *Engine) { en.cache = c }
}

// WithStore enables persistence of results and learning patterns.
func WithStore(s store.Store) Option {
	return func(en *Engine) { en.store = s }
}

// WithNotifier sets where routing directives go. Nil disables dispatch.
func WithNotifier(n dispatch.Notifier) Option {
	return func(en *Engine) { en.notifier = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(en *Engine) { en.now = now }
}

// WithEnrichmentTimeout bounds each enrichment call.
func WithEnrichmentTimeout(d time.Duration) Option {
	return func(en *Engine) {
		if d > 0 {
			en.enrichTimeout = d
		}
	}
}

// WithPersistTimeout bounds each background write.
func WithPersistTimeout(d time.Duration) Option {
	return func(en *Engine) {
		if d > 0 {
			en.persistTimeout = d
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		enricher:       enrich.Noop{},
		cache:          learning.NewMemoryCache(),
		now:            time.Now,
		enrichTimeout:  defaultEnrichTimeout,
		persistTimeout: defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cache exposes the learning cache for lookups.
func (e *Engine) Cache() learning.Cache {
	return e.cache
}

// Score produces exactly one result for p. The only error is a contract
// violation (model.ErrInvalidProfile). Faults inside the pipeline yield the
// neutral fallback result with Error set.
func (e *Engine) Score(ctx context.Context, p *model.LeadProfile, opts ...ScoreOptions) (*model.ScoringResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var opt ScoreOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	now := e.now().UTC()
	log := zap.L().With(zap.String("contact_id", p.ContactID))

	result, err := e.run(ctx, p, now, opt)
	if err != nil {
		log.Error("engine: scoring failed, returning fallback", zap.Error(err))
		result = Fallback(p.ContactID, now, err)
	} else {
		log.Debug("engine: scored",
			zap.Int("score", result.Score),
			zap.Float64("total", result.Total),
			zap.String("service_plan", result.Recommendations.ServicePlan),
			zap.Bool("enriched", result.Enrichment != nil),
		)
	}

	e.afterScore(p, result)
	return result, nil
}

// run is the pipeline. A panic anywhere inside becomes an error.
func (e *Engine) run(ctx context.Context, p *model.LeadProfile, now time.Time, opt ScoreOptions) (result *model.ScoringResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = eris.Errorf("engine: panic while scoring: %v", r)
		}
	}()

	b, err := scorer.ScoreAll(p, now)
	if err != nil {
		return nil, eris.Wrap(err, "engine: component scoring")
	}

	var enrichment *model.Enrichment
	if !opt.SkipEnrichment {
		enrichment = e.enrich(ctx, p)
	}

	return assemble(p.ContactID, b, enrichment, p, now), nil
}

func assemble(contactID string, b scorer.Breakdown, enrichment *model.Enrichment, p *model.LeadProfile, now time.Time) *model.ScoringResult {
	composite := scorer.Composite(b, enrichment)
	return &model.ScoringResult{
		ContactID:       contactID,
		Score:           scorer.RoundScore(composite.Total),
		Total:           composite.Total,
		Components:      b.Components(),
		Enrichment:      enrichment,
		Predictions:     scorer.Predict(composite.Total, p),
		Recommendations: scorer.Recommend(composite.Total),
		Routing:         scorer.Route(composite.Total),
		Explanation:     scorer.Explain(composite),
		ScoredAt:        now,
		Version:         model.ScoringVersion,
	}
}

// enrich calls the enricher under its own deadline. Any failure, a panic
// included, degrades to no enrichment.
func (e *Engine) enrich(ctx context.Context, p *model.LeadProfile) (out *model.Enrichment) {
	if e.enricher == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("engine: enricher panicked",
				zap.String("contact_id", p.ContactID),
				zap.Any("panic", r),
			)
			out = nil
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, e.enrichTimeout)
	defer cancel()

	res, err := e.enricher.Enrich(ctx, p.Summarize())
	if err != nil {
		if !errors.Is(err, enrich.ErrDisabled) {
			zap.L().Warn("engine: enrichment unavailable",
				zap.String("contact_id", p.ContactID),
				zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
				zap.Error(err),
			)
		}
		return nil
	}
	return res
}

// Fallback is the neutral result returned when the pipeline faults. Its
// derived blocks are computed from the baseline total of 5.
func Fallback(contactID string, now time.Time, cause error) *model.ScoringResult {
	b := scorer.Neutral(fallbackFactor)
	r := assemble(contactID, b, nil, &model.LeadProfile{ContactID: contactID}, now)
	r.Error = fmt.Sprint(cause)
	return r
}

// afterScore updates the learning cache, then persists and dispatches in the
// background. Fallback results are persisted for monitoring but produce no
// learning pattern and no routing dispatch.
func (e *Engine) afterScore(p *model.LeadProfile, r *model.ScoringResult) {
	fallback := r.IsFallback()
	var pattern model.LearningPattern
	if !fallback {
		pattern = model.NewLearningPattern(p, r)
		if e.cache != nil {
			e.cache.Put(context.Background(), pattern)
		}
	}

	if e.store != nil {
		e.background("persist", p.ContactID, func(ctx context.Context) error {
			if err := e.store.SaveScore(ctx, p, r); err != nil {
				return err
			}
			if fallback {
				return nil
			}
			return e.store.AppendPattern(ctx, pattern)
		})
	}

	if e.notifier != nil && !fallback {
		d := dispatch.NewDirective(r)
		e.background("dispatch", p.ContactID, func(ctx context.Context) error {
			return e.notifier.Notify(ctx, d)
		})
	}
}

// background runs fn detached from the caller's context, bounded by the
// persist timeout. Errors are logged only.
func (e *Engine) background(op, contactID string, fn func(ctx context.Context) error) {
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				zap.L().Error("engine: background task panicked",
					zap.String("op", op),
					zap.String("contact_id", contactID),
					zap.Any("panic", r),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), e.persistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			zap.L().Warn("engine: background task failed",
				zap.String("op", op),
				zap.String("contact_id", contactID),
				zap.Error(err),
			)
		}
	}()
}

// Close waits for outstanding background writes and dispatches.
func (e *Engine) Close() {
	e.pending.Wait()
}
