package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/resilience"
	"github.com/sells-group/leadscore/pkg/anthropic"
)

const (
	defaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 1024

	// Applied when the response omits a field.
	defaultConversion  = 50.0
	defaultLifetime    = 1000.0
	defaultService     = "Standard"
	defaultConfidence  = 0.85
	analysisPhaseLabel = "lead_enrichment"
)

const systemPrompt = `You are a credit repair lead analyst. You receive a JSON summary of a prospective client and respond with a single JSON object and nothing else.`

const userPromptTemplate = `Analyze this credit repair lead and return JSON with exactly these keys:
  "summary": one or two sentences on lead quality,
  "strengths": array of short strings,
  "challenges": array of short strings,
  "strategy": recommended approach for the sales team,
  "conversion_probability": number from 0 to 100,
  "lifetime_value": estimated client value in USD,
  "recommended_service": one of "Premium", "Acceleration", "Standard", "Hybrid", "DIY",
  "priority_actions": array of next steps.

Lead summary:
%s`

// AnthropicConfig configures an AnthropicEnricher.
type AnthropicConfig struct {
	Model     string
	MaxTokens int64
	// RPS and Burst bound outbound calls. RPS <= 0 disables limiting.
	RPS   float64
	Burst int
}

// AnthropicEnricher asks a Claude model for a lead analysis.
type AnthropicEnricher struct {
	client  anthropic.Client
	cfg     AnthropicConfig
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewAnthropic builds an enricher. breaker may be nil.
func NewAnthropic(client anthropic.Client, cfg AnthropicConfig, breaker *resilience.Breaker) *AnthropicEnricher {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	e := &AnthropicEnricher{client: client, cfg: cfg, breaker: breaker}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return e
}

// analysis mirrors the JSON the model is asked for. Pointers distinguish
// absent numbers from zero.
type analysis struct {
	Summary               string   `json:"summary"`
	Strengths             []string `json:"strengths"`
	Challenges            []string `json:"challenges"`
	Strategy              string   `json:"strategy"`
	ConversionProbability *float64 `json:"conversion_probability"`
	LifetimeValue         *float64 `json:"lifetime_value"`
	RecommendedService    string   `json:"recommended_service"`
	PriorityActions       []string `json:"priority_actions"`
}

// Enrich implements Enricher.
func (e *AnthropicEnricher) Enrich(ctx context.Context, s model.Summary) (*model.Enrichment, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "enrich: rate limit wait")
		}
	}

	call := func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return e.client.CreateMessage(ctx, e.request(s))
	}
	var (
		resp *anthropic.MessageResponse
		err  error
	)
	if e.breaker != nil {
		resp, err = resilience.Guard(ctx, e.breaker, call)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		return nil, eris.Wrap(err, "enrich: create message")
	}
	if resp == nil {
		return nil, eris.New("enrich: empty response")
	}
	resp.Usage.LogCost(e.cfg.Model, analysisPhaseLabel)

	return parseAnalysis(resp.Text(), resp.Model)
}

func (e *AnthropicEnricher) request(s model.Summary) anthropic.MessageRequest {
	payload, _ := json.MarshalIndent(s, "", "  ") //nolint:errchkjson
	return anthropic.MessageRequest{
		Model:     e.cfg.Model,
		MaxTokens: e.cfg.MaxTokens,
		System:    systemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(userPromptTemplate, payload)},
		},
	}
}

func parseAnalysis(text, modelID string) (*model.Enrichment, error) {
	var a analysis
	if err := json.Unmarshal([]byte(cleanJSON(text)), &a); err != nil {
		zap.L().Warn("enrich: failed to parse analysis json", zap.Error(err))
		return nil, eris.Wrap(err, "enrich: parse analysis json")
	}

	out := &model.Enrichment{
		Summary:               a.Summary,
		Strengths:             nonNil(a.Strengths),
		Challenges:            nonNil(a.Challenges),
		Strategy:              a.Strategy,
		ConversionProbability: defaultConversion,
		LifetimeValue:         defaultLifetime,
		RecommendedService:    a.RecommendedService,
		PriorityActions:       nonNil(a.PriorityActions),
		Confidence:            defaultConfidence,
		Model:                 modelID,
	}
	if a.ConversionProbability != nil && !math.IsNaN(*a.ConversionProbability) {
		out.ConversionProbability = math.Min(100, math.Max(0, *a.ConversionProbability))
	}
	if a.LifetimeValue != nil && *a.LifetimeValue >= 0 {
		out.LifetimeValue = *a.LifetimeValue
	}
	if out.RecommendedService == "" {
		out.RecommendedService = defaultService
	}
	return out, nil
}

// cleanJSON extracts a JSON object from text that may carry markdown fences
// or surrounding prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
