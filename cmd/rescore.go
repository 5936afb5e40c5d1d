package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadscore/internal/engine"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/store"
)

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Rescore stored leads",
	Long:  "Rescores up to --limit stored leads concurrently and prints each lead's new score.",
	RunE:  runRescore,
}

func init() {
	f := rescoreCmd.Flags()
	f.Int("limit", 100, "maximum number of leads to rescore")
	f.Int("offset", 0, "number of stored leads to skip")
	f.String("format", "json", "output format: json or yaml")
	f.Bool("skip-enrichment", false, "skip Claude enrichment")
	rootCmd.AddCommand(rescoreCmd)
}

// rescoreSummary is the rescore command's output.
type rescoreSummary struct {
	Scored    int             `json:"scored" yaml:"scored"`
	Fallbacks int             `json:"fallbacks" yaml:"fallbacks"`
	Results   []rescoreResult `json:"results" yaml:"results"`
}

type rescoreResult struct {
	ContactID   string `json:"contact_id" yaml:"contact_id"`
	Score       int    `json:"score" yaml:"score"`
	ServicePlan string `json:"service_plan" yaml:"service_plan"`
	Fallback    bool   `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

func runRescore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	format, _ := cmd.Flags().GetString("format")
	skip, _ := cmd.Flags().GetBool("skip-enrichment")

	if err := checkFormat(format); err != nil {
		return err
	}
	if !cmd.Flags().Changed("limit") && cfg.Batch.DefaultLimit > 0 {
		limit = cfg.Batch.DefaultLimit
	}

	env, err := initEnv(ctx, "score")
	if err != nil {
		return err
	}
	defer env.Close()

	leads, err := env.Store.ListLeads(ctx, store.LeadFilter{Limit: limit, Offset: offset})
	if err != nil {
		return eris.Wrap(err, "list leads")
	}

	summary, err := rescoreLeads(ctx, env.Engine, leads, cfg.Batch.MaxConcurrentLeads, engine.ScoreOptions{SkipEnrichment: skip})
	if err != nil {
		return err
	}

	zap.L().Info("rescore complete",
		zap.Int("scored", summary.Scored),
		zap.Int("fallbacks", summary.Fallbacks),
	)
	return writeOutput(cmd.OutOrStdout(), format, summary)
}

// rescoreLeads scores leads with at most concurrency calls in flight.
// Results keep the input order. Invalid profiles are logged and skipped.
func rescoreLeads(ctx context.Context, eng *engine.Engine, leads []model.LeadProfile, concurrency int, opt engine.ScoreOptions) (*rescoreSummary, error) {
	results := make([]*model.ScoringResult, len(leads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	for i := range leads {
		p := &leads[i]
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			r, err := eng.Score(gctx, p, opt)
			if err != nil {
				zap.L().Warn("rescore: skipping invalid lead", zap.Int("index", i), zap.Error(err))
				return nil
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "rescore leads")
	}

	summary := &rescoreSummary{Results: make([]rescoreResult, 0, len(leads))}
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.IsFallback() {
			summary.Fallbacks++
		}
		summary.Results = append(summary.Results, rescoreResult{
			ContactID:   r.ContactID,
			Score:       r.Score,
			ServicePlan: r.Recommendations.ServicePlan,
			Fallback:    r.IsFallback(),
		})
	}
	summary.Scored = len(summary.Results)
	return summary, nil
}
