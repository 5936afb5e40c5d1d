package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/model"
)

var cfg *config.Config

// Persistent logging overrides. Empty means keep the configured value.
var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "leadscore",
	Short: "Lead scoring engine for credit repair intake",
	Long: `Scores credit repair leads on credit, financial, behavioral and urgency
signals, optionally adds a Claude analysis, and routes each lead to a team.

Leads come from a profile file, the lead store (see import), or the HTTP API
started by serve. Configuration is read from ./config.yaml and LEADSCORE_*
environment variables.`,
	Version:      model.ScoringVersion,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyLogFlags(c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		zap.L().Debug("leadscore: starting",
			zap.String("command", cmd.Name()),
			zap.String("scoring_version", model.ScoringVersion),
			zap.String("store_driver", cfg.Store.Driver),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log.format (json, console)")
}

// applyLogFlags lets --log-level and --log-format win over file and env.
func applyLogFlags(c *config.Config) {
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
