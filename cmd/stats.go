package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscore/internal/monitoring"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show scoring health over a lookback window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		lookback, _ := cmd.Flags().GetInt("lookback-hours")
		if lookback <= 0 {
			lookback = cfg.Monitoring.LookbackWindowHours
		}
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		env, err := initEnv(ctx, "score")
		if err != nil {
			return err
		}
		defer env.Close()

		snap, err := monitoring.NewCollector(env.Store).Collect(ctx, lookback)
		if err != nil {
			return eris.Wrap(err, "collect stats")
		}
		return writeOutput(cmd.OutOrStdout(), format, snap)
	},
}

func init() {
	statsCmd.Flags().Int("lookback-hours", 0, "lookback window in hours (default from config)")
	statsCmd.Flags().String("format", "json", "output format: json or yaml")
	rootCmd.AddCommand(statsCmd)
}
