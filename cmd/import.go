package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/leadfile"
	"github.com/sells-group/leadscore/internal/store"
)

var importFilePath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import leads from a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "score")
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := importLeads(ctx, env.Store, importFilePath)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.Int64("upserted", n),
			zap.String("file", importFilePath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFilePath, "file", "", "path to a .csv or .xlsx lead export (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

func importLeads(ctx context.Context, st store.Store, path string) (int64, error) {
	leads, err := leadfile.Read(path)
	if err != nil {
		return 0, eris.Wrap(err, "read lead file")
	}
	if len(leads) == 0 {
		zap.L().Warn("import: no leads found", zap.String("file", path))
		return 0, nil
	}

	n, err := st.UpsertLeads(ctx, leads)
	if err != nil {
		return 0, eris.Wrap(err, "upsert leads")
	}
	return n, nil
}
