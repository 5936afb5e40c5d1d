package main

import (
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadscore/internal/engine"
	"github.com/sells-group/leadscore/internal/model"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a single lead",
	Long: `Score one lead profile and print the full result.

The profile comes either from a JSON or YAML file or from the store by
contact id.

Examples:
  # Score a profile on disk
  score --file lead.json

  # Score a stored lead without calling Claude, as YAML
  score --contact-id c-123 --skip-enrichment --format yaml`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("file", "", "path to a lead profile (.json, .yaml, .yml)")
	f.String("contact-id", "", "score a stored lead by contact id")
	f.String("format", "json", "output format: json or yaml")
	f.Bool("skip-enrichment", false, "skip Claude enrichment for this call")
	scoreCmd.MarkFlagsMutuallyExclusive("file", "contact-id")
	scoreCmd.MarkFlagsOneRequired("file", "contact-id")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path, _ := cmd.Flags().GetString("file")
	contactID, _ := cmd.Flags().GetString("contact-id")
	format, _ := cmd.Flags().GetString("format")
	skip, _ := cmd.Flags().GetBool("skip-enrichment")

	if err := checkFormat(format); err != nil {
		return err
	}

	env, err := initEnv(ctx, "score")
	if err != nil {
		return err
	}
	defer env.Close()

	var profile *model.LeadProfile
	if path != "" {
		profile, err = readProfile(path)
	} else {
		profile, err = env.Store.GetLead(ctx, contactID)
	}
	if err != nil {
		return eris.Wrap(err, "load lead")
	}

	result, err := env.Engine.Score(ctx, profile, engine.ScoreOptions{SkipEnrichment: skip})
	if err != nil {
		return eris.Wrap(err, "score lead")
	}

	return writeOutput(cmd.OutOrStdout(), format, result)
}

// readProfile loads a lead profile from a JSON or YAML file.
func readProfile(path string) (*model.LeadProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	var p model.LeadProfile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	default:
		err = json.Unmarshal(data, &p)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "parse %s", path)
	}
	return &p, nil
}

func checkFormat(format string) error {
	switch format {
	case "json", "yaml":
		return nil
	default:
		return eris.Errorf("unsupported format %q (want json or yaml)", format)
	}
}

// writeOutput renders v as indented JSON or YAML.
func writeOutput(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}
