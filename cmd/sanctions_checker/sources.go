package main

import (
	"github.com/spf13/cobra"

	"github.com/13maks37/sanctions-checker/internal/config"
	"github.com/13maks37/sanctions-checker/internal/observability"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the configured sanctions sources",
	Long: `Prints the source table: name, format, extraction schema and URL.

With --json the table is printed in the config file representation, ready to be
copied into the "sources" key of a config file and edited.`,
	RunE: runSources,
}

var (
	sourcesConfigPath string
	sourcesJSON       bool
)

func init() {
	sourcesCmd.Flags().StringVar(&sourcesConfigPath, "config", "", "Path to a JSON or YAML config file")
	sourcesCmd.Flags().BoolVar(&sourcesJSON, "json", false, "Print the table as config JSON")
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(sourcesConfigPath)
	if err != nil {
		return err
	}
	srcs, err := cfg.BuildSources()
	if err != nil {
		return err
	}

	if sourcesJSON {
		out := make([]config.SourceConfig, len(srcs))
		for i, src := range srcs {
			out[i] = config.FromSource(src)
		}
		return writeJSON(cmd.OutOrStdout(), map[string]any{"sources": out})
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintSources(srcs)
	return nil
}
