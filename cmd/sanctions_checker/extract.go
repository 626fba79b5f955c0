package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/13maks37/sanctions-checker/internal/extraction"
	"github.com/13maks37/sanctions-checker/internal/fetch"
	"github.com/13maks37/sanctions-checker/internal/normalize"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Print the names a source's extraction schema finds in a local file",
	Long: `Runs the extraction schema of one source over a local copy of its list and prints
one candidate per line, exactly as the matcher sees them. Useful when writing or
debugging a schema.

Without --file the copy left in download_dir by the last screening run is used.`,
	RunE: runExtract,
}

var (
	extractConfigPath string
	extractSource     string
	extractFile       string
	extractRaw        bool
	extractCount      bool
)

func init() {
	extractCmd.Flags().StringVar(&extractConfigPath, "config", "", "Path to a JSON or YAML config file")
	extractCmd.Flags().StringVarP(&extractSource, "source", "s", "", "Source name (required)")
	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "Local copy of the list")
	extractCmd.Flags().BoolVar(&extractRaw, "raw", false, "Skip candidate normalization")
	extractCmd.Flags().BoolVar(&extractCount, "count", false, "Print only the number of candidates")
	_ = extractCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(extractConfigPath)
	if err != nil {
		return err
	}
	srcs, err := selectSources(cfg, []string{extractSource})
	if err != nil {
		return err
	}
	src := srcs[0]

	path := extractFile
	if path == "" {
		path = fetch.CachePath(cfg.DownloadDir, src)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	candidates, err := extraction.Extract(raw, src)
	if err != nil {
		return err
	}
	if src.NormalizeCandidates && !extractRaw {
		candidates = normalize.Names(candidates)
	}

	out := cmd.OutOrStdout()
	if extractCount {
		_, _ = fmt.Fprintln(out, len(candidates))
		return nil
	}
	for _, c := range candidates {
		_, _ = fmt.Fprintln(out, c)
	}
	return nil
}
