package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/13maks37/sanctions-checker/internal/config"
	"github.com/13maks37/sanctions-checker/internal/db"
	"github.com/13maks37/sanctions-checker/internal/observability"
	"github.com/13maks37/sanctions-checker/internal/pipeline"
	"github.com/13maks37/sanctions-checker/internal/spreadsheet"
	"github.com/13maks37/sanctions-checker/internal/types"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Screen the companies of a spreadsheet against the sanctions lists",
	Long: `Reads the company column of an Excel workbook, downloads every configured sanctions
list and writes a report with one Yes/No column per list.

Configuration can be loaded from a JSON or YAML file using --config. Command-line
flags override config file values.`,
	RunE: runScreen,
}

var (
	screenConfigPath  string
	screenInput       string
	screenOut         string
	screenJSON        bool
	screenThreshold   float64
	screenWorkers     int
	screenTimeout     string
	screenSources     []string
	screenColumn      string
	screenOfflineDir  string
	screenDatabaseURL string
	screenNoBrowser   bool
	screenVerbose     bool
)

func init() {
	screenCmd.Flags().StringVar(&screenConfigPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")
	screenCmd.Flags().StringVarP(&screenInput, "input", "i", "", "Excel workbook with the company names (required)")
	screenCmd.Flags().StringVarP(&screenOut, "out", "o", "", "Report path (default: <result_dir>/sanctions_companies_<timestamp>.xlsx)")
	screenCmd.Flags().BoolVar(&screenJSON, "json", false, "Print the JSON report to stdout instead of writing a workbook")
	screenCmd.Flags().Float64Var(&screenThreshold, "threshold", 0, "Match threshold, 0-100")
	screenCmd.Flags().IntVar(&screenWorkers, "workers", 0, "Sources processed concurrently")
	screenCmd.Flags().StringVar(&screenTimeout, "timeout", "", "Per-source download timeout, e.g. 90s")
	screenCmd.Flags().StringSliceVar(&screenSources, "source", nil, "Only screen against these sources (repeatable)")
	screenCmd.Flags().StringVar(&screenColumn, "column", "", "Header of the company column")
	screenCmd.Flags().StringVar(&screenOfflineDir, "offline-dir", "", "Read lists from previously downloaded copies in this directory")
	screenCmd.Flags().StringVar(&screenDatabaseURL, "db-url", "", "Store the run in this database (postgres:// or sqlite://)")
	screenCmd.Flags().BoolVar(&screenNoBrowser, "no-browser", false, "Fetch script-rendered lists without a headless browser")
	screenCmd.Flags().BoolVarP(&screenVerbose, "verbose", "v", false, "Print progress and a detailed summary")

	rootCmd.AddCommand(screenCmd)
}

// applyScreenFlags overrides cfg with the flags that were explicitly set and
// validates the result.
func applyScreenFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("threshold") {
		cfg.Threshold = screenThreshold
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = screenWorkers
	}
	if cmd.Flags().Changed("timeout") {
		cfg.SourceTimeout = screenTimeout
	}
	if cmd.Flags().Changed("column") {
		cfg.CompanyColumn = screenColumn
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = screenDatabaseURL
	}
	if cmd.Flags().Changed("no-browser") {
		cfg.DisableBrowser = screenNoBrowser
	}
	return cfg.Validate()
}

func runScreen(cmd *cobra.Command, _ []string) error {
	if screenInput == "" {
		return fmt.Errorf("--input is required")
	}
	if !spreadsheet.IsSupportedFile(screenInput) {
		return fmt.Errorf("%s: %s", spreadsheet.UnsupportedFileMessage, screenInput)
	}

	cfg, err := loadConfig(screenConfigPath)
	if err != nil {
		return err
	}
	if err := applyScreenFlags(cmd, cfg); err != nil {
		return err
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	logger, closer, err := newLogger(cfg, screenVerbose, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	companies, err := readInput(screenInput, cfg.CompanyColumn)
	if err != nil {
		return err
	}
	if len(companies) == 0 {
		return fmt.Errorf("no company names in column %q of %s", cfg.CompanyColumn, screenInput)
	}

	srcs, err := selectSources(cfg, screenSources)
	if err != nil {
		return err
	}

	// Summaries go to stderr when stdout carries the JSON report.
	printer := observability.NewPrinter(stdout)
	if screenJSON {
		printer = observability.NewPrinter(stderr)
	}
	var progress pipeline.ProgressCallback
	if screenVerbose {
		progress = observability.NewPrinter(stderr).PrintProgress
	}

	p, err := newPipeline(cfg, newFetcher(cfg, screenOfflineDir, logger), srcs, logger, progress)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := p.Run(ctx, companies)
	if err != nil {
		return fmt.Errorf("screening failed: %w", err)
	}

	if cfg.DatabaseURL != "" {
		if err := saveRun(cmd, cfg.DatabaseURL, report, logger); err != nil {
			logger.Error("failed to store run", slog.Any("error", err))
		}
	}

	if screenJSON {
		if err := writeJSON(stdout, report); err != nil {
			return err
		}
	} else {
		path := reportPath(screenOut, cfg.ResultDir, report)
		if err := spreadsheet.SaveReport(path, report); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "Report written to %s\n", path)
	}

	if screenVerbose {
		printer.PrintSourceStatus(report)
		printer.PrintReport(report)
	} else if !screenJSON {
		_, _ = fmt.Fprintf(stdout, "Screened %d companies against %d sources: %d flagged\n",
			len(report.Companies), len(report.Sources), report.FlaggedCount())
	}
	for _, name := range report.UnavailableSources() {
		st, _ := report.Status(name)
		_, _ = fmt.Fprintf(stderr, "Warning: %s was unavailable: %s\n", name, st.Error)
	}
	return nil
}

func readInput(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	companies, err := spreadsheet.ReadCompanies(f, column)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return companies, nil
}

// reportPath returns out, or a timestamped file name under resultDir.
func reportPath(out, resultDir string, report *types.ScreeningReport) string {
	if out != "" {
		return out
	}
	return filepath.Join(resultDir, spreadsheet.ReportFileName(report.CreatedAt))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func saveRun(cmd *cobra.Command, databaseURL string, report *types.ScreeningReport, logger *slog.Logger) error {
	store, err := db.Open(cmd.Context(), databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	id, err := store.SaveRun(cmd.Context(), report)
	if err != nil {
		return err
	}
	logger.Info("run stored", slog.String("run_id", id.String()))
	return nil
}
