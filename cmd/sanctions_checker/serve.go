package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/13maks37/sanctions-checker/internal/config"
	"github.com/13maks37/sanctions-checker/internal/db"
	"github.com/13maks37/sanctions-checker/internal/server"
	"github.com/13maks37/sanctions-checker/internal/server/ratelimit"
)

var (
	serveConfigPath  string
	servePort        int
	serveDatabaseURL string
	serveVerbose     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that screens uploaded workbooks and name lists.

When JWT_SECRET is set the screening and run endpoints require a bearer token
(see the token command); allowed_users restricts which token subjects are
accepted. Runs are stored when a database URL is configured.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to a JSON or YAML config file")
	serveCmd.Flags().IntVar(&servePort, "port", config.DefaultPort, "Port to listen on")
	serveCmd.Flags().StringVar(&serveDatabaseURL, "db-url", "", "Run store URL (optional, defaults to DATABASE_URL env var)")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Debug logging")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(serveConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = serveDatabaseURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := newLogger(cfg, serveVerbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	jwtCfg, err := config.OptionalJWTConfig(os.Getenv)
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}
	if jwtCfg == nil {
		logger.Warn("JWT_SECRET is not set; the API is open to everyone")
	}

	srcs, err := cfg.BuildSources()
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, newFetcher(cfg, "", logger), srcs, logger, nil)
	if err != nil {
		return err
	}

	store, err := db.Open(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	if store == nil {
		logger.Info("no database configured; runs are not stored")
	}

	srv, err := server.New(server.Config{
		Port:          cfg.Port,
		Pipeline:      p,
		Store:         store,
		JWT:           jwtCfg,
		AllowedUsers:  cfg.AllowedUsers,
		RateLimit:     ratelimit.LoadConfig(os.Getenv),
		UploadDir:     cfg.UploadDir,
		CompanyColumn: cfg.CompanyColumn,
		Logger:        logger,
	})
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("serving", slog.Int("sources", len(srcs)), slog.Bool("auth", jwtCfg != nil))
	return srv.Start(cmd.Context())
}
