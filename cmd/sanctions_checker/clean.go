package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/13maks37/sanctions-checker/internal/fetch"
)

var cleanConfigPath string

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Empty the download, result and upload directories",
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().StringVar(&cleanConfigPath, "config", "", "Path to a JSON or YAML config file")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cleanConfigPath)
	if err != nil {
		return err
	}
	dirs := []string{cfg.DownloadDir, cfg.ResultDir, cfg.UploadDir}
	if err := fetch.Cleanup(dirs...); err != nil {
		return err
	}
	for _, d := range dirs {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cleaned %s\n", d)
	}
	return nil
}
