package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/13maks37/sanctions-checker/internal/config"
	"github.com/13maks37/sanctions-checker/internal/server"
)

var (
	tokenUser  string
	tokenHours int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the API",
	Long: `Signs an HS256 token for --user with JWT_SECRET. The server accepts it when the
user is listed in allowed_users, or when that list is empty.`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenUser, "user", "u", "", "User the token is issued to (required)")
	tokenCmd.Flags().IntVar(&tokenHours, "hours", 0, "Validity in hours (default: JWT_EXPIRATION_HOURS or 24)")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("hours") {
		if tokenHours < 1 {
			return fmt.Errorf("--hours must be at least 1")
		}
		jwtCfg.ExpirationHours = tokenHours
	}

	token, err := server.NewJWTService(jwtCfg).GenerateToken(tokenUser)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
