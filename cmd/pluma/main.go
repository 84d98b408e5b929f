package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	serverURL  string
	adminToken string
	slotFlag   string
	limitFlag  int
	remoteFlag bool
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "pluma",
	Short:         "Voz da Pluma daily manifestation service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the configuration file")

	for _, cmd := range []*cobra.Command{regenerateCmd, statusCmd, restartCmd, recentCmd, sweepCmd} {
		cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8000", "base URL of a running server")
		cmd.Flags().StringVar(&adminToken, "token", os.Getenv("PLUMA_ADMIN_TOKEN"), "admin bearer token")
	}
	regenerateCmd.Flags().StringVar(&slotFlag, "slot", "", "slot to regenerate (07:00, 09:00 or 11:00)")
	_ = regenerateCmd.MarkFlagRequired("slot")
	recentCmd.Flags().IntVar(&limitFlag, "limit", 0, "number of manifestations to list (server default when 0)")
	sweepCmd.Flags().BoolVar(&remoteFlag, "remote", false, "ask the server at --server to sweep instead of sweeping locally")

	rootCmd.AddCommand(serveCmd, sweepCmd, regenerateCmd, statusCmd, restartCmd, recentCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
