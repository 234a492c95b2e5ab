package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wichananm65/user-registry/internal/config"
)

var flagEnvFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "user-registry",
	Short:         "User registration service",
	Long:          "Serves the /api/users CRUD API with profile picture uploads and confirmation emails.",
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "env file to load before reading the environment (default: .env)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func loadConfig() (config.Config, error) {
	if flagEnvFile != "" {
		return config.Load(flagEnvFile)
	}
	return config.Load()
}
