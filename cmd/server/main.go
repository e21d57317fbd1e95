package main

import (
	"fmt"
	"os"

	"project-management-api/internal/config"
	"project-management-api/internal/database"
	"project-management-api/internal/logging"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pmserver",
	Short: "Multi-tenant project management API",
	Long: `Serves the project management REST API: workspaces, projects, tasks,
milestones, labels, statuses, saved views and realtime workspace events.

Configuration is read from --config (YAML) and then from PM_* / JWT_*
environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
}

// bootstrap loads config, builds the logger and opens the database.
func bootstrap() (*config.Config, zerolog.Logger, *database.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return nil, log, nil, err
	}
	return cfg, log, db, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
