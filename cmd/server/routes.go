package main

import (
	"fmt"
	"sort"

	"project-management-api/internal/config"
	"project-management-api/internal/database"
	"project-management-api/internal/routes"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the registered API routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		gin.SetMode(gin.ReleaseMode)
		// Routes are registered without touching the database.
		engine := routes.Build(cfg, &database.DB{}, zerolog.Nop())

		list := engine.Routes()
		sort.Slice(list, func(i, j int) bool {
			if list[i].Path != list[j].Path {
				return list[i].Path < list[j].Path
			}
			return list[i].Method < list[j].Method
		})

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		for _, r := range list {
			fmt.Printf("  %s %s\n", cyan(fmt.Sprintf("%-7s", r.Method)), r.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
}
