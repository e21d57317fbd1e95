package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"project-management-api/internal/routes"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !skipMigrate {
			if err := db.Migrate(ctx); err != nil {
				return err
			}
		}
		if !cfg.Server.Dev {
			gin.SetMode(gin.ReleaseMode)
		}

		srv := &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: routes.Build(cfg, db, log),
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info().Str("addr", cfg.Server.Addr).Str("db_driver", cfg.Database.Driver).Msg("server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not run schema migrations on start")
	rootCmd.AddCommand(serveCmd)

	// bare `pmserver` serves
	rootCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not run schema migrations on start")
	rootCmd.RunE = serveCmd.RunE
}
