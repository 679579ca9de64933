package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ai_builder_server/internal/ai"
	"ai_builder_server/internal/api"
	"ai_builder_server/internal/export"
	"ai_builder_server/internal/preview"
	"ai_builder_server/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadSettings()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if cfg.AppEnv == "production" {
			gin.SetMode(gin.ReleaseMode)
		} else {
			gin.SetMode(gin.DebugMode)
			logger.Info("running in gin debug mode")
		}

		db, err := store.Open(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer db.Close()

		var generator api.Generator
		if cfg.OpenAIKey != "" {
			generator = ai.NewGenerator(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.DefaultModel, logger)
		} else {
			logger.Warn("OPENAI_API_KEY is not set, generation endpoints are disabled")
		}

		composer := newComposer(cfg)
		hub := preview.NewHub(cfg.Origins(), logger)
		defer hub.Close()

		apiHandler := api.NewAPIHandler(api.Dependencies{
			Store:     db,
			Generator: generator,
			Composer:  composer,
			Static:    preview.NewStaticRenderer(logger),
			Tracker:   preview.NewTracker(hub),
			Hub:       hub,
			Exporter:  export.NewExporter(composer, logger),
			ExportDir: cfg.ExportDir,
			Log:       logger,
		})

		server := &http.Server{
			Addr:    cfg.ServerAddress,
			Handler: api.NewRouter(apiHandler, cfg.Origins()),
			// Set timeouts to prevent slow client attacks
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 90 * time.Second, // generation requests wait on the model
			IdleTimeout:  60 * time.Second,
		}

		serverErr := make(chan error, 1)
		go func() {
			logger.Info("starting API server", zap.String("addr", cfg.ServerAddress))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
			close(serverErr)
		}()

		// --- Graceful Shutdown ---
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			logger.Info("shutting down server", zap.String("signal", sig.String()))
		case err, ok := <-serverErr:
			if ok {
				return err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("API server forced shutdown", zap.Error(err))
			return err
		}
		logger.Info("API server gracefully stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
