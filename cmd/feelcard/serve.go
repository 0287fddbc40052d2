package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skypro1111/feelcard-service/internal/server"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTP.Port, _ = cmd.Flags().GetInt("port")
				if err := cfg.HTTP.Validate(); err != nil {
					return err
				}
			}

			// Create cancellable context for graceful shutdown
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			log := a.logger
			log.WithFields(logrus.Fields{
				"service":      serviceName,
				"version":      serviceVersion,
				"config_path":  v.GetString("config"),
				"port":         cfg.HTTP.Port,
				"artifacts":    a.artifacts.Kind(),
				"index":        a.index.Kind(),
				"model_ready":  a.modelReady,
				"analysis":     cfg.Model.AnalysisModel,
				"image_model":  cfg.Model.ImageModel,
				"speech_model": cfg.Model.SpeechModel,
			}).Info("Service starting")

			httpServer := server.NewHTTPServer(cfg, log, a.pipeline, a.metrics, a.registry, server.Backends{
				Artifacts:  a.artifacts.Kind(),
				Index:      a.index.Kind(),
				ModelReady: a.modelReady,
			})
			if err := httpServer.Start(); err != nil {
				return err
			}

			// Setup signal handling for graceful shutdown
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case sig := <-sigChan:
				log.WithField("signal", sig.String()).Info("Received shutdown signal")
			case <-ctx.Done():
				log.Info("Context cancelled, shutting down")
			}

			log.Info("Starting graceful shutdown...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.GetWriteTimeout())
			defer shutdownCancel()

			if err := httpServer.Stop(shutdownCtx); err != nil {
				log.WithError(err).Error("Error stopping HTTP server")
			}

			stats := a.pipeline.GetStats()
			log.WithFields(logrus.Fields{
				"total_runs":      stats.TotalRuns,
				"successful_runs": stats.SuccessfulRuns,
				"failed_runs":     stats.FailedRuns,
			}).Info("Service stopped")
			return nil
		},
	}

	cmd.Flags().Int("port", 0, "Override the HTTP port")
	return cmd
}
