package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/skypro1111/feelcard-service/internal/audio"
	"github.com/skypro1111/feelcard-service/internal/config"
	"github.com/skypro1111/feelcard-service/internal/logger"
	"github.com/skypro1111/feelcard-service/internal/metrics"
	"github.com/skypro1111/feelcard-service/internal/model"
	"github.com/skypro1111/feelcard-service/internal/pipeline"
	"github.com/skypro1111/feelcard-service/internal/storage"
)

// app holds the components every command shares
type app struct {
	config     *config.Config
	logger     *logrus.Logger
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	artifacts  storage.ArtifactStore
	index      storage.ItemIndex
	pipeline   *pipeline.Orchestrator
	modelReady bool
}

// loadConfig resolves the configuration file and flag overrides
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if level := v.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
		if err := cfg.Logging.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	return cfg, nil
}

// newApp wires configuration, logging, metrics, storage and the pipeline
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.New(cfg.Logging)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.NewMetrics(registry)

	artifacts, err := storage.NewArtifactStore(cfg.Storage, logger.Component(log, "storage"))
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}

	index, err := storage.OpenIndex(ctx, cfg.Index, logger.Component(log, "index"))
	if err != nil {
		return nil, err
	}

	svc, err := model.NewGeminiService(ctx, cfg.Model.APIKey)
	if err != nil {
		index.Close()
		return nil, err
	}
	if svc == nil {
		log.Warn("GEMINI_API_KEY is not set; card generation will fail until it is configured")
	}

	modelCfg := model.Config{
		AnalysisModel: cfg.Model.AnalysisModel,
		ImageModel:    cfg.Model.ImageModel,
		SpeechModel:   cfg.Model.SpeechModel,
		Voice:         cfg.Model.Voice,
		CaptureMIME:   cfg.Model.CaptureMIME,
		Speech: audio.Format{
			SampleRate: cfg.Audio.SampleRate,
			Channels:   cfg.Audio.Channels,
			BitDepth:   cfg.Audio.BitDepth,
		},
	}
	modelLog := logger.Component(log, "model")

	orch := pipeline.New(pipeline.Options{
		Analyzer:  model.NewAnalyzer(svc, modelCfg, modelLog),
		Images:    model.NewImageSynthesizer(svc, modelCfg, modelLog),
		Speech:    model.NewSpeechSynthesizer(svc, modelCfg, modelLog),
		Artifacts: artifacts,
		Index:     index,
		Metrics:   appMetrics,
		Logger:    logger.Component(log, "pipeline"),
	})

	return &app{
		config:     cfg,
		logger:     log,
		registry:   registry,
		metrics:    appMetrics,
		artifacts:  artifacts,
		index:      index,
		pipeline:   orch,
		modelReady: svc != nil,
	}, nil
}

func (a *app) Close() {
	if err := a.index.Close(); err != nil {
		a.logger.WithError(err).Warn("Error closing item index")
	}
}
