package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/skypro1111/feelcard-service/internal/card"
	"github.com/skypro1111/feelcard-service/internal/metrics"
	"github.com/skypro1111/feelcard-service/internal/storage"
)

// Analyzer classifies a captured utterance
type Analyzer interface {
	Analyze(ctx context.Context, captured []byte) (card.Analysis, error)
}

// ImageSynthesizer renders the image prompt of an analysis
type ImageSynthesizer interface {
	SynthesizeImage(ctx context.Context, analysis card.Analysis, id string) (card.Artifact, error)
}

// SpeechSynthesizer renders the speech prompt of an analysis as a WAV container
type SpeechSynthesizer interface {
	SynthesizeSpeech(ctx context.Context, analysis card.Analysis, id string) (card.Artifact, error)
}

// Options wires the orchestrator. Clock and NewID default to time.Now and
// random UUIDs.
type Options struct {
	Analyzer  Analyzer
	Images    ImageSynthesizer
	Speech    SpeechSynthesizer
	Artifacts storage.ArtifactStore
	Index     storage.ItemIndex
	Metrics   *metrics.Metrics
	Logger    *logrus.Entry
	Clock     func() time.Time
	NewID     func() string
}

// Orchestrator runs the generation pipeline. It holds no per-run state and is
// safe for concurrent use.
type Orchestrator struct {
	analyzer  Analyzer
	images    ImageSynthesizer
	speech    SpeechSynthesizer
	artifacts storage.ArtifactStore
	index     storage.ItemIndex
	metrics   *metrics.Metrics
	logger    *logrus.Entry
	now       func() time.Time
	newID     func() string

	// Statistics
	totalRuns      atomic.Uint64
	successfulRuns atomic.Uint64
	failedRuns     atomic.Uint64
}

// Stats summarizes the runs handled since startup
type Stats struct {
	TotalRuns      uint64 `json:"total_runs"`
	SuccessfulRuns uint64 `json:"successful_runs"`
	FailedRuns     uint64 `json:"failed_runs"`
}

// New creates an orchestrator
func New(opts Options) *Orchestrator {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Orchestrator{
		analyzer:  opts.Analyzer,
		images:    opts.Images,
		speech:    opts.Speech,
		artifacts: opts.Artifacts,
		index:     opts.Index,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Clock,
		newID:     opts.NewID,
	}
}

// Run turns captured audio into a persisted card. An analysis failure stops
// the run before any synthesis. Image and speech synthesis run concurrently
// and both must succeed; a failing branch does not cancel its sibling. No
// record is saved unless every step succeeded. Artifacts written before a
// later failure are left in place.
func (o *Orchestrator) Run(ctx context.Context, captured []byte) (result card.Card, err error) {
	started := time.Now()
	o.totalRuns.Add(1)

	log := o.logger.WithField("input_bytes", len(captured))
	defer func() {
		if err != nil {
			o.failedRuns.Add(1)
			o.metrics.RecordRun(false, string(card.KindOf(err)))
			log.WithError(err).WithField("kind", card.KindOf(err)).Error("Pipeline run failed")
			return
		}
		o.successfulRuns.Add(1)
		o.metrics.RecordRun(true, "")
		log.WithField("duration", time.Since(started)).Info("Pipeline run completed")
	}()

	var analysis card.Analysis
	err = o.stage("analysis", func() error {
		var err error
		analysis, err = o.analyzer.Analyze(ctx, captured)
		return err
	})
	if err != nil {
		return card.Card{}, err
	}

	id := o.newID()
	log = log.WithFields(logrus.Fields{
		"card_id": id,
		"label":   analysis.Label,
		"degree":  analysis.Degree,
	})
	log.Debug("Utterance analyzed")

	var imageArtifact, speechArtifact card.Artifact
	var g errgroup.Group
	g.Go(func() error {
		return o.stage("image", func() error {
			var err error
			imageArtifact, err = o.images.SynthesizeImage(ctx, analysis, id)
			return err
		})
	})
	g.Go(func() error {
		return o.stage("speech", func() error {
			var err error
			speechArtifact, err = o.speech.SynthesizeSpeech(ctx, analysis, id)
			return err
		})
	})
	if err = g.Wait(); err != nil {
		return card.Card{}, err
	}

	var imageRef, audioRef string
	err = o.stage("store", func() error {
		var err error
		if imageRef, err = o.store(ctx, "image", id, imageArtifact); err != nil {
			return err
		}
		audioRef, err = o.store(ctx, "audio", id, speechArtifact)
		return err
	})
	if err != nil {
		return card.Card{}, err
	}

	result = card.New(id, o.now(), analysis, imageRef, audioRef)

	err = o.stage("index", func() error {
		return o.index.Save(ctx, result)
	})
	if err != nil {
		return card.Card{}, err
	}

	return result, nil
}

// List returns the newest cards
func (o *Orchestrator) List(ctx context.Context, limit int) ([]card.Card, error) {
	return o.index.List(ctx, limit)
}

// GetStats returns run counters. Runs still in flight count towards
// TotalRuns only.
func (o *Orchestrator) GetStats() Stats {
	return Stats{
		TotalRuns:      o.totalRuns.Load(),
		SuccessfulRuns: o.successfulRuns.Load(),
		FailedRuns:     o.failedRuns.Load(),
	}
}

func (o *Orchestrator) store(ctx context.Context, kind, id string, artifact card.Artifact) (string, error) {
	ref, err := o.artifacts.Store(ctx, artifact.Filename(id), artifact.Data, artifact.ContentType)
	if err != nil {
		return "", err
	}
	o.metrics.RecordArtifact(kind, len(artifact.Data))
	return ref, nil
}

// stage times fn and classifies errors outside the taxonomy as unknown
func (o *Orchestrator) stage(name string, fn func() error) error {
	started := time.Now()
	err := fn()
	o.metrics.ObserveStage(name, time.Since(started).Seconds())
	if err != nil && card.KindOf(err) == card.KindUnknown {
		return card.Fail(card.KindUnknown, name, err)
	}
	return err
}
