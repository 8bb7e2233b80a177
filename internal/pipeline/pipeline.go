// Package pipeline sequences extraction, transformation and load for one run.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"relatoria-go/internal/dataset"
	"relatoria-go/internal/logger"
	"relatoria-go/internal/metrics"
	"relatoria-go/internal/store"
	"relatoria-go/internal/types"
)

type Extractor interface {
	ExtractAll(ctx context.Context, dir string) ([]types.ExtractedFile, metrics.Extraction)
}

type Transformer interface {
	TransformAll(files []types.ExtractedFile) ([]types.Record, metrics.Transformation)
}

type Loader interface {
	Load(ctx context.Context, records []types.Record) metrics.Load
}

type Pipeline struct {
	Extractor   Extractor
	Transformer Transformer
	Loader      Loader
	// Indexes is optional; index errors are logged and the load still runs.
	Indexes store.IndexCreator

	AudioDir  string
	OutputDir string
	// Workbook is the corpus summary path; empty disables it.
	Workbook string

	Log *logrus.Entry
	now func() time.Time
}

// StageError reports the stage a run aborted in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Run executes one run. Per-item failures are absorbed inside the stages; the returned
// error is non-nil only when the run had to abort, in which case no run report is written.
func (p *Pipeline) Run(ctx context.Context) (metrics.Run, error) {
	now := p.now
	if now == nil {
		now = time.Now
	}
	base := p.Log
	if base == nil {
		base = logger.Discard()
	}

	run := metrics.Run{ID: uuid.NewString(), Start: now()}
	log := base.WithField("run_id", run.ID)
	log.WithField("audio_dir", p.AudioDir).Info("etl run started")

	var files []types.ExtractedFile
	err := stage(ctx, "extraction", func() {
		files, run.Extraction = p.Extractor.ExtractAll(ctx, p.AudioDir)
	})
	if err != nil {
		return run, p.abort(log, err)
	}
	log.WithFields(logrus.Fields{
		"files":      run.Extraction.TotalFiles,
		"successful": run.Extraction.Successful,
		"failed":     run.Extraction.Failed,
	}).Info("extraction finished")

	var records []types.Record
	err = stage(ctx, "transformation", func() {
		records, run.Transformation = p.Transformer.TransformAll(files)
	})
	if err != nil {
		return run, p.abort(log, err)
	}

	if p.Indexes != nil {
		if names, err := store.EnsureIndexes(ctx, p.Indexes); err != nil {
			log.WithError(err).Warn("index maintenance failed")
		} else {
			log.WithField("indexes", names).Debug("indexes ensured")
		}
	}

	err = stage(ctx, "load", func() {
		run.Load = p.Loader.Load(ctx, records)
	})
	if err != nil {
		return run, p.abort(log, err)
	}
	p.writeMetrics(log, metrics.LoadFile, run.Load.Report(now()))

	if p.Workbook != "" {
		if err := dataset.WriteSummary(p.Workbook, records); err != nil {
			log.WithError(err).WithField("path", p.Workbook).Warn("failed to write corpus summary")
		} else {
			log.WithField("path", p.Workbook).Info("corpus summary written")
		}
	}

	run.End = now()
	p.writeMetrics(log, metrics.RunFile, run.Report(run.End))
	log.WithFields(logrus.Fields{
		"extracted":    run.Extracted(),
		"transformed":  run.Transformed(),
		"loaded":       run.Loaded(),
		"success_rate": fmt.Sprintf("%.2f%%", run.SuccessRate()),
		"duration":     run.Duration().String(),
	}).Info("etl run finished")
	return run, nil
}

// stage runs fn, turning a panic or a cancelled context into a StageError.
func stage(ctx context.Context, name string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Stage: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	fn()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &StageError{Stage: name, Err: ctxErr}
	}
	return nil
}

func (p *Pipeline) abort(log *logrus.Entry, err error) error {
	log.WithError(err).Error("etl run aborted")
	return err
}

func (p *Pipeline) writeMetrics(log *logrus.Entry, name string, v any) {
	if p.OutputDir == "" {
		return
	}
	path := filepath.Join(p.OutputDir, name)
	if err := metrics.WriteJSON(path, v); err != nil {
		log.WithError(err).WithField("path", path).Warn("failed to write metrics")
	}
}
