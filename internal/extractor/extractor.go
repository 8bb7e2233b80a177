// Package extractor turns a directory of recordings into transcripts, one file at a time.
package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"relatoria-go/internal/audio"
	"relatoria-go/internal/logger"
	"relatoria-go/internal/metrics"
	"relatoria-go/internal/processor"
	"relatoria-go/internal/types"
)

type Splitter interface {
	Split(path string) ([]types.Segment, error)
}

type SegmentProcessor interface {
	Process(ctx context.Context, segments []types.Segment) []types.ChunkResult
}

// Extractor processes files sequentially; parallelism exists only inside a file.
type Extractor struct {
	splitter  Splitter
	processor SegmentProcessor
	outputDir string
	log       *logrus.Entry
	now       func() time.Time
}

func New(s Splitter, p SegmentProcessor, outputDir string, log *logrus.Entry) *Extractor {
	if log == nil {
		log = logger.Discard()
	}
	return &Extractor{splitter: s, processor: p, outputDir: outputDir, log: log, now: time.Now}
}

// ArtifactPath is where the combined transcript of identifier is written.
func ArtifactPath(outputDir, identifier string) string {
	return filepath.Join(outputDir, "texto_"+identifier+".txt")
}

// ListAudio returns the .wav files of dir in name order.
func ListAudio(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

// ExtractAll never fails: an unreadable directory yields no files and an Aborted reason
// in the returned metrics.
func (e *Extractor) ExtractAll(ctx context.Context, dir string) ([]types.ExtractedFile, metrics.Extraction) {
	m := metrics.Extraction{Start: e.now()}
	log := e.log.WithField("audio_dir", dir)

	files, err := ListAudio(dir)
	if err != nil {
		log.WithError(err).Error("extraction aborted: cannot list audio directory")
		m.Aborted = err.Error()
		return nil, e.finish(m)
	}
	m.TotalFiles = len(files)
	log.WithField("files", len(files)).Info("starting extraction")

	var out []types.ExtractedFile
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Error("extraction aborted: context done")
			m.Aborted = err.Error()
			m.Failed += len(files) - i
			return nil, e.finish(m)
		}
		ef, ok := e.ExtractFile(ctx, path)
		if !ok {
			m.Failed++
			continue
		}
		m.Successful++
		out = append(out, ef)
	}
	return out, e.finish(m)
}

// ExtractFile runs split, parallel transcription and reduce for one file.
// ok is false when the file could not be decoded or no segment succeeded.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (types.ExtractedFile, bool) {
	id := audio.Identifier(path)
	log := e.log.WithField("file", id)
	log.Info("processing file")

	segments, err := e.splitter.Split(path)
	if err != nil {
		log.WithError(err).Error("failed to split audio")
		return types.ExtractedFile{}, false
	}

	results := e.processor.Process(ctx, segments)
	reduced := processor.Reduce(results)
	log = log.WithFields(logrus.Fields{
		"segments":  reduced.TotalSegments,
		"succeeded": reduced.SucceededSegments,
	})
	if reduced.Text == "" {
		log.Warn("no segment produced text")
		return types.ExtractedFile{}, false
	}

	if e.outputDir != "" {
		if err := writeArtifact(ArtifactPath(e.outputDir, id), reduced.Text); err != nil {
			log.WithError(err).Warn("failed to write transcript artifact")
		}
	}
	log.Info("file extracted")

	return types.ExtractedFile{
		Identifier:        id,
		CombinedText:      reduced.Text,
		TotalSegments:     reduced.TotalSegments,
		SucceededSegments: reduced.SucceededSegments,
	}, true
}

func (e *Extractor) finish(m metrics.Extraction) metrics.Extraction {
	m.End = e.now()
	e.log.WithFields(logrus.Fields{
		"total":      m.TotalFiles,
		"successful": m.Successful,
		"failed":     m.Failed,
		"duration":   m.Duration().String(),
	}).Info("extraction finished")
	if e.outputDir != "" {
		path := filepath.Join(e.outputDir, metrics.ExtractionFile)
		if err := metrics.WriteJSON(path, m.Report(m.End)); err != nil {
			e.log.WithError(err).Warn("failed to write extraction metrics")
		}
	}
	return m
}

func writeArtifact(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	return os.WriteFile(path, []byte(text), 0o644)
}
