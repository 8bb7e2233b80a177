// Package transform classifies raw transcripts into ruling records.
package transform

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"relatoria-go/internal/logger"
	"relatoria-go/internal/metrics"
	"relatoria-go/internal/types"
)

var ErrEmptyIdentifier = errors.New("transform: empty identifier")

type Transformer struct {
	outputDir string
	log       *logrus.Entry
	now       func() time.Time
}

func New(outputDir string, log *logrus.Entry) *Transformer {
	if log == nil {
		log = logger.Discard()
	}
	return &Transformer{outputDir: outputDir, log: log, now: time.Now}
}

// TransformRecord builds one Record from an extracted transcript.
func TransformRecord(identifier, text string) (types.Record, error) {
	if identifier == "" {
		return types.Record{}, ErrEmptyIdentifier
	}
	md := ExtractMetadata(identifier)
	return types.Record{
		Providencia: identifier,
		Tipo:        md.Tipo,
		Numero:      md.Numero,
		Anio:        md.Anio,
		Texto:       CleanText(text),
	}, nil
}

// TransformAll transforms every file independently; a failing record is logged,
// counted and dropped.
func (t *Transformer) TransformAll(files []types.ExtractedFile) ([]types.Record, metrics.Transformation) {
	m := metrics.NewTransformation()
	m.Start = t.now()
	m.Total = len(files)

	out := make([]types.Record, 0, len(files))
	for _, f := range files {
		rec, err := safeTransform(f)
		if err != nil {
			t.log.WithField("providencia", f.Identifier).WithError(err).Error("failed to transform record")
			m.Failed++
			continue
		}
		m.Successful++
		m.Tipos[rec.Tipo]++
		out = append(out, rec)
	}

	m.End = t.now()
	t.log.WithFields(logrus.Fields{
		"total":      m.Total,
		"successful": m.Successful,
		"failed":     m.Failed,
	}).Info("transformation finished")
	if t.outputDir != "" {
		path := filepath.Join(t.outputDir, metrics.TransformationFile)
		if err := metrics.WriteJSON(path, m.Report(m.End)); err != nil {
			t.log.WithError(err).Warn("failed to write transformation metrics")
		}
	}
	return out, m
}

func safeTransform(f types.ExtractedFile) (rec types.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transform panic: %v", r)
		}
	}()
	return TransformRecord(f.Identifier, f.CombinedText)
}
