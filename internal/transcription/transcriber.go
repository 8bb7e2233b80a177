package transcription

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"relatoria-go/internal/audio"
	"relatoria-go/internal/logger"
	"relatoria-go/internal/types"
)

// ChunkTranscriber turns one Segment into a ChunkResult. It never returns an error:
// every failure is reported as Succeeded=false.
type ChunkTranscriber struct {
	Recognizer Recognizer
	Language   string
	SampleRate int
	TempDir    string
	Timeout    time.Duration
	Log        *logrus.Entry
}

func (t *ChunkTranscriber) Transcribe(ctx context.Context, seg types.Segment) types.ChunkResult {
	base := t.Log
	if base == nil {
		base = logger.Discard()
	}
	log := base.WithFields(logrus.Fields{"file": seg.FileID, "segment": seg.Position, "total": seg.Total})
	failed := types.ChunkResult{Position: seg.Position}

	path, err := t.writeTemp(seg)
	if path != "" {
		defer func() {
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				log.WithField("path", path).WithError(rmErr).Warn("failed to remove temp chunk")
			}
		}()
	}
	if err != nil {
		log.WithError(err).Error("failed to write temp chunk")
		return failed
	}

	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	text, err := t.Recognizer.Recognize(ctx, path, t.Language)
	if err != nil {
		log.WithError(err).Error("chunk transcription failed")
		return failed
	}
	log.WithField("chars", len(text)).Debug("chunk transcribed")
	return types.ChunkResult{Position: seg.Position, Text: text, Succeeded: true}
}

// writeTemp returns the path it created even when encoding fails so the caller can clean up.
func (t *ChunkTranscriber) writeTemp(seg types.Segment) (string, error) {
	if t.TempDir != "" {
		if err := os.MkdirAll(t.TempDir, 0o755); err != nil {
			return "", fmt.Errorf("create temp dir: %w", err)
		}
	}
	f, err := os.CreateTemp(t.TempDir, fmt.Sprintf("temp_chunk_%s_%d_*.wav", seg.FileID, seg.Position))
	if err != nil {
		return "", fmt.Errorf("create temp chunk: %w", err)
	}
	path := f.Name()
	f.Close()

	rate := t.SampleRate
	if rate <= 0 {
		rate = seg.SampleRate
	}
	samples := audio.Resample(seg.Samples, seg.SampleRate, rate)
	if err := audio.WriteWAV(path, samples, rate); err != nil {
		return path, err
	}
	return path, nil
}
