// Package processor fans the segments of one file out to a bounded worker pool
// and reduces the per-segment results back into transcript order.
package processor

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"relatoria-go/internal/logger"
	"relatoria-go/internal/types"
)

// SegmentTranscriber is the unit of work run by each worker.
type SegmentTranscriber interface {
	Transcribe(ctx context.Context, seg types.Segment) types.ChunkResult
}

// Processor runs a fixed number of workers per file. Workers share no state; results
// are collected in completion order.
type Processor struct {
	transcriber SegmentTranscriber
	numWorkers  int
	log         *logrus.Entry
}

func NewProcessor(t SegmentTranscriber, numWorkers int, log *logrus.Entry) *Processor {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Processor{transcriber: t, numWorkers: numWorkers, log: log}
}

func (p *Processor) Workers() int { return p.numWorkers }

// Process blocks until every segment has produced exactly one ChunkResult.
func (p *Processor) Process(ctx context.Context, segments []types.Segment) []types.ChunkResult {
	if len(segments) == 0 {
		return nil
	}

	workers := min(p.numWorkers, len(segments))
	jobs := make(chan types.Segment)
	results := make(chan types.ChunkResult, len(segments))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seg := range jobs {
				results <- p.transcriber.Transcribe(ctx, seg)
			}
		}()
	}

	for _, seg := range segments {
		jobs <- seg
	}
	close(jobs)
	wg.Wait()
	close(results)

	out := make([]types.ChunkResult, 0, len(segments))
	for r := range results {
		out = append(out, r)
	}
	p.log.WithFields(logrus.Fields{
		"segments": len(segments),
		"workers":  workers,
	}).Debug("all segments collected")
	return out
}
