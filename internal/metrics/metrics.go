// Package metrics holds the per-stage accumulators. Each stage returns its own value;
// the pipeline merges them into a Run.
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"relatoria-go/internal/types"
)

const timestampLayout = "2006-01-02 15:04:05"

// Extraction counts files seen by the extraction stage.
type Extraction struct {
	Start      time.Time
	End        time.Time
	TotalFiles int
	Successful int
	Failed     int
	// Aborted is set when the stage gave up before looking at any file,
	// e.g. the input directory is missing.
	Aborted string
}

func (e Extraction) Duration() time.Duration { return e.End.Sub(e.Start) }

func (e Extraction) SuccessRate() float64 { return percent(e.Successful, e.TotalFiles) }

type Transformation struct {
	Start      time.Time
	End        time.Time
	Total      int
	Successful int
	Failed     int
	Tipos      map[types.Tipo]int
}

func NewTransformation() Transformation {
	return Transformation{Tipos: map[types.Tipo]int{}}
}

func (t Transformation) Duration() time.Duration { return t.End.Sub(t.Start) }

func (t Transformation) SuccessRate() float64 { return percent(t.Successful, t.Total) }

type Load struct {
	Start      time.Time
	End        time.Time
	Documents  int
	Batches    int
	Successful int
	Failed     int
}

func (l Load) Duration() time.Duration { return l.End.Sub(l.Start) }

// Run is the run-level view assembled by the pipeline.
type Run struct {
	ID             string
	Start          time.Time
	End            time.Time
	Extraction     Extraction
	Transformation Transformation
	Load           Load
}

func (r Run) Duration() time.Duration { return r.End.Sub(r.Start) }

func (r Run) Extracted() int   { return r.Extraction.Successful }
func (r Run) Transformed() int { return r.Transformation.Successful }
func (r Run) Loaded() int      { return r.Load.Successful }

// SuccessRate is loaded/extracted as a percentage; zero when nothing was extracted.
func (r Run) SuccessRate() float64 { return percent(r.Loaded(), r.Extracted()) }

func percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func seconds(d time.Duration) string { return fmt.Sprintf("%.2f segundos", d.Seconds()) }

func pct(v float64) string { return fmt.Sprintf("%.2f%%", v) }

// WriteJSON writes v as indented JSON, creating parent directories.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
