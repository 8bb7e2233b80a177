package processor

import (
	"slices"
	"strings"

	"relatoria-go/internal/types"
)

// Reduced is the combined transcript of one file.
type Reduced struct {
	Text              string
	TotalSegments     int
	SucceededSegments int
}

// Reduce orders results by position and joins the successful texts with single spaces.
// This is the only place transcript order is restored after parallel transcription.
func Reduce(results []types.ChunkResult) Reduced {
	sorted := slices.Clone(results)
	slices.SortFunc(sorted, func(a, b types.ChunkResult) int { return a.Position - b.Position })

	texts := make([]string, 0, len(sorted))
	for _, r := range sorted {
		if r.Succeeded {
			texts = append(texts, r.Text)
		}
	}
	return Reduced{
		Text:              strings.Join(texts, " "),
		TotalSegments:     len(results),
		SucceededSegments: len(texts),
	}
}
