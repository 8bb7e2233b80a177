// Package audio decodes recordings and cuts them into fixed-duration segments.
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"

	"relatoria-go/internal/types"
)

var (
	// ErrDecode is returned when a file cannot be opened or decoded as PCM WAV.
	ErrDecode = errors.New("audio: cannot decode file")
	// ErrNoAudio is returned for files with a valid header but no samples.
	ErrNoAudio = errors.New("audio: no samples")
)

// headroom mirrors a peak normalization target of -0.1 dBFS.
const headroomDB = 0.1

// Splitter loads WAV files and slices them into Segments of ChunkDuration.
type Splitter struct {
	ChunkDuration time.Duration
}

func NewSplitter(chunk time.Duration) *Splitter {
	if chunk <= 0 {
		chunk = 5 * time.Minute
	}
	return &Splitter{ChunkDuration: chunk}
}

// Identifier is the file name stem, the key every downstream stage uses.
func Identifier(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Split decodes path, downmixes to mono, peak-normalizes and cuts the signal.
// The final segment may be shorter than ChunkDuration.
func (s *Splitter) Split(path string) ([]types.Segment, error) {
	samples, rate, err := Decode(path)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAudio, path)
	}
	Normalize(samples)

	id := Identifier(path)
	per := int(s.ChunkDuration.Seconds() * float64(rate))
	if per <= 0 {
		per = len(samples)
	}
	total := (len(samples) + per - 1) / per

	segments := make([]types.Segment, 0, total)
	for i := 0; i < total; i++ {
		start := i * per
		end := min(start+per, len(samples))
		segments = append(segments, types.Segment{
			FileID:     id,
			Position:   i + 1,
			Total:      total,
			SampleRate: rate,
			Samples:    samples[start:end:end],
		})
	}
	return segments, nil
}

// Decode reads a PCM WAV file and returns mono samples in [-1, 1] with the source rate.
func Decode(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: %s is not a valid wav file", ErrDecode, path)
	}
	// only integer PCM; IEEE float and compressed formats would decode as garbage
	if d.WavAudioFormat != pcmFormat {
		return nil, 0, fmt.Errorf("%w: %s uses wav format %d, want PCM", ErrDecode, path, d.WavAudioFormat)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, 0, fmt.Errorf("%w: %s has no format information", ErrDecode, path)
	}

	bitDepth := int(d.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := math.Pow(2, float64(bitDepth-1))
	// 8-bit PCM is unsigned
	offset := 0.0
	if bitDepth == 8 {
		offset = 128
	}

	mono := Downmix(buf.Data, buf.Format.NumChannels, func(v int) float64 {
		return (float64(v) - offset) / scale
	})
	return mono, buf.Format.SampleRate, nil
}

// Downmix averages interleaved channels into a single channel.
func Downmix(data []int, channels int, conv func(int) float64) []float64 {
	if channels < 1 {
		channels = 1
	}
	frames := len(data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += conv(data[i*channels+c])
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// Normalize scales samples in place so the peak sits headroomDB below full scale.
// Silence is left untouched.
func Normalize(samples []float64) {
	var peak float64
	for _, v := range samples {
		peak = max(peak, math.Abs(v))
	}
	if peak == 0 {
		return
	}
	gain := math.Pow(10, -headroomDB/20) / peak
	for i := range samples {
		samples[i] *= gain
	}
}
