package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(n int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(float64(i)/8)
	}
	return out
}

func writeStereo(t *testing.T, path string, frames, rate int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	data := make([]int, 0, frames*2)
	for i := 0; i < frames; i++ {
		data = append(data, 16000, 8000)
	}
	enc := wav.NewEncoder(f, rate, 16, 2, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

func TestSplitProducesOrderedSegments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A742-24.wav")
	require.NoError(t, WriteWAV(path, tone(8000*5/2, 0.3), 8000))

	segs, err := NewSplitter(time.Second).Split(path)
	require.NoError(t, err)
	require.Len(t, segs, 3)

	for i, s := range segs {
		assert.Equal(t, i+1, s.Position)
		assert.Equal(t, 3, s.Total)
		assert.Equal(t, "A742-24", s.FileID)
		assert.Equal(t, 8000, s.SampleRate)
	}
	assert.Len(t, segs[0].Samples, 8000)
	assert.Len(t, segs[1].Samples, 8000)
	assert.Len(t, segs[2].Samples, 4000)
}

func TestSplitNormalizesPeak(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "C-411-22.wav")
	require.NoError(t, WriteWAV(path, tone(4000, 0.25), 8000))

	segs, err := NewSplitter(time.Minute).Split(path)
	require.NoError(t, err)
	require.Len(t, segs, 1)

	var peak float64
	for _, v := range segs[0].Samples {
		peak = math.Max(peak, math.Abs(v))
	}
	assert.InDelta(t, math.Pow(10, -0.1/20), peak, 1e-3)
}

func TestSplitDownmixesStereo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "T-1-5.wav")
	writeStereo(t, path, 1000, 8000)

	samples, rate, err := Decode(path)
	require.NoError(t, err)
	assert.Equal(t, 8000, rate)
	require.Len(t, samples, 1000)
	assert.InDelta(t, 12000.0/32768, samples[0], 1e-6)
}

func TestSplitRejectsUndecodableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.wav")
	require.NoError(t, os.WriteFile(path, []byte("not audio at all"), 0o644))

	_, err := NewSplitter(time.Minute).Split(path)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = NewSplitter(time.Minute).Split(filepath.Join(dir, "missing.wav"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestSplitRejectsFloatWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "float.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, 8000, 32, 1, 3)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 8000},
		Data:           make([]int, 800),
		SourceBitDepth: 32,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	_, err = NewSplitter(time.Minute).Split(path)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDownmix(t *testing.T) {
	got := Downmix([]int{2, 4, 6, 8}, 2, func(v int) float64 { return float64(v) })
	assert.Equal(t, []float64{3, 7}, got)
}

func TestNormalizeLeavesSilence(t *testing.T) {
	s := []float64{0, 0, 0}
	Normalize(s)
	assert.Equal(t, []float64{0, 0, 0}, s)
}

func TestResample(t *testing.T) {
	in := tone(44100, 0.5)
	out := Resample(in, 44100, 16000)
	assert.Len(t, out, 16000)
	assert.Equal(t, in, Resample(in, 16000, 16000))
	assert.Equal(t, in[0], out[0])
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "A742-24", Identifier("/data/raw/A742-24.wav"))
	assert.Equal(t, "C-411-22", Identifier("C-411-22.WAV"))
}
