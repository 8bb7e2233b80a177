package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrNoSpeech is returned when the recognizer heard nothing it could transcribe.
var ErrNoSpeech = errors.New("transcription: no speech detected")

// Recognizer turns one WAV file into text in the given language.
type Recognizer interface {
	Recognize(ctx context.Context, wavPath, language string) (string, error)
}

// MockRecognizer returns deterministic text without touching the network.
type MockRecognizer struct{}

func (MockRecognizer) Recognize(ctx context.Context, wavPath, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	st, err := os.Stat(wavPath)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("MOCK TRANSCRIPT (%s, %d bytes)", language, st.Size()), nil
}
