package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

type recognizeResponse struct {
	Text   string `json:"text"`
	Error  string `json:"error,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// HTTPRecognizer posts a WAV chunk as multipart/form-data and reads back {"text": "..."}.
type HTTPRecognizer struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxElapsed time.Duration
}

type Option func(*HTTPRecognizer)

func WithAPIKey(key string) Option {
	return func(r *HTTPRecognizer) { r.apiKey = key }
}

func WithHTTPClient(c *http.Client) Option {
	return func(r *HTTPRecognizer) { r.httpClient = c }
}

// WithRateLimit caps outgoing requests per second across all workers.
func WithRateLimit(rps int) Option {
	return func(r *HTTPRecognizer) {
		if rps > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}

// WithMaxElapsed bounds the total retry time of one Recognize call.
func WithMaxElapsed(d time.Duration) Option {
	return func(r *HTTPRecognizer) { r.maxElapsed = d }
}

func NewHTTPRecognizer(endpoint string, opts ...Option) *HTTPRecognizer {
	r := &HTTPRecognizer{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 90 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
		maxElapsed: time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *HTTPRecognizer) Recognize(ctx context.Context, wavPath, language string) (string, error) {
	audio, err := os.ReadFile(wavPath)
	if err != nil {
		return "", fmt.Errorf("read chunk: %w", err)
	}

	var out recognizeResponse
	var lastErr error
	op := func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req, err := r.newRequest(ctx, filepath.Base(wavPath), audio, language)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := r.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			lastErr = fmt.Errorf("read speech service response: %w", err)
			return lastErr
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("speech service error: status=%d body=%s", resp.StatusCode, string(body))
			return lastErr
		}
		if resp.StatusCode >= 400 {
			// Permanent: don't retry on client errors
			lastErr = fmt.Errorf("speech service rejected chunk: status=%d body=%s", resp.StatusCode, string(body))
			return backoff.Permanent(lastErr)
		}
		if err := json.Unmarshal(body, &out); err != nil {
			lastErr = fmt.Errorf("json decode error: %v body=%s", err, string(body))
			return backoff.Permanent(lastErr)
		}
		lastErr = nil
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = r.maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if lastErr != nil {
			return "", lastErr
		}
		return "", err
	}

	if out.Error != "" {
		return "", fmt.Errorf("speech service: %s %s", out.Error, out.Reason)
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

func (r *HTTPRecognizer) newRequest(ctx context.Context, name string, audio []byte, language string) (*http.Request, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	fw, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("create file field: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, fmt.Errorf("write file field: %w", err)
	}
	if err := w.WriteField("language", language); err != nil {
		return nil, fmt.Errorf("write language field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
	return req, nil
}
