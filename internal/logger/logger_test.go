package logger

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"verbose", logrus.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestWithRequestKeepsRequestID(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/stats", nil)
	r.Header.Set("X-Request-ID", "abc-123")

	e := New().WithRequest(r)
	assert.Equal(t, "abc-123", e.Data["req_id"])
	assert.Equal(t, "/api/stats", e.Data["path"])
}

func TestWithRequestGeneratesRequestID(t *testing.T) {
	r := httptest.NewRequest("GET", "/healthz", nil)
	e := New().WithRequest(r)
	id, _ := e.Data["req_id"].(string)
	assert.Len(t, id, 36)
}

func TestWithErrorNil(t *testing.T) {
	l := New()
	assert.Same(t, l.Entry, l.WithError(nil))
}

func TestLogFileUnopenableWarnsOnStdout(t *testing.T) {
	t.Setenv("LOG_FILE", filepath.Join(t.TempDir(), "missing", "etl.log"))
	var out bytes.Buffer

	l := build(&out)
	assert.Contains(t, out.String(), "cannot open LOG_FILE")
	assert.NoError(t, l.Close())
}

func TestLogFileReceivesEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etl.log")
	t.Setenv("LOG_FILE", path)
	var out bytes.Buffer

	l := build(&out)
	l.Info("run started")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run started")
	assert.Contains(t, out.String(), "run started")
}
