package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relatoria-go/internal/graph"
	"relatoria-go/internal/logger"
	"relatoria-go/internal/store"
	"relatoria-go/internal/types"
)

type fakeQueries struct {
	docs   map[string]types.StoredDocument
	params store.SearchParams
	err    error
}

func (f *fakeQueries) FindByProvidencia(ctx context.Context, id string) (*types.StoredDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.docs[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (f *fakeQueries) All(ctx context.Context) ([]types.StoredDocument, error) {
	out := []types.StoredDocument{}
	for _, d := range f.docs {
		out = append(out, d)
	}
	return out, f.err
}

func (f *fakeQueries) Search(ctx context.Context, p store.SearchParams) ([]types.StoredDocument, error) {
	f.params = p
	return []types.StoredDocument{}, f.err
}

func (f *fakeQueries) Stats(ctx context.Context) (store.Stats, error) {
	return store.Stats{Total: int64(len(f.docs)), PorTipo: map[string]int64{"Auto": 1}}, f.err
}

type body struct {
	Success   bool            `json:"success"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
}

func serve(t *testing.T, q queryService, target string) (int, body) {
	t.Helper()
	return serveWith(t, q, nil, target)
}

func serveWith(t *testing.T, q queryService, g graph.GraphReader, target string) (int, body) {
	t.Helper()
	now := func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	log := &logger.Logger{Entry: logger.Discard()}
	h := newServer(q, g, log, now).routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var b body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	return rec.Code, b
}

func corpus() *fakeQueries {
	return &fakeQueries{docs: map[string]types.StoredDocument{
		"A742-24": {Providencia: "A742-24", Tipo: "Auto", Anio: "2024", Texto: "auto"},
	}}
}

func TestProvidenciaFound(t *testing.T) {
	code, b := serve(t, corpus(), "/api/providencia/A742-24")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, b.Success)
	assert.Equal(t, "2025-06-01T12:00:00Z", b.Timestamp)

	var doc types.StoredDocument
	require.NoError(t, json.Unmarshal(b.Data, &doc))
	assert.Equal(t, "Auto", doc.Tipo)
}

func TestProvidenciaInvalidFormat(t *testing.T) {
	code, b := serve(t, corpus(), "/api/providencia/A-742-24")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, b.Success)
	assert.NotEmpty(t, b.Error)
}

func TestProvidenciaNotFound(t *testing.T) {
	code, b := serve(t, corpus(), "/api/providencia/T-1-23")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, b.Success)
}

func TestProvidenciaWithoutIDListsAll(t *testing.T) {
	for _, target := range []string{"/api/providencia", "/api/providencia/"} {
		code, b := serve(t, corpus(), target)
		require.Equal(t, http.StatusOK, code, target)
		var docs []types.StoredDocument
		require.NoError(t, json.Unmarshal(b.Data, &docs))
		assert.Len(t, docs, 1)
	}
}

func TestSearchCleansParams(t *testing.T) {
	q := corpus()
	code, b := serve(t, q, "/api/search?tipo=Todos+los+tipos&anio=2030&texto=salud")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, b.Success)
	assert.Equal(t, store.SearchParams{Texto: "salud"}, q.params)

	serve(t, q, "/api/search?tipo=Tutela&anio=2025&texto=ab")
	assert.Equal(t, store.SearchParams{Tipo: "Tutela", Anio: "2025"}, q.params)
}

func TestStatsError(t *testing.T) {
	q := corpus()
	q.err = errors.New("server selection timeout")
	code, b := serve(t, q, "/api/stats")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.False(t, b.Success)
	assert.NotContains(t, b.Error, "server selection")
}

func TestStats(t *testing.T) {
	code, b := serve(t, corpus(), "/api/stats")
	assert.Equal(t, http.StatusOK, code)
	var st store.Stats
	require.NoError(t, json.Unmarshal(b.Data, &st))
	assert.Equal(t, int64(1), st.Total)
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	h := newServer(corpus(), nil, &logger.Logger{Entry: logger.Discard()}, time.Now).routes()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestProvidenciaOmitsUnsetTimestamp(t *testing.T) {
	_, b := serve(t, corpus(), "/api/providencia/A742-24")
	var raw map[string]any
	require.NoError(t, json.Unmarshal(b.Data, &raw))
	assert.NotContains(t, raw, "ultima_actualizacion")
	assert.Contains(t, raw, "providencia")
}

type fakeGraph struct {
	id       string
	minScore float64
	g        graph.Graph
	err      error
}

func (f *fakeGraph) Graph(ctx context.Context, providencia string, minScore float64) (graph.Graph, error) {
	f.id, f.minScore = providencia, minScore
	return f.g, f.err
}

func TestGraph(t *testing.T) {
	fg := &fakeGraph{g: graph.BuildGraph(
		[]graph.Node{{ID: "4:a", Nombre: "C-411-22"}, {ID: "4:b", Nombre: "T-1-23"}},
		[]graph.Relationship{{Source: "4:a", Target: "4:b", Score: 0.8}}, 0.5)}

	code, b := serveWith(t, corpus(), fg, "/api/graph/C-411-22?min_score=0.5")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, b.Success)
	assert.Equal(t, "C-411-22", fg.id)
	assert.InDelta(t, 0.5, fg.minScore, 1e-9)

	var got graph.Graph
	require.NoError(t, json.Unmarshal(b.Data, &got))
	assert.Equal(t, graph.Stats{TotalRelations: 1, TotalNodes: 2}, got.Stats)
}

func TestGraphWholeAndEmpty(t *testing.T) {
	fg := &fakeGraph{g: graph.BuildGraph(nil, nil, 0)}
	code, b := serveWith(t, corpus(), fg, "/api/graph")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "", fg.id)
	assert.Zero(t, fg.minScore)
	assert.JSONEq(t, `{"nodes":[],"relationships":[],"stats":{"totalRelations":0,"totalNodes":0}}`, string(b.Data))
}

func TestGraphUnavailable(t *testing.T) {
	code, b := serveWith(t, corpus(), nil, "/api/graph/C-411-22")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, b.Success)
}

func TestGraphBadRequest(t *testing.T) {
	code, _ := serveWith(t, corpus(), &fakeGraph{}, "/api/graph/C-411-22?min_score=alto")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = serveWith(t, corpus(), &fakeGraph{err: errors.New("session expired")}, "/api/graph/C-411-22")
	assert.Equal(t, http.StatusInternalServerError, code)
}
