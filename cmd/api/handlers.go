package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"relatoria-go/internal/graph"
	"relatoria-go/internal/logger"
	"relatoria-go/internal/store"
	"relatoria-go/internal/types"
)

type queryService interface {
	FindByProvidencia(ctx context.Context, id string) (*types.StoredDocument, error)
	All(ctx context.Context) ([]types.StoredDocument, error)
	Search(ctx context.Context, p store.SearchParams) ([]types.StoredDocument, error)
	Stats(ctx context.Context) (store.Stats, error)
}

type response struct {
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

type server struct {
	q queryService
	// graph is nil when no graph server is configured.
	graph graph.GraphReader
	log   *logger.Logger
	now   func() time.Time
}

func newServer(q queryService, g graph.GraphReader, log *logger.Logger, now func() time.Time) *server {
	return &server{q: q, graph: g, log: log, now: now}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		s.log.WithRequest(r).Debug("health check")
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/providencia", s.providencia)
	mux.HandleFunc("GET /api/providencia/{id...}", s.providencia)
	mux.HandleFunc("GET /api/search", s.search)
	mux.HandleFunc("GET /api/stats", s.stats)
	mux.HandleFunc("GET /api/graph", s.similarities)
	mux.HandleFunc("GET /api/graph/{id...}", s.similarities)
	return mux
}

// providencia returns one ruling, or all of them when no id is given.
func (s *server) providencia(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "providencia")
	id := r.PathValue("id")

	if id == "" {
		docs, err := s.q.All(r.Context())
		if err != nil {
			s.fail(w, reqLog, http.StatusInternalServerError, err)
			return
		}
		s.write(w, reqLog, http.StatusOK, response{Success: true, Data: docs})
		return
	}

	reqLog = reqLog.WithField("providencia", id)
	if !store.ValidateProvidenciaFormat(id) {
		reqLog.Warn("invalid providencia format")
		s.write(w, reqLog, http.StatusBadRequest, response{Error: "formato de providencia inválido"})
		return
	}
	doc, err := s.q.FindByProvidencia(r.Context(), id)
	if err != nil {
		s.fail(w, reqLog, http.StatusInternalServerError, err)
		return
	}
	if doc == nil {
		s.write(w, reqLog, http.StatusNotFound, response{Error: "providencia no encontrada"})
		return
	}
	s.write(w, reqLog, http.StatusOK, response{Success: true, Data: doc})
}

func (s *server) search(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "search")
	q := r.URL.Query()
	params := store.CleanSearchParams(q.Get("tipo"), q.Get("anio"), q.Get("texto"), s.now().Year())
	reqLog = reqLog.WithFields(logrus.Fields{"tipo": params.Tipo, "anio": params.Anio, "texto": params.Texto})

	docs, err := s.q.Search(r.Context(), params)
	if err != nil {
		s.fail(w, reqLog, http.StatusInternalServerError, err)
		return
	}
	reqLog.WithField("results", len(docs)).Info("search served")
	s.write(w, reqLog, http.StatusOK, response{Success: true, Data: docs})
}

func (s *server) stats(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "stats")
	st, err := s.q.Stats(r.Context())
	if err != nil {
		s.fail(w, reqLog, http.StatusInternalServerError, err)
		return
	}
	s.write(w, reqLog, http.StatusOK, response{Success: true, Data: st})
}

// similarities returns the similarity graph around a ruling; without an id, the whole graph.
func (s *server) similarities(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "graph")
	if s.graph == nil {
		s.write(w, reqLog, http.StatusServiceUnavailable, response{Error: "Neo4j no disponible"})
		return
	}

	minScore := 0.0
	if v := r.URL.Query().Get("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			reqLog.WithField("min_score", v).Warn("invalid min_score")
			s.write(w, reqLog, http.StatusBadRequest, response{Error: "min_score debe ser numérico"})
			return
		}
		minScore = f
	}
	id := r.PathValue("id")
	reqLog = reqLog.WithFields(logrus.Fields{"providencia": id, "min_score": minScore})

	g, err := s.graph.Graph(r.Context(), id, minScore)
	if err != nil {
		reqLog.WithError(err).Error("graph query failed")
		s.write(w, reqLog, http.StatusInternalServerError, response{Error: "error interno consultando el grafo"})
		return
	}
	reqLog.WithField("relations", g.Stats.TotalRelations).Info("graph served")
	s.write(w, reqLog, http.StatusOK, response{Success: true, Data: g})
}

func (s *server) fail(w http.ResponseWriter, reqLog *logrus.Entry, status int, err error) {
	reqLog.WithError(err).Error("query failed")
	s.write(w, reqLog, status, response{Error: "error interno consultando la base de datos"})
}

func (s *server) write(w http.ResponseWriter, reqLog *logrus.Entry, status int, body response) {
	body.Timestamp = s.now().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(body); err != nil {
		reqLog.WithError(err).Error("failed to write response")
	}
}
