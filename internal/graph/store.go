package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"relatoria-go/internal/logger"
)

const DefaultWriteBatch = 500

const neighbourhoodQuery = `
MATCH (p1:Providencia {nombre: $providencia})-[r:SIMILAR_A]->(p2:Providencia)
WHERE toFloat(r.index_simm) >= $min_score
WITH DISTINCT p1, p2, r
RETURN
    collect(DISTINCT {id: elementId(p1), nombre: p1.nombre}) +
    collect(DISTINCT {id: elementId(p2), nombre: p2.nombre}) AS nodes,
    collect(DISTINCT {source: elementId(p1), target: elementId(p2), score: toFloat(r.index_simm)}) AS relationships`

const fullGraphQuery = `
MATCH (p1:Providencia)-[r:SIMILAR_A]->(p2:Providencia)
WHERE toFloat(r.index_simm) >= $min_score
WITH DISTINCT p1, p2, r
RETURN
    collect(DISTINCT {id: elementId(p1), nombre: p1.nombre}) +
    collect(DISTINCT {id: elementId(p2), nombre: p2.nombre}) AS nodes,
    collect(DISTINCT {source: elementId(p1), target: elementId(p2), score: toFloat(r.index_simm)}) AS relationships`

// mergeQuery is idempotent: re-loading the same file updates scores in place.
const mergeQuery = `
UNWIND $rows AS row
MERGE (p1:Providencia {nombre: row.providencia1})
MERGE (p2:Providencia {nombre: row.providencia2})
MERGE (p1)-[r:SIMILAR_A]->(p2)
SET r.index_simm = row.index_simm`

type Store struct {
	session   Session
	batchSize int
	log       *logrus.Entry
}

func NewStore(s Session, log *logrus.Entry) *Store {
	if log == nil {
		log = logger.Discard()
	}
	return &Store{session: s, batchSize: DefaultWriteBatch, log: log}
}

// Graph returns the rulings similar to providencia with a score of at least minScore.
// An empty providencia selects every edge. No match is an empty graph, not an error.
func (s *Store) Graph(ctx context.Context, providencia string, minScore float64) (Graph, error) {
	cypher := fullGraphQuery
	params := map[string]any{"min_score": minScore}
	if providencia != "" {
		cypher = neighbourhoodQuery
		params["providencia"] = providencia
	}

	records, err := s.session.Query(ctx, cypher, params)
	if err != nil {
		return Graph{}, fmt.Errorf("query similarity graph: %w", err)
	}
	if len(records) == 0 {
		return BuildGraph(nil, nil, minScore), nil
	}

	nodes, err := decodeNodes(records[0])
	if err != nil {
		return Graph{}, err
	}
	rels, err := decodeRelationships(records[0])
	if err != nil {
		return Graph{}, err
	}
	g := BuildGraph(nodes, rels, minScore)
	s.log.WithFields(logrus.Fields{
		"providencia": providencia,
		"min_score":   minScore,
		"relations":   g.Stats.TotalRelations,
	}).Debug("similarity graph served")
	return g, nil
}

// BuildGraph removes duplicate nodes (by id) and edges (by source and target), keeping
// the first occurrence, and drops edges scoring below minScore.
func BuildGraph(nodes []Node, rels []Relationship, minScore float64) Graph {
	g := Graph{Nodes: []Node{}, Relationships: []Relationship{}}

	seenNodes := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if seenNodes[n.ID] {
			continue
		}
		seenNodes[n.ID] = true
		g.Nodes = append(g.Nodes, n)
	}

	seenRels := make(map[string]bool, len(rels))
	for _, r := range rels {
		key := r.Source + "-" + r.Target
		if seenRels[key] {
			continue
		}
		seenRels[key] = true
		if r.Score >= minScore {
			g.Relationships = append(g.Relationships, r)
		}
	}

	g.Stats = Stats{TotalRelations: len(g.Relationships), TotalNodes: len(g.Nodes)}
	return g
}

// Write merges both rulings of every pair and the scored edge between them, in batches.
// Pairs missing an identifier or scoring outside [0, 1] are skipped and logged.
func (s *Store) Write(ctx context.Context, sims []Similarity) (int, error) {
	rows := make([]map[string]any, 0, len(sims))
	for i, sim := range sims {
		if sim.Providencia1 == "" || sim.Providencia2 == "" || sim.IndexSimm < 0 || sim.IndexSimm > 1 {
			s.log.WithFields(logrus.Fields{
				"row":          i,
				"providencia1": sim.Providencia1,
				"providencia2": sim.Providencia2,
				"index_simm":   sim.IndexSimm,
			}).Warn("skipping invalid similarity")
			continue
		}
		rows = append(rows, map[string]any{
			"providencia1": sim.Providencia1,
			"providencia2": sim.Providencia2,
			"index_simm":   sim.IndexSimm,
		})
	}

	written := 0
	for start := 0; start < len(rows); start += s.batchSize {
		end := min(start+s.batchSize, len(rows))
		if err := s.session.Exec(ctx, mergeQuery, map[string]any{"rows": rows[start:end]}); err != nil {
			return written, fmt.Errorf("merge similarities %d-%d: %w", start, end, err)
		}
		written += end - start
		s.log.WithField("written", written).Debug("similarity batch merged")
	}
	return written, nil
}

// ReadSimilarities decodes a JSON array of similarity pairs.
func ReadSimilarities(path string) ([]Similarity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read similarity file: %w", err)
	}
	var sims []Similarity
	if err := json.Unmarshal(data, &sims); err != nil {
		return nil, fmt.Errorf("decode similarity file: %w", err)
	}
	return sims, nil
}

func decodeNodes(rec *neo4j.Record) ([]Node, error) {
	raw, err := list(rec, "nodes")
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("node: unexpected %T", item)
		}
		nodes = append(nodes, Node{ID: str(m["id"]), Nombre: str(m["nombre"])})
	}
	return nodes, nil
}

func decodeRelationships(rec *neo4j.Record) ([]Relationship, error) {
	raw, err := list(rec, "relationships")
	if err != nil {
		return nil, err
	}
	rels := make([]Relationship, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("relationship: unexpected %T", item)
		}
		score, err := toFloat(m["score"])
		if err != nil {
			return nil, err
		}
		rels = append(rels, Relationship{Source: str(m["source"]), Target: str(m["target"]), Score: score})
	}
	return rels, nil
}

func list(rec *neo4j.Record, key string) ([]any, error) {
	v, ok := rec.Get(key)
	if !ok {
		return nil, fmt.Errorf("record has no %q column", key)
	}
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected %T", key, v)
	}
	return items, nil
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("score: unexpected %T", v)
	}
}
