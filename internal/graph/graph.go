// Package graph reads and writes the similarity graph between rulings kept in Neo4j.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type Node struct {
	ID     string `json:"id"`
	Nombre string `json:"nombre"`
}

type Relationship struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Score  float64 `json:"score"`
}

type Stats struct {
	TotalRelations int `json:"totalRelations"`
	TotalNodes     int `json:"totalNodes"`
}

// Graph is the neighbourhood of one ruling, or the whole graph when no ruling is given.
type Graph struct {
	Nodes         []Node         `json:"nodes"`
	Relationships []Relationship `json:"relationships"`
	Stats         Stats          `json:"stats"`
}

// Similarity is one scored pair as found in the similarity file.
type Similarity struct {
	Providencia1 string  `json:"providencia1"`
	Providencia2 string  `json:"providencia2"`
	IndexSimm    float64 `json:"index_simm"`
}

type GraphReader interface {
	Graph(ctx context.Context, providencia string, minScore float64) (Graph, error)
}

type GraphWriter interface {
	Write(ctx context.Context, sims []Similarity) (int, error)
}

// Session is the part of a Neo4j connection the store needs: reads return records,
// writes only report failure.
type Session interface {
	Query(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)
	Exec(ctx context.Context, cypher string, params map[string]any) error
}

// DriverSession runs queries through neo4j.ExecuteQuery against one database.
type DriverSession struct {
	Driver   neo4j.DriverWithContext
	Database string
}

func (s DriverSession) Query(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	res, err := neo4j.ExecuteQuery(ctx, s.Driver, cypher, params, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.Database), neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

func (s DriverSession) Exec(ctx context.Context, cypher string, params map[string]any) error {
	_, err := neo4j.ExecuteQuery(ctx, s.Driver, cypher, params, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.Database), neo4j.ExecuteQueryWithWritersRouting())
	return err
}

// Connect opens a driver and checks the server answers.
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("neo4j unreachable: %w", err)
	}
	return driver, nil
}
