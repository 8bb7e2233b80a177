package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"relatoria-go/internal/types"
)

// AllTipos is the UI value meaning "no tipo filter".
const AllTipos = "Todos los tipos"

var providenciaFormat = regexp.MustCompile(`^(A\d{1,4}-\d{2}|[CT]-\d{1,4}-\d{2})$`)

// tipoPatterns restrict search results to identifiers of the strict format for each tipo.
var tipoPatterns = map[types.Tipo]string{
	types.TipoAuto:               `^A[0-9]{1,4}-[0-9]{2}$`,
	types.TipoConstitucionalidad: `^C-[0-9]{1,4}-[0-9]{2}$`,
	types.TipoTutela:             `^T-[0-9]{1,4}-[0-9]{2}$`,
}

// ValidateProvidenciaFormat accepts AXXX-YY, C-XXX-YY and T-XXX-YY with 1-4 digit numbers.
func ValidateProvidenciaFormat(id string) bool {
	return providenciaFormat.MatchString(id)
}

// Reader is the subset of *mongo.Collection used by Queries.
type Reader interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
}

type Queries struct {
	coll Reader
}

func NewQueries(coll Reader) *Queries {
	return &Queries{coll: coll}
}

var baseProjection = bson.D{
	{Key: "_id", Value: 0},
	{Key: "providencia", Value: 1},
	{Key: "tipo", Value: 1},
	{Key: "anio", Value: 1},
	{Key: "texto", Value: 1},
}

// FindByProvidencia returns nil without error when nothing matches.
func (q *Queries) FindByProvidencia(ctx context.Context, id string) (*types.StoredDocument, error) {
	var doc types.StoredDocument
	err := q.coll.FindOne(ctx, bson.D{{Key: "providencia", Value: id}},
		options.FindOne().SetProjection(baseProjection)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find providencia %s: %w", id, err)
	}
	return &doc, nil
}

// All returns every document sorted by providencia.
func (q *Queries) All(ctx context.Context) ([]types.StoredDocument, error) {
	return q.find(ctx, bson.D{}, options.Find().SetProjection(baseProjection).
		SetSort(bson.D{{Key: "providencia", Value: 1}}))
}

type SearchParams struct {
	Tipo  string `json:"tipo,omitempty"`
	Anio  string `json:"anio,omitempty"`
	Texto string `json:"texto,omitempty"`
}

// CleanSearchParams drops values the search would reject: the "all types" sentinel,
// years outside [1900, maxYear] or not numeric, and text shorter than 3 characters.
func CleanSearchParams(tipo, anio, texto string, maxYear int) SearchParams {
	var p SearchParams
	if tipo != "" && tipo != AllTipos {
		p.Tipo = tipo
	}
	if y, err := strconv.Atoi(strings.TrimSpace(anio)); err == nil && y >= 1900 && y <= maxYear {
		p.Anio = strconv.Itoa(y)
	}
	if t := strings.TrimSpace(texto); len([]rune(t)) >= 3 {
		p.Texto = t
	}
	return p
}

// BuildSearch composes the filter and find options for p. With free text, results are
// ranked by text score; otherwise they are sorted by providencia.
func BuildSearch(p SearchParams) (bson.D, *options.FindOptions) {
	filter := bson.D{}
	if p.Tipo != "" {
		if pattern, ok := tipoPatterns[types.Tipo(p.Tipo)]; ok {
			filter = append(filter, bson.E{Key: "providencia", Value: bson.D{{Key: "$regex", Value: pattern}}})
		}
		filter = append(filter, bson.E{Key: "tipo", Value: p.Tipo})
	}
	if p.Anio != "" {
		filter = append(filter, bson.E{Key: "anio", Value: p.Anio})
	}

	projection := baseProjection
	opts := options.Find()
	if p.Texto != "" {
		filter = append(filter, bson.E{Key: "$text", Value: bson.D{{Key: "$search", Value: p.Texto}}})
		score := bson.D{{Key: "$meta", Value: "textScore"}}
		projection = append(append(bson.D{}, baseProjection...), bson.E{Key: "score", Value: score})
		opts.SetSort(bson.D{{Key: "score", Value: score}})
	} else {
		opts.SetSort(bson.D{{Key: "providencia", Value: 1}})
	}
	opts.SetProjection(projection)
	return filter, opts
}

func (q *Queries) Search(ctx context.Context, p SearchParams) ([]types.StoredDocument, error) {
	filter, opts := BuildSearch(p)
	return q.find(ctx, filter, opts)
}

type Stats struct {
	Total   int64            `json:"total"`
	PorTipo map[string]int64 `json:"por_tipo"`
	PorAnio map[string]int64 `json:"por_anio"`
}

func (q *Queries) Stats(ctx context.Context) (Stats, error) {
	total, err := q.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}
	porTipo, err := q.groupCount(ctx, "$tipo")
	if err != nil {
		return Stats{}, err
	}
	porAnio, err := q.groupCount(ctx, "$anio")
	if err != nil {
		return Stats{}, err
	}
	return Stats{Total: total, PorTipo: porTipo, PorAnio: porAnio}, nil
}

func (q *Queries) groupCount(ctx context.Context, field string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: field}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cur, err := q.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", field, err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode %s counts: %w", field, err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Count
	}
	return out, nil
}

func (q *Queries) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]types.StoredDocument, error) {
	cur, err := q.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer cur.Close(ctx)

	docs := []types.StoredDocument{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return docs, nil
}
