package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestValidateProvidenciaFormat(t *testing.T) {
	valid := []string{"A742-24", "A1-24", "C-411-22", "T-1234-23"}
	invalid := []string{"", "A-742-24", "C411-22", "T-12345-23", "A742-2024", "X-1-22", "a742-24", "C-411-22 "}
	for _, id := range valid {
		assert.True(t, ValidateProvidenciaFormat(id), id)
	}
	for _, id := range invalid {
		assert.False(t, ValidateProvidenciaFormat(id), id)
	}
}

func TestCleanSearchParams(t *testing.T) {
	assert.Equal(t, SearchParams{}, CleanSearchParams(AllTipos, "", "", 2026))
	assert.Equal(t, SearchParams{}, CleanSearchParams("", "1899", "ab", 2026))
	assert.Equal(t, SearchParams{}, CleanSearchParams("", "2027", "  ", 2026))
	assert.Equal(t, SearchParams{}, CleanSearchParams("", "veinte", "", 2026))
	assert.Equal(t,
		SearchParams{Tipo: "Tutela", Anio: "2023", Texto: "salud"},
		CleanSearchParams("Tutela", " 2023 ", "  salud ", 2026))
}

func TestBuildSearchWithoutText(t *testing.T) {
	filter, opts := BuildSearch(SearchParams{Tipo: "Auto", Anio: "2024"})
	assert.Equal(t, bson.D{
		{Key: "providencia", Value: bson.D{{Key: "$regex", Value: `^A[0-9]{1,4}-[0-9]{2}$`}}},
		{Key: "tipo", Value: "Auto"},
		{Key: "anio", Value: "2024"},
	}, filter)
	assert.Equal(t, bson.D{{Key: "providencia", Value: 1}}, opts.Sort)
	assert.Equal(t, baseProjection, opts.Projection)
}

func TestBuildSearchWithText(t *testing.T) {
	filter, opts := BuildSearch(SearchParams{Texto: "derecho a la salud"})
	assert.Equal(t, bson.D{
		{Key: "$text", Value: bson.D{{Key: "$search", Value: "derecho a la salud"}}},
	}, filter)

	score := bson.D{{Key: "$meta", Value: "textScore"}}
	assert.Equal(t, bson.D{{Key: "score", Value: score}}, opts.Sort)
	proj, ok := opts.Projection.(bson.D)
	require.True(t, ok)
	assert.Equal(t, bson.E{Key: "score", Value: score}, proj[len(proj)-1])
	assert.Len(t, baseProjection, 5, "base projection must not be mutated")
}

func TestBuildSearchUnknownTipo(t *testing.T) {
	filter, _ := BuildSearch(SearchParams{Tipo: "Sentencia"})
	assert.Equal(t, bson.D{{Key: "tipo", Value: "Sentencia"}}, filter)
}

type fakeReader struct {
	one     bson.D
	found   []interface{}
	count   int64
	groups  map[string][]interface{}
	filter  interface{}
	findErr error
}

func (f *fakeReader) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	f.filter = filter
	if f.one == nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(f.one, nil, nil)
}

func (f *fakeReader) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	f.filter = filter
	if f.findErr != nil {
		return nil, f.findErr
	}
	return mongo.NewCursorFromDocuments(f.found, nil, nil)
}

func (f *fakeReader) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return f.count, nil
}

func (f *fakeReader) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error) {
	group := pipeline.(mongo.Pipeline)[0][0].Value.(bson.D)
	field := group[0].Value.(string)
	return mongo.NewCursorFromDocuments(f.groups[field], nil, nil)
}

func TestFindByProvidencia(t *testing.T) {
	r := &fakeReader{one: bson.D{
		{Key: "providencia", Value: "C-411-22"},
		{Key: "tipo", Value: "Constitucionalidad"},
		{Key: "anio", Value: "2022"},
		{Key: "texto", Value: "la corte"},
	}}
	doc, err := NewQueries(r).FindByProvidencia(context.Background(), "C-411-22")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "Constitucionalidad", doc.Tipo)
	assert.Equal(t, "la corte", doc.Texto)
	assert.Equal(t, bson.D{{Key: "providencia", Value: "C-411-22"}}, r.filter)
}

func TestFindByProvidenciaNotFound(t *testing.T) {
	doc, err := NewQueries(&fakeReader{}).FindByProvidencia(context.Background(), "T-1-23")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestSearch(t *testing.T) {
	r := &fakeReader{found: []interface{}{
		bson.D{{Key: "providencia", Value: "T-1-23"}, {Key: "tipo", Value: "Tutela"}, {Key: "score", Value: 2.5}},
		bson.D{{Key: "providencia", Value: "T-9-23"}, {Key: "tipo", Value: "Tutela"}, {Key: "score", Value: 1.0}},
	}}
	docs, err := NewQueries(r).Search(context.Background(), SearchParams{Tipo: "Tutela", Texto: "salud"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "T-1-23", docs[0].Providencia)
	assert.InDelta(t, 2.5, docs[0].Score, 1e-9)

	_, err = NewQueries(&fakeReader{findErr: errors.New("down")}).All(context.Background())
	assert.Error(t, err)
}

func TestAllEmptyIsNotNil(t *testing.T) {
	docs, err := NewQueries(&fakeReader{}).All(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestStats(t *testing.T) {
	r := &fakeReader{
		count: 3,
		groups: map[string][]interface{}{
			"$tipo": {
				bson.D{{Key: "_id", Value: "Auto"}, {Key: "count", Value: int64(1)}},
				bson.D{{Key: "_id", Value: "Tutela"}, {Key: "count", Value: int64(2)}},
			},
			"$anio": {
				bson.D{{Key: "_id", Value: "2023"}, {Key: "count", Value: int64(3)}},
			},
		},
	}
	s, err := NewQueries(r).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{
		Total:   3,
		PorTipo: map[string]int64{"Auto": 1, "Tutela": 2},
		PorAnio: map[string]int64{"2023": 3},
	}, s)
}
