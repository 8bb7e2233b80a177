package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type IndexCreator interface {
	CreateMany(ctx context.Context, models []mongo.IndexModel, opts ...*options.CreateIndexesOptions) ([]string, error)
}

// IndexModels is the index set the query service relies on.
func IndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "texto", Value: "text"}}},
		{Keys: bson.D{{Key: "providencia", Value: 1}}},
		{Keys: bson.D{{Key: "tipo", Value: 1}}},
		{Keys: bson.D{{Key: "anio", Value: 1}}},
		{Keys: bson.D{{Key: "tipo", Value: 1}, {Key: "anio", Value: 1}}},
		{Keys: bson.D{{Key: "ultima_actualizacion", Value: 1}}},
	}
}

// EnsureIndexes creates the indexes; re-creating an identical index is a no-op on the server.
func EnsureIndexes(ctx context.Context, iv IndexCreator) ([]string, error) {
	names, err := iv.CreateMany(ctx, IndexModels())
	if err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return names, nil
}
