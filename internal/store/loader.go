// Package store persists rulings in MongoDB and composes the read queries over them.
package store

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"relatoria-go/internal/logger"
	"relatoria-go/internal/metrics"
	"relatoria-go/internal/types"
)

const DefaultBatchSize = 100

// BulkWriter is the subset of *mongo.Collection the loader needs.
type BulkWriter interface {
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
}

type Loader struct {
	coll      BulkWriter
	batchSize int
	log       *logrus.Entry
	now       func() time.Time
}

func NewLoader(coll BulkWriter, batchSize int, log *logrus.Entry) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Loader{coll: coll, batchSize: batchSize, log: log, now: time.Now}
}

// PrepareDocument expands the 2-digit year by prefixing "20". Rulings before 2000
// are not representable.
func PrepareDocument(r types.Record, now time.Time) types.StoredDocument {
	return types.StoredDocument{
		Providencia:         r.Providencia,
		Tipo:                string(r.Tipo),
		Anio:                "20" + r.Anio,
		Texto:               r.Texto,
		UltimaActualizacion: now,
	}
}

// UpsertModel matches on providencia and sets the whole document, inserting when absent.
func UpsertModel(doc types.StoredDocument) mongo.WriteModel {
	return mongo.NewUpdateOneModel().
		SetFilter(bson.D{{Key: "providencia", Value: doc.Providencia}}).
		SetUpdate(bson.D{{Key: "$set", Value: doc}}).
		SetUpsert(true)
}

// Load upserts records in unordered batches. A failing batch counts all of its
// documents as failed and the remaining batches still run.
func (l *Loader) Load(ctx context.Context, records []types.Record) metrics.Load {
	m := metrics.Load{Start: l.now(), Documents: len(records)}

	stamp := l.now()
	ops := make([]mongo.WriteModel, 0, len(records))
	for _, r := range records {
		ops = append(ops, UpsertModel(PrepareDocument(r, stamp)))
	}

	opts := options.BulkWrite().SetOrdered(false)
	for start := 0; start < len(ops); start += l.batchSize {
		end := min(start+l.batchSize, len(ops))
		batch := ops[start:end]
		m.Batches++
		log := l.log.WithFields(logrus.Fields{"batch": m.Batches, "size": len(batch)})

		res, err := l.coll.BulkWrite(ctx, batch, opts)
		if err != nil {
			log.WithError(err).Error("batch upsert failed")
			m.Failed += len(batch)
			continue
		}
		m.Successful += int(res.UpsertedCount + res.ModifiedCount)
		log.WithFields(logrus.Fields{
			"upserted": res.UpsertedCount,
			"modified": res.ModifiedCount,
		}).Debug("batch upserted")
	}

	m.End = l.now()
	l.log.WithFields(logrus.Fields{
		"successful": m.Successful,
		"failed":     m.Failed,
		"batches":    m.Batches,
		"duration":   m.Duration().String(),
	}).Info("load finished")
	return m
}
