package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"relatoria-go/internal/config"
	"relatoria-go/internal/graph"
	"relatoria-go/internal/logger"
	"relatoria-go/internal/store"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	defer log.Close()
	log.WithField("service", "relatoria-api").Info("starting service")

	uri := envOr("MONGODB_URI", "mongodb://localhost:27017")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	cancel()
	if err != nil {
		log.WithError(err).Fatal("failed to connect to mongodb")
	}
	coll := client.Database(envOr("MONGODB_DB", "relatoria")).Collection(envOr("MONGODB_COLLECTION", "providencias"))
	log.WithField("collection", coll.Name()).Info("query service ready")

	// The graph is optional: without it /api/graph answers 503 and everything else still works.
	var sims graph.GraphReader
	gcfg, err := config.GraphFromEnv()
	switch {
	case err != nil:
		log.WithError(err).Warn("invalid graph configuration, similarity graph disabled")
	case !gcfg.Enabled():
		log.Info("NEO4J_URI not set, similarity graph disabled")
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		driver, err := graph.Connect(ctx, gcfg.URI, gcfg.User, gcfg.Password)
		cancel()
		if err != nil {
			log.WithError(err).Warn("similarity graph unavailable")
			break
		}
		defer driver.Close(context.Background())
		sims = graph.NewStore(graph.DriverSession{Driver: driver, Database: gcfg.Database}, log.Component("graph"))
		log.WithField("database", gcfg.Database).Info("similarity graph ready")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", envOr("PORT", "8080")),
		Handler:      newServer(store.NewQueries(coll), sims, log, time.Now).routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", srv.Addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
