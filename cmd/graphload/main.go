package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"relatoria-go/internal/config"
	"relatoria-go/internal/graph"
	"relatoria-go/internal/logger"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "relatoria-graphload").Info("starting graph load")

	err := run(log)
	if err != nil {
		log.WithError(err).Error("graph load failed")
	}
	log.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	cfg, err := config.GraphFromEnv()
	if err != nil {
		return err
	}
	if !cfg.Enabled() {
		return errors.New("NEO4J_URI not set")
	}

	sims, err := graph.ReadSimilarities(cfg.SimilarityFile)
	if err != nil {
		return err
	}
	log.WithField("pairs", len(sims)).WithField("file", cfg.SimilarityFile).Info("similarities read")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	driver, err := graph.Connect(connectCtx, cfg.URI, cfg.User, cfg.Password)
	cancel()
	if err != nil {
		return err
	}
	defer driver.Close(context.Background())

	start := time.Now()
	store := graph.NewStore(graph.DriverSession{Driver: driver, Database: cfg.Database}, log.Component("graph"))
	n, err := store.Write(ctx, sims)
	if err != nil {
		return fmt.Errorf("after %d pairs: %w", n, err)
	}
	log.WithField("written", n).
		WithField("skipped", len(sims)-n).
		WithField("duration", time.Since(start).Round(time.Millisecond).String()).
		Info("similarity graph loaded")
	return nil
}
