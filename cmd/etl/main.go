package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"relatoria-go/internal/audio"
	"relatoria-go/internal/config"
	"relatoria-go/internal/extractor"
	"relatoria-go/internal/logger"
	"relatoria-go/internal/pipeline"
	"relatoria-go/internal/processor"
	"relatoria-go/internal/store"
	"relatoria-go/internal/transcription"
	"relatoria-go/internal/transform"
)

func main() {
	log := logger.New()
	log.WithField("service", "relatoria-etl").Info("starting etl")

	err := run(log)
	if err != nil {
		log.WithError(err).Error("etl failed")
	}
	log.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err == nil {
		err = client.Ping(connectCtx, readpref.Primary())
	}
	cancel()
	if err != nil {
		return fmt.Errorf("mongodb unreachable: %w", err)
	}
	defer func() {
		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()
		if err := client.Disconnect(dctx); err != nil {
			log.WithError(err).Warn("mongodb disconnect failed")
		}
	}()
	coll := client.Database(cfg.MongoDB).Collection(cfg.MongoCollection)

	var rec transcription.Recognizer
	if cfg.UseMockTranscribe {
		log.Warn("USE_MOCK_TRANSCRIBE enabled, transcripts are synthetic")
		rec = transcription.MockRecognizer{}
	} else {
		rec = transcription.NewHTTPRecognizer(cfg.TranscribeURL,
			transcription.WithAPIKey(cfg.TranscribeAPIKey),
			transcription.WithRateLimit(cfg.TranscribeRPS),
			transcription.WithMaxElapsed(cfg.TranscribeTimeout),
		)
	}

	transcriber := &transcription.ChunkTranscriber{
		Recognizer: rec,
		Language:   cfg.Language,
		SampleRate: cfg.SampleRate,
		TempDir:    cfg.TempDir,
		Timeout:    cfg.TranscribeTimeout,
		Log:        log.Component("transcription"),
	}
	proc := processor.NewProcessor(transcriber, cfg.Workers, log.Component("processor"))

	p := &pipeline.Pipeline{
		Extractor:   extractor.New(audio.NewSplitter(cfg.ChunkDuration), proc, cfg.OutputDir, log.Component("extractor")),
		Transformer: transform.New(cfg.OutputDir, log.Component("transform")),
		Loader:      store.NewLoader(coll, cfg.LoadBatchSize, log.Component("store")),
		Indexes:     coll.Indexes(),
		AudioDir:    cfg.AudioDir,
		OutputDir:   cfg.OutputDir,
		Workbook:    cfg.ReportWorkbook,
		Log:         log.Component("pipeline"),
	}

	log.WithField("workers", proc.Workers()).Info("pipeline configured")
	_, err = p.Run(ctx)
	return err
}
