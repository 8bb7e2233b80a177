// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Paths
	AudioDir       string `validate:"required"`
	OutputDir      string `validate:"required"`
	TempDir        string `validate:"required"`
	ReportWorkbook string

	// MongoDB
	MongoURI        string `validate:"required"`
	MongoDB         string `validate:"required"`
	MongoCollection string `validate:"required"`
	LoadBatchSize   int    `validate:"gt=0"`

	// Extraction
	Workers       int           `validate:"gte=1"`
	ChunkDuration time.Duration `validate:"gt=0"`
	SampleRate    int           `validate:"gte=8000"`
	Language      string        `validate:"required"`

	// Speech service
	TranscribeURL     string `validate:"omitempty,url"`
	TranscribeAPIKey  string
	TranscribeTimeout time.Duration `validate:"gt=0"`
	TranscribeRPS     int           `validate:"gte=1"`
	UseMockTranscribe bool
}

// DefaultWorkers is one less than the available CPUs, never below one.
func DefaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		return 1
	}
	return n
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds and validates a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.AudioDir = getEnv("AUDIO_DIR", "./data/raw")
	cfg.OutputDir = getEnv("OUTPUT_DIR", "./logs")
	cfg.TempDir = getEnv("TEMP_DIR", "./data/processed/temp")
	cfg.ReportWorkbook = getEnv("REPORT_WORKBOOK", "")

	cfg.MongoURI = getEnv("MONGODB_URI", "mongodb://localhost:27017")
	cfg.MongoDB = getEnv("MONGODB_DB", "relatoria")
	cfg.MongoCollection = getEnv("MONGODB_COLLECTION", "providencias")
	if cfg.LoadBatchSize, err = getInt("LOAD_BATCH_SIZE", 100); err != nil {
		return nil, err
	}

	if cfg.Workers, err = getInt("WORKERS", DefaultWorkers()); err != nil {
		return nil, err
	}
	if cfg.ChunkDuration, err = getDuration("CHUNK_DURATION", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SampleRate, err = getInt("SAMPLE_RATE", 16000); err != nil {
		return nil, err
	}
	cfg.Language = getEnv("LANGUAGE", "es-ES")

	cfg.TranscribeURL = getEnv("TRANSCRIBE_URL", "")
	cfg.TranscribeAPIKey = getEnv("TRANSCRIBE_API_KEY", "")
	if cfg.TranscribeTimeout, err = getDuration("TRANSCRIBE_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TranscribeRPS, err = getInt("TRANSCRIBE_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.UseMockTranscribe, err = strconv.ParseBool(getEnv("USE_MOCK_TRANSCRIBE", "false")); err != nil {
		return nil, fmt.Errorf("invalid USE_MOCK_TRANSCRIBE: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if !cfg.UseMockTranscribe && cfg.TranscribeURL == "" {
		return nil, fmt.Errorf("invalid configuration: TRANSCRIBE_URL not set")
	}
	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, def int) (int, error) {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(def)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v, err := time.ParseDuration(getEnv(key, def.String()))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// Graph configures the Neo4j similarity graph used by cmd/api and cmd/graphload.
type Graph struct {
	URI            string `validate:"omitempty,uri"`
	User           string
	Password       string
	Database       string
	SimilarityFile string `validate:"required"`
}

// Enabled reports whether a graph server was configured.
func (g Graph) Enabled() bool { return g.URI != "" }

// GraphFromEnv reads the NEO4J_* variables. An empty NEO4J_URI disables the graph.
func GraphFromEnv() (*Graph, error) {
	g := &Graph{
		URI:            getEnv("NEO4J_URI", ""),
		User:           getEnv("NEO4J_USER", "neo4j"),
		Password:       getEnv("NEO4J_PASSWORD", ""),
		Database:       getEnv("NEO4J_DATABASE", "neo4j"),
		SimilarityFile: getEnv("SIMILARITY_FILE", "./data/Similitud.json"),
	}
	if err := validator.New().Struct(g); err != nil {
		return nil, fmt.Errorf("invalid graph configuration: %w", err)
	}
	return g, nil
}
