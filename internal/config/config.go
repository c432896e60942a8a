// Package config loads pipeline configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable of the ingestion pipeline. Values are
// read from BANKFEED_-prefixed environment variables.
type Config struct {
	Port string `envconfig:"PORT" default:"8112"`

	// Store selection. When UseMemoryStore is set the Firestore
	// project is ignored.
	UseMemoryStore   bool   `envconfig:"USE_MEMORY_STORE" default:"false"`
	FirestoreProject string `envconfig:"FIRESTORE_PROJECT"`

	// Oracle settings. Models are tried in order; the first success
	// wins.
	GeminiAPIKey  string   `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string   `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	Models        []string `envconfig:"MODELS" default:"gemini-2.0-flash,gemini-1.5-flash,gemini-1.5-flash-8b"`

	// Batch processing.
	BatchSize       int `envconfig:"BATCH_SIZE" default:"50"`
	ParallelBatches int `envconfig:"PARALLEL_BATCHES" default:"10"`

	// EncryptionKey is the hex-encoded 32-byte AES key for the blob
	// cipher.
	EncryptionKey string `envconfig:"ENCRYPTION_KEY"`

	// DefaultCurrency is used when a field mapping marks the currency
	// column as "fixed".
	DefaultCurrency string `envconfig:"DEFAULT_CURRENCY" default:"EUR"`
}

// FromEnv reads configuration from the environment.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("bankfeed", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.ParallelBatches <= 0 {
		return nil, fmt.Errorf("parallel batches must be positive, got %d", cfg.ParallelBatches)
	}
	return &cfg, nil
}
