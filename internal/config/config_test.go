package config

import "testing"

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != "8112" {
		t.Errorf("Port = %q, want 8112", cfg.Port)
	}
	if cfg.BatchSize != 50 || cfg.ParallelBatches != 10 {
		t.Errorf("batch defaults = %d/%d, want 50/10", cfg.BatchSize, cfg.ParallelBatches)
	}
	if len(cfg.Models) != 3 {
		t.Errorf("Models = %v, want three-model fallback chain", cfg.Models)
	}
	if cfg.DefaultCurrency != "EUR" {
		t.Errorf("DefaultCurrency = %q, want EUR", cfg.DefaultCurrency)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BANKFEED_BATCH_SIZE", "25")
	t.Setenv("BANKFEED_MODELS", "a,b")
	t.Setenv("BANKFEED_USE_MEMORY_STORE", "true")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.BatchSize != 25 {
		t.Errorf("BatchSize = %d, want 25", cfg.BatchSize)
	}
	if len(cfg.Models) != 2 || cfg.Models[0] != "a" {
		t.Errorf("Models = %v", cfg.Models)
	}
	if !cfg.UseMemoryStore {
		t.Error("UseMemoryStore should be true")
	}
}

func TestFromEnvRejectsNonPositiveBatch(t *testing.T) {
	t.Setenv("BANKFEED_BATCH_SIZE", "0")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for zero batch size")
	}
}
