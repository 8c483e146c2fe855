package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chriscorrea/winnow/internal/dedup"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "winnow.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadAndApply(t *testing.T) {
	path := writeTempConfig(t, `
similarity_threshold: 0.8
shingle_size: 3
band_count: 16
rows_per_band: 8
reset_between_sources: true
`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg := dedup.DefaultConfig()
	f.Apply(&cfg)

	if cfg.SimilarityThreshold != 0.8 {
		t.Errorf("SimilarityThreshold = %v, want 0.8", cfg.SimilarityThreshold)
	}
	if cfg.ShingleSize != 3 {
		t.Errorf("ShingleSize = %d, want 3", cfg.ShingleSize)
	}
	if cfg.Bands != 16 || cfg.Rows != 8 {
		t.Errorf("Bands/Rows = %d/%d, want 16/8", cfg.Bands, cfg.Rows)
	}
	if !cfg.ResetBetweenSources {
		t.Error("ResetBetweenSources = false, want true")
	}

	// unset fields keep their defaults
	if cfg.SignatureLength != dedup.DefaultSignatureLength {
		t.Errorf("SignatureLength = %d, want default %d", cfg.SignatureLength, dedup.DefaultSignatureLength)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of missing file should fail")
	}

	path := writeTempConfig(t, "similarity_threshold: [not, a, float]")
	if _, err := Load(path); err == nil {
		t.Error("Load() of malformed YAML should fail")
	}
}

func TestApplyNil(t *testing.T) {
	cfg := dedup.DefaultConfig()
	want := cfg

	var f *File
	f.Apply(&cfg)

	if cfg != want {
		t.Errorf("nil Apply() mutated config: %+v", cfg)
	}
}
