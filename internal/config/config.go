// Package config loads engine options from a YAML file.
//
// File values fill in options the user did not set on the command line;
// explicit flags always win. All fields are optional:
//
//	similarity_threshold: 0.9
//	shingle_size: 5
//	signature_length: 128
//	band_count: 16
//	rows_per_band: 8
//	reset_between_sources: false
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chriscorrea/winnow/internal/dedup"
)

// File mirrors the recognized YAML options. Pointer fields distinguish
// "absent" from zero values.
type File struct {
	SimilarityThreshold *float64 `yaml:"similarity_threshold"`
	ShingleSize         *int     `yaml:"shingle_size"`
	SignatureLength     *int     `yaml:"signature_length"`
	BandCount           *int     `yaml:"band_count"`
	RowsPerBand         *int     `yaml:"rows_per_band"`
	ResetBetweenSources *bool    `yaml:"reset_between_sources"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("invalid config file %q: %w", path, err)
	}

	return &f, nil
}

// Apply copies the file's set values onto the engine configuration. Values
// already changed by the caller (flags) should be applied after this.
func (f *File) Apply(cfg *dedup.Config) {
	if f == nil {
		return
	}
	if f.SimilarityThreshold != nil {
		cfg.SimilarityThreshold = *f.SimilarityThreshold
	}
	if f.ShingleSize != nil {
		cfg.ShingleSize = *f.ShingleSize
	}
	if f.SignatureLength != nil {
		cfg.SignatureLength = *f.SignatureLength
	}
	if f.BandCount != nil {
		cfg.Bands = *f.BandCount
	}
	if f.RowsPerBand != nil {
		cfg.Rows = *f.RowsPerBand
	}
	if f.ResetBetweenSources != nil {
		cfg.ResetBetweenSources = *f.ResetBetweenSources
	}
}
