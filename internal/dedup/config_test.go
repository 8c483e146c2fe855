package dedup

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "explicit band partition",
			mutate:  func(c *Config) { c.Bands = 16; c.Rows = 8 },
			wantErr: false,
		},
		{
			name:    "threshold at zero",
			mutate:  func(c *Config) { c.SimilarityThreshold = 0 },
			wantErr: true,
		},
		{
			name:    "threshold at one",
			mutate:  func(c *Config) { c.SimilarityThreshold = 1 },
			wantErr: true,
		},
		{
			name:    "negative threshold",
			mutate:  func(c *Config) { c.SimilarityThreshold = -0.5 },
			wantErr: true,
		},
		{
			name:    "zero shingle size",
			mutate:  func(c *Config) { c.ShingleSize = 0 },
			wantErr: true,
		},
		{
			name:    "zero signature length",
			mutate:  func(c *Config) { c.SignatureLength = 0 },
			wantErr: true,
		},
		{
			name:    "bands without rows",
			mutate:  func(c *Config) { c.Bands = 16 },
			wantErr: true,
		},
		{
			name:    "partition does not cover signature",
			mutate:  func(c *Config) { c.Bands = 16; c.Rows = 9 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}

			if err != nil {
				var confErr *ConfigurationError
				if !errors.As(err, &confErr) {
					t.Errorf("Validate() error type = %T, want *ConfigurationError", err)
				}
			}

			// the engine must refuse to start under an invalid configuration
			if _, err := NewCoordinator(cfg); (err != nil) != tt.wantErr {
				t.Errorf("NewCoordinator() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDerivedParams(t *testing.T) {
	cfg := DefaultConfig()
	p := cfg.params()

	if err := p.Validate(cfg.SignatureLength); err != nil {
		t.Fatalf("derived params invalid: %v", err)
	}

	cfg.Bands = 16
	cfg.Rows = 8
	p = cfg.params()
	if p.Bands != 16 || p.Rows != 8 {
		t.Errorf("explicit params not honored: %+v", p)
	}
}
