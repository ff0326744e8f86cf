package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	// Set environment variables
	os.Setenv("LEXEVAL_PORT", "9090")
	os.Setenv("LEXEVAL_LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("LEXEVAL_PORT")
		os.Unsetenv("LEXEVAL_LOG_LEVEL")
	}()

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
host: "127.0.0.1"
port: 8888
log:
  level: warn
  format: json
scoring:
  k_values: [5, 10, 50]
  span_overlap: 0.6
  numeric_tolerance: 0.005
store:
  type: file
  path: /tmp/lexeval-runs
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Host)
	}

	if cfg.Port != 8888 {
		t.Errorf("Port = %d, want 8888", cfg.Port)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn", cfg.Log.Level)
	}

	if len(cfg.Scoring.KValues) != 3 || cfg.Scoring.KValues[2] != 50 {
		t.Errorf("Scoring.KValues = %v, want [5 10 50]", cfg.Scoring.KValues)
	}

	if cfg.Scoring.SpanOverlap != 0.6 {
		t.Errorf("Scoring.SpanOverlap = %f, want 0.6", cfg.Scoring.SpanOverlap)
	}

	if cfg.Store.Type != "file" {
		t.Errorf("Store.Type = %s, want file", cfg.Store.Type)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid port",
			modify: func(c *Config) {
				c.Port = 0
			},
			wantErr: true,
		},
		{
			name: "empty k values",
			modify: func(c *Config) {
				c.Scoring.KValues = nil
			},
			wantErr: true,
		},
		{
			name: "non-positive k value",
			modify: func(c *Config) {
				c.Scoring.KValues = []int{5, 0}
			},
			wantErr: true,
		},
		{
			name: "span overlap out of range",
			modify: func(c *Config) {
				c.Scoring.SpanOverlap = 1.5
			},
			wantErr: true,
		},
		{
			name: "numeric tolerance out of range",
			modify: func(c *Config) {
				c.Scoring.NumericTolerance = 1.0
			},
			wantErr: true,
		},
		{
			name: "zero calibration bins",
			modify: func(c *Config) {
				c.Scoring.CalibrationBins = 0
			},
			wantErr: true,
		},
		{
			name: "invalid store type",
			modify: func(c *Config) {
				c.Store.Type = "invalid"
			},
			wantErr: true,
		},
		{
			name: "invalid bus type",
			modify: func(c *Config) {
				c.Bus.Type = "invalid"
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Log.Level = "invalid"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	cfg := &Config{
		Host: "localhost",
		Port: 8080,
	}

	if addr := cfg.Address(); addr != "localhost:8080" {
		t.Errorf("Address() = %s, want localhost:8080", addr)
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := &Config{}

	cfg.Log.Level = "debug"
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true for debug level")
	}

	cfg.Log.Level = "info"
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false for info level")
	}
}
