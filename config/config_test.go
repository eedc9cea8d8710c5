package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var envKeys = []string{
	"DOSESIM_CONFIG",
	"DOSESIM_DATA_DIR",
	"DOSESIM_SERVER_PORT",
	"DOSESIM_API_KEY",
	"DOSESIM_DATABASE_URL",
	"DOSESIM_LOG_LEVEL",
	"DOSESIM_MAX_DURATION_HOURS",
	"DOSESIM_RISK_BANDING",
	"DOSESIM_ARCHIVE_DRIVER",
	"DOSESIM_ARCHIVE_DIR",
	"DOSESIM_ARCHIVE_S3_BUCKET",
	"DOSESIM_ARCHIVE_S3_REGION",
	"DOSESIM_ARCHIVE_S3_ENDPOINT",
	"DOSESIM_ARCHIVE_S3_PATH_STYLE",
}

// clearEnv は外部の環境変数がテストに影響しないよう空にします。
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.DataDir != filepath.Join(".", "data") {
		t.Errorf("Expected default data dir, got %s", cfg.DataDir)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Port)
	}
	if cfg.MaxDurationHours != 336 {
		t.Errorf("Expected max duration 336, got %v", cfg.MaxDurationHours)
	}
	if cfg.RiskBanding != "two" {
		t.Errorf("Expected two-tier banding, got %s", cfg.RiskBanding)
	}
	if cfg.Archive.Dir != filepath.Join(cfg.DataDir, "archive") {
		t.Errorf("Expected archive dir under data dir, got %s", cfg.Archive.Dir)
	}
	if cfg.UsePostgres() {
		t.Error("Expected SQLite by default")
	}
	if err := cfg.RequireAPIKey(); err == nil {
		t.Error("Expected RequireAPIKey to fail without DOSESIM_API_KEY")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOSESIM_DATA_DIR", "/var/lib/dosesim")
	t.Setenv("DOSESIM_SERVER_PORT", "9090")
	t.Setenv("DOSESIM_API_KEY", "secret")
	t.Setenv("DOSESIM_DATABASE_URL", "postgres://dosesim@localhost/dosesim")
	t.Setenv("DOSESIM_MAX_DURATION_HOURS", "72")
	t.Setenv("DOSESIM_RISK_BANDING", "four")
	t.Setenv("DOSESIM_ARCHIVE_DRIVER", "s3")
	t.Setenv("DOSESIM_ARCHIVE_S3_BUCKET", "runs")
	t.Setenv("DOSESIM_ARCHIVE_S3_PATH_STYLE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.DataDir != "/var/lib/dosesim" || cfg.Port != "9090" || cfg.APIKey != "secret" {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	if !cfg.UsePostgres() {
		t.Error("Expected postgres URL to select PostgreSQL")
	}
	if cfg.MaxDurationHours != 72 || cfg.RiskBanding != "four" {
		t.Errorf("Unexpected limits: %v / %s", cfg.MaxDurationHours, cfg.RiskBanding)
	}
	if cfg.Archive.Driver != "s3" || cfg.Archive.S3.Bucket != "runs" || !cfg.Archive.S3.PathStyle {
		t.Errorf("Unexpected archive config: %+v", cfg.Archive)
	}
	if cfg.Archive.S3.Region != "us-east-1" {
		t.Errorf("Expected default region, got %s", cfg.Archive.S3.Region)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_DOSESIM_KEY", "from-env")

	path := filepath.Join(t.TempDir(), "dosesim.yaml")
	content := `data_dir: /srv/dosesim
port: "8181"
api_key: ${TEST_DOSESIM_KEY}
risk_banding: four
archive:
  driver: fs
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("DOSESIM_CONFIG", path)
	// 環境変数はファイルより優先される
	t.Setenv("DOSESIM_SERVER_PORT", "9191")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.DataDir != "/srv/dosesim" {
		t.Errorf("Expected data dir from file, got %s", cfg.DataDir)
	}
	if cfg.Port != "9191" {
		t.Errorf("Expected env port to win, got %s", cfg.Port)
	}
	if cfg.APIKey != "from-env" {
		t.Errorf("Expected expanded API key, got %s", cfg.APIKey)
	}
	if cfg.Archive.Dir != "/srv/dosesim/archive" {
		t.Errorf("Expected archive dir under data dir, got %s", cfg.Archive.Dir)
	}
	// ファイルで省略された項目は既定値
	if cfg.MaxDurationHours != 336 {
		t.Errorf("Expected default max duration, got %v", cfg.MaxDurationHours)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad port", map[string]string{"DOSESIM_SERVER_PORT": "http"}, "invalid port"},
		{"bad max duration", map[string]string{"DOSESIM_MAX_DURATION_HOURS": "long"}, "DOSESIM_MAX_DURATION_HOURS"},
		{"negative max duration", map[string]string{"DOSESIM_MAX_DURATION_HOURS": "-1"}, "max_duration_hours"},
		{"bad banding", map[string]string{"DOSESIM_RISK_BANDING": "three"}, "risk banding"},
		{"bad log level", map[string]string{"DOSESIM_LOG_LEVEL": "verbose"}, "log level"},
		{"bad database scheme", map[string]string{"DOSESIM_DATABASE_URL": "mysql://localhost"}, "database_url"},
		{"s3 without bucket", map[string]string{"DOSESIM_ARCHIVE_DRIVER": "s3"}, "bucket"},
		{"unknown archive driver", map[string]string{"DOSESIM_ARCHIVE_DRIVER": "ftp"}, "archive driver"},
		{"missing config file", map[string]string{"DOSESIM_CONFIG": "/nonexistent/dosesim.yaml"}, "loading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
