// Package config はアプリケーション設定を管理します。
//
// 設定は 既定値 -> DOSESIM_CONFIG で指定したYAMLファイル -> 環境変数 の順に読み込まれ、
// 後から読み込んだ値が優先されます。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stsysd/dosesim/logging"
	"github.com/stsysd/dosesim/model"
)

// Config はアプリケーション全体の設定を保持します。
type Config struct {
	// データディレクトリのパス
	DataDir string `yaml:"data_dir"`

	// HTTPサーバーのポート
	Port string `yaml:"port"`

	// API認証キー
	APIKey string `yaml:"api_key"`

	// 空の場合はDataDir内のSQLite、postgres:// の場合はPostgreSQLを使う
	DatabaseURL string `yaml:"database_url"`

	LogLevel string `yaml:"log_level"`

	// 1回のシミュレーションで許可する最大時間 (時間)
	MaxDurationHours float64 `yaml:"max_duration_hours"`

	// リスク区分の方式 (two または four)
	RiskBanding string `yaml:"risk_banding"`

	Archive ArchiveConfig `yaml:"archive"`
}

// ArchiveConfig はシミュレーション結果のアーカイブ先の設定です。
type ArchiveConfig struct {
	// "" (無効), "fs", "s3"
	Driver string `yaml:"driver"`
	Dir    string `yaml:"dir"`

	S3 S3Config `yaml:"s3"`
}

// S3Config はS3互換ストレージの設定です。
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`

	// 空の場合はAWSの既定の認証情報チェーンを使う
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Default は既定値のConfigを返します。
func Default() *Config {
	return &Config{
		DataDir:          filepath.Join(".", "data"),
		Port:             "8080",
		LogLevel:         "info",
		MaxDurationHours: 336,
		RiskBanding:      "two",
		Archive: ArchiveConfig{
			S3: S3Config{Region: "us-east-1"},
		},
	}
}

// Load は設定ファイルと環境変数から設定を読み込みます。
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("DOSESIM_CONFIG"); path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		cfg = fileConfig
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	// アーカイブディレクトリの既定値はDataDirに従う
	if cfg.Archive.Dir == "" {
		cfg.Archive.Dir = filepath.Join(cfg.DataDir, "archive")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile はYAMLファイルから設定を読み込みます。省略された項目は既定値のままです。
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// 秘密情報は ${VAR} 形式で環境変数を参照できる
	cfg.APIKey = expandEnvVars(cfg.APIKey)
	cfg.DatabaseURL = expandEnvVars(cfg.DatabaseURL)
	cfg.Archive.S3.AccessKeyID = expandEnvVars(cfg.Archive.S3.AccessKeyID)
	cfg.Archive.S3.SecretAccessKey = expandEnvVars(cfg.Archive.S3.SecretAccessKey)

	return cfg, nil
}

// Validate は設定値の妥当性を検証します。
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %q", c.Port)
	}
	if c.MaxDurationHours <= 0 {
		return fmt.Errorf("max_duration_hours must be greater than 0, got %v", c.MaxDurationHours)
	}
	if !logging.IsValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (valid: trace, debug, info, warn, error)", c.LogLevel)
	}
	if _, err := model.ParseRiskBanding(c.RiskBanding); err != nil {
		return err
	}
	if c.DatabaseURL != "" && !c.UsePostgres() {
		return fmt.Errorf("unsupported database_url scheme (want postgres:// or postgresql://)")
	}

	switch c.Archive.Driver {
	case "", "fs":
	case "s3":
		if c.Archive.S3.Bucket == "" {
			return fmt.Errorf("archive.s3.bucket is required for the s3 archive driver")
		}
	default:
		return fmt.Errorf("invalid archive driver: %s (valid: fs, s3, or empty to disable)", c.Archive.Driver)
	}
	return nil
}

// RequireAPIKey はAPIサーバー起動時に認証キーが設定されているか確認します。
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOSESIM_API_KEY is not set")
	}
	return nil
}

// UsePostgres はPostgreSQLを使う設定かどうかを返します。
func (c *Config) UsePostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// applyEnvOverrides は環境変数の値で設定を上書きします。
func applyEnvOverrides(c *Config) error {
	if v := os.Getenv("DOSESIM_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("DOSESIM_SERVER_PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DOSESIM_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("DOSESIM_DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("DOSESIM_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DOSESIM_MAX_DURATION_HOURS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DOSESIM_MAX_DURATION_HOURS: %w", err)
		}
		c.MaxDurationHours = f
	}
	if v := os.Getenv("DOSESIM_RISK_BANDING"); v != "" {
		c.RiskBanding = v
	}

	if v := os.Getenv("DOSESIM_ARCHIVE_DRIVER"); v != "" {
		c.Archive.Driver = v
	}
	if v := os.Getenv("DOSESIM_ARCHIVE_DIR"); v != "" {
		c.Archive.Dir = v
	}
	if v := os.Getenv("DOSESIM_ARCHIVE_S3_BUCKET"); v != "" {
		c.Archive.S3.Bucket = v
	}
	if v := os.Getenv("DOSESIM_ARCHIVE_S3_REGION"); v != "" {
		c.Archive.S3.Region = v
	}
	if v := os.Getenv("DOSESIM_ARCHIVE_S3_ENDPOINT"); v != "" {
		c.Archive.S3.Endpoint = v
	}
	if v := os.Getenv("DOSESIM_ARCHIVE_S3_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DOSESIM_ARCHIVE_S3_PATH_STYLE: %w", err)
		}
		c.Archive.S3.PathStyle = b
	}
	return nil
}

// expandEnvVars は ${VAR} を環境変数の値で展開します。
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
