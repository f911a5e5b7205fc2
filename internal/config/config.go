package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"

	"github.com/pixmill/pixmill/internal/model"
)

// Config holds the main configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Storage  Storage  `mapstructure:"storage"`
	Kafka    Kafka    `mapstructure:"kafka"`
	Retry    Retry    `mapstructure:"retry"`
	Pipeline Pipeline `mapstructure:"pipeline"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Storage holds configuration for the blob storage backend.
type Storage struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Kafka holds configuration for the ingest queue.
type Kafka struct {
	GroupID string   `mapstructure:"group_id"` // Consumer group ID
	Topic   string   `mapstructure:"topic"`    // Kafka topic name
	Brokers []string `mapstructure:"brokers"`  // List of Kafka broker addresses
}

// Retry defines retry policy configuration for queue operations.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Pipeline holds processing configuration.
type Pipeline struct {
	Workers     int           `mapstructure:"workers"`      // 0 means one per CPU
	MaxAttempts int           `mapstructure:"max_attempts"` // pipeline runs before a job parks as failed
	HeicTimeout time.Duration `mapstructure:"heic_timeout"` // bound on a single HEIC conversion
	Defaults    Defaults      `mapstructure:"defaults"`
}

// Defaults is the initial global settings.
type Defaults struct {
	Quality     float64 `mapstructure:"quality"`
	Format      string  `mapstructure:"format"`
	ResizeMode  string  `mapstructure:"resize_mode"`
	Percentage  int     `mapstructure:"percentage"`
	MaxWidth    int     `mapstructure:"max_width"`
	MaxHeight   int     `mapstructure:"max_height"`
	ExactWidth  int     `mapstructure:"exact_width"`
	ExactHeight int     `mapstructure:"exact_height"`
	StripExif   bool    `mapstructure:"strip_exif"`
}

// Settings converts the configured defaults into a model.Settings,
// falling back to the built-in defaults for zero values.
func (d Defaults) Settings() model.Settings {
	s := model.DefaultSettings()
	if d.Quality > 0 {
		s.Quality = d.Quality
	}
	if d.Format != "" {
		s.Format = model.Format(d.Format)
	}
	if d.ResizeMode != "" {
		s.ResizeMode = model.ResizeMode(d.ResizeMode)
	}
	if d.Percentage > 0 {
		s.Percentage = d.Percentage
	}
	if d.MaxWidth > 0 {
		s.MaxWidth = d.MaxWidth
	}
	if d.MaxHeight > 0 {
		s.MaxHeight = d.MaxHeight
	}
	if d.ExactWidth > 0 {
		s.ExactWidth = d.ExactWidth
	}
	if d.ExactHeight > 0 {
		s.ExactHeight = d.ExactHeight
	}
	s.StripExif = d.StripExif
	return s
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"storage.endpoint":   "STORAGE_ENDPOINT",
		"storage.access_key": "STORAGE_ACCESS_KEY",
		"storage.secret_key": "STORAGE_SECRET_KEY",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
