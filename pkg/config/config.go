// Package config provides configuration management for facemark.
// It loads configuration from YAML files with sensible defaults.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all facemark configuration.
type Config struct {
	Matching MatchingConfig `yaml:"matching"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// MatchingConfig holds identity matching settings.
type MatchingConfig struct {
	// DistanceThreshold is the maximum aggregated distance still accepted
	// as a match. Smaller values are stricter. Must be positive and finite;
	// invalid values fail validation, they are never clamped.
	DistanceThreshold float64 `yaml:"distance_threshold"`
	// Metric selects the distance metric: "euclidean" or "cosine".
	Metric string `yaml:"metric"`
	// Aggregation selects how per-vector distances collapse into one score
	// per identity: "mean" or "min".
	Aggregation string `yaml:"aggregation"`
	// MaxConcurrentExtractions bounds parallel embedding extraction while
	// building the enrollment set.
	MaxConcurrentExtractions int     `yaml:"max_concurrent_extractions"`
	MinConfidence            float64 `yaml:"min_confidence"`
	ModelPath                string  `yaml:"model_path"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	DataDir           string `yaml:"data_dir"`
	EncryptionEnabled bool   `yaml:"encryption_enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Matching: MatchingConfig{
			DistanceThreshold:        0.6,
			Metric:                   "euclidean",
			Aggregation:              "mean",
			MaxConcurrentExtractions: 4,
			MinConfidence:            0.3,
			ModelPath:                filepath.Join(homeDir, ".local/share/facemark/models"),
		},
		Storage: StorageConfig{
			DataDir:           filepath.Join(homeDir, ".local/share/facemark"),
			EncryptionEnabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(homeDir, ".local/share/facemark/facemark.log"),
		},
	}
}

// Load loads configuration from the specified file.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, err
	}

	return config, nil
}

// LoadDefault tries to load configuration from default locations.
func LoadDefault() (*Config, error) {
	// Try system config first
	if _, err := os.Stat("/etc/facemark/facemark.yaml"); err == nil {
		return Load("/etc/facemark/facemark.yaml")
	}

	// Try user config
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}

	userConfig := filepath.Join(homeDir, ".config/facemark/facemark.yaml")
	if _, err := os.Stat(userConfig); err == nil {
		return Load(userConfig)
	}

	// Return defaults
	return DefaultConfig(), nil
}

// ExpandPath expands ~ and environment variables in a path.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// Validate matching settings
	t := c.Matching.DistanceThreshold
	if t <= 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return fmt.Errorf("distance_threshold must be a positive finite number, got %v", t)
	}

	validMetrics := map[string]bool{"euclidean": true, "cosine": true}
	if !validMetrics[c.Matching.Metric] {
		return fmt.Errorf("invalid metric: %s (must be euclidean or cosine)", c.Matching.Metric)
	}

	validAggregations := map[string]bool{"mean": true, "min": true}
	if !validAggregations[c.Matching.Aggregation] {
		return fmt.Errorf("invalid aggregation: %s (must be mean or min)", c.Matching.Aggregation)
	}

	if c.Matching.MaxConcurrentExtractions < 1 {
		return fmt.Errorf("max_concurrent_extractions must be at least 1, got %d", c.Matching.MaxConcurrentExtractions)
	}
	if c.Matching.MinConfidence < 0 || c.Matching.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be between 0 and 1, got %f", c.Matching.MinConfidence)
	}

	// Validate logging level
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// ExpandPaths expands all paths in the configuration.
func (c *Config) ExpandPaths() {
	c.Matching.ModelPath = ExpandPath(c.Matching.ModelPath)
	c.Storage.DataDir = ExpandPath(c.Storage.DataDir)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// EnsureDirectories creates necessary directories for storage and logging.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Storage.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	imagesDir := filepath.Join(c.Storage.DataDir, "images")
	if err := os.MkdirAll(imagesDir, 0700); err != nil {
		return fmt.Errorf("failed to create images directory: %w", err)
	}

	if err := os.MkdirAll(c.Matching.ModelPath, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	logDir := filepath.Dir(c.Logging.File)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	return nil
}

// DatabasePath returns the path of the roster database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataDir, "roster.db")
}
