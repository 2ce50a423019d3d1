// Package cfg loads the dashboard configuration from an optional YAML file
// with environment-variable overrides applied on top. Every knob has a
// default; the only hard requirement is that at least one artifact source
// (directory, bundle file, or base URL) is configured.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	ArtifactDir  string
	BundlePath   string
	ArtifactURL  string
	FetchTimeout time.Duration

	ExplainTopN int

	LogLevel string
	Pretty   bool
}

type ConfigFile struct {
	Server struct {
		Listen          string `yaml:"listen"`
		ReadTimeout     string `yaml:"readTimeout"`
		WriteTimeout    string `yaml:"writeTimeout"`
		ShutdownTimeout string `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Artifacts struct {
		Dir          string `yaml:"dir"`
		Bundle       string `yaml:"bundle"`
		URL          string `yaml:"url"`
		FetchTimeout string `yaml:"fetchTimeout"`
	} `yaml:"artifacts"`

	Explain struct {
		TopN int `yaml:"topN"`
	} `yaml:"explain"`

	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
}

// Load reads the YAML file named by CONFIG_FILE (default "config.yaml",
// missing file is fine), applies environment overrides, fills defaults and
// validates the result.
func Load() (Settings, error) {
	path := getEnvOrDefault("CONFIG_FILE", "config.yaml")

	var file ConfigFile
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Settings{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// env-only configuration
	default:
		return Settings{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	settings := Settings{
		ListenAddr:      getEnvOrDefault("LISTEN_ADDR", stringOr(file.Server.Listen, ":8080")),
		ReadTimeout:     getDurationFromEnvOrConfig("READ_TIMEOUT", file.Server.ReadTimeout, 10*time.Second),
		WriteTimeout:    getDurationFromEnvOrConfig("WRITE_TIMEOUT", file.Server.WriteTimeout, 30*time.Second),
		ShutdownTimeout: getDurationFromEnvOrConfig("SHUTDOWN_TIMEOUT", file.Server.ShutdownTimeout, 10*time.Second),
		ArtifactDir:     getEnvOrDefault("ARTIFACT_DIR", file.Artifacts.Dir),
		BundlePath:      getEnvOrDefault("ARTIFACT_BUNDLE", file.Artifacts.Bundle),
		ArtifactURL:     getEnvOrDefault("ARTIFACT_URL", file.Artifacts.URL),
		FetchTimeout:    getDurationFromEnvOrConfig("ARTIFACT_FETCH_TIMEOUT", file.Artifacts.FetchTimeout, 5*time.Second),
		ExplainTopN:     getIntFromEnvOrConfig("EXPLAIN_TOP_N", file.Explain.TopN, 10),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", stringOr(file.Logging.Level, "info")),
		Pretty:          getBoolFromEnvOrConfig("LOG_PRETTY", file.Logging.Pretty),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

// HasArtifactSource reports whether any artifact source is configured.
func (s *Settings) HasArtifactSource() bool {
	return s.ArtifactDir != "" || s.BundlePath != "" || s.ArtifactURL != ""
}

func validateSettings(settings *Settings) error {
	if settings.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if !settings.HasArtifactSource() {
		return fmt.Errorf("no artifact source configured: set artifacts.dir, artifacts.bundle or artifacts.url")
	}
	if settings.ReadTimeout <= 0 || settings.ReadTimeout > time.Minute {
		return fmt.Errorf("read timeout must be between 0 and 1m, got %v", settings.ReadTimeout)
	}
	if settings.WriteTimeout <= 0 || settings.WriteTimeout > time.Minute {
		return fmt.Errorf("write timeout must be between 0 and 1m, got %v", settings.WriteTimeout)
	}
	if settings.ShutdownTimeout <= 0 || settings.ShutdownTimeout > time.Minute {
		return fmt.Errorf("shutdown timeout must be between 0 and 1m, got %v", settings.ShutdownTimeout)
	}
	if settings.FetchTimeout <= 0 || settings.FetchTimeout > time.Minute {
		return fmt.Errorf("artifact fetch timeout must be between 0 and 1m, got %v", settings.FetchTimeout)
	}
	if settings.ExplainTopN <= 0 || settings.ExplainTopN > 100 {
		return fmt.Errorf("explain top-N must be between 1 and 100, got %d", settings.ExplainTopN)
	}
	return nil
}

func stringOr(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationFromEnvOrConfig(key, configValue string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	if configValue != "" {
		if d, err := time.ParseDuration(configValue); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return configValue
}
