// Package config loads genfan settings from a YAML file. A missing file is
// not an error; defaults apply and individual fields may be overridden.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default retention caps per generation domain.
const (
	DefaultImageCap         = 100
	DefaultAudioCap         = 50
	DefaultTranscriptionCap = 200
)

// RetentionConfig caps how many history entries each domain keeps. Zero or
// negative means unbounded. Domains beyond the three built-in ones are
// preserved in Extra, keyed by domain name.
type RetentionConfig struct {
	Images         int            `yaml:"images"`
	Audio          int            `yaml:"audio"`
	Transcriptions int            `yaml:"transcriptions"`
	Extra          map[string]int `yaml:",inline"`
}

// S3Config configures the optional S3 blob backend. The backend activates
// only when Bucket is set.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// StorageConfig selects where history metadata and binary payloads live.
type StorageConfig struct {
	// Dir is the base directory for file-backed history and blobs. Empty
	// disables persistence; stores degrade to no-ops or memory.
	Dir string `yaml:"dir"`

	S3 S3Config `yaml:"s3"`
}

// LoggingConfig mirrors logging.LoggerConfig in YAML form.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the root configuration document.
type Config struct {
	Retention RetentionConfig `yaml:"retention"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Retention: RetentionConfig{
			Images:         DefaultImageCap,
			Audio:          DefaultAudioCap,
			Transcriptions: DefaultTranscriptionCap,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path. A missing file yields Default; a present
// but unparseable file is an error. Fields absent from the file keep their
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// CapFor maps a generation domain name to its retention cap. Domains beyond
// the built-in ones read from Retention.Extra; a domain configured nowhere
// gets the default image cap.
func (c Config) CapFor(domain string) int {
	switch domain {
	case "images":
		return c.Retention.Images
	case "audio":
		return c.Retention.Audio
	case "transcriptions":
		return c.Retention.Transcriptions
	}
	if limit, ok := c.Retention.Extra[domain]; ok {
		return limit
	}
	return DefaultImageCap
}
