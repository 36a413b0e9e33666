// Package config is responsible for finding, parsing and validating the collector
// configuration. Values come from, in increasing priority: the defaults in this
// package, a config file, TMLC_* environment variables and command line flags.
//
// The config file is looked up as config.{yaml,json} in the user directory
// ($HOME/.tml-collection) and in the working directory.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/triple000-it/tml-collection/src/helpers"
)

// ConfigName is the base name of the config file, without extension.
const ConfigName = "config"

// EnvPrefix is the prefix of environment variables overriding config values.
// publish.s3.bucket is set with TMLC_PUBLISH_S3_BUCKET.
const EnvPrefix = "TMLC"

// Publish types.
const (
	PublishNone = "none"
	PublishS3   = "s3"
)

// Config is the configuration of a collector run.
type Config struct {
	OutputDir     string        `mapstructure:"output_dir"`
	ImagesDir     string        `mapstructure:"images_dir"`
	PublicPrefix  string        `mapstructure:"public_prefix"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	MaxImageBytes int64         `mapstructure:"max_image_bytes"`
	UserAgent     string        `mapstructure:"user_agent"`
	ReferenceYear int           `mapstructure:"reference_year"`

	// RosterFile and EventsFile override the built in reference data when set.
	RosterFile string `mapstructure:"roster_file"`
	EventsFile string `mapstructure:"events_file"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// Incremental reuses images already in ImagesDir instead of downloading
	// them again.
	Incremental bool `mapstructure:"incremental"`

	UserPath string  `mapstructure:"user_path"`
	Publish  Publish `mapstructure:"publish"`
}

// Publish selects where image bundles are copied after a run.
type Publish struct {
	// Type is one of: none | s3.
	Type string `mapstructure:"type"`
	S3   S3     `mapstructure:"s3"`
}

// S3 configures an S3 compatible bucket.
type S3 struct {
	Endpoint string `mapstructure:"endpoint"`
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`
	KeyID    string `mapstructure:"key_id"`

	// AccessKeyEnv is the name of the environment variable that holds the
	// secret access key.
	AccessKeyEnv string        `mapstructure:"access_key_env"`
	Prefix       string        `mapstructure:"prefix"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// SetDefaults registers the default value of every key in v. Environment
// variables are only picked up for registered keys.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("output_dir", "output")
	v.SetDefault("images_dir", filepath.Join("output", "images"))
	v.SetDefault("public_prefix", "dj-images")
	v.SetDefault("max_concurrent", 3)
	v.SetDefault("fetch_timeout", 30*time.Second)
	v.SetDefault("max_image_bytes", 10<<20)
	v.SetDefault("user_agent", "")
	v.SetDefault("reference_year", 2024)
	v.SetDefault("roster_file", "")
	v.SetDefault("events_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("incremental", false)
	v.SetDefault("user_path", "")
	v.SetDefault("publish.type", PublishNone)
	v.SetDefault("publish.s3.endpoint", "")
	v.SetDefault("publish.s3.region", "")
	v.SetDefault("publish.s3.bucket", "")
	v.SetDefault("publish.s3.key_id", "")
	v.SetDefault("publish.s3.access_key_env", "TMLC_S3_ACCESS_KEY")
	v.SetDefault("publish.s3.prefix", "")
	v.SetDefault("publish.s3.timeout", time.Minute)
}

// New returns a viper instance with the defaults and the environment set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file into v and returns the resulting configuration.
// When path is empty the file is optional and searched for in the user path
// and the working directory. An explicit path must exist.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		if userPath := UserConfigPath(v.GetString("user_path")); userPath != "" {
			v.AddConfigPath(userPath)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		log.Debug().Msg("no config file found, using defaults")
	} else {
		log.Debug().Str("path", v.ConfigFileUsed()).Msg("using config file")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// UserConfigPath returns the directory where the user's configuration file
// should be. userPath wins when it is absolute.
func UserConfigPath(userPath string) string {
	if len(userPath) > 0 {
		if filepath.IsAbs(userPath) {
			return userPath
		}
		log.Warn().Str("user_path", userPath).Msg("user path is not rooted, ignoring it")
	}

	path, err := helpers.ProjectUserPath()
	if err != nil {
		log.Warn().Err(err).Msg("finding the user path")
		return ""
	}
	return path
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if cfg.ImagesDir == "" {
		return fmt.Errorf("images_dir is required")
	}
	if cfg.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive")
	}
	if cfg.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive")
	}
	if cfg.MaxImageBytes <= 0 {
		return fmt.Errorf("max_image_bytes must be positive")
	}
	if cfg.ReferenceYear <= 0 {
		return fmt.Errorf("reference_year must be positive")
	}
	if strings.Contains(cfg.PublicPrefix, "..") {
		return fmt.Errorf("public_prefix %q must not contain ..", cfg.PublicPrefix)
	}

	switch cfg.LogLevel {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("unknown log_level %q", cfg.LogLevel)
	}

	switch cfg.Publish.Type {
	case PublishNone:
	case PublishS3:
		if cfg.Publish.S3.Bucket == "" {
			return fmt.Errorf("publish.s3.bucket is required")
		}
		if cfg.Publish.S3.Endpoint == "" {
			return fmt.Errorf("publish.s3.endpoint is required")
		}
		if cfg.Publish.S3.Timeout <= 0 {
			return fmt.Errorf("publish.s3.timeout must be positive")
		}
	default:
		return fmt.Errorf("unknown publish.type %q", cfg.Publish.Type)
	}

	return nil
}
