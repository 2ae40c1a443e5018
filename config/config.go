// SPDX-License-Identifier: EPL-2.0

// Package config loads audstream settings from a YAML file, AUDSTREAM_*
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/playback"
	"github.com/ik5/audstream/stream"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, so engine.period
// is read from AUDSTREAM_ENGINE_PERIOD.
const EnvPrefix = "AUDSTREAM"

// Config holds all configuration for the application
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EngineConfig describes the output device.
type EngineConfig struct {
	SampleRate    int           `mapstructure:"sample_rate"`
	Channels      int           `mapstructure:"channels"`
	BitsPerSample int           `mapstructure:"bits_per_sample"`
	Period        time.Duration `mapstructure:"period"`
}

// StreamConfig tunes streaming sources and their worker.
type StreamConfig struct {
	ChunkSize  int `mapstructure:"chunk_size"`
	QueueDepth int `mapstructure:"queue_depth"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	def := playback.DefaultConfig()

	v.SetDefault("engine.sample_rate", def.SampleRate)
	v.SetDefault("engine.channels", def.Channels)
	v.SetDefault("engine.bits_per_sample", def.BitsPerSample)
	v.SetDefault("engine.period", def.Period.String())
	v.SetDefault("stream.chunk_size", stream.DefaultChunkSize)
	v.SetDefault("stream.queue_depth", stream.DefaultQueueDepth)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// LoadConfig loads configuration from file and environment variables
// through the global viper instance, which the CLI binds its flags to.
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper())
}

// Load reads configuration through v. Without an explicit config file it
// looks for audstream.yaml in the working directory, $HOME/.audstream and
// /etc/audstream; finding none is not an error.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	v.SetConfigName("audstream")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.audstream")
	v.AddConfigPath("/etc/audstream")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Debug("No config file found, using defaults and environment variables")
	} else {
		slog.Info("Using config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

// Validate reports the first invalid setting as a *ConfigError.
func (c *Config) Validate() error {
	switch {
	case c.Engine.SampleRate <= 0:
		return &ConfigError{Field: "engine.sample_rate", Message: "must be positive"}
	case c.Engine.Channels <= 0:
		return &ConfigError{Field: "engine.channels", Message: "must be positive"}
	case audio.FormatForBits(c.Engine.BitsPerSample) == audio.FormatUnknown:
		return &ConfigError{Field: "engine.bits_per_sample", Message: "must be 8, 16, 24 or 32"}
	case c.Engine.Period <= 0:
		return &ConfigError{Field: "engine.period", Message: "must be positive"}
	case c.Stream.ChunkSize <= 0:
		return &ConfigError{Field: "stream.chunk_size", Message: "must be positive"}
	case c.Stream.QueueDepth <= 0:
		return &ConfigError{Field: "stream.queue_depth", Message: "must be positive"}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}

	return nil
}

// EngineConfig converts the engine section for playback.Create.
func (c *Config) EngineConfig() playback.Config {
	return playback.Config{
		SampleRate:    c.Engine.SampleRate,
		Channels:      c.Engine.Channels,
		BitsPerSample: c.Engine.BitsPerSample,
		Period:        c.Engine.Period,
	}
}

// EngineOptions carries the stream section into the engine's worker and
// sources.
func (c *Config) EngineOptions() []playback.Option {
	return []playback.Option{
		playback.WithWorkerOptions(stream.WithQueueDepth(c.Stream.QueueDepth)),
		playback.WithSourceOptions(stream.WithChunkSize(c.Stream.ChunkSize)),
	}
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
