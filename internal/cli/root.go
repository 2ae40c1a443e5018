// SPDX-License-Identifier: EPL-2.0

// Package cli implements the audstream command line.
package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/ik5/audstream/config"
	"github.com/ik5/audstream/logger"
	"github.com/ik5/audstream/playback"
	"github.com/ik5/audstream/stream"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app is the state shared by every command of one invocation.
type app struct {
	fs  afero.Fs
	v   *viper.Viper
	cfg *config.Config

	cfgFile string
	verbose bool
}

// NewRootCommand builds the command tree. Files are read and written on fs
// and settings resolved through v.
func NewRootCommand(fs afero.Fs, v *viper.Viper) *cobra.Command {
	a := &app{fs: fs, v: v}
	def := playback.DefaultConfig()

	root := &cobra.Command{
		Use:   "audstream",
		Short: "Play WAV and AIFF files from memory or streamed from disk",
		Long: `audstream plays PCM audio files through a single output device.

Short clips can be loaded whole into memory (--resident); anything else is
streamed from disk in chunks by a background worker. The device is chosen
at build time: headless by default, oto or beep with the matching build tag.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.loadConfig,
	}

	// Global flags
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ./audstream.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.Int("rate", def.SampleRate, "device sample rate")
	pf.Int("channels", def.Channels, "device channels")
	pf.Int("bits", def.BitsPerSample, "device bits per sample")
	pf.Duration("period", def.Period, "device update period")
	pf.Int("chunk-size", stream.DefaultChunkSize, "streaming chunk size in bytes")
	pf.Int("queue-depth", stream.DefaultQueueDepth, "streaming worker job queue depth")

	// Bind flags to viper
	bind := map[string]string{
		"logging.level":          "log-level",
		"logging.format":         "log-format",
		"engine.sample_rate":     "rate",
		"engine.channels":        "channels",
		"engine.bits_per_sample": "bits",
		"engine.period":          "period",
		"stream.chunk_size":      "chunk-size",
		"stream.queue_depth":     "queue-depth",
	}
	for key, flag := range bind {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newPlayCommand(a),
		newInfoCommand(a),
		newToneCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)

	return root
}

// Execute runs the command line against the OS filesystem and the global
// viper instance.
func Execute() {
	err := NewRootCommand(afero.NewOsFs(), viper.GetViper()).Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and sets up logging before any
// command runs. Validation is left to the commands so that "config
// validate" can report problems itself.
func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	}
	if a.verbose {
		a.v.Set("logging.level", "debug")
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		_ = logger.Setup("info", "text")
		slog.Warn("falling back to text logging", slog.Any("error", err))
	}
	slog.Debug("configuration loaded", slog.String("command", cmd.Name()), slog.Duration("period", cfg.Engine.Period))

	return nil
}

// engineConfig validates the loaded configuration for commands that open
// the device.
func (a *app) engineConfig() (playback.Config, []playback.Option, error) {
	if err := a.cfg.Validate(); err != nil {
		return playback.Config{}, nil, err
	}

	return a.cfg.EngineConfig(), a.cfg.EngineOptions(), nil
}

// sourceCloseTimeout bounds the wait for a streaming source to close on the
// worker.
const sourceCloseTimeout = 5 * time.Second
