// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newConfigCommand(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
		Long:  "Commands for managing and validating audstream configuration.",
	}

	// validate checks the current configuration
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		Long:  "Validate the current configuration file, environment variables and flags.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				slog.Error("Configuration validation failed", slog.Any("error", err))
				return err
			}

			slog.Info("Configuration is valid")
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return nil
		},
	}

	// show prints the resolved configuration
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the configuration values resolved from file, environment variables and flags.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg := a.cfg

			if used := a.v.ConfigFileUsed(); used != "" {
				fmt.Fprintf(out, "Config file: %s\n", used)
			}
			fmt.Fprintln(out, "Current Configuration:")
			fmt.Fprintf(out, "  Engine:\n")
			fmt.Fprintf(out, "    Sample rate: %d\n", cfg.Engine.SampleRate)
			fmt.Fprintf(out, "    Channels: %d\n", cfg.Engine.Channels)
			fmt.Fprintf(out, "    Bits per sample: %d\n", cfg.Engine.BitsPerSample)
			fmt.Fprintf(out, "    Period: %s\n", cfg.Engine.Period)
			fmt.Fprintf(out, "  Stream:\n")
			fmt.Fprintf(out, "    Chunk size: %d\n", cfg.Stream.ChunkSize)
			fmt.Fprintf(out, "    Queue depth: %d\n", cfg.Stream.QueueDepth)
			fmt.Fprintf(out, "  Logging:\n")
			fmt.Fprintf(out, "    Level: %s\n", cfg.Logging.Level)
			fmt.Fprintf(out, "    Format: %s\n", cfg.Logging.Format)

			return nil
		},
	}

	configCmd.AddCommand(validateCmd, showCmd)

	return configCmd
}
