// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audstream"
	"github.com/spf13/cobra"
)

func newInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE...",
		Short: "Print the stream format of audio files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, name := range args {
				if err := a.info(cmd.OutOrStdout(), name); err != nil {
					errs = append(errs, err)
				}
			}

			return errors.Join(errs...)
		},
	}
}

func (a *app) info(out io.Writer, name string) error {
	r, err := audstream.OpenReader(a.fs, name)
	if err != nil {
		return err
	}

	if err := r.Open(); err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer r.Close()

	d := r.StreamDesc()
	fmt.Fprintf(out, "%s:\n", name)
	fmt.Fprintf(out, "  format:      %s\n", d.Format)
	fmt.Fprintf(out, "  channels:    %d\n", d.Channels)
	fmt.Fprintf(out, "  sample rate: %d Hz\n", d.SampleRate)
	fmt.Fprintf(out, "  block size:  %d bytes\n", d.BlockSize)
	fmt.Fprintf(out, "  frames:      %d\n", d.SizeSamples)
	fmt.Fprintf(out, "  duration:    %s\n", d.Duration())
	fmt.Fprintf(out, "  data bytes:  %d\n", d.DecodedBytes)

	return nil
}
