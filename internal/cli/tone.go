// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"fmt"
	"math"
	"time"

	"github.com/ik5/audstream/formats/wav"
	"github.com/ik5/audstream/utils"
	"github.com/spf13/cobra"
)

type toneOptions struct {
	frequency float64
	amplitude float64
	duration  time.Duration
	rate      int
	channels  int
}

func newToneCommand(a *app) *cobra.Command {
	opts := toneOptions{}

	cmd := &cobra.Command{
		Use:   "tone OUTPUT",
		Short: "Write a sine tone as a 16-bit PCM WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.tone(args[0], opts); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.frequency, "freq", 440, "tone frequency in Hz")
	f.Float64Var(&opts.amplitude, "amplitude", 0.5, "peak amplitude, 0 to 1")
	f.DurationVar(&opts.duration, "duration", time.Second, "tone length")
	f.IntVar(&opts.rate, "rate", 44100, "sample rate")
	f.IntVar(&opts.channels, "channels", 1, "channel count")

	return cmd
}

func (a *app) tone(path string, opts toneOptions) error {
	if opts.rate <= 0 || opts.channels <= 0 || opts.duration <= 0 {
		return fmt.Errorf("%d Hz, %d channels, %s: %w", opts.rate, opts.channels, opts.duration, ErrBadTone)
	}

	frames := int(opts.duration * time.Duration(opts.rate) / time.Second)
	samples := make([]int16, 0, frames*opts.channels)
	for i := range frames {
		t := float64(i) / float64(opts.rate)
		s := utils.Float32ToInt16(float32(opts.amplitude * math.Sin(2*math.Pi*opts.frequency*t)))
		for range opts.channels {
			samples = append(samples, s)
		}
	}

	f, err := a.fs.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if err := wav.WritePCM16(f, opts.rate, opts.channels, samples); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}

	return nil
}
