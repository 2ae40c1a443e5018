// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ik5/audstream"
	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/playback"
	"github.com/ik5/audstream/stream"
	"github.com/spf13/cobra"
)

type playOptions struct {
	resident bool
	loop     bool
	volume   float32
	pitch    float32
	fadeIn   time.Duration
	limit    time.Duration
}

func newPlayCommand(a *app) *cobra.Command {
	opts := playOptions{}

	cmd := &cobra.Command{
		Use:   "play FILE...",
		Short: "Play audio files together until they finish",
		Long: `Play one or more WAV or AIFF files at once, each on its own voice.

Files are streamed from disk unless --resident is given. With --loop the
files repeat until interrupted or until --duration elapses.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.play(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.resident, "resident", false, "load files into memory instead of streaming them")
	f.BoolVar(&opts.loop, "loop", false, "repeat files until interrupted")
	f.Float32Var(&opts.volume, "volume", 1, "voice volume, 0 to 1")
	f.Float32Var(&opts.pitch, "pitch", 1, "playback rate multiplier (push devices only)")
	f.DurationVar(&opts.fadeIn, "fade-in", 0, "fade each voice in to full volume over this long")
	f.DurationVar(&opts.limit, "duration", 0, "stop after this long; 0 plays to the end")

	return cmd
}

func (a *app) play(ctx context.Context, out io.Writer, files []string, opts playOptions) (err error) {
	cfg, engineOpts, err := a.engineConfig()
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.limit)
		defer cancel()
	}

	e, err := playback.Create(cfg, engineOpts...)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	slog.Info("engine ready", slog.String("backend", e.Backend()))

	var sources []*stream.FileSource
	defer func() {
		for _, v := range e.Voices() {
			err = errors.Join(err, e.ReleaseVoice(v))
		}
		for _, src := range sources {
			err = errors.Join(err, closeSource(src))
		}
		err = errors.Join(err, e.Close())
	}()

	for _, name := range files {
		src, err := a.openSource(ctx, e, name, opts)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	remaining := 0
	for i, src := range sources {
		name := files[i]

		// Streaming sources loop on their own; resident ones loop in the voice.
		v, err := e.CreateVoice(src, opts.loop && opts.resident)
		if err != nil {
			return fmt.Errorf("creating voice for %s: %w", name, err)
		}

		v.SetVolume(opts.volume)
		v.SetPitch(opts.pitch)
		if opts.fadeIn > 0 {
			fader := playback.CreateEffect[playback.Fader](v)
			fader.FadeIn(float32(1/opts.fadeIn.Seconds()), nil)
		}

		// OnFinished runs on this goroutine, inside e.Update.
		v.OnFinished(func(v *playback.Voice) {
			remaining--
			fmt.Fprintf(out, "finished %s after %s\n", name, v.PositionSeconds())
		})
		v.Play()
		remaining++

		fmt.Fprintf(out, "playing %s (%s)\n", name, src.StreamDesc())
	}

	dt := float32(cfg.Period.Seconds())
	for remaining > 0 {
		if err := e.WaitNextUpdateEvent(ctx); err != nil {
			if ctx.Err() != nil {
				slog.Info("playback interrupted", slog.Any("reason", context.Cause(ctx)))
				break
			}
			return err
		}
		e.Update(dt)
	}

	for _, v := range e.Voices() {
		if n := v.Starvations(); n > 0 {
			slog.Warn("voice starved", slog.Uint64("voice", v.ID()), slog.Uint64("times", n))
		}
	}

	return nil
}

// openSource opens name as a resident or streaming source and waits until
// it can hand out buffers.
func (a *app) openSource(ctx context.Context, e *playback.Engine, name string, opts playOptions) (*stream.FileSource, error) {
	r, err := audstream.OpenReader(a.fs, name)
	if err != nil {
		return nil, err
	}

	if opts.resident {
		src := e.NewResidentSource(r)
		if err := src.OpenStream(nil); err != nil {
			return nil, fmt.Errorf("loading %s: %w", name, err)
		}
		return src, nil
	}

	src := e.NewStreamSource(r, opts.loop)
	opened := make(chan bool, 1)
	if err := src.OpenStream(func(_ audio.Source, ok bool) { opened <- ok }); err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}

	select {
	case ok := <-opened:
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrOpenFailed)
		}
		return src, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("opening %s: %w", name, ctx.Err())
	}
}

// closeSource closes src and, for streaming sources, waits for the worker
// to finish with it.
func closeSource(src *stream.FileSource) error {
	if src.State() != stream.Open {
		return nil
	}

	closed := make(chan struct{})
	if err := src.CloseStream(func(audio.Source, bool) { close(closed) }); err != nil {
		return fmt.Errorf("closing %s: %w", src.Reader().Name(), err)
	}

	select {
	case <-closed:
		return nil
	case <-time.After(sourceCloseTimeout):
		return fmt.Errorf("%s: %w", src.Reader().Name(), ErrCloseTimeout)
	}
}
