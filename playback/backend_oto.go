// SPDX-License-Identifier: EPL-2.0

//go:build oto && !beep

package playback

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ebitengine/oto/v3"
)

// otoBackend plays through the system mixer with oto. oto pulls from each
// voice's output on its own goroutine. Only one oto context may exist per
// process, so an Engine on this backend cannot be recreated after Close.
type otoBackend struct {
	cfg Config
	log *slog.Logger
	ctx *oto.Context
}

var _ player = (*oto.Player)(nil)

func otoFormat(bits int) (oto.Format, error) {
	switch bits {
	case 8:
		return oto.FormatUnsignedInt8, nil
	case 16:
		return oto.FormatSignedInt16LE, nil
	default:
		return 0, fmt.Errorf("%d bits per sample: %w", bits, ErrFormatMismatch)
	}
}

func newBackend(cfg Config, log *slog.Logger) (backend, error) {
	format, err := otoFormat(cfg.BitsPerSample)
	if err != nil {
		return nil, err
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       format,
		BufferSize:   cfg.Period,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	<-ready

	return &otoBackend{
		cfg: cfg,
		log: log.With("backend", "oto"),
		ctx: ctx,
	}, nil
}

func (b *otoBackend) name() string { return "oto" }

// devices reports the system default output; oto does not enumerate.
func (b *otoBackend) devices() []Device {
	return []Device{{
		Name:       "default",
		Default:    true,
		SampleRate: b.cfg.SampleRate,
		Channels:   b.cfg.Channels,
	}}
}

// newOutput needs the stream to match the context format, since oto does
// not convert.
func (b *otoBackend) newOutput(v *Voice) (output, error) {
	if !b.cfg.matches(&v.desc) {
		return nil, fmt.Errorf("%s on a %d Hz %dch %d-bit device: %w",
			v.desc.String(), b.cfg.SampleRate, b.cfg.Channels, b.cfg.BitsPerSample, ErrFormatMismatch)
	}

	o := newPullOutput(v.feeder())
	o.player = b.ctx.NewPlayer(o)

	return o, nil
}

func (b *otoBackend) waitNextUpdate(ctx context.Context) error {
	return waitPeriod(ctx, b.cfg.Period)
}

func (b *otoBackend) close() error {
	if err := b.ctx.Suspend(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}
