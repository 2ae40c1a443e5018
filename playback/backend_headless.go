// SPDX-License-Identifier: EPL-2.0

//go:build !oto && !beep

package playback

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// headlessBackend is a software device. A clock goroutine pulls one period
// of audio from every voice per tick and discards it, which keeps streaming
// and end-of-stream timing identical to real hardware without needing an
// audio driver.
type headlessBackend struct {
	cfg Config
	log *slog.Logger

	mtx     sync.Mutex
	outputs []*headlessOutput
	// frame is closed and replaced on every tick.
	frame chan struct{}

	stop  chan struct{}
	group errgroup.Group
}

type headlessOutput struct {
	*pullOutput

	be      *headlessBackend
	scratch []byte
}

func newBackend(cfg Config, log *slog.Logger) (backend, error) {
	b := &headlessBackend{
		cfg:   cfg,
		log:   log.With("backend", "headless"),
		frame: make(chan struct{}),
		stop:  make(chan struct{}),
	}
	b.group.Go(b.run)

	return b, nil
}

func (b *headlessBackend) name() string { return "headless" }

func (b *headlessBackend) devices() []Device {
	return []Device{{
		Name:       "headless",
		Default:    true,
		SampleRate: b.cfg.SampleRate,
		Channels:   b.cfg.Channels,
	}}
}

// newOutput accepts any PCM layout; each voice is drained at its own byte
// rate.
func (b *headlessBackend) newOutput(v *Voice) (output, error) {
	frames := int(int64(v.desc.SampleRate) * int64(b.cfg.Period) / int64(time.Second))
	frames = max(frames, 1)

	o := &headlessOutput{
		pullOutput: newPullOutput(v.feeder()),
		be:         b,
		scratch:    make([]byte, frames*v.desc.BlockSize),
	}

	b.mtx.Lock()
	b.outputs = append(b.outputs, o)
	b.mtx.Unlock()

	return o, nil
}

func (o *headlessOutput) close() error {
	o.be.mtx.Lock()
	if i := slices.Index(o.be.outputs, o); i >= 0 {
		o.be.outputs = slices.Delete(o.be.outputs, i, i+1)
	}
	o.be.mtx.Unlock()

	return o.pullOutput.close()
}

func (b *headlessBackend) run() error {
	ticker := time.NewTicker(b.cfg.Period)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return nil
		case <-ticker.C:
			b.tick()
		}
	}
}

func (b *headlessBackend) tick() {
	b.mtx.Lock()
	outputs := slices.Clone(b.outputs)
	b.mtx.Unlock()

	for _, o := range outputs {
		_, _ = o.Read(o.scratch)
	}

	b.mtx.Lock()
	close(b.frame)
	b.frame = make(chan struct{})
	b.mtx.Unlock()
}

func (b *headlessBackend) waitNextUpdate(ctx context.Context) error {
	b.mtx.Lock()
	frame := b.frame
	b.mtx.Unlock()

	select {
	case <-frame:
		return nil
	case <-b.stop:
		return ErrEngineClosed
	case <-ctx.Done():
		return fmt.Errorf("%w", ctx.Err())
	}
}

func (b *headlessBackend) close() error {
	close(b.stop)

	if err := b.group.Wait(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}
