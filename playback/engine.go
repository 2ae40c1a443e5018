// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/logger"
	"github.com/ik5/audstream/stream"
)

// Config describes the output device.
type Config struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	// Period is the device update interval: the headless clock tick and
	// the hardware buffer length on real devices.
	Period time.Duration
}

func DefaultConfig() Config {
	return Config{
		SampleRate:    44100,
		Channels:      2,
		BitsPerSample: 16,
		Period:        10 * time.Millisecond,
	}
}

func (c Config) Validate() error {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return fmt.Errorf("%d channels at %d Hz: %w", c.Channels, c.SampleRate, ErrInvalidConfig)
	}
	if audio.FormatForBits(c.BitsPerSample) == audio.FormatUnknown {
		return fmt.Errorf("%d bits per sample: %w", c.BitsPerSample, ErrInvalidConfig)
	}
	if c.Period <= 0 {
		return fmt.Errorf("period %s: %w", c.Period, ErrInvalidConfig)
	}

	return nil
}

// matches reports whether d can be played without conversion.
func (c Config) matches(d *audio.StreamDesc) bool {
	return d.SampleRate == c.SampleRate && d.Channels == c.Channels && d.BitsPerSample == c.BitsPerSample
}

// Device is an output device reported by EnumerateDevices.
type Device struct {
	Name       string
	Default    bool
	SampleRate int
	Channels   int
}

// backend is implemented once per build; see backend_*.go.
type backend interface {
	name() string
	devices() []Device
	newOutput(v *Voice) (output, error)
	// waitNextUpdate blocks until the device is ready for the next frame.
	waitNextUpdate(ctx context.Context) error
	close() error
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithWorkerOptions configures the streaming worker the engine creates.
func WithWorkerOptions(opts ...stream.WorkerOption) Option {
	return func(e *Engine) {
		e.workerOpts = append(e.workerOpts, opts...)
	}
}

// WithSourceOptions sets defaults for sources built by the engine.
func WithSourceOptions(opts ...stream.Option) Option {
	return func(e *Engine) {
		e.sourceOpts = append(e.sourceOpts, opts...)
	}
}

// Engine owns the voices and the streaming worker, and drives both from
// the host's frame loop.
type Engine struct {
	cfg        Config
	be         backend
	log        *slog.Logger
	workerOpts []stream.WorkerOption
	sourceOpts []stream.Option

	mtx    *sync.Mutex
	voices []*Voice
	nextID uint64
	worker *stream.Worker
	closed bool
}

// Create opens the device compiled into this build.
func Create(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := newEngine(cfg, opts)

	be, err := newBackend(cfg, e.log)
	if err != nil {
		return nil, fmt.Errorf("opening device: %w", err)
	}
	e.be = be
	e.log.Info("engine created", "backend", be.name(), "rate", cfg.SampleRate, "channels", cfg.Channels)

	return e, nil
}

func newEngine(cfg Config, opts []Option) *Engine {
	e := &Engine{
		cfg: cfg,
		mtx: &sync.Mutex{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.WithComponent("playback")
	}

	return e
}

func (e *Engine) Config() Config { return e.cfg }

// Backend names the device implementation compiled in.
func (e *Engine) Backend() string { return e.be.name() }

func (e *Engine) EnumerateDevices() []Device { return e.be.devices() }

// Worker returns the streaming worker, creating it on first use.
func (e *Engine) Worker() *stream.Worker {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if e.worker == nil {
		opts := append([]stream.WorkerOption{stream.WithWorkerLogger(e.log.With("component", "stream.worker"))}, e.workerOpts...)
		e.worker = stream.NewWorker(opts...)
		if e.closed {
			// Sources built after Close fail to open instead of leaking a
			// goroutine.
			_ = e.worker.Close()
		}
	}

	return e.worker
}

// NewStreamSource builds a streaming source on the engine's worker.
func (e *Engine) NewStreamSource(r audio.FileReader, loop bool, opts ...stream.Option) *stream.FileSource {
	return stream.NewStreamSource(e.Worker(), r, loop, e.sourceOptions(opts)...)
}

// NewResidentSource builds a resident source.
func (e *Engine) NewResidentSource(r audio.FileReader, opts ...stream.Option) *stream.FileSource {
	return stream.NewResidentSource(r, e.sourceOptions(opts)...)
}

func (e *Engine) sourceOptions(opts []stream.Option) []stream.Option {
	all := []stream.Option{stream.WithLogger(e.log.With("component", "stream.source"))}
	all = append(all, e.sourceOpts...)

	return append(all, opts...)
}

// CreateVoice binds a voice to an open source. loop only matters for
// resident sources; streaming sources decide looping themselves. The voice
// queues its first buffers right away and starts stopped.
func (e *Engine) CreateVoice(src audio.Source, loop bool) (*Voice, error) {
	desc := src.StreamDesc()
	if desc == nil {
		return nil, audio.ErrStreamNotOpen
	}

	e.mtx.Lock()
	if e.closed {
		e.mtx.Unlock()
		return nil, ErrEngineClosed
	}
	e.nextID++
	v := newVoice(e.nextID, src, *desc, loop, e.log)
	e.mtx.Unlock()

	out, err := e.be.newOutput(v)
	if err != nil {
		return nil, fmt.Errorf("creating voice for %s: %w", desc, err)
	}
	v.out = out

	src.Lock()

	e.mtx.Lock()
	e.voices = append(e.voices, v)
	e.mtx.Unlock()

	v.out.prime()
	v.log.Debug("voice created", "desc", desc.String(), "loop", loop)

	return v, nil
}

// ReleaseVoice stops v and frees its device resources.
func (e *Engine) ReleaseVoice(v *Voice) error {
	e.mtx.Lock()
	i := slices.Index(e.voices, v)
	if i < 0 {
		e.mtx.Unlock()
		return ErrVoiceNotFound
	}
	e.voices = slices.Delete(e.voices, i, i+1)
	e.mtx.Unlock()

	err := v.release()
	v.src.Unlock()

	return err
}

// Voices returns the live voices.
func (e *Engine) Voices() []*Voice {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	return slices.Clone(e.voices)
}

// Update advances every voice by dt seconds. Voice callbacks run without
// the registry lock held, so they may release voices.
func (e *Engine) Update(dt float32) {
	for _, v := range e.Voices() {
		v.Update(dt)
	}
}

// WaitNextUpdateEvent blocks until the device is ready for the next frame
// or ctx is done.
func (e *Engine) WaitNextUpdateEvent(ctx context.Context) error {
	return e.be.waitNextUpdate(ctx)
}

// Close releases all voices, stops the streaming worker and closes the
// device. Sources are left to their owners.
func (e *Engine) Close() error {
	e.mtx.Lock()
	if e.closed {
		e.mtx.Unlock()
		return nil
	}
	e.closed = true
	voices := e.voices
	e.voices = nil
	worker := e.worker
	e.mtx.Unlock()

	var errs []error
	for _, v := range voices {
		if err := v.release(); err != nil {
			errs = append(errs, err)
		}
		v.src.Unlock()
	}

	if worker != nil {
		if err := worker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("stopping worker: %w", err))
		}
	}

	if err := e.be.close(); err != nil {
		errs = append(errs, fmt.Errorf("closing device: %w", err))
	}
	e.log.Info("engine closed", "voices", len(voices))

	return errors.Join(errs...)
}

// waitPeriod is waitNextUpdate for devices without a frame signal.
func waitPeriod(ctx context.Context, period time.Duration) error {
	t := time.NewTimer(period)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w", ctx.Err())
	}
}
