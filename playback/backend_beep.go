// SPDX-License-Identifier: EPL-2.0

//go:build beep

package playback

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/utils"
	"golang.org/x/sync/errgroup"
)

const resampleQuality = 4

// beepBackend plays through the beep speaker. Buffers are pushed onto a
// per-voice queue the speaker streams from; each voice is resampled to the
// speaker rate, which also gives it pitch control.
type beepBackend struct {
	cfg  Config
	log  *slog.Logger
	rate beep.SampleRate
}

func newBackend(cfg Config, log *slog.Logger) (backend, error) {
	rate := beep.SampleRate(cfg.SampleRate)
	if err := speaker.Init(rate, rate.N(cfg.Period)); err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return &beepBackend{
		cfg:  cfg,
		log:  log.With("backend", "beep"),
		rate: rate,
	}, nil
}

func (b *beepBackend) name() string { return "beep" }

func (b *beepBackend) devices() []Device {
	return []Device{{
		Name:       "speaker",
		Default:    true,
		SampleRate: b.cfg.SampleRate,
		Channels:   2,
	}}
}

func (b *beepBackend) newOutput(v *Voice) (output, error) {
	return newPushOutput(v.feeder(), newSpeakerSink(v.desc, b.rate)), nil
}

func (b *beepBackend) waitNextUpdate(ctx context.Context) error {
	return waitPeriod(ctx, b.cfg.Period)
}

func (b *beepBackend) close() error {
	speaker.Clear()
	speaker.Close()

	return nil
}

type queued struct {
	data []byte
	pos  int
	done func()
}

// speakerSink is a beep.Streamer over queued PCM buffers. Stream runs on
// the speaker goroutine with the speaker lock held; every other access
// takes speaker.Lock.
type speakerSink struct {
	desc   audio.StreamDesc
	ratio  float64
	queue  []queued
	closed bool

	ctrl      *beep.Ctrl
	volume    *effects.Volume
	resampler *beep.Resampler

	// Completions are run off the speaker goroutine, since they submit the
	// next buffer and that needs the speaker lock.
	doneMtx sync.Mutex
	pending []func()
	notify  chan struct{}
	stop    chan struct{}
	group   errgroup.Group
}

var _ beep.Streamer = (*speakerSink)(nil)

func newSpeakerSink(desc audio.StreamDesc, rate beep.SampleRate) *speakerSink {
	s := &speakerSink{
		desc:   desc,
		ratio:  float64(desc.SampleRate) / float64(rate),
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}

	s.resampler = beep.ResampleRatio(resampleQuality, s.ratio, s)
	s.volume = &effects.Volume{Streamer: s.resampler, Base: 2}
	s.ctrl = &beep.Ctrl{Streamer: s.volume, Paused: true}

	s.group.Go(s.dispatch)
	speaker.Play(s.ctrl)

	return s
}

// Stream decodes queued frames to stereo. An empty queue streams silence so
// the sink stays on the speaker mixer.
func (s *speakerSink) Stream(samples [][2]float64) (int, bool) {
	if s.closed {
		return 0, false
	}

	block := s.desc.BlockSize
	for i := range samples {
		if len(s.queue) == 0 {
			clear(samples[i:])
			break
		}

		head := &s.queue[0]
		samples[i] = utils.FrameToStereo(head.data[head.pos:], s.desc.Channels, s.desc.BitsPerSample)
		head.pos += block

		if head.pos+block > len(head.data) {
			s.finished(head.done)
			s.queue[0] = queued{}
			s.queue = s.queue[1:]
		}
	}

	return len(samples), true
}

func (s *speakerSink) Err() error { return nil }

func (s *speakerSink) finished(done func()) {
	s.doneMtx.Lock()
	s.pending = append(s.pending, done)
	s.doneMtx.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *speakerSink) dispatch() error {
	for {
		select {
		case <-s.stop:
			return nil
		case <-s.notify:
		}

		s.doneMtx.Lock()
		pending := s.pending
		s.pending = nil
		s.doneMtx.Unlock()

		for _, done := range pending {
			done()
		}
	}
}

func (s *speakerSink) enqueue(data []byte, done func()) {
	speaker.Lock()
	s.queue = append(s.queue, queued{data: data, done: done})
	speaker.Unlock()
}

func (s *speakerSink) play() {
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
}

func (s *speakerSink) pause() {
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
}

// setVolume maps linear gain onto the exponential volume effect.
func (s *speakerSink) setVolume(vol float32) {
	speaker.Lock()
	defer speaker.Unlock()

	if vol <= 0 {
		s.volume.Silent = true
		return
	}
	s.volume.Silent = false
	s.volume.Volume = math.Log2(float64(vol))
}

func (s *speakerSink) setPitch(pitch float32) {
	if pitch <= 0 {
		return
	}

	speaker.Lock()
	s.resampler.SetRatio(s.ratio * float64(pitch))
	speaker.Unlock()
}

func (s *speakerSink) clear() {
	speaker.Lock()
	clear(s.queue)
	s.queue = s.queue[:0]
	speaker.Unlock()
}

func (s *speakerSink) close() error {
	speaker.Lock()
	s.closed = true
	s.queue = nil
	speaker.Unlock()

	close(s.stop)

	if err := s.group.Wait(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}
