// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/buffer"
)

// State of a voice.
type State int32

const (
	Stopped State = iota
	Paused
	Playing
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// Voice plays one source through the engine's device. Voices are created
// and released by the Engine.
type Voice struct {
	id   uint64
	src  audio.Source
	desc audio.StreamDesc
	loop bool
	out  output
	log  *slog.Logger

	state atomic.Int32

	mtx        *sync.Mutex
	effects    []Effect
	volume     float32
	pitch      float32
	onFinished func(*Voice)
}

var _ audio.BufferConsumer = (*Voice)(nil)

func newVoice(id uint64, src audio.Source, desc audio.StreamDesc, loop bool, log *slog.Logger) *Voice {
	return &Voice{
		id:     id,
		src:    src,
		desc:   desc,
		loop:   loop,
		log:    log.With("voice", id),
		mtx:    &sync.Mutex{},
		volume: 1,
		pitch:  1,
	}
}

func (v *Voice) feeder() *feeder {
	return &feeder{
		src:      v.src,
		consumer: v,
		loop:     v.loop,
		log:      v.log,
	}
}

// SubmitBuffer hands b to the device. Sources call it from RequestBuffer.
func (v *Voice) SubmitBuffer(b *buffer.Buffer) { v.out.submit(b) }

func (v *Voice) ID() uint64 { return v.id }

func (v *Voice) Source() audio.Source { return v.src }

func (v *Voice) Loop() bool { return v.loop }

func (v *Voice) State() State { return State(v.state.Load()) }

// Play starts playback. A stopped voice starts from whatever its source
// hands out next.
func (v *Voice) Play() {
	switch v.State() {
	case Playing:
		return
	case Stopped:
		v.out.prime()
	}

	v.out.start()
	v.state.Store(int32(Playing))
}

// Stop halts playback and drops any queued buffers.
func (v *Voice) Stop() {
	v.out.halt()
	v.out.flush()
	v.state.Store(int32(Stopped))
}

func (v *Voice) Pause() {
	if v.State() != Playing {
		return
	}

	v.out.halt()
	v.state.Store(int32(Paused))
}

func (v *Voice) Resume() {
	if v.State() != Paused {
		return
	}

	v.out.start()
	v.state.Store(int32(Playing))
}

// OnFinished registers fn to run on the engine thread when a voice stops
// because its source ran out.
func (v *Voice) OnFinished(fn func(*Voice)) {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	v.onFinished = fn
}

func (v *Voice) SetVolume(vol float32) {
	v.mtx.Lock()
	v.volume = vol
	v.mtx.Unlock()

	v.out.setVolume(vol)
}

func (v *Voice) Volume() float32 {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	return v.volume
}

// SetPitch sets the playback rate multiplier. Only push devices honor it.
func (v *Voice) SetPitch(pitch float32) {
	v.mtx.Lock()
	v.pitch = pitch
	v.mtx.Unlock()

	v.out.setPitch(pitch)
}

func (v *Voice) Pitch() float32 {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	return v.pitch
}

// BufferedBytes is the amount of queued audio not yet played.
func (v *Voice) BufferedBytes() int { return v.out.bufferedBytes() }

// PositionSamples is the number of frames played since the voice was
// created.
func (v *Voice) PositionSamples() int64 {
	return v.desc.BytesToSamples(v.out.playedBytes())
}

// PositionSeconds is PositionSamples as time.
func (v *Voice) PositionSeconds() time.Duration {
	if v.desc.SampleRate == 0 {
		return 0
	}

	return time.Duration(v.PositionSamples()) * time.Second / time.Duration(v.desc.SampleRate)
}

// Starvations counts device requests that found no data queued.
func (v *Voice) Starvations() uint64 { return v.out.starvations() }

// Update advances the voice by dt seconds. It does nothing unless the voice
// is playing. Effects run in attach order, each updated then applied, over
// a snapshot of the list so they may attach or detach effects themselves.
func (v *Voice) Update(dt float32) {
	if v.State() != Playing {
		return
	}

	v.out.update()
	if v.out.ended() {
		v.finish()
		return
	}

	v.mtx.Lock()
	effects := slices.Clone(v.effects)
	v.mtx.Unlock()

	for _, e := range effects {
		e.Update(dt)
		e.Apply(v)
	}
}

func (v *Voice) finish() {
	v.Stop()
	v.log.Debug("voice finished", "samples", v.PositionSamples())

	v.mtx.Lock()
	fn := v.onFinished
	v.mtx.Unlock()

	if fn != nil {
		fn(v)
	}
}

func (v *Voice) release() error {
	v.Stop()

	v.mtx.Lock()
	v.effects = nil
	v.mtx.Unlock()

	return v.out.close()
}
