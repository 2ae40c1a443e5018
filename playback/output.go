// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/buffer"
)

// queueDepth is how many buffers an output keeps ahead of the device.
const queueDepth = 2

// output is the per-voice half of a backend. Buffers arrive through submit
// read-locked for the whole time the device uses them.
type output interface {
	submit(b *buffer.Buffer)
	// prime requests buffers until the output's queue is full.
	prime()
	start()
	halt()
	// flush drops every queued buffer, releasing its read lock.
	flush()
	setVolume(vol float32)
	setPitch(pitch float32)
	bufferedBytes() int
	playedBytes() int64
	starvations() uint64
	// update runs on the engine thread each frame.
	update()
	// ended reports that the source has no more data and the queue drained.
	ended() bool
	close() error
}

// feeder requests buffers from a source on behalf of an output.
type feeder struct {
	src      audio.Source
	consumer audio.BufferConsumer
	loop     bool
	log      *slog.Logger

	// reqMtx serialises requests with each other and with flush, so a
	// buffer is never submitted to a flushed or closed output.
	reqMtx sync.Mutex
	// gen is bumped by every flush. Requests made on behalf of a buffer
	// dropped by a flush are discarded.
	gen    atomic.Uint64
	closed atomic.Bool

	// retry is set when a request came back starved.
	retry   atomic.Bool
	eos     atomic.Bool
	played  atomic.Int64
	starved atomic.Uint64
}

// depth is how many buffers to hold. A resident source hands the same
// buffer every time, so it only ever has one queued.
func (f *feeder) depth() int {
	if f.src.FeedType() == audio.Resident {
		return 1
	}

	return queueDepth
}

// request asks the source for one buffer. It reports whether a buffer was
// submitted.
func (f *feeder) request() bool {
	return f.requestAt(f.gen.Load())
}

// requestAt is request on behalf of generation gen. It does nothing once
// the output is closed or flushed past gen.
func (f *feeder) requestAt(gen uint64) bool {
	f.reqMtx.Lock()
	defer f.reqMtx.Unlock()

	if f.closed.Load() || f.gen.Load() != gen {
		return false
	}

	err := f.src.RequestBuffer(f.consumer)
	switch {
	case err == nil:
		return true
	case errors.Is(err, audio.ErrStarved):
		f.retry.Store(true)
	case errors.Is(err, audio.ErrEndOfStream):
		f.eos.Store(true)
	default:
		f.log.Error("requesting buffer", "error", err)
		f.eos.Store(true)
	}

	return false
}

// drained runs after the device finished with a buffer of generation gen.
// Resident sources are looped here; streaming sources loop themselves.
func (f *feeder) drained(gen uint64) {
	if f.src.FeedType() == audio.Resident && !f.loop {
		f.eos.Store(true)
		return
	}

	f.requestAt(gen)
}

// invalidate runs drop with no request in flight. drop releases whatever
// the output queued and bumps gen under the output's own lock.
func (f *feeder) invalidate(drop func()) {
	f.reqMtx.Lock()
	defer f.reqMtx.Unlock()

	drop()
	f.retry.Store(false)
	f.eos.Store(false)
}

// shut refuses every later request.
func (f *feeder) shut() {
	f.reqMtx.Lock()
	f.closed.Store(true)
	f.reqMtx.Unlock()
}

func (f *feeder) playedBytes() int64 { return f.played.Load() }

func (f *feeder) starvations() uint64 { return f.starved.Load() }
