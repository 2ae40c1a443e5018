// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"fmt"
	"io"
	"sync"

	"github.com/ik5/audstream/buffer"
	"github.com/ik5/audstream/internal/contract"
)

// player is the device side of a pull output. It is nil on the headless
// backend, where the engine's clock calls Read directly.
type player interface {
	Play()
	Pause()
	SetVolume(volume float64)
	BufferedSize() int
	Close() error
}

// pullOutput serves a device that asks for bytes on its own thread. The
// device calls Read; the output copies from the head of a queue of at most
// queueDepth buffers and requests the next one whenever the head drains.
type pullOutput struct {
	*feeder

	player player

	mtx     sync.Mutex
	queue   []*buffer.Buffer
	offset  int
	playing bool
}

var _ io.Reader = (*pullOutput)(nil)

func newPullOutput(f *feeder) *pullOutput {
	return &pullOutput{
		feeder: f,
		queue:  make([]*buffer.Buffer, 0, queueDepth),
	}
}

func (o *pullOutput) submit(b *buffer.Buffer) {
	if o.closed.Load() {
		return
	}

	o.mtx.Lock()
	defer o.mtx.Unlock()

	contract.Assert(len(o.queue) < queueDepth, "pull output queue overflow")
	if len(o.queue) >= queueDepth {
		o.log.Warn("dropping buffer, queue full")
		return
	}

	b.ReadLock()
	o.queue = append(o.queue, b)
}

func (o *pullOutput) queued() int {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	return len(o.queue)
}

func (o *pullOutput) prime() {
	for o.queued() < o.depth() && !o.eos.Load() {
		if !o.request() {
			return
		}
	}
}

// Read fills p from the queue. It never blocks and never fails: when the
// output is halted, or the queue runs dry, the rest of p is silence.
func (o *pullOutput) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		o.mtx.Lock()
		if !o.playing {
			o.mtx.Unlock()
			break
		}

		if len(o.queue) == 0 {
			o.mtx.Unlock()
			if !o.eos.Load() {
				o.starved.Add(1)
				o.log.Warn("buffer starved", "missing", len(p)-n)
			}
			break
		}

		head := o.queue[0]
		if o.offset < head.Len() {
			c := copy(p[n:], head.Get(o.offset))
			o.offset += c
			n += c
			o.played.Add(int64(c))
		}

		drained := o.offset >= head.Len()
		gen := o.gen.Load()
		if drained {
			o.queue[0] = nil
			o.queue = o.queue[1:]
			o.offset = 0
			head.ReadUnlock()
		}
		o.mtx.Unlock()

		if drained {
			o.drained(gen)
		}
	}

	clear(p[n:])

	return len(p), nil
}

func (o *pullOutput) start() {
	o.mtx.Lock()
	o.playing = true
	o.mtx.Unlock()

	if o.player != nil {
		o.player.Play()
	}
}

func (o *pullOutput) halt() {
	o.mtx.Lock()
	o.playing = false
	o.mtx.Unlock()

	if o.player != nil {
		o.player.Pause()
	}
}

func (o *pullOutput) flush() {
	o.invalidate(func() {
		o.mtx.Lock()
		defer o.mtx.Unlock()

		for i, b := range o.queue {
			b.ReadUnlock()
			o.queue[i] = nil
		}
		o.queue = o.queue[:0]
		o.offset = 0
		o.gen.Add(1)
	})
}

func (o *pullOutput) setVolume(vol float32) {
	if o.player != nil {
		o.player.SetVolume(float64(vol))
	}
}

// setPitch is a no-op; pull devices play at the stream's own rate.
func (o *pullOutput) setPitch(float32) {}

func (o *pullOutput) bufferedBytes() int {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	total := 0
	for i, b := range o.queue {
		total += b.Len()
		if i == 0 {
			total -= o.offset
		}
	}
	if o.player != nil {
		total += o.player.BufferedSize()
	}

	return total
}

func (o *pullOutput) update() {
	if o.retry.CompareAndSwap(true, false) {
		o.prime()
	}
}

func (o *pullOutput) ended() bool {
	return o.eos.Load() && o.queued() == 0
}

func (o *pullOutput) close() error {
	o.halt()
	o.shut()
	o.flush()

	if o.player == nil {
		return nil
	}
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}
