// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ik5/audstream/buffer"
	"github.com/ik5/audstream/internal/contract"
)

// sink is the device side of a push output.
type sink interface {
	// enqueue hands data to the device. done is called exactly once when
	// the device has finished with it, and never while the device holds a
	// lock that enqueue needs.
	enqueue(data []byte, done func())
	play()
	pause()
	setVolume(vol float32)
	setPitch(pitch float32)
	// clear drops everything queued without calling done.
	clear()
	close() error
}

// pushOutput serves a device that is handed buffers and reports back when
// each one has played. Every completion releases one buffer and requests
// exactly one more.
type pushOutput struct {
	*feeder

	sink sink

	mtx      sync.Mutex
	inflight []*buffer.Buffer
}

func newPushOutput(f *feeder, s sink) *pushOutput {
	return &pushOutput{feeder: f, sink: s}
}

// submit runs inside a request, so gen cannot move under it.
func (o *pushOutput) submit(b *buffer.Buffer) {
	if o.closed.Load() {
		return
	}

	// Nothing to play; ask again on the next update.
	if b.Len() == 0 {
		o.retry.Store(true)
		return
	}

	b.ReadLock()

	o.mtx.Lock()
	o.inflight = append(o.inflight, b)
	gen := o.gen.Load()
	o.mtx.Unlock()

	o.sink.enqueue(b.Get(0), func() { o.complete(b, gen) })
}

func (o *pushOutput) complete(b *buffer.Buffer, gen uint64) {
	o.mtx.Lock()
	if gen != o.gen.Load() {
		o.mtx.Unlock()
		return
	}

	i := slices.Index(o.inflight, b)
	contract.Assert(i == 0, "push output completion out of order")
	if i < 0 {
		o.mtx.Unlock()
		return
	}
	o.inflight = slices.Delete(o.inflight, i, i+1)
	o.mtx.Unlock()

	o.played.Add(int64(b.Len()))
	b.ReadUnlock()
	o.drained(gen)
}

func (o *pushOutput) queued() int {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	return len(o.inflight)
}

func (o *pushOutput) prime() {
	for o.queued() < o.depth() && !o.eos.Load() {
		if !o.request() {
			return
		}
	}
}

func (o *pushOutput) start() { o.sink.play() }

func (o *pushOutput) halt() { o.sink.pause() }

func (o *pushOutput) flush() {
	o.invalidate(func() {
		o.mtx.Lock()
		o.gen.Add(1)
		dropped := o.inflight
		o.inflight = nil
		o.mtx.Unlock()

		// The device must let go of the bytes before the locks are released.
		o.sink.clear()
		for _, b := range dropped {
			b.ReadUnlock()
		}
	})
}

func (o *pushOutput) setVolume(vol float32) { o.sink.setVolume(vol) }

func (o *pushOutput) setPitch(pitch float32) { o.sink.setPitch(pitch) }

func (o *pushOutput) bufferedBytes() int {
	o.mtx.Lock()
	defer o.mtx.Unlock()

	total := 0
	for _, b := range o.inflight {
		total += b.Len()
	}

	return total
}

func (o *pushOutput) update() {
	if o.retry.CompareAndSwap(true, false) {
		o.prime()
	}
}

func (o *pushOutput) ended() bool {
	return o.eos.Load() && o.queued() == 0
}

func (o *pushOutput) close() error {
	o.halt()
	o.shut()
	o.flush()

	if err := o.sink.close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}
