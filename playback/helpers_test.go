package playback

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/buffer"
	"github.com/ik5/audstream/internal/audiotest"
)

// filled returns an unlocked buffer holding data.
func filled(data []byte) *buffer.Buffer {
	b := buffer.New(len(data))
	b.WriteLock()
	_ = b.Add(data)
	b.WriteUnlock()

	return b
}

// fakeSource hands out a fixed list of buffers. Resident sources repeat the
// first one forever.
type fakeSource struct {
	feed audio.FeedType
	desc *audio.StreamDesc

	mu       sync.Mutex
	bufs     []*buffer.Buffer
	next     int
	requests int
	starve   bool

	locks atomic.Int32
}

var _ audio.Source = (*fakeSource)(nil)

func newFakeSource(feed audio.FeedType, bufs ...*buffer.Buffer) *fakeSource {
	desc := audio.NewStreamDesc(2, 8000, 16, 0)
	return &fakeSource{feed: feed, desc: &desc, bufs: bufs}
}

func (s *fakeSource) FeedType() audio.FeedType { return s.feed }
func (s *fakeSource) StreamDesc() *audio.StreamDesc { return s.desc }
func (s *fakeSource) OpenStream(cb audio.StreamCallback) error { return nil }
func (s *fakeSource) CloseStream(cb audio.StreamCallback) error { return nil }
func (s *fakeSource) Lock() { s.locks.Add(1) }
func (s *fakeSource) Unlock() { s.locks.Add(-1) }
func (s *fakeSource) Locks() int32 { return s.locks.Load() }

func (s *fakeSource) RequestBuffer(c audio.BufferConsumer) error {
	s.mu.Lock()
	s.requests++
	if s.starve {
		s.mu.Unlock()
		return audio.ErrStarved
	}
	if s.next >= len(s.bufs) {
		s.mu.Unlock()
		return audio.ErrEndOfStream
	}

	b := s.bufs[s.next]
	if s.feed == audio.Streaming {
		s.next++
	}
	s.mu.Unlock()

	c.SubmitBuffer(b)

	return nil
}

func (s *fakeSource) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.requests
}

func (s *fakeSource) setStarve(v bool) {
	s.mu.Lock()
	s.starve = v
	s.mu.Unlock()
}

// gatedSource parks the first request made after arm until release is
// closed.
type gatedSource struct {
	*fakeSource

	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedSource(src *fakeSource) *gatedSource {
	return &gatedSource{
		fakeSource: src,
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (s *gatedSource) arm() { s.armed.Store(true) }

func (s *gatedSource) RequestBuffer(c audio.BufferConsumer) error {
	if s.armed.CompareAndSwap(true, false) {
		close(s.entered)
		<-s.release
	}

	return s.fakeSource.RequestBuffer(c)
}

// fakeOutput records transport calls.
type fakeOutput struct {
	mu      sync.Mutex
	calls   []string
	volume  float32
	pitch   float32
	isEnded bool
	played  int64
}

var _ output = (*fakeOutput)(nil)

func (o *fakeOutput) record(call string) {
	o.mu.Lock()
	o.calls = append(o.calls, call)
	o.mu.Unlock()
}

func (o *fakeOutput) Calls() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]string(nil), o.calls...)
}

func (o *fakeOutput) submit(*buffer.Buffer) { o.record("submit") }
func (o *fakeOutput) prime() { o.record("prime") }
func (o *fakeOutput) start() { o.record("start") }
func (o *fakeOutput) halt() { o.record("halt") }
func (o *fakeOutput) flush() { o.record("flush") }
func (o *fakeOutput) update() {}
func (o *fakeOutput) bufferedBytes() int { return 0 }
func (o *fakeOutput) starvations() uint64 { return 0 }
func (o *fakeOutput) close() error { o.record("close"); return nil }

func (o *fakeOutput) setVolume(v float32) {
	o.mu.Lock()
	o.volume = v
	o.mu.Unlock()
}

func (o *fakeOutput) setPitch(p float32) {
	o.mu.Lock()
	o.pitch = p
	o.mu.Unlock()
}

func (o *fakeOutput) playedBytes() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.played
}

func (o *fakeOutput) ended() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.isEnded
}

func testVoice(src audio.Source, loop bool) *Voice {
	log, _ := audiotest.NewLogger()
	return newVoice(1, src, *src.StreamDesc(), loop, log)
}

// fakeVoice is a voice on a fakeOutput.
func fakeVoice() (*Voice, *fakeOutput) {
	v := testVoice(newFakeSource(audio.Resident, filled([]byte{0, 0, 0, 0})), false)
	out := &fakeOutput{}
	v.out = out

	return v, out
}

// fakeSink is a push device whose completions are driven by the test.
type fakeSink struct {
	mu       sync.Mutex
	entries  []sinkEntry
	playing  bool
	volume   float32
	pitch    float32
	cleared  int
	isClosed bool
}

type sinkEntry struct {
	data []byte
	done func()
}

var _ sink = (*fakeSink)(nil)

func (s *fakeSink) enqueue(data []byte, done func()) {
	s.mu.Lock()
	s.entries = append(s.entries, sinkEntry{data: data, done: done})
	s.mu.Unlock()
}

func (s *fakeSink) play() { s.mu.Lock(); s.playing = true; s.mu.Unlock() }
func (s *fakeSink) pause() { s.mu.Lock(); s.playing = false; s.mu.Unlock() }

func (s *fakeSink) setVolume(v float32) { s.mu.Lock(); s.volume = v; s.mu.Unlock() }
func (s *fakeSink) setPitch(p float32) { s.mu.Lock(); s.pitch = p; s.mu.Unlock() }

func (s *fakeSink) clear() {
	s.mu.Lock()
	s.entries = nil
	s.cleared++
	s.mu.Unlock()
}

func (s *fakeSink) close() error {
	s.mu.Lock()
	s.isClosed = true
	s.mu.Unlock()

	return nil
}

func (s *fakeSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// complete finishes the oldest entry, calling done outside the sink lock
// the way a device callback would.
func (s *fakeSink) complete() bool {
	s.mu.Lock()
	if len(s.entries) == 0 {
		s.mu.Unlock()
		return false
	}
	e := s.entries[0]
	s.entries = s.entries[1:]
	s.mu.Unlock()

	e.done()

	return true
}

// fakeBackend builds plain pull outputs that nothing reads from.
type fakeBackend struct {
	mu       sync.Mutex
	outputs  []*pullOutput
	isClosed bool
}

var _ backend = (*fakeBackend)(nil)

func (b *fakeBackend) name() string { return "fake" }

func (b *fakeBackend) devices() []Device {
	return []Device{{Name: "fake", Default: true, SampleRate: 8000, Channels: 2}}
}

func (b *fakeBackend) newOutput(v *Voice) (output, error) {
	o := newPullOutput(v.feeder())

	b.mu.Lock()
	b.outputs = append(b.outputs, o)
	b.mu.Unlock()

	return o, nil
}

func (b *fakeBackend) waitNextUpdate(ctx context.Context) error { return ctx.Err() }

func (b *fakeBackend) close() error {
	b.mu.Lock()
	b.isClosed = true
	b.mu.Unlock()

	return nil
}

// countingEffect records the order of Update and Apply calls.
type countingEffect struct {
	mu    sync.Mutex
	calls []string
	hook  func(v *Voice)
}

func (e *countingEffect) Update(float32) {
	e.mu.Lock()
	e.calls = append(e.calls, "update")
	e.mu.Unlock()
}

func (e *countingEffect) Apply(v *Voice) {
	e.mu.Lock()
	e.calls = append(e.calls, "apply")
	hook := e.hook
	e.mu.Unlock()

	if hook != nil {
		hook(v)
	}
}

func (e *countingEffect) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]string(nil), e.calls...)
}
