// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/buffer"
	"github.com/ik5/audstream/logger"
)

const (
	// RingSize is the number of buffers a streaming source rotates.
	RingSize = 3
	// DefaultChunkSize is the capacity of each ring buffer.
	DefaultChunkSize = 256 * 1024

	noFinal = -1
)

// State of a FileSource.
type State int32

const (
	Closed State = iota
	Opening
	Open
	Closing
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Opening:
		return "opening"
	case Open:
		return "open"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// Option configures a FileSource.
type Option func(*FileSource)

// WithChunkSize sets the ring buffer capacity. It is rounded down to whole
// frames when the stream opens.
func WithChunkSize(n int) Option {
	return func(s *FileSource) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *FileSource) {
		if l != nil {
			s.log = l
		}
	}
}

// FileSource feeds PCM from a FileReader, either as one resident buffer or
// as a ring of RingSize buffers refilled by a Worker.
//
// The reader is borrowed: the caller keeps ownership, and the source calls
// Open and Close on it once per stream cycle.
type FileSource struct {
	reader    audio.FileReader
	feed      audio.FeedType
	loop      bool
	chunkSize int
	worker    *Worker
	log       *slog.Logger

	state atomic.Int32
	locks atomic.Int32

	buffers []*buffer.Buffer
	desc    *audio.StreamDesc

	// producer and consumer only grow; taken mod RingSize they name the
	// slot being filled and the slot handed out next.
	producer atomic.Uint64
	consumer atomic.Uint64
	// final is the producer index of the slot that hit end of file, or
	// noFinal.
	final          atomic.Int64
	pendingRefills atomic.Int32

	cbMtx    *sync.Mutex
	onOpened audio.StreamCallback
	onClosed audio.StreamCallback
}

var _ audio.Source = (*FileSource)(nil)

func newSource(r audio.FileReader, feed audio.FeedType, loop bool, w *Worker, opts []Option) *FileSource {
	s := &FileSource{
		reader:    r,
		feed:      feed,
		loop:      loop,
		chunkSize: DefaultChunkSize,
		worker:    w,
		cbMtx:     &sync.Mutex{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.WithComponent("stream.source")
	}
	s.log = s.log.With("file", r.Name(), "feed", feed.String())
	s.final.Store(noFinal)

	return s
}

// NewResidentSource returns a source that holds the whole payload of r in
// one buffer. Looping is left to the voice.
func NewResidentSource(r audio.FileReader, opts ...Option) *FileSource {
	return newSource(r, audio.Resident, false, nil, opts)
}

// NewStreamSource returns a source that streams r through a ring of buffers
// refilled on w. With loop set it wraps to the start at end of file.
func NewStreamSource(w *Worker, r audio.FileReader, loop bool, opts ...Option) *FileSource {
	return newSource(r, audio.Streaming, loop, w, opts)
}

func (s *FileSource) FeedType() audio.FeedType { return s.feed }

// StreamDesc is nil until the stream has opened.
func (s *FileSource) StreamDesc() *audio.StreamDesc {
	if s.State() != Open {
		return nil
	}

	return s.desc
}

func (s *FileSource) State() State { return State(s.state.Load()) }

// Loop reports whether a streaming source wraps at end of file.
func (s *FileSource) Loop() bool { return s.loop }

func (s *FileSource) Reader() audio.FileReader { return s.reader }

// Producer is the number of ring slots filled so far.
func (s *FileSource) Producer() uint64 { return s.producer.Load() }

// Consumer is the number of ring slots handed out so far.
func (s *FileSource) Consumer() uint64 { return s.consumer.Load() }

func (s *FileSource) Lock() { s.locks.Add(1) }

func (s *FileSource) Unlock() { s.locks.Add(-1) }

func (s *FileSource) Locks() int32 { return s.locks.Load() }

func (s *FileSource) transition(from, to State) error {
	if !s.state.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("%s to %s from %s: %w", from, to, s.State(), ErrInvalidState)
	}

	return nil
}

// OpenStream opens the source. Resident sources load synchronously and call
// onOpened before returning; streaming sources queue an open job and call
// onOpened from the worker.
func (s *FileSource) OpenStream(onOpened audio.StreamCallback) error {
	if s.feed == audio.Resident {
		err := s.Load()
		if onOpened != nil {
			onOpened(s, err == nil)
		}
		return err
	}

	if err := s.transition(Closed, Opening); err != nil {
		return err
	}

	if err := s.worker.Acquire(); err != nil {
		s.state.Store(int32(Closed))
		return err
	}

	s.cbMtx.Lock()
	s.onOpened = onOpened
	s.cbMtx.Unlock()

	if err := s.worker.Push(Job{Kind: JobOpen, Source: s}); err != nil {
		s.worker.Release()
		s.state.Store(int32(Closed))
		return err
	}

	return nil
}

// CloseStream closes the source. Streaming sources finish asynchronously on
// the worker, after any refills already queued.
func (s *FileSource) CloseStream(onClosed audio.StreamCallback) error {
	if err := s.transition(Open, Closing); err != nil {
		return err
	}

	if s.feed == audio.Resident {
		s.releaseBuffers()
		s.state.Store(int32(Closed))
		if onClosed != nil {
			onClosed(s, true)
		}
		return nil
	}

	s.cbMtx.Lock()
	s.onClosed = onClosed
	s.cbMtx.Unlock()

	if err := s.worker.Push(Job{Kind: JobClose, Source: s}); err != nil {
		s.state.Store(int32(Open))
		return err
	}

	return nil
}

// Load reads the whole payload of a resident source into one buffer.
// Loading an open source is a no-op.
func (s *FileSource) Load() error {
	if s.feed != audio.Resident {
		return audio.ErrNotStreaming
	}
	if s.State() == Open {
		return nil
	}
	if err := s.transition(Closed, Opening); err != nil {
		return err
	}

	if err := s.load(); err != nil {
		s.state.Store(int32(Closed))
		s.log.Error("loading resident source", "error", err)
		return err
	}

	s.state.Store(int32(Open))

	return nil
}

func (s *FileSource) load() error {
	if err := s.reader.Open(); err != nil {
		return fmt.Errorf("%w", err)
	}
	defer s.reader.Close()

	desc := *s.reader.StreamDesc()
	if desc.DecodedBytes == 0 {
		return fmt.Errorf("%s: %w", s.reader.Name(), ErrEmptyStream)
	}

	b := buffer.New(int(desc.DecodedBytes))
	b.WriteLock()
	defer b.WriteUnlock()

	for len(b.Spare()) > 0 {
		n, err := s.reader.Read(b.Spare())
		if n > 0 {
			if cerr := b.Commit(n); cerr != nil {
				return cerr
			}
		}
		if errors.Is(err, io.EOF) || (n == 0 && err == nil) {
			break
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.reader.Name(), err)
		}
	}

	s.desc = &desc
	s.buffers = []*buffer.Buffer{b}
	s.log.Debug("resident source loaded", "bytes", b.Len())

	return nil
}

// RequestBuffer hands the next buffer to c. Resident sources hand the same
// buffer every time.
func (s *FileSource) RequestBuffer(c audio.BufferConsumer) error {
	if s.State() != Open {
		return audio.ErrStreamNotOpen
	}

	if s.feed == audio.Resident {
		c.SubmitBuffer(s.buffers[0])
		return nil
	}

	// Claim a slot. Concurrent callers never share one or pass the producer.
	var consumer uint64
	for {
		consumer = s.consumer.Load()
		if final := s.final.Load(); final != noFinal && consumer > uint64(final) {
			return audio.ErrEndOfStream
		}

		if consumer >= s.producer.Load() {
			// A refill may have been dropped on a full queue.
			if s.pendingRefills.Load() == 0 {
				s.enqueueRefill()
			}
			return audio.ErrStarved
		}

		if s.consumer.CompareAndSwap(consumer, consumer+1) {
			break
		}
	}

	b := s.buffers[consumer%RingSize]
	consumer++
	c.SubmitBuffer(b)

	if final := s.final.Load(); final == noFinal || consumer <= uint64(final) {
		s.enqueueRefill()
	}

	return nil
}

func (s *FileSource) enqueueRefill() {
	s.pendingRefills.Add(1)
	if err := s.worker.Push(Job{Kind: JobRefill, Source: s}); err != nil {
		s.pendingRefills.Add(-1)
		s.log.Warn("refill not queued", "error", err)
	}
}

func (s *FileSource) handleOpen() {
	err := s.openStream()
	if err != nil {
		s.log.Error("opening stream", "error", err)
		s.state.Store(int32(Closed))
		s.worker.Release()
	} else {
		s.state.Store(int32(Open))
		s.log.Debug("stream opened", "chunk", s.buffers[0].Cap())
	}

	s.cbMtx.Lock()
	cb := s.onOpened
	s.onOpened = nil
	s.cbMtx.Unlock()

	if cb != nil {
		cb(s, err == nil)
	}
}

func (s *FileSource) openStream() error {
	if err := s.reader.Open(); err != nil {
		return fmt.Errorf("%w", err)
	}

	desc := *s.reader.StreamDesc()
	if desc.DecodedBytes == 0 {
		s.reader.Close()
		return fmt.Errorf("%s: %w", s.reader.Name(), ErrEmptyStream)
	}

	chunk := s.chunkSize - s.chunkSize%desc.BlockSize
	chunk = max(chunk, desc.BlockSize)

	s.buffers = make([]*buffer.Buffer, RingSize)
	for i := range s.buffers {
		s.buffers[i] = buffer.New(chunk)
	}

	s.desc = &desc
	s.producer.Store(0)
	s.consumer.Store(0)
	s.final.Store(noFinal)
	s.pendingRefills.Store(0)

	s.fill()

	return nil
}

func (s *FileSource) handleClose() {
	err := s.reader.Close()
	if err != nil {
		s.log.Error("closing reader", "error", err)
	}

	s.releaseBuffers()
	s.state.Store(int32(Closed))
	s.worker.Release()
	s.log.Debug("stream closed", "handed", s.consumer.Load())

	s.cbMtx.Lock()
	cb := s.onClosed
	s.onClosed = nil
	s.cbMtx.Unlock()

	if cb != nil {
		cb(s, err == nil)
	}
}

func (s *FileSource) handleRefill() {
	defer s.pendingRefills.Add(-1)

	if s.State() != Open || s.final.Load() != noFinal {
		return
	}

	s.fill()
}

// fill refills slot producer%RingSize and advances the producer. Runs on
// the worker only.
func (s *FileSource) fill() {
	index := s.producer.Load()
	b := s.buffers[index%RingSize]
	block := s.desc.BlockSize

	b.WriteLock()
	b.Reset()

	zeroReads := 0
	for len(b.Spare()) >= block {
		n, err := s.reader.Read(b.Spare())
		if n > 0 {
			zeroReads = 0
			if cerr := b.Commit(n); cerr != nil {
				s.log.Error("committing read", "error", cerr)
				s.final.Store(int64(index))
				break
			}
		} else {
			zeroReads++
		}

		if zeroReads >= 2 {
			s.log.Warn("reader returned no data", "position", s.reader.Position())
			s.final.Store(int64(index))
			break
		}

		if err == nil {
			continue
		}

		if !errors.Is(err, io.EOF) {
			s.log.Error("reading stream", "error", err)
			s.final.Store(int64(index))
			break
		}

		if !s.loop {
			s.final.Store(int64(index))
			break
		}

		if err := s.reader.SeekRaw(0); err != nil {
			s.log.Error("rewinding stream", "error", err)
			s.final.Store(int64(index))
			break
		}
	}

	b.WriteUnlock()
	s.producer.Add(1)
}

func (s *FileSource) releaseBuffers() {
	for _, b := range s.buffers {
		b.Release()
	}
	s.buffers = nil
}
