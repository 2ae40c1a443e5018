// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/ik5/audstream/buffer"
)

// FeedType decides how a Source hands its data to a voice.
type FeedType int

const (
	// Resident sources hold the whole clip in one buffer. Looping is left to
	// the voice, which can replay the buffer without any I/O.
	Resident FeedType = iota
	// Streaming sources rotate a small ring of buffers refilled from storage.
	// They loop at end of file themselves, since only the worker knows the
	// file position.
	Streaming
)

func (f FeedType) String() string {
	switch f {
	case Resident:
		return "resident"
	case Streaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// StreamCallback reports completion of an asynchronous open or close.
type StreamCallback func(src Source, ok bool)

// BufferConsumer receives buffers handed off by a Source. Voices implement
// it.
type BufferConsumer interface {
	SubmitBuffer(b *buffer.Buffer)
}

// Source describes where PCM data comes from and how it is fed.
type Source interface {
	FeedType() FeedType
	// StreamDesc is nil until the underlying reader has parsed its header.
	StreamDesc() *StreamDesc

	// OpenStream starts opening the source; onOpened may be nil.
	OpenStream(onOpened StreamCallback) error
	// CloseStream starts closing the source; onClosed may be nil.
	CloseStream(onClosed StreamCallback) error

	// RequestBuffer hands the next buffer to c. It returns ErrStarved when
	// the next buffer is not ready yet and ErrEndOfStream once a
	// non-looping source has nothing left to give.
	RequestBuffer(c BufferConsumer) error

	// Lock, Unlock and Locks count external references (voices).
	Lock()
	Unlock()
	Locks() int32
}

// ReaderFactory builds a FileReader over open.
type ReaderFactory func(open OpenFunc, name string) FileReader

// Registry maps file extensions (".wav") to reader factories.
type Registry struct {
	readers map[string]ReaderFactory

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		readers: make(map[string]ReaderFactory),
		mtx:     &sync.Mutex{},
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return ext
}

func (r *Registry) Register(ext string, f ReaderFactory) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.readers[normalizeExt(ext)] = f
}

func (r *Registry) Get(ext string) (ReaderFactory, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	f, ok := r.readers[normalizeExt(ext)]
	return f, ok
}

// ForFile returns the factory matching the extension of name.
func (r *Registry) ForFile(name string) (ReaderFactory, bool) {
	return r.Get(filepath.Ext(name))
}
