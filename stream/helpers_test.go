package stream

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/buffer"
	"github.com/ik5/audstream/formats/wav"
	"github.com/spf13/afero"
)

const waitTimeout = 5 * time.Second

// wavReader writes samples to an in-memory WAV file and returns a reader
// over it.
func wavReader(t *testing.T, rate, channels int, samples []int) *wav.Reader {
	t.Helper()

	fs := afero.NewMemMapFs()
	f, err := fs.Create("fixture.wav")
	if err != nil {
		t.Fatal(err)
	}
	if err := wav.WritePCM(f, rate, channels, 16, samples); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	f.Close()

	return wav.NewFileReader(fs, "fixture.wav")
}

// frames16 decodes the mono 16-bit frames of b.
func frames16(b *buffer.Buffer) []int {
	b.ReadLock()
	defer b.ReadUnlock()

	raw := b.Get(0)
	out := make([]int, len(raw)/2)
	for i := range out {
		out[i] = int(int16(binary.LittleEndian.Uint16(raw[2*i:])))
	}

	return out
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}

	return out
}

var errBlocked = errors.New("blocked reader released")

// blockingReader parks the worker inside Open until release is closed.
type blockingReader struct {
	audio.FileReader

	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newBlockingReader() *blockingReader {
	return &blockingReader{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *blockingReader) Name() string { return "blocking" }

func (r *blockingReader) Open() error {
	r.once.Do(func() { close(r.entered) })
	<-r.release

	return errBlocked
}

func (r *blockingReader) Close() error { return nil }

// blockWorker occupies w until the returned func is called.
func blockWorker(t *testing.T, w *Worker) func() {
	t.Helper()

	br := newBlockingReader()
	if err := NewStreamSource(w, br, false).OpenStream(nil); err != nil {
		t.Fatalf("queueing blocking open: %v", err)
	}

	select {
	case <-br.entered:
	case <-time.After(waitTimeout):
		t.Fatal("worker never picked up the blocking job")
	}

	var once sync.Once
	return func() { once.Do(func() { close(br.release) }) }
}

func openAndWait(t *testing.T, s *FileSource) {
	t.Helper()

	done := make(chan bool, 1)
	if err := s.OpenStream(func(_ audio.Source, ok bool) { done <- ok }); err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}

	select {
	case ok := <-done:
		if !ok {
			t.Fatal("stream failed to open")
		}
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for stream to open")
	}
}
