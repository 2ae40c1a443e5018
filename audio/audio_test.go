package audio

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// stubReader is a FileReader that remembers the name it was built with.
type stubReader struct {
	FileReader
	name string
}

func (r *stubReader) Name() string { return r.name }

func stubFactory(open OpenFunc, name string) FileReader {
	return &stubReader{name: name}
}

func TestFeedType_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		feed FeedType
		want string
	}{
		{Resident, "resident"},
		{Streaming, "streaming"},
		{FeedType(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.feed.String(); got != tt.want {
			t.Errorf("FeedType(%d).String() = %q, want %q", tt.feed, got, tt.want)
		}
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register("wav", stubFactory)

	f, ok := registry.Get(".WAV")
	if !ok {
		t.Fatal("Registry.Get() failed to retrieve registered factory")
	}

	if got := f(nil, "a.wav").Name(); got != "a.wav" {
		t.Errorf("factory built reader %q, want %q", got, "a.wav")
	}
}

func TestRegistry_GetNonExistent(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	if _, ok := registry.Get("flac"); ok {
		t.Error("Registry.Get() returned ok=true for unregistered extension")
	}
}

func TestRegistry_ForFile(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register(".aiff", stubFactory)

	tests := []struct {
		name   string
		wantOK bool
	}{
		{"music/theme.aiff", true},
		{"THEME.AIFF", true},
		{"theme.wav", false},
		{"theme", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := registry.ForFile(tt.name); ok != tt.wantOK {
				t.Errorf("ForFile(%q) ok = %v, want %v", tt.name, ok, tt.wantOK)
			}
		})
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			registry.Register(string(rune('a'+i)), stubFactory)
		}()
		go func() {
			defer wg.Done()
			registry.Get(string(rune('a' + i)))
		}()
	}
	wg.Wait()

	if _, ok := registry.Get("a"); !ok {
		t.Error("Registry lost a concurrent registration")
	}
}

func TestNewStreamDesc(t *testing.T) {
	t.Parallel()

	d := NewStreamDesc(4, 44100, 16, 44100*4*2)

	if d.Format != PCM16 {
		t.Errorf("Format = %v, want pcm16", d.Format)
	}
	if d.BlockSize != 8 {
		t.Errorf("BlockSize = %d, want 8", d.BlockSize)
	}
	if d.SizeSamples != 44100 {
		t.Errorf("SizeSamples = %d, want 44100", d.SizeSamples)
	}
	if d.BytesPerSecond() != 352800 {
		t.Errorf("BytesPerSecond() = %d, want 352800", d.BytesPerSecond())
	}
	if d.Duration() != time.Second {
		t.Errorf("Duration() = %v, want 1s", d.Duration())
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestStreamDesc_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		desc StreamDesc
		want error
	}{
		{"no channels", NewStreamDesc(0, 44100, 16, 0), ErrInvalidStreamDesc},
		{"no rate", NewStreamDesc(2, 0, 16, 0), ErrInvalidStreamDesc},
		{"12 bit", NewStreamDesc(2, 44100, 12, 0), ErrUnsupportedFormat},
		{"bad block", StreamDesc{Format: PCM16, Channels: 2, SampleRate: 8000, BitsPerSample: 16, BlockSize: 3}, ErrInvalidStreamDesc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.desc.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFSOpener(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "clip.raw", []byte("pcm"), 0o644); err != nil {
		t.Fatal(err)
	}

	rc, err := FSOpener(fs, "clip.raw")()
	if err != nil {
		t.Fatalf("open error = %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "pcm" {
		t.Errorf("read %q, want %q", data, "pcm")
	}

	if _, err := FSOpener(fs, "missing.raw")(); err == nil {
		t.Error("opening a missing file returned nil error")
	}
}
