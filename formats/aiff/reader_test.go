// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/internal/audiotest"
	"github.com/spf13/afero"
)

func writeAiff(t *testing.T, fs afero.Fs, name string, rate, channels, bits int, samples []int) {
	t.Helper()

	f, err := fs.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := aiff.NewEncoder(f, rate, bits, channels)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: bits,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("closing encoder: %v", err)
	}
}

func TestReader_Open(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	samples := audiotest.Sine16(22050, 2, 2205, 440)
	writeAiff(t, fs, "tone.aiff", 22050, 2, 16, samples)

	r := NewFileReader(fs, "tone.aiff")
	if err := r.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	d := r.StreamDesc()
	if d.SampleRate != 22050 || d.Channels != 2 || d.Format != audio.PCM16 {
		t.Errorf("desc = %v, want pcm16 2ch 22050Hz", d)
	}
	if d.SizeSamples != 2205 {
		t.Errorf("SizeSamples = %d, want 2205", d.SizeSamples)
	}
	if d.DecodedBytes != int64(len(samples)*2) {
		t.Errorf("DecodedBytes = %d, want %d", d.DecodedBytes, len(samples)*2)
	}
}

func TestReader_FlipsToLittleEndian(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	samples := []int{0x0102, -2, 0x7F00, -32768}
	writeAiff(t, fs, "le.aiff", 8000, 1, 16, samples)

	r := NewFileReader(fs, "le.aiff")
	if err := r.Open(); err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	got := make([]byte, 8)
	if _, err := r.Read(got); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	for i, want := range samples {
		if v := int(int16(binary.LittleEndian.Uint16(got[2*i:]))); v != want {
			t.Errorf("sample[%d] = %d, want %d", i, v, want)
		}
	}

	if n, err := r.Read(got); n != 0 || err != io.EOF {
		t.Errorf("Read() at end = (%d, %v), want (0, EOF)", n, err)
	}
}

func TestAppendLE(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		bits    int
		samples []int
		want    []byte
	}{
		{"8 bit unsigned", 8, []int{-128, 0, 127}, []byte{0x00, 0x80, 0xFF}},
		{"16 bit", 16, []int{0x1234, -1}, []byte{0x34, 0x12, 0xFF, 0xFF}},
		{"24 bit", 24, []int{0x123456, -2}, []byte{0x56, 0x34, 0x12, 0xFE, 0xFF, 0xFF}},
		{"32 bit", 32, []int{0x01020304}, []byte{0x04, 0x03, 0x02, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := appendLE(nil, tt.samples, tt.bits); !bytes.Equal(got, tt.want) {
				t.Errorf("appendLE() = % x, want % x", got, tt.want)
			}
		})
	}
}

// chunkedDecoder hands out samples a few at a time.
type chunkedDecoder struct {
	samples []int
	step    int
	err     error
}

func (d *chunkedDecoder) Format() *goaudio.Format {
	return &goaudio.Format{NumChannels: 2, SampleRate: 8000}
}

func (d *chunkedDecoder) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if len(d.samples) == 0 {
		if d.err != nil {
			return 0, d.err
		}
		return 0, io.EOF
	}

	n := copy(buf.Data[:min(d.step, len(buf.Data))], d.samples)
	d.samples = d.samples[n:]

	return n, nil
}

func TestReader_DecodesOnRead(t *testing.T) {
	t.Parallel()

	// The header claims three stereo frames; the payload stops half a frame
	// into the third.
	r := &Reader{name: "chunked", desc: audio.NewStreamDesc(2, 8000, 16, 12)}
	r.attach(nil, &chunkedDecoder{samples: []int{1, 2, 3, 4, 5}, step: 2})

	got := make([]byte, 12)
	n, err := r.Read(got)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	want := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	if !bytes.Equal(got[:n], want) {
		t.Errorf("Read() = % x, want % x", got[:n], want)
	}

	if n, err := r.Read(got); n != 0 || err != io.EOF {
		t.Errorf("Read() past payload = (%d, %v), want (0, EOF)", n, err)
	}
}

func TestReader_DecodeError(t *testing.T) {
	t.Parallel()

	errBroken := errors.New("broken chunk")
	r := &Reader{name: "broken", desc: audio.NewStreamDesc(2, 8000, 16, 8)}
	r.attach(nil, &chunkedDecoder{err: errBroken})

	if _, err := r.Read(make([]byte, 8)); !errors.Is(err, errBroken) {
		t.Errorf("Read() error = %v, want %v", err, errBroken)
	}
}

func TestReader_DecodesLazily(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeAiff(t, fs, "long.aiff", 8000, 1, 16, audiotest.Counter16(1, 8*decodeFrames))

	r := NewFileReader(fs, "long.aiff")
	if err := r.Open(); err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if len(r.pending) != 0 {
		t.Errorf("Open() decoded %d bytes ahead", len(r.pending))
	}

	var b [2]byte
	if _, err := r.Read(b[:]); err != nil {
		t.Fatal(err)
	}
	if limit := decodeFrames * r.desc.BlockSize; len(r.pending) > limit {
		t.Errorf("one small read left %d bytes pending, want at most %d", len(r.pending), limit)
	}
}

func TestReader_SeekBackwards(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeAiff(t, fs, "count.aiff", 8000, 1, 16, audiotest.Counter16(1, 8000))

	r := NewFileReader(fs, "count.aiff")
	if err := r.Open(); err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	for _, frame := range []int64{6000, 100, 0, 7999} {
		if err := r.SeekSample(frame); err != nil {
			t.Fatalf("SeekSample(%d) error = %v", frame, err)
		}

		var b [2]byte
		if _, err := r.Read(b[:]); err != nil {
			t.Fatalf("Read() after SeekSample(%d) error = %v", frame, err)
		}
		if v := int64(binary.LittleEndian.Uint16(b[:])); v != frame {
			t.Errorf("frame after SeekSample(%d) = %d", frame, v)
		}
		if r.Position() != 2*(frame+1) {
			t.Errorf("Position() = %d, want %d", r.Position(), 2*(frame+1))
		}
	}
}

func TestReader_Errors(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "bogus.aiff", []byte("This is not AIFF data"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewFileReader(fs, "bogus.aiff")
	if err := r.Open(); !errors.Is(err, ErrNotAiffFile) {
		t.Errorf("Open() error = %v, want ErrNotAiffFile", err)
	}

	if _, err := r.Read(make([]byte, 4)); !errors.Is(err, audio.ErrReaderNotOpen) {
		t.Errorf("Read() error = %v, want ErrReaderNotOpen", err)
	}

	if err := NewFileReader(fs, "missing.aiff").Open(); err == nil {
		t.Error("Open() on missing file returned nil error")
	}
}

func TestReader_SeekAndReopen(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeAiff(t, fs, "count.aiff", 8000, 1, 16, audiotest.Counter16(1, 8000))

	r := NewFileReader(fs, "count.aiff")
	for range 2 {
		if err := r.Open(); err != nil {
			t.Fatal(err)
		}

		if err := r.SeekSample(8000 / 2); err != nil {
			t.Fatalf("SeekSample() error = %v", err)
		}

		var b [2]byte
		if _, err := r.Read(b[:]); err != nil {
			t.Fatal(err)
		}
		if v := binary.LittleEndian.Uint16(b[:]); v != 4000 {
			t.Errorf("frame after seek = %d, want 4000", v)
		}

		if err := r.SeekRaw(1 << 20); !errors.Is(err, audio.ErrSeekOutOfRange) {
			t.Errorf("SeekRaw() error = %v, want ErrSeekOutOfRange", err)
		}

		r.Close()
		if r.Position() != 0 {
			t.Errorf("Position() after Close = %d, want 0", r.Position())
		}
	}
}
