// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/ik5/audstream/audio"
	"github.com/spf13/afero"
)

// decodeFrames is how many frames are pulled from the decoder per call.
const decodeFrames = 4096

// pcmDecoder is the part of aiff.Decoder the reader uses.
type pcmDecoder interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Reader reads AIFF files. Frames are decoded as they are read and
// converted from big-endian to the little-endian layout every other reader
// produces. Seeking backwards reopens the file and decodes forward from the
// start.
type Reader struct {
	open audio.OpenFunc
	name string

	f       io.ReadSeekCloser
	dec     pcmDecoder
	buf     *goaudio.IntBuffer
	pending []byte
	drained bool

	desc audio.StreamDesc
	pos  int64
}

var _ audio.FileReader = (*Reader)(nil)

// NewReader returns a reader that opens its file through open.
func NewReader(open audio.OpenFunc, name string) *Reader {
	return &Reader{open: open, name: name}
}

// NewFileReader returns a reader for path on fs.
func NewFileReader(fs afero.Fs, path string) *Reader {
	return NewReader(audio.FSOpener(fs, path), path)
}

// Factory is the audio.ReaderFactory for AIFF files.
func Factory(open audio.OpenFunc, name string) audio.FileReader {
	return NewReader(open, name)
}

func (r *Reader) Name() string { return r.name }

func (r *Reader) StreamDesc() *audio.StreamDesc { return &r.desc }

func (r *Reader) Position() int64 { return r.pos }

func (r *Reader) Open() error {
	if r.dec != nil {
		return nil
	}

	f, dec, err := r.openDecoder()
	if err != nil {
		return err
	}

	bits := int(dec.BitDepth)
	if audio.FormatForBits(bits) == audio.FormatUnknown {
		f.Close()
		return fmt.Errorf("%s: %d bits: %w", r.name, bits, ErrUnsupportedBitDepth)
	}

	format := dec.Format()
	if format == nil || format.NumChannels <= 0 {
		f.Close()
		return fmt.Errorf("%s: %w", r.name, ErrUnsupportedAiffLayout)
	}

	size := int64(dec.NumSampleFrames) * int64(format.NumChannels*bits/8)
	desc := audio.NewStreamDesc(format.NumChannels, format.SampleRate, bits, size)
	if err := desc.Validate(); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", r.name, err)
	}

	r.desc = desc
	r.attach(f, dec)

	return nil
}

// openDecoder opens the file and reads its header.
func (r *Reader) openDecoder() (io.ReadSeekCloser, *aiff.Decoder, error) {
	f, err := r.open()
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", r.name, err)
	}

	dec := aiff.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, nil, fmt.Errorf("%s: %w", r.name, ErrNotAiffFile)
	}
	dec.ReadInfo()

	return f, dec, nil
}

// attach makes dec the decoder at position 0.
func (r *Reader) attach(f io.ReadSeekCloser, dec pcmDecoder) {
	r.f = f
	r.dec = dec
	r.buf = &goaudio.IntBuffer{
		Data:   make([]int, decodeFrames*r.desc.Channels),
		Format: dec.Format(),
	}
	r.pending = r.pending[:0]
	r.drained = false
	r.pos = 0
}

// fill decodes until at least want bytes are pending or the payload ends.
func (r *Reader) fill(want int) error {
	for len(r.pending) < want && !r.drained {
		n, err := r.dec.PCMBuffer(r.buf)
		if n > 0 {
			r.pending = appendLE(r.pending, r.buf.Data[:n], r.desc.BitsPerSample)
		}
		if err != nil && err != io.EOF {
			return fmt.Errorf("%s: decoding pcm: %w", r.name, err)
		}
		if err == io.EOF || n == 0 {
			r.drained = true
		}
	}

	return nil
}

// appendLE encodes signed samples as little-endian PCM. 8-bit output is
// unsigned, as in WAV.
func appendLE(dst []byte, samples []int, bits int) []byte {
	for _, s := range samples {
		switch bits {
		case 8:
			dst = append(dst, byte(int8(s))+128)
		case 16:
			dst = binary.LittleEndian.AppendUint16(dst, uint16(int16(s)))
		case 24:
			v := uint32(int32(s))
			dst = append(dst, byte(v), byte(v>>8), byte(v>>16))
		case 32:
			dst = binary.LittleEndian.AppendUint32(dst, uint32(int32(s)))
		}
	}

	return dst
}

func (r *Reader) Close() error {
	f := r.f
	r.f = nil
	r.dec = nil
	r.buf = nil
	r.pending = nil
	r.pos = 0

	if f == nil {
		return nil
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", r.name, err)
	}

	return nil
}

func (r *Reader) Read(p []byte) (int, error) {
	if r.dec == nil {
		return 0, audio.ErrReaderNotOpen
	}

	block := int64(r.desc.BlockSize)
	remaining := r.desc.DecodedBytes - r.pos
	if remaining <= 0 {
		return 0, io.EOF
	}

	want := min(int64(len(p)), remaining)
	want -= want % block
	if want == 0 {
		return 0, nil
	}

	if err := r.fill(int(want)); err != nil {
		return 0, err
	}

	// A payload shorter than its header ends on the last whole frame.
	avail := int64(len(r.pending))
	avail -= avail % block
	if avail == 0 {
		return 0, io.EOF
	}

	n := copy(p, r.pending[:min(want, avail)])
	r.pending = r.pending[n:]
	r.pos += int64(n)

	return n, nil
}

func (r *Reader) SeekRaw(b int64) error {
	if r.dec == nil {
		return audio.ErrReaderNotOpen
	}
	if b < 0 || b > r.desc.DecodedBytes {
		return fmt.Errorf("byte %d of %d: %w", b, r.desc.DecodedBytes, audio.ErrSeekOutOfRange)
	}

	if b < r.pos {
		if err := r.rewind(); err != nil {
			return err
		}
	}

	for r.pos < b {
		if len(r.pending) == 0 {
			if err := r.fill(decodeFrames * r.desc.BlockSize); err != nil {
				return err
			}
			if len(r.pending) == 0 {
				return fmt.Errorf("%s: seeking to byte %d: %w", r.name, b, io.ErrUnexpectedEOF)
			}
		}

		k := min(b-r.pos, int64(len(r.pending)))
		r.pending = r.pending[k:]
		r.pos += k
	}

	return nil
}

// rewind reopens the file at the first frame.
func (r *Reader) rewind() error {
	f, dec, err := r.openDecoder()
	if err != nil {
		return err
	}

	if r.f != nil {
		r.f.Close()
	}
	r.attach(f, dec)

	return nil
}

func (r *Reader) SeekSample(n int64) error {
	return r.SeekRaw(n * int64(r.desc.BlockSize))
}

func (r *Reader) SeekTime(t time.Duration) error {
	return r.SeekSample(int64(t) * int64(r.desc.SampleRate) / int64(time.Second))
}
