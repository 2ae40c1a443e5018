// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/ik5/audstream/audio"
	"github.com/spf13/afero"
)

const (
	chunkHeaderSize = 8
	riffHeaderSize  = 12
	// maxFormatSize is the size of WAVEFORMATEXTENSIBLE.
	maxFormatSize = 40

	formatPCM        = 0x0001
	formatExtensible = 0xFFFE
)

// chunkHeader is the 8-byte tag + size that precedes every RIFF chunk.
type chunkHeader struct {
	id   [4]byte
	size uint32
}

// waveHeader is the fixed layout of the fmt chunk.
type waveHeader struct {
	format        uint16
	numChannels   uint16
	samplesPerSec uint32
	bytesPerSec   uint32
	blockSize     uint16
	bitsPerSample uint16
	// extensible part
	extSize     uint16
	validBits   uint16
	channelMask uint32
	subFormat   [16]byte
}

func parseWaveHeader(b []byte) waveHeader {
	var raw [maxFormatSize]byte
	copy(raw[:], b)

	h := waveHeader{
		format:        binary.LittleEndian.Uint16(raw[0:2]),
		numChannels:   binary.LittleEndian.Uint16(raw[2:4]),
		samplesPerSec: binary.LittleEndian.Uint32(raw[4:8]),
		bytesPerSec:   binary.LittleEndian.Uint32(raw[8:12]),
		blockSize:     binary.LittleEndian.Uint16(raw[12:14]),
		bitsPerSample: binary.LittleEndian.Uint16(raw[14:16]),
		extSize:       binary.LittleEndian.Uint16(raw[16:18]),
		validBits:     binary.LittleEndian.Uint16(raw[18:20]),
		channelMask:   binary.LittleEndian.Uint32(raw[20:24]),
	}
	copy(h.subFormat[:], raw[24:40])

	return h
}

// isPCM reports whether the header describes integer PCM, either directly
// or through the extensible sub-format GUID.
func (h *waveHeader) isPCM() bool {
	switch h.format {
	case formatPCM:
		return true
	case formatExtensible:
		return binary.LittleEndian.Uint16(h.subFormat[0:2]) == formatPCM
	default:
		return false
	}
}

// Reader reads the PCM payload of a RIFF/WAVE file.
type Reader struct {
	open audio.OpenFunc
	name string

	f          io.ReadSeekCloser
	header     waveHeader
	desc       audio.StreamDesc
	dataOffset int64
	pos        int64
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

// Factory is the audio.ReaderFactory for WAV files.
func Factory(open audio.OpenFunc, name string) audio.FileReader {
	return NewReader(open, name)
}

func (r *Reader) Name() string { return r.name }

func (r *Reader) StreamDesc() *audio.StreamDesc { return &r.desc }

func (r *Reader) Position() int64 { return r.pos }

// Open opens the file, parses the header and positions the reader at the
// first sample.
func (r *Reader) Open() error {
	if r.f != nil {
		return nil
	}

	f, err := r.open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", r.name, err)
	}
	r.f = f

	if err := r.readHeader(); err != nil {
		_ = r.Close()
		return fmt.Errorf("%s: %w", r.name, err)
	}

	return r.SeekRaw(0)
}

func (r *Reader) Close() error {
	if r.f == nil {
		return nil
	}

	err := r.f.Close()
	r.f = nil
	r.pos = 0
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

func (r *Reader) readHeader() error {
	size, err := r.f.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	if _, err := r.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w", err)
	}

	var riff [riffHeaderSize]byte
	if _, err := io.ReadFull(r.f, riff[:]); err != nil {
		return ErrNotWavFile
	}
	if !bytes.Equal(riff[0:4], []byte("RIFF")) || !bytes.Equal(riff[8:12], []byte("WAVE")) {
		return ErrNotWavFile
	}

	scopeEnd := min(size, int64(chunkHeaderSize)+int64(binary.LittleEndian.Uint32(riff[4:8])))

	fmtChunk, err := r.seekChunk("fmt ", riffHeaderSize, scopeEnd)
	if err != nil {
		return err
	}
	if fmtChunk.size < 16 || fmtChunk.size > maxFormatSize {
		return fmt.Errorf("fmt chunk of %d bytes: %w", fmtChunk.size, ErrBadFormatChunk)
	}

	raw := make([]byte, fmtChunk.size)
	if _, err := io.ReadFull(r.f, raw); err != nil {
		return fmt.Errorf("%w: %w", ErrBadFormatChunk, err)
	}
	r.header = parseWaveHeader(raw)

	if !r.header.isPCM() {
		return fmt.Errorf("format tag %#04x: %w", r.header.format, ErrOnlyPCMSupported)
	}

	// Step over the pad byte so the scan stays chunk aligned.
	if fmtChunk.size&1 == 1 {
		if _, err := r.f.Seek(1, io.SeekCurrent); err != nil {
			return fmt.Errorf("%w", err)
		}
	}

	dataChunk, err := r.seekChunk("data", riffHeaderSize, scopeEnd)
	if err != nil {
		return err
	}

	offset, err := r.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	r.dataOffset = offset

	// Truncated files report more data than they hold.
	dataSize := min(int64(dataChunk.size), size-offset)

	r.desc = audio.NewStreamDesc(
		int(r.header.numChannels),
		int(r.header.samplesPerSec),
		int(r.header.bitsPerSample),
		dataSize,
	)
	if int(r.header.blockSize) != r.desc.BlockSize {
		return fmt.Errorf("block size %d for %d channels of %d bits: %w",
			r.header.blockSize, r.header.numChannels, r.header.bitsPerSample, ErrUnsupportedLayout)
	}

	return r.desc.Validate()
}

// seekChunk scans chunk headers for id inside [scopeStart, scopeEnd). The
// scan starts at the current file position, wraps to scopeStart when it runs
// off the end of the scope and gives up once it is back where it began. On
// success the file is positioned at the first byte of the chunk payload.
func (r *Reader) seekChunk(id string, scopeStart, scopeEnd int64) (chunkHeader, error) {
	origin, err := r.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return chunkHeader{}, fmt.Errorf("%w", err)
	}

	pos := origin
	wrapped := false
	for {
		if wrapped && pos >= origin {
			return chunkHeader{}, fmt.Errorf("%q: %w", id, ErrChunkNotFound)
		}

		if pos+chunkHeaderSize > scopeEnd {
			if wrapped {
				return chunkHeader{}, fmt.Errorf("%q: %w", id, ErrChunkNotFound)
			}
			wrapped = true
			pos = scopeStart
			continue
		}

		hdr, err := r.readChunkHeader(pos)
		if err != nil {
			return chunkHeader{}, err
		}
		if string(hdr.id[:]) == id {
			return hdr, nil
		}

		pos += chunkHeaderSize + int64(hdr.size) + int64(hdr.size&1)
	}
}

func (r *Reader) readChunkHeader(pos int64) (chunkHeader, error) {
	if _, err := r.f.Seek(pos, io.SeekStart); err != nil {
		return chunkHeader{}, fmt.Errorf("%w", err)
	}

	var raw [chunkHeaderSize]byte
	if _, err := io.ReadFull(r.f, raw[:]); err != nil {
		return chunkHeader{}, fmt.Errorf("chunk header at %d: %w", pos, err)
	}

	var hdr chunkHeader
	copy(hdr.id[:], raw[0:4])
	hdr.size = binary.LittleEndian.Uint32(raw[4:8])

	return hdr, nil
}

// Read fills p with as many whole blocks as fit. It returns io.EOF when the
// payload is exhausted and (0, nil) when p is smaller than one block.
func (r *Reader) Read(p []byte) (int, error) {
	if r.f == nil {
		return 0, audio.ErrReaderNotOpen
	}

	remaining := r.desc.DecodedBytes - r.pos
	if remaining <= 0 {
		return 0, io.EOF
	}

	block := int64(r.desc.BlockSize)
	want := min(int64(len(p)), remaining)
	want -= want % block
	if want == 0 {
		return 0, nil
	}

	n, err := io.ReadFull(r.f, p[:want])
	r.pos += int64(n)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return n, io.EOF
	}
	if err != nil {
		return n, fmt.Errorf("%w", err)
	}

	return n, nil
}

// SeekRaw moves to a byte offset inside the payload.
func (r *Reader) SeekRaw(b int64) error {
	if r.f == nil {
		return audio.ErrReaderNotOpen
	}
	if b < 0 || b > r.desc.DecodedBytes {
		return fmt.Errorf("byte %d of %d: %w", b, r.desc.DecodedBytes, audio.ErrSeekOutOfRange)
	}

	if _, err := r.f.Seek(r.dataOffset+b, io.SeekStart); err != nil {
		return fmt.Errorf("%w", err)
	}
	r.pos = b

	return nil
}

// SeekSample moves to the start of frame n.
func (r *Reader) SeekSample(n int64) error {
	return r.SeekRaw(n * int64(r.desc.BlockSize))
}

// SeekTime moves to the frame playing at t.
func (r *Reader) SeekTime(t time.Duration) error {
	return r.SeekSample(int64(t) * int64(r.desc.SampleRate) / int64(time.Second))
}
