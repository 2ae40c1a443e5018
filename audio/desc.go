// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"time"
)

// DataFormat is the sample encoding of a PCM payload.
type DataFormat int

const (
	FormatUnknown DataFormat = iota
	// PCM8 is unsigned 8-bit.
	PCM8
	// PCM16, PCM24 and PCM32 are signed little-endian integers.
	PCM16
	PCM24
	PCM32
)

func (f DataFormat) String() string {
	switch f {
	case PCM8:
		return "pcm8"
	case PCM16:
		return "pcm16"
	case PCM24:
		return "pcm24"
	case PCM32:
		return "pcm32"
	default:
		return "unknown"
	}
}

// FormatForBits maps a bit depth to its integer PCM format.
func FormatForBits(bits int) DataFormat {
	switch bits {
	case 8:
		return PCM8
	case 16:
		return PCM16
	case 24:
		return PCM24
	case 32:
		return PCM32
	default:
		return FormatUnknown
	}
}

// StreamDesc is the immutable description of a PCM stream, produced once
// by a FileReader when it parses its header.
type StreamDesc struct {
	Format        DataFormat
	Channels      int
	SampleRate    int
	BitsPerSample int
	// BlockSize is the size in bytes of one frame (all channels).
	BlockSize int

	EncodedBytes int64
	DecodedBytes int64
	// SizeSamples is the length in frames.
	SizeSamples int64
}

// NewStreamDesc fills the derived fields for a PCM payload of dataBytes.
func NewStreamDesc(channels, sampleRate, bitsPerSample int, dataBytes int64) StreamDesc {
	d := StreamDesc{
		Format:        FormatForBits(bitsPerSample),
		Channels:      channels,
		SampleRate:    sampleRate,
		BitsPerSample: bitsPerSample,
		BlockSize:     channels * bitsPerSample / 8,
		EncodedBytes:  dataBytes,
		DecodedBytes:  dataBytes,
	}
	if d.BlockSize > 0 {
		d.SizeSamples = dataBytes / int64(d.BlockSize)
	}

	return d
}

// BytesPerSecond of decoded playback.
func (d *StreamDesc) BytesPerSecond() int {
	return d.SampleRate * d.BlockSize
}

// BytesToSamples converts a byte count to whole frames.
func (d *StreamDesc) BytesToSamples(n int64) int64 {
	if d.BlockSize == 0 {
		return 0
	}

	return n / int64(d.BlockSize)
}

// Duration of the whole stream.
func (d *StreamDesc) Duration() time.Duration {
	if d.SampleRate == 0 {
		return 0
	}

	return time.Duration(d.SizeSamples) * time.Second / time.Duration(d.SampleRate)
}

// Validate checks that the description is usable for playback.
func (d *StreamDesc) Validate() error {
	if d.Channels <= 0 || d.SampleRate <= 0 {
		return fmt.Errorf("%d channels at %d Hz: %w", d.Channels, d.SampleRate, ErrInvalidStreamDesc)
	}
	if d.Format == FormatUnknown {
		return fmt.Errorf("%d bits per sample: %w", d.BitsPerSample, ErrUnsupportedFormat)
	}
	if d.BlockSize != d.Channels*d.BitsPerSample/8 {
		return fmt.Errorf("block size %d: %w", d.BlockSize, ErrInvalidStreamDesc)
	}

	return nil
}

func (d *StreamDesc) String() string {
	return fmt.Sprintf("%s %dch %dHz %s", d.Format, d.Channels, d.SampleRate, d.Duration())
}
