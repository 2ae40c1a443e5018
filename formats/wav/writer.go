// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

// WritePCM writes interleaved integer samples as a PCM WAV file.
// samples holds one value per channel per frame at the given bit depth.
func WritePCM(w io.WriteSeeker, sampleRate, channels, bitsPerSample int, samples []int) error {
	if channels <= 0 || len(samples)%channels != 0 {
		return fmt.Errorf("%d samples for %d channels: %w", len(samples), channels, ErrUnsupportedLayout)
	}

	enc := gowav.NewEncoder(w, sampleRate, bitsPerSample, channels, formatPCM)

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           samples,
		SourceBitDepth: bitsPerSample,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("%w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// WritePCM16 is WritePCM for 16-bit samples.
func WritePCM16(w io.WriteSeeker, sampleRate, channels int, samples []int16) error {
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	return WritePCM(w, sampleRate, channels, 16, data)
}
