// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes RIFF/WAVE files holding integer PCM.
//
// # Reading
//
// Reader implements audio.FileReader. It locates the "fmt " and "data"
// chunks by scanning 8-byte chunk headers, so chunks may appear in any
// order and unknown chunks (LIST, fact, cue ...) are skipped:
//
//	reader := wav.NewFileReader(afero.NewOsFs(), "music/theme.wav")
//	if err := reader.Open(); err != nil {
//	    // Handle error
//	}
//	defer reader.Close()
//
//	buf := make([]byte, 64*1024)
//	n, err := reader.Read(buf)
//
// Reads are always a whole number of blocks (frames). Header fields are
// decoded as little-endian regardless of the host, and the payload is
// returned exactly as stored.
//
// # Supported Formats
//
//   - PCM 8, 16, 24 and 32-bit integer
//   - WAVE_FORMAT_EXTENSIBLE with a PCM sub-format
//   - Any channel count and sample rate
//
// Compressed and floating point payloads are rejected with
// ErrOnlyPCMSupported.
//
// # Writing
//
// WritePCM produces a PCM WAV through github.com/go-audio/wav:
//
//	f, _ := os.Create("tone.wav")
//	err := wav.WritePCM16(f, 44100, 2, samples)
package wav
