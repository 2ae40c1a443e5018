// SPDX-License-Identifier: EPL-2.0

// Package utils holds PCM sample conversions shared by the backends and the
// command line tools.
package utils

import "encoding/binary"

// Float32ToInt16 scales x from [-1, 1] to a 16-bit sample, clamping values
// outside the range.
func Float32ToInt16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// 32767 for positive max to avoid overflow
	return int16(x * 32767.0)
}

// SampleToFloat decodes one little-endian PCM sample of the given bit depth
// to [-1, 1). 8-bit samples are unsigned, wider ones signed. b must hold at
// least bits/8 bytes; unknown depths decode as silence.
func SampleToFloat(b []byte, bits int) float64 {
	switch bits {
	case 8:
		return (float64(b[0]) - 128) / 128
	case 16:
		return float64(int16(binary.LittleEndian.Uint16(b))) / 32768
	case 24:
		v := int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16)
		// sign-extend from bit 23
		v = v << 8 >> 8
		return float64(v) / 8388608
	case 32:
		return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648
	default:
		return 0
	}
}

// FrameToStereo decodes one interleaved frame into a left/right pair. Mono
// is copied to both sides; channels past the second are ignored.
func FrameToStereo(frame []byte, channels, bits int) [2]float64 {
	width := bits / 8
	left := SampleToFloat(frame, bits)
	if channels < 2 {
		return [2]float64{left, left}
	}

	return [2]float64{left, SampleToFloat(frame[width:], bits)}
}
