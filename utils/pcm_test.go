// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestFloat32ToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input float32
		want  int16
	}{
		{name: "zero", input: 0.0, want: 0},
		{name: "max positive", input: 1.0, want: math.MaxInt16},
		{name: "max negative", input: -1.0, want: -math.MaxInt16},
		{name: "half positive", input: 0.5, want: 16383},
		{name: "clamp over max", input: 1.5, want: math.MaxInt16},
		{name: "clamp way under min", input: -100.0, want: -math.MaxInt16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Float32ToInt16(tt.input); got != tt.want {
				t.Errorf("Float32ToInt16(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSampleToFloat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []byte
		bits int
		want float64
	}{
		{"8 bit center", []byte{0x80}, 8, 0},
		{"8 bit min", []byte{0x00}, 8, -1},
		{"16 bit half", []byte{0x00, 0x40}, 16, 0.5},
		{"16 bit min", []byte{0x00, 0x80}, 16, -1},
		{"24 bit negative half", []byte{0x00, 0x00, 0xC0}, 24, -0.5},
		{"24 bit positive", []byte{0x00, 0x00, 0x20}, 24, 0.25},
		{"32 bit min", []byte{0, 0, 0, 0x80}, 32, -1},
		{"unknown depth", []byte{0xFF, 0xFF}, 12, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := SampleToFloat(tt.in, tt.bits); got != tt.want {
				t.Errorf("SampleToFloat(% x, %d) = %v, want %v", tt.in, tt.bits, got, tt.want)
			}
		})
	}
}

func TestFrameToStereo(t *testing.T) {
	t.Parallel()

	mono := FrameToStereo([]byte{0x00, 0x40}, 1, 16)
	if mono != [2]float64{0.5, 0.5} {
		t.Errorf("mono frame = %v, want [0.5 0.5]", mono)
	}

	quad := FrameToStereo([]byte{0x00, 0x40, 0x00, 0xC0, 0xFF, 0x7F, 0, 0}, 4, 16)
	if quad != [2]float64{0.5, -0.5} {
		t.Errorf("4 channel frame = %v, want [0.5 -0.5]", quad)
	}
}
