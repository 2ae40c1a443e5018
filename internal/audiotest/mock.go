// SPDX-License-Identifier: EPL-2.0

// Package audiotest holds fixtures shared by the package tests: PCM sample
// generators, a recording buffer consumer, a capturing logger and a polling
// helper for asynchronous work.
package audiotest

import (
	"bytes"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ik5/audstream/buffer"
)

// Samples generates channels*frames interleaved integer samples.
// waveform is called with the frame index and channel.
func Samples(channels, frames int, waveform func(frame int, channel int) int) []int {
	out := make([]int, channels*frames)
	for f := range frames {
		for ch := range channels {
			out[f*channels+ch] = waveform(f, ch)
		}
	}

	return out
}

// Silence generates zeroed samples.
func Silence(channels, frames int) []int {
	return make([]int, channels*frames)
}

// Sine16 generates a full scale 16-bit sine wave.
func Sine16(sampleRate, channels, frames int, frequency float64) []int {
	return Samples(channels, frames, func(frame int, _ int) int {
		t := float64(frame) / float64(sampleRate)
		return int(math.Sin(2*math.Pi*frequency*t) * 32767)
	})
}

// Counter16 generates 16-bit samples whose value is the frame index modulo
// 32768, which lets a test tell which part of a file it is looking at.
func Counter16(channels, frames int) []int {
	return Samples(channels, frames, func(frame int, _ int) int {
		return frame % 32768
	})
}

// Recorder is an audio.BufferConsumer that keeps every buffer it is handed.
type Recorder struct {
	mu      sync.Mutex
	buffers []*buffer.Buffer
}

func (r *Recorder) SubmitBuffer(b *buffer.Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffers = append(r.buffers, b)
}

// Buffers returns a copy of the submitted buffers in order.
func (r *Recorder) Buffers() []*buffer.Buffer {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]*buffer.Buffer(nil), r.buffers...)
}

// Len is the number of submitted buffers.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.buffers)
}

// Eventually polls cond until it returns true or timeout expires.
func Eventually(t testing.TB, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out after %s waiting for: %s", timeout, msg)
		}
		time.Sleep(time.Millisecond)
	}
}

// LogBuffer is a goroutine safe sink for captured log output.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// NewLogger returns a debug level text logger writing into the returned
// LogBuffer.
func NewLogger() (*slog.Logger, *LogBuffer) {
	out := &LogBuffer{}
	h := slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slog.New(h), out
}
