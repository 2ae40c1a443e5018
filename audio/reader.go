// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"time"

	"github.com/spf13/afero"
)

// OpenFunc opens the byte stream behind a FileReader. It is called on every
// FileReader.Open, so a reader can go through any number of open/close
// cycles.
type OpenFunc func() (io.ReadSeekCloser, error)

// FSOpener returns an OpenFunc for name on fs.
func FSOpener(fs afero.Fs, name string) OpenFunc {
	return func() (io.ReadSeekCloser, error) {
		return fs.Open(name)
	}
}

// FileReader reads the PCM payload of one container file.
//
// The caller owns a FileReader. Sources only borrow it, calling Open and
// Close once per stream cycle, and never touch it from more than one
// goroutine at a time.
type FileReader interface {
	Open() error
	Close() error

	// Read fills p with whole blocks of PCM data. It returns io.EOF once
	// the payload is exhausted.
	Read(p []byte) (int, error)

	// Position is the byte offset inside the PCM payload.
	Position() int64

	SeekRaw(byte int64) error
	SeekSample(sample int64) error
	SeekTime(t time.Duration) error

	// StreamDesc is valid after a successful Open.
	StreamDesc() *StreamDesc

	Name() string
}
