// SPDX-License-Identifier: EPL-2.0

package audstream

import (
	"fmt"
	"path/filepath"

	"github.com/ik5/audstream/audio"
	"github.com/ik5/audstream/formats/aiff"
	"github.com/ik5/audstream/formats/wav"
	"github.com/spf13/afero"
)

// NewRegistry returns a registry with every built-in reader registered.
func NewRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register("wav", wav.Factory)
	reg.Register("aif", aiff.Factory)
	reg.Register("aiff", aiff.Factory)

	return reg
}

var defaultRegistry = NewRegistry()

// OpenReader returns an unopened reader for path chosen by its extension.
func OpenReader(fs afero.Fs, path string) (audio.FileReader, error) {
	return OpenReaderWith(defaultRegistry, fs, path)
}

// OpenReaderWith is OpenReader over a custom registry.
func OpenReaderWith(reg *audio.Registry, fs afero.Fs, path string) (audio.FileReader, error) {
	factory, ok := reg.ForFile(path)
	if !ok {
		return nil, fmt.Errorf("%q: %w", filepath.Ext(path), audio.ErrUnknownExtension)
	}

	return factory(audio.FSOpener(fs, path), path), nil
}
