// SPDX-License-Identifier: EPL-2.0

// Package aiff provides an audio.FileReader for AIFF files.
//
// Decoding is done by github.com/go-audio/aiff. AIFF stores samples
// big-endian; the reader flips them so the payload it hands out has the same
// little-endian layout as a WAV payload, and 8-bit samples are shifted from
// signed to unsigned.
//
// The whole payload is decoded on Open. AIFF clips tend to be short effects,
// which is what resident sources are for.
//
//	r := aiff.NewFileReader(afero.NewOsFs(), "click.aiff")
//	if err := r.Open(); err != nil {
//	    // errors.Is(err, aiff.ErrNotAiffFile) ...
//	}
//	defer r.Close()
//
// Files typically use the .aif or .aiff extension. Compressed AIFF-C is not
// supported.
package aiff
