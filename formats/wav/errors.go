// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	ErrNotWavFile        = errors.New("not a WAV file")
	ErrChunkNotFound     = errors.New("WAV chunk not found")
	ErrBadFormatChunk    = errors.New("bad WAV fmt chunk")
	ErrOnlyPCMSupported  = errors.New("only integer PCM WAV is supported")
	ErrUnsupportedLayout = errors.New("unsupported WAV layout")
)
