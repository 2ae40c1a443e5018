// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrStarved           = errors.New("next buffer not ready")
	ErrEndOfStream       = errors.New("end of stream")
	ErrStreamNotOpen     = errors.New("stream not open")
	ErrNotStreaming      = errors.New("source is not a streaming source")
	ErrInvalidStreamDesc = errors.New("invalid stream description")
	ErrUnsupportedFormat = errors.New("unsupported sample format")
	ErrReaderNotOpen     = errors.New("file reader not open")
	ErrSeekOutOfRange    = errors.New("seek out of range")
	ErrUnknownExtension  = errors.New("no reader registered for extension")
)
