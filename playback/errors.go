// SPDX-License-Identifier: EPL-2.0

package playback

import "errors"

var (
	ErrEffectNotFound = errors.New("effect not attached to voice")
	ErrVoiceNotFound  = errors.New("voice not registered with engine")
	ErrEngineClosed   = errors.New("engine closed")
	ErrFormatMismatch = errors.New("stream format not supported by device")
	ErrInvalidConfig  = errors.New("invalid engine config")
)
