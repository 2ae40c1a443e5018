// SPDX-License-Identifier: EPL-2.0

package cli

import "errors"

var (
	ErrOpenFailed   = errors.New("stream failed to open")
	ErrCloseTimeout = errors.New("timed out closing stream")
	ErrBadTone      = errors.New("invalid tone parameters")
)
