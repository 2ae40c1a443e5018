// SPDX-License-Identifier: EPL-2.0

package buffer

import "errors"

// ErrCapacity is returned when a write would grow the filled size past the
// reserved capacity.
var ErrCapacity = errors.New("buffer capacity exceeded")
