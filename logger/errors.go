// SPDX-License-Identifier: EPL-2.0

package logger

import "errors"

// ErrUnknownFormat is returned for a log format other than text or json.
var ErrUnknownFormat = errors.New("unknown log format")
