// SPDX-License-Identifier: EPL-2.0

// Package contract holds the debug-build assertions used to catch misuse of
// the buffer lock discipline and other programmer contracts.
//
// Assertions are active in every build except one made with -tags release,
// where Assert compiles to nothing.
package contract

// Violation is the panic value raised by a failed assertion.
type Violation string

func (v Violation) Error() string { return "contract violation: " + string(v) }
