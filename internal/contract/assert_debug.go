// SPDX-License-Identifier: EPL-2.0

//go:build !release

package contract

// Enabled reports whether assertions are compiled in.
const Enabled = true

// Assert panics with a Violation carrying msg when cond is false.
func Assert(cond bool, msg string) {
	if !cond {
		panic(Violation(msg))
	}
}
