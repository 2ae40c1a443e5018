// SPDX-License-Identifier: EPL-2.0

//go:build release

package contract

const Enabled = false

func Assert(bool, string) {}
