// SPDX-License-Identifier: EPL-2.0

package main

import "github.com/ik5/audstream/internal/cli"

func main() {
	cli.Execute()
}
