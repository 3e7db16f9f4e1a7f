// SPDX-License-Identifier: MPL-2.0

// Command conjure runs project scenarios and keeps the developer
// environment in shape.
package main

import cmd "github.com/conjure-dev/conjure/cmd/conjure"

func main() {
	cmd.Execute()
}
