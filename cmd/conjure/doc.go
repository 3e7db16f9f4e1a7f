// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for conjure.
//
// The command tree is built around App, which loads configuration, creates
// the logger and executor once per invocation and hands every command a
// console whose output is streamed to stdout while it runs. An interrupt
// cancels every task running on that console.
package cmd
