// SPDX-License-Identifier: MPL-2.0

// Package environment models the developer environment as a set of
// probed items (toolchains, package managers) with optional remedies, and
// coordinates checking them together with the application's own version.
//
// Items move through Unknown or Waiting, then InProgress, then Actual,
// Warning or Error. Only Probe produces the final three; Remedy re-enters
// InProgress and ends with a fresh probe or a new Error. The Coordinator
// checks items sequentially so progress appears in a stable order.
package environment
