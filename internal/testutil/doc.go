// SPDX-License-Identifier: MPL-2.0

// Package testutil provides shared test doubles and helpers.
//
// FakeExecutor scripts command results without spawning processes,
// RecordingSink captures log records, and FakeClock supplies a manually
// advanced time source. The Must* helpers fail the test immediately when a
// filesystem or environment operation fails.
package testutil
