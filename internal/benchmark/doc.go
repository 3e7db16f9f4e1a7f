// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks over conjure's hot paths, used to
// generate the PGO profile:
//   - project file decoding and schema validation
//   - native and virtual command execution
//   - scenarios run end to end through the console
//
// To generate a profile, run:
//
//	go test -run '^$' -bench . -cpuprofile default.pgo ./internal/benchmark
package benchmark
