// SPDX-License-Identifier: MPL-2.0

// Package version defines the application version identifier and the
// compatibility rules used to gate project generation and to classify
// available updates.
//
// Compatibility is major-locked: an application may generate a project when
// it runs exactly the project's minimal version or a minor/patch release
// above it on the same major line. A higher major version is never
// compatible, even though it orders above the requirement.
package version
