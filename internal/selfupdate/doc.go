// SPDX-License-Identifier: MPL-2.0

// Package selfupdate discovers conjure releases on GitHub and replaces the
// running binary with one of them.
//
// Service implements environment.Updater. Releases are listed through the
// GitHub Releases API, cached for a short time, and mapped to
// version.Version values. Applying a release downloads its platform archive,
// verifies it against the release's checksums.txt and renames the extracted
// binary over the running executable.
package selfupdate
