// SPDX-License-Identifier: MPL-2.0

// Package platform names the operating systems conjure distinguishes and
// detects the application sandboxes (Flatpak, Snap) it may run in.
package platform
