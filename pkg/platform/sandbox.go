// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"os"
	"sync"
)

// Sandboxes conjure can detect.
const (
	SandboxNone    SandboxType = ""
	SandboxFlatpak SandboxType = "flatpak"
	SandboxSnap    SandboxType = "snap"
)

// flatpakInfo exists inside every Flatpak sandbox.
const flatpakInfo = "/.flatpak-info"

// SandboxType identifies an application sandbox.
type SandboxType string

// detectOnce caches detection for the process. detectSandboxFrom must not
// panic: sync.OnceValue re-panics on every later call.
var detectOnce = sync.OnceValue(func() SandboxType {
	return detectSandboxFrom(os.Getenv, statFile)
})

// DetectSandbox returns the sandbox the process runs in. Flatpak is
// recognized by /.flatpak-info and takes precedence over Snap, which is
// recognized by SNAP_NAME.
func DetectSandbox() SandboxType {
	return detectOnce()
}

// IsInSandbox reports whether DetectSandbox found a sandbox.
func IsInSandbox() bool {
	return DetectSandbox() != SandboxNone
}

// SpawnCommandFor returns the program that runs commands on the host from
// inside st, or "" outside a sandbox.
func SpawnCommandFor(st SandboxType) string {
	switch st {
	case SandboxFlatpak:
		return "flatpak-spawn"
	case SandboxSnap:
		return "snap"
	}
	return ""
}

// SpawnArgsFor returns the arguments placed between SpawnCommandFor(st)
// and the host command.
func SpawnArgsFor(st SandboxType) []string {
	switch st {
	case SandboxFlatpak:
		return []string{"--host"}
	case SandboxSnap:
		return []string{"run", "--shell"}
	}
	return nil
}

func detectSandboxFrom(getenv func(string) string, stat func(string) error) SandboxType {
	if stat(flatpakInfo) == nil {
		return SandboxFlatpak
	}
	if getenv("SNAP_NAME") != "" {
		return SandboxSnap
	}
	return SandboxNone
}

func statFile(path string) error {
	_, err := os.Stat(path)
	return err
}
