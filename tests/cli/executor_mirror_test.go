// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"os"
	"slices"
	"strings"
	"testing"
)

// mirrorExemptions lists virtual_*.txtar scripts that intentionally have no
// native_*.txtar counterpart, with the reason.
var mirrorExemptions = map[string]string{
	"virtual_without_shell.txtar": "checks that the embedded interpreter needs no system shell",
}

// TestExecutorMirrorCoverage enforces that every script exercising the
// virtual executor has a native executor mirror, so both executors keep
// the same console behavior.
func TestExecutorMirrorCoverage(t *testing.T) {
	t.Parallel()

	entries, err := os.ReadDir("testdata")
	if err != nil {
		t.Fatalf("failed to read testdata directory: %v", err)
	}

	var virtual []string
	present := make(map[string]bool)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".txtar") {
			continue
		}
		present[name] = true
		if strings.HasPrefix(name, "virtual_") {
			virtual = append(virtual, name)
		}
	}
	if len(virtual) == 0 {
		t.Fatal("no virtual_*.txtar files found in tests/cli/testdata")
	}
	slices.Sort(virtual)

	for _, name := range virtual {
		mirror := "native_" + strings.TrimPrefix(name, "virtual_")
		if present[mirror] {
			continue
		}
		if _, ok := mirrorExemptions[name]; ok {
			continue
		}
		t.Errorf("missing native executor mirror for %q (expected %q)", name, mirror)
	}

	for name, reason := range mirrorExemptions {
		if !present[name] {
			t.Errorf("stale mirror exemption %q (%s)", name, reason)
		}
	}
}
