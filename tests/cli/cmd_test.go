// SPDX-License-Identifier: MPL-2.0

// Package cli contains end-to-end tests of the conjure binary using
// testscript.
package cli

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// testVersion is linked into the test binary so the generation gate and
// the version command behave like a release build.
const testVersion = "2.5.0"

var (
	// binaryPath is the path to the built conjure binary.
	binaryPath string
	// projectRoot is the path to the repository root.
	projectRoot string
)

func TestMain(m *testing.M) {
	wd, err := os.Getwd()
	if err != nil {
		panic("failed to get working directory: " + err.Error())
	}

	// Walk up to find go.mod
	projectRoot = wd
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(projectRoot)
		if parent == projectRoot {
			panic("could not find project root (go.mod)")
		}
		projectRoot = parent
	}

	binDir, err := os.MkdirTemp("", "conjure-cli-*")
	if err != nil {
		panic("failed to create bin directory: " + err.Error())
	}

	binaryName := "conjure"
	if runtime.GOOS == "windows" {
		binaryName = "conjure.exe"
	}
	binaryPath = filepath.Join(binDir, binaryName)

	ldflags := "-X github.com/conjure-dev/conjure/cmd/conjure.Version=" + testVersion
	cmd := exec.CommandContext(context.Background(), "go", "build", "-ldflags", ldflags, "-o", binaryPath, ".")
	cmd.Dir = projectRoot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build conjure: " + err.Error())
	}

	code := m.Run()
	_ = os.RemoveAll(binDir)
	os.Exit(code)
}

// TestCLI runs all testscript tests in the testdata directory.
func TestCLI(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("scripts assume a POSIX shell")
	}

	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			binDir := filepath.Dir(binaryPath)
			env.Setenv("PATH", binDir+string(os.PathListSeparator)+env.Getenv("PATH"))
			env.Setenv("CONJURE_BIN_DIR", binDir)

			// Keep the user's config and the network out of the scripts.
			env.Setenv("XDG_CONFIG_HOME", filepath.Join(env.WorkDir, ".config"))
			env.Setenv("CONJURE_UPDATES_DISABLED", "true")
			env.Setenv("NO_COLOR", "1")
			return nil
		},
		ContinueOnError: true,
	})
}
