// SPDX-License-Identifier: MPL-2.0

package scenario

import (
	"fmt"
	"os"
	"strings"
)

// Script renders the scenario as a POSIX shell script. Required steps abort
// the script on failure; optional steps print a warning and continue.
// Steps with a working directory run in a subshell so the directory change
// does not leak into later steps.
func (s Scenario) Script() string {
	var sb strings.Builder

	sb.WriteString("#!/bin/sh\n")
	if s.Title != "" {
		fmt.Fprintf(&sb, "# %s\n", strings.ReplaceAll(s.Title, "\n", " "))
	}
	sb.WriteString("set -e\n\n")

	for i, step := range s.Steps {
		body := step.Command.Text
		if step.Command.WorkDir != "" {
			body = "(cd " + quote(step.Command.WorkDir) + " && " + step.Command.Text + ")"
		}
		fmt.Fprintf(&sb, "echo %s\n", quote(step.Command.String()))
		if step.RequiredSuccess {
			sb.WriteString(body + "\n")
			continue
		}
		// Grouping keeps "||" from binding to only the last pipeline of body.
		fmt.Fprintf(&sb, "{ %s\n} || echo %s >&2\n", body, quote(fmt.Sprintf("warning: optional step %d failed", i+1)))
	}

	return sb.String()
}

// WriteScript writes Script() to a new executable file in dir and returns
// its path.
func (s Scenario) WriteScript(dir string) (_ string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating script directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "scenario-*.sh")
	if err != nil {
		return "", fmt.Errorf("creating script file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	if _, err := f.WriteString(s.Script()); err != nil {
		return "", fmt.Errorf("writing script: %w", err)
	}
	if err := f.Chmod(0o755); err != nil {
		return "", fmt.Errorf("making script executable: %w", err)
	}

	return f.Name(), nil
}
