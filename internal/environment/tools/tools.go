// SPDX-License-Identifier: MPL-2.0

// Package tools provides environment items for command-line tools whose
// presence and version are probed by running a command.
package tools

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/conjure-dev/conjure/internal/environment"
	"github.com/conjure-dev/conjure/internal/executor"
	"github.com/conjure-dev/conjure/internal/logging"
	"github.com/conjure-dev/conjure/pkg/line"
	"github.com/conjure-dev/conjure/pkg/scenario"
)

// VersionPlaceholder is replaced with the required version in install
// commands, e.g. "mise install tuist@{{version}}".
const VersionPlaceholder = "{{version}}"

var versionPattern = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z.]+)?`)

type (
	// CommandTool is an environment item probed by running ProbeCommand
	// and reading the first version number of its output.
	CommandTool struct {
		Name         string
		ProbeCommand string
		// Version, when set, must match the probed version exactly.
		Version string
		// Constraint, when set, is a semver range the probed version must
		// satisfy, e.g. ">= 2.40, < 3".
		Constraint string
		// Install is the command that installs or updates the tool.
		Install string
		// WarnOnMismatch reports a version mismatch as a warning instead
		// of an error.
		WarnOnMismatch bool
		// Dir is the working directory of the probe and install commands.
		Dir string
	}

	// InstallOperation runs an install command as an environment remedy.
	InstallOperation struct {
		Name    string
		Tool    string
		Command string
		Dir     string
	}
)

var (
	_ environment.Item      = (*CommandTool)(nil)
	_ environment.Operation = (*InstallOperation)(nil)
)

// Title implements environment.Item.
func (t *CommandTool) Title() string { return t.Name }

// Probe implements environment.Item.
func (t *CommandTool) Probe(ctx context.Context, exec executor.Executor, log logging.Sink) environment.Status {
	if log == nil {
		log = logging.Discard()
	}

	out, err := exec.Output(ctx, t.ProbeCommand, t.Dir)
	if err != nil || strings.TrimSpace(out) == "" {
		if ctx.Err() != nil {
			return environment.Unknown("check of " + t.Name + " was interrupted")
		}
		log.Log(logging.DebugLevel, "tool probe failed", "tool", t.Name, "err", err)
		return environment.Error(t.Name+" is not installed", t.installOp("Install"))
	}

	if t.Version == "" && t.Constraint == "" {
		return environment.Actual()
	}

	raw := versionPattern.FindString(out)
	if raw == "" {
		return environment.Unknown("cannot read " + t.Name + " version from " + firstLine(out))
	}
	have, err := semver.NewVersion(raw)
	if err != nil {
		return environment.Unknown(fmt.Sprintf("cannot parse %s version %q: %v", t.Name, raw, err))
	}

	ok, want, err := t.satisfied(have)
	if err != nil {
		return environment.Error(err.Error(), nil)
	}
	if ok {
		return environment.Actual()
	}

	desc := fmt.Sprintf("%s %s is installed, %s is required", t.Name, have.Original(), want)
	if t.WarnOnMismatch {
		return environment.Warning(desc, t.installOp("Update"))
	}
	return environment.Error(desc, t.installOp("Update"))
}

// satisfied checks have against Version and Constraint and returns a
// description of the requirement.
func (t *CommandTool) satisfied(have *semver.Version) (bool, string, error) {
	if t.Version != "" {
		want, err := semver.NewVersion(t.Version)
		if err != nil {
			return false, "", fmt.Errorf("invalid required version %q for %s: %w", t.Version, t.Name, err)
		}
		return have.Equal(want), t.Version, nil
	}

	c, err := semver.NewConstraint(t.Constraint)
	if err != nil {
		return false, "", fmt.Errorf("invalid version constraint %q for %s: %w", t.Constraint, t.Name, err)
	}
	return c.Check(have), t.Constraint, nil
}

func (t *CommandTool) installOp(name string) environment.Operation {
	if t.Install == "" {
		return nil
	}
	cmd := t.Install
	if t.Version != "" {
		cmd = strings.ReplaceAll(cmd, VersionPlaceholder, t.Version)
	}
	return &InstallOperation{Name: name, Tool: t.Name, Command: cmd, Dir: t.Dir}
}

// Title implements environment.Operation.
func (o *InstallOperation) Title() string { return o.Name }

// Run implements environment.Operation. Command output is logged at info
// level. A failure is returned as an *environment.OperationError whose
// Retry is the same operation.
func (o *InstallOperation) Run(ctx context.Context, exec executor.Executor, log logging.Sink) error {
	if log == nil {
		log = logging.Discard()
	}

	err := exec.Execute(ctx, scenario.NewCommand(o.Command, scenario.AtPath(o.Dir)), func(l line.Line) {
		log.Log(logging.InfoLevel, l.String(), "tool", o.Tool)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &environment.OperationError{
		Description: fmt.Sprintf("%s of %s failed: %v", strings.ToLower(o.Name), o.Tool, err),
		Retry:       o,
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
