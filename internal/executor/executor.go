// SPDX-License-Identifier: MPL-2.0

// Package executor runs shell command lines and streams their output as
// console lines. Two implementations exist: Native spawns the platform
// shell, Virtual interprets the command with the embedded mvdan/sh shell.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/conjure-dev/conjure/pkg/line"
	"github.com/conjure-dev/conjure/pkg/platform"
	"github.com/conjure-dev/conjure/pkg/scenario"
)

const (
	// KindNative selects the platform shell executor.
	KindNative Kind = "native"
	// KindVirtual selects the embedded shell interpreter.
	KindVirtual Kind = "virtual"

	// DefaultKillGrace is how long a canceled command may take to exit after
	// the termination signal before it is killed.
	DefaultKillGrace = 3 * time.Second

	// maxLineSize bounds a single output line.
	maxLineSize = 1 << 20
)

var (
	// ErrExecution is wrapped by every failure to start or complete a command.
	ErrExecution = errors.New("command execution failed")

	// ErrUnknownKind is returned by New for an unsupported executor kind.
	ErrUnknownKind = errors.New("unknown executor kind")
)

type (
	// Executor runs shell command lines.
	//
	// Execute streams stdout and stderr line by line to onLine and returns
	// when the command exits. onLine is never called concurrently. A
	// non-zero exit yields an *ExitError; cancellation of ctx yields an
	// error matching context.Canceled.
	//
	// Output runs text in dir and returns its combined output with
	// surrounding whitespace trimmed.
	Executor interface {
		Execute(ctx context.Context, cmd scenario.Command, onLine func(line.Line)) error
		Output(ctx context.Context, text, dir string) (string, error)
	}

	// Kind names an executor implementation.
	Kind string

	// Config selects and tunes an executor.
	Config struct {
		Kind Kind
		// Shell overrides shell detection for the native executor.
		Shell string
		// KillGrace is the delay between the termination signal and the
		// kill signal. Zero selects DefaultKillGrace.
		KillGrace time.Duration
		// PTY runs native commands attached to a pseudo-terminal.
		PTY bool
		// Sandbox is the application sandbox conjure runs in. Native
		// commands inside a sandbox are spawned on the host.
		Sandbox platform.SandboxType
	}

	// ExitError reports a command that ran and exited with a non-zero code.
	ExitError struct {
		Code    int
		Command string
	}
)

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("process finished with exit code %d", e.Code)
}

// Unwrap returns ErrExecution so callers can use errors.Is.
func (e *ExitError) Unwrap() error { return ErrExecution }

// ParseKind maps a configuration value to a Kind. Empty selects KindNative.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindNative, nil
	case KindNative, KindVirtual:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// New builds the executor described by cfg.
func New(cfg Config) (Executor, error) {
	kind, err := ParseKind(string(cfg.Kind))
	if err != nil {
		return nil, err
	}
	grace := cfg.KillGrace
	if grace <= 0 {
		grace = DefaultKillGrace
	}

	switch kind {
	case KindVirtual:
		return &Virtual{KillGrace: grace}, nil
	default:
		return &Native{Shell: cfg.Shell, KillGrace: grace, PTY: cfg.PTY, Spawn: hostSpawn(cfg.Sandbox)}, nil
	}
}

// hostSpawn is the command prefix that escapes sandbox st, or nil.
func hostSpawn(st platform.SandboxType) []string {
	cmd := platform.SpawnCommandFor(st)
	if cmd == "" {
		return nil
	}
	return append([]string{cmd}, platform.SpawnArgsFor(st)...)
}

// canceled wraps the context error of an interrupted command.
func canceled(ctx context.Context, text string) error {
	return fmt.Errorf("command %q interrupted: %w", text, ctx.Err())
}

// collect runs cmd through exec and joins its lines for Output.
func collect(ctx context.Context, exec Executor, text, dir string) (string, error) {
	var sb strings.Builder
	err := exec.Execute(ctx, scenario.NewCommand(text, scenario.AtPath(dir)), func(l line.Line) {
		sb.WriteString(l.String())
		sb.WriteByte('\n')
	})
	return strings.TrimSpace(sb.String()), err
}
