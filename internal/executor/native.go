// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sync/errgroup"

	"github.com/conjure-dev/conjure/pkg/line"
	"github.com/conjure-dev/conjure/pkg/platform"
	"github.com/conjure-dev/conjure/pkg/scenario"
)

// ErrNoShell is returned when no usable shell can be found.
var ErrNoShell = errors.New("no shell found")

// Native executes commands with the system shell. Each command runs in its
// own process group; on cancellation the group receives a termination
// signal and, after KillGrace, a kill signal.
type Native struct {
	// Shell overrides the detected shell.
	Shell string
	// ShellArgs are passed to the shell before the command text.
	ShellArgs []string
	// KillGrace bounds how long a canceled command may take to exit.
	KillGrace time.Duration
	// PTY attaches the command to a pseudo-terminal. Stdout and stderr are
	// then a single stream.
	PTY bool
	// Env is appended to the inherited environment.
	Env []string
	// Spawn, when set, prefixes the shell invocation, e.g.
	// ["flatpak-spawn", "--host"] to leave a Flatpak sandbox.
	Spawn []string
}

var _ Executor = (*Native)(nil)

// Execute runs cmd with the shell and streams its output.
func (n *Native) Execute(ctx context.Context, cmd scenario.Command, onLine func(line.Line)) error {
	if err := ctx.Err(); err != nil {
		return canceled(ctx, cmd.Text)
	}

	shell, err := n.getShell()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecution, err)
	}
	args := append(n.getShellArgs(shell), cmd.Text)
	if len(n.Spawn) > 0 {
		spawn := append([]string(nil), n.Spawn[1:]...)
		args = append(append(spawn, shell), args...)
		shell = n.Spawn[0]
	}

	c := exec.Command(shell, args...)
	c.Dir = cmd.WorkDir
	c.Env = append(os.Environ(), n.Env...)

	out := newEmitter(onLine)
	var g errgroup.Group

	if n.PTY {
		master, err := pty.Start(c)
		if err != nil {
			return fmt.Errorf("%w: starting %q on a pseudo-terminal: %w", ErrExecution, cmd.Text, err)
		}
		defer func() { _ = master.Close() }()
		g.Go(func() error { return out.pump(master) })
	} else {
		setProcessGroup(c)
		stdout, err := c.StdoutPipe()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrExecution, err)
		}
		stderr, err := c.StderrPipe()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrExecution, err)
		}
		if err := c.Start(); err != nil {
			return fmt.Errorf("%w: starting %q: %w", ErrExecution, cmd.Text, err)
		}
		g.Go(func() error { return out.pump(stdout) })
		g.Go(func() error { return out.pump(stderr) })
	}

	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		n.terminate(c.Process, done)
	})
	defer stop()

	pumpErr := g.Wait()
	waitErr := c.Wait()
	close(done)

	if ctx.Err() != nil {
		return canceled(ctx, cmd.Text)
	}
	return exitResult(cmd.Text, waitErr, pumpErr)
}

// Output runs text in dir and returns its combined output.
func (n *Native) Output(ctx context.Context, text, dir string) (string, error) {
	return collect(ctx, n, text, dir)
}

// terminate signals the process group, escalating to a kill once the grace
// period elapses without done being closed.
func (n *Native) terminate(p *os.Process, done <-chan struct{}) {
	if p == nil {
		return
	}
	_ = signalGroup(p, false)

	grace := n.KillGrace
	if grace <= 0 {
		grace = DefaultKillGrace
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		_ = signalGroup(p, true)
	}
}

// getShell determines which shell to use.
func (n *Native) getShell() (string, error) {
	if n.Shell != "" {
		return n.Shell, nil
	}

	switch runtime.GOOS {
	case platform.Windows:
		if pwsh, err := exec.LookPath("pwsh"); err == nil {
			return pwsh, nil
		}
		if ps, err := exec.LookPath("powershell"); err == nil {
			return ps, nil
		}
		if c, err := exec.LookPath("cmd"); err == nil {
			return c, nil
		}
	default:
		if shell := os.Getenv("SHELL"); shell != "" {
			return shell, nil
		}
		if bash, err := exec.LookPath("bash"); err == nil {
			return bash, nil
		}
		if sh, err := exec.LookPath("sh"); err == nil {
			return sh, nil
		}
	}
	return "", ErrNoShell
}

// getShellArgs returns the arguments placed before the command text.
func (n *Native) getShellArgs(shell string) []string {
	if len(n.ShellArgs) > 0 {
		return append([]string(nil), n.ShellArgs...)
	}

	base := strings.TrimSuffix(filepath.Base(shell), ".exe")
	switch base {
	case "cmd":
		return []string{"/C"}
	case "powershell", "pwsh":
		return []string{"-NoProfile", "-Command"}
	default:
		return []string{"-c"}
	}
}

// exitResult classifies the outcome of a finished command.
func exitResult(text string, waitErr, pumpErr error) error {
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode(), Command: text}
		}
		return fmt.Errorf("%w: %q: %w", ErrExecution, text, waitErr)
	}
	if pumpErr != nil && !errors.Is(pumpErr, io.EOF) {
		return fmt.Errorf("%w: reading output of %q: %w", ErrExecution, text, pumpErr)
	}
	return nil
}
