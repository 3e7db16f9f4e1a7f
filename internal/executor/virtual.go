// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/conjure-dev/conjure/pkg/line"
	"github.com/conjure-dev/conjure/pkg/scenario"
)

// Virtual executes commands with the embedded mvdan/sh interpreter, so no
// system shell is required. External programs the command invokes still run
// as real processes.
type Virtual struct {
	// KillGrace is how long an external program may take to exit after an
	// interrupt before it is killed.
	KillGrace time.Duration
}

var _ Executor = (*Virtual)(nil)

// Execute interprets cmd and streams its output.
func (v *Virtual) Execute(ctx context.Context, cmd scenario.Command, onLine func(line.Line)) error {
	if err := ctx.Err(); err != nil {
		return canceled(ctx, cmd.Text)
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(cmd.Text), "")
	if err != nil {
		return fmt.Errorf("%w: parsing %q: %w", ErrExecution, cmd.Text, err)
	}

	out := newEmitter(onLine)
	stdout := &lineWriter{emitter: out}
	stderr := &lineWriter{emitter: out}

	grace := v.KillGrace
	if grace <= 0 {
		grace = DefaultKillGrace
	}

	opts := []interp.RunnerOption{
		interp.StdIO(nil, stdout, stderr),
		interp.ExecHandlers(func(interp.ExecHandlerFunc) interp.ExecHandlerFunc {
			return interp.DefaultExecHandler(grace)
		}),
	}
	if cmd.WorkDir != "" {
		opts = append(opts, interp.Dir(cmd.WorkDir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return fmt.Errorf("%w: creating interpreter: %w", ErrExecution, err)
	}

	runErr := runner.Run(ctx, prog)
	stdout.Flush()
	stderr.Flush()

	if ctx.Err() != nil {
		return canceled(ctx, cmd.Text)
	}
	if runErr == nil {
		return nil
	}
	var status interp.ExitStatus
	if errors.As(runErr, &status) {
		if status == 0 {
			return nil
		}
		return &ExitError{Code: int(status), Command: cmd.Text}
	}
	return fmt.Errorf("%w: %q: %w", ErrExecution, cmd.Text, runErr)
}

// Output interprets text in dir and returns its combined output.
func (v *Virtual) Output(ctx context.Context, text, dir string) (string, error) {
	return collect(ctx, v, text, dir)
}
