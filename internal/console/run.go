// SPDX-License-Identifier: MPL-2.0

package console

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/conjure-dev/conjure/pkg/line"
	"github.com/conjure-dev/conjure/pkg/scenario"
)

type (
	// Work is a custom unit of work run by Run. It may write to the console
	// and start nested runs; ctx is canceled by CancelRunning.
	Work func(ctx context.Context, c *Console) error

	// RunOption configures a single run.
	RunOption func(*runConfig)

	runConfig struct {
		title    string
		strategy scenario.PublishStrategy
		dir      string
		warn     bool
	}
)

// WithTitle names the run in its "Starting" line.
func WithTitle(title string) RunOption {
	return func(cfg *runConfig) { cfg.title = title }
}

// WithStrategy selects which categories of lines the run emits. The
// default is scenario.PublishAll.
func WithStrategy(s scenario.PublishStrategy) RunOption {
	return func(cfg *runConfig) { cfg.strategy = s }
}

// AtPath sets the working directory of RunText.
func AtPath(dir string) RunOption {
	return func(cfg *runConfig) { cfg.dir = dir }
}

// ConvertErrorToWarning reports a failed command in yellow instead of red.
// The run still returns false.
func ConvertErrorToWarning() RunOption {
	return func(cfg *runConfig) { cfg.warn = true }
}

func newRunConfig(opts []RunOption) runConfig {
	cfg := runConfig{strategy: scenario.PublishAll}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Run executes work and reports whether it completed without error or
// cancellation.
func (c *Console) Run(ctx context.Context, work Work, opts ...RunOption) bool {
	cfg := newRunConfig(opts)
	runCtx, finish := c.begin(ctx)
	defer finish()

	c.announce(cfg, "Starting task ")

	err := c.callWork(runCtx, work)
	switch {
	case isCanceled(runCtx, err):
		c.emitIf(cfg, scenario.PublishError, "Task was forcibly terminated", line.Red)
		return false
	case err != nil:
		c.emitIf(cfg, scenario.PublishError, "Task failed", line.Red)
		c.emitIf(cfg, scenario.PublishError, err.Error(), line.Red)
		return false
	}

	c.emitIf(cfg, scenario.PublishInformation, "Task completed successfully", line.Green)
	return true
}

// RunText executes a shell command line. See RunCommand.
func (c *Console) RunText(ctx context.Context, text string, opts ...RunOption) bool {
	cfg := newRunConfig(opts)
	return c.runCommand(ctx, scenario.NewCommand(text, scenario.AtPath(cfg.dir)), text, cfg)
}

// RunCommand executes cmd, streaming its output, and reports whether it
// exited successfully.
func (c *Console) RunCommand(ctx context.Context, cmd scenario.Command, opts ...RunOption) bool {
	return c.runCommand(ctx, cmd, cmd.String(), newRunConfig(opts))
}

func (c *Console) runCommand(ctx context.Context, cmd scenario.Command, echo string, cfg runConfig) bool {
	runCtx, finish := c.begin(ctx)
	defer finish()

	c.announce(cfg, "Starting command ")
	c.emitIf(cfg, scenario.PublishCommand, echo, line.Default)

	err := c.exec.Execute(runCtx, cmd, c.outputSink(cfg))
	switch {
	case isCanceled(runCtx, err):
		c.emitIf(cfg, scenario.PublishError, "Command was forcibly terminated", line.Red)
		return false
	case err != nil:
		color := line.Red
		if cfg.warn {
			color = line.Yellow
		}
		c.emitIf(cfg, scenario.PublishError, "Command failed", color)
		c.emitIf(cfg, scenario.PublishError, err.Error(), color)
		return false
	}

	c.emitIf(cfg, scenario.PublishInformation, "Command completed", line.Green)
	return true
}

// RunScenario executes the steps of s in order. A failed optional step
// emits a yellow warning and the scenario continues; a failed required step
// aborts the scenario. Cancellation is checked before every step and once
// more after the last one.
//
// The strategy filters echoed commands, command output, cancellation and
// completion lines. The title, step warnings and the abort pair are always
// emitted so a quiet scenario still explains why it stopped.
func (c *Console) RunScenario(ctx context.Context, s scenario.Scenario, opts ...RunOption) bool {
	cfg := newRunConfig(opts)
	if cfg.title == "" {
		cfg.title = s.Title
	}
	steps := slices.Clone(s.Steps)

	runCtx, finish := c.begin(ctx)
	defer finish()

	if cfg.strategy.Has(scenario.PublishEmptyLine) {
		c.AddEmptyLine()
	}
	if cfg.title != "" {
		c.AddText("Starting scenario "+cfg.title, line.Default)
	}

	for _, step := range steps {
		if runCtx.Err() != nil {
			c.emitIf(cfg, scenario.PublishError, "Scenario was forcibly terminated", line.Red)
			return false
		}

		c.emitIf(cfg, scenario.PublishCommand, step.Command.String(), line.Default)

		err := c.exec.Execute(runCtx, step.Command, c.outputSink(cfg))
		switch {
		case err == nil:
			continue
		case isCanceled(runCtx, err):
			c.emitIf(cfg, scenario.PublishError, "Scenario was forcibly terminated", line.Red)
			return false
		case !step.RequiredSuccess:
			c.AddText(err.Error(), line.Yellow)
			continue
		default:
			c.AddText("Command failed", line.Red)
			c.AddText(err.Error(), line.Red)
			return false
		}
	}

	if runCtx.Err() != nil {
		c.emitIf(cfg, scenario.PublishError, "Scenario was forcibly terminated", line.Red)
		return false
	}

	c.emitIf(cfg, scenario.PublishInformation, "Scenario completed successfully", line.Green)
	return true
}

// CancelRunning cancels every registered run and empties the registry. It
// does not wait for the runs to observe the cancellation.
func (c *Console) CancelRunning() {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	wasRunning := len(c.running) > 0
	for id, cancel := range c.running {
		cancel()
		delete(c.running, id)
	}
	if wasRunning {
		c.publish(Event{Kind: EventRunning, Running: false})
	}
}

// IsRunning reports whether any run is registered.
func (c *Console) IsRunning() bool {
	return c.RunningCount() > 0
}

// RunningCount returns the number of registered runs.
func (c *Console) RunningCount() int {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return len(c.running)
}

// begin registers a new run and returns its context together with the
// function that deregisters it.
func (c *Console) begin(ctx context.Context) (context.Context, func()) {
	id := uuid.New()
	runCtx, cancel := context.WithCancel(ctx)

	c.runMu.Lock()
	c.running[id] = cancel
	if len(c.running) == 1 {
		c.publish(Event{Kind: EventRunning, Running: true})
	}
	c.runMu.Unlock()

	return runCtx, func() {
		c.runMu.Lock()
		if _, ok := c.running[id]; ok {
			delete(c.running, id)
			if len(c.running) == 0 {
				c.publish(Event{Kind: EventRunning, Running: false})
			}
		}
		c.runMu.Unlock()
		cancel()
	}
}

// callWork runs work, converting a panic into an error.
func (c *Console) callWork(ctx context.Context, work Work) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return work(ctx, c)
}

func (c *Console) announce(cfg runConfig, prefix string) {
	if cfg.strategy.Has(scenario.PublishEmptyLine) {
		c.AddEmptyLine()
	}
	if cfg.title != "" {
		c.emitIf(cfg, scenario.PublishInformation, prefix+cfg.title, line.Default)
	}
}

func (c *Console) emitIf(cfg runConfig, flag scenario.PublishStrategy, content string, color line.Color) {
	if cfg.strategy.Has(flag) {
		c.AddText(content, color)
	}
}

func (c *Console) outputSink(cfg runConfig) func(line.Line) {
	if !cfg.strategy.Has(scenario.PublishOutput) {
		return nil
	}
	return c.AddLine
}

// isCanceled reports whether a run ended because it was canceled.
func isCanceled(runCtx context.Context, err error) bool {
	return runCtx.Err() != nil || errors.Is(err, context.Canceled)
}
