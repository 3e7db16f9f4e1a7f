// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/conjure-dev/conjure/internal/executor"
	"github.com/conjure-dev/conjure/pkg/line"
	"github.com/conjure-dev/conjure/pkg/scenario"
)

type (
	// FakeResult scripts the outcome of one command text.
	FakeResult struct {
		// Lines are emitted in order before the command finishes.
		Lines []string
		// Output is returned by Output.
		Output string
		// ExitCode, when non-zero, fails the command with *executor.ExitError.
		ExitCode int
		// Err fails the command with this error. It wins over ExitCode.
		Err error
		// Block makes the command wait for cancellation after emitting Lines.
		Block bool
	}

	// FakeExecutor is a scripted executor.Executor. Commands without a
	// scripted result succeed silently.
	FakeExecutor struct {
		mu      sync.Mutex
		results map[string]FakeResult
		calls   []scenario.Command
		started chan string
	}
)

var _ executor.Executor = (*FakeExecutor)(nil)

// NewFakeExecutor creates an executor with no scripted results.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{
		results: make(map[string]FakeResult),
		started: make(chan string, 64),
	}
}

// On scripts the result for text and returns f for chaining.
func (f *FakeExecutor) On(text string, r FakeResult) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[text] = r
	return f
}

// Started delivers the text of every command as it starts. Sends never
// block; commands beyond the buffer are not reported.
func (f *FakeExecutor) Started() <-chan string {
	return f.started
}

// Calls returns the commands executed so far, in order.
func (f *FakeExecutor) Calls() []scenario.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// Texts returns the text of every executed command, in order.
func (f *FakeExecutor) Texts() []string {
	calls := f.Calls()
	texts := make([]string, 0, len(calls))
	for _, c := range calls {
		texts = append(texts, c.Text)
	}
	return texts
}

// Execute implements executor.Executor.
func (f *FakeExecutor) Execute(ctx context.Context, cmd scenario.Command, onLine func(line.Line)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("fake %q: %w", cmd.Text, err)
	}

	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	r := f.results[cmd.Text]
	f.mu.Unlock()

	select {
	case f.started <- cmd.Text:
	default:
	}

	for _, l := range r.Lines {
		if onLine != nil {
			onLine(line.Text(l, line.Default))
		}
	}
	if r.Block {
		<-ctx.Done()
		return fmt.Errorf("fake %q: %w", cmd.Text, ctx.Err())
	}
	return r.failure(cmd.Text)
}

// Output implements executor.Executor.
func (f *FakeExecutor) Output(ctx context.Context, text, dir string) (string, error) {
	if err := f.Execute(ctx, scenario.NewCommand(text, scenario.AtPath(dir)), nil); err != nil {
		f.mu.Lock()
		out := f.results[text].Output
		f.mu.Unlock()
		return out, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[text].Output, nil
}

func (r FakeResult) failure(text string) error {
	if r.Err != nil {
		return r.Err
	}
	if r.ExitCode != 0 {
		return &executor.ExitError{Code: r.ExitCode, Command: text}
	}
	return nil
}
