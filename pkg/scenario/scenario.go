// SPDX-License-Identifier: MPL-2.0

// Package scenario defines shell commands and multi-step command scenarios,
// together with the publish strategy that filters which synthetic lines a
// console run emits.
package scenario

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ErrInvalidStep is the sentinel error wrapped by InvalidStepError.
var ErrInvalidStep = errors.New("invalid scenario step")

type (
	// Command is a shell command line with an optional working directory.
	Command struct {
		Text    string
		WorkDir string
	}

	// CommandOption configures a Command.
	CommandOption func(*Command)

	// Step is one scenario command with its success policy. When
	// RequiredSuccess is false a failure is reported as a warning and the
	// scenario continues.
	Step struct {
		Command         Command
		RequiredSuccess bool
	}

	// Scenario is an ordered list of steps with an optional title.
	Scenario struct {
		Title string
		Steps []Step
	}

	// InvalidStepError reports a step whose command cannot be parsed as shell.
	InvalidStepError struct {
		Index int
		Text  string
		Cause error
	}
)

// Error implements the error interface.
func (e *InvalidStepError) Error() string {
	return fmt.Sprintf("step %d (%q): %v", e.Index+1, e.Text, e.Cause)
}

// Unwrap returns ErrInvalidStep so callers can use errors.Is.
func (e *InvalidStepError) Unwrap() error { return ErrInvalidStep }

// AtPath sets the working directory of a Command.
func AtPath(dir string) CommandOption {
	return func(c *Command) {
		c.WorkDir = dir
	}
}

// NewCommand builds a Command from its text.
func NewCommand(text string, opts ...CommandOption) Command {
	c := Command{Text: text}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// String renders the command the way it is echoed to the console.
func (c Command) String() string {
	if c.WorkDir == "" {
		return c.Text
	}
	return "cd " + quote(c.WorkDir) + " && " + c.Text
}

// New creates an empty scenario.
func New(title string) Scenario {
	return Scenario{Title: title}
}

// Add appends a step that must succeed.
func (s *Scenario) Add(cmd Command) {
	s.Steps = append(s.Steps, Step{Command: cmd, RequiredSuccess: true})
}

// AddOptional appends a step whose failure only produces a warning.
func (s *Scenario) AddOptional(cmd Command) {
	s.Steps = append(s.Steps, Step{Command: cmd})
}

// Clone returns a copy whose step slice is not shared with s.
func (s Scenario) Clone() Scenario {
	return Scenario{Title: s.Title, Steps: slices.Clone(s.Steps)}
}

// Validate parses every step as POSIX shell and reports the first one that
// does not parse.
func (s Scenario) Validate() error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	for i, step := range s.Steps {
		if strings.TrimSpace(step.Command.Text) == "" {
			return &InvalidStepError{Index: i, Text: step.Command.Text, Cause: errors.New("empty command")}
		}
		if _, err := parser.Parse(strings.NewReader(step.Command.Text), ""); err != nil {
			return &InvalidStepError{Index: i, Text: step.Command.Text, Cause: err}
		}
	}
	return nil
}

// quote shell-quotes s, falling back to a naive single-quote wrap for
// strings the quoter rejects (e.g. containing NUL bytes).
func quote(s string) string {
	q, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return q
}
