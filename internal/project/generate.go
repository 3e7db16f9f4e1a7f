// SPDX-License-Identifier: MPL-2.0

package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/conjure-dev/conjure/internal/console"
	"github.com/conjure-dev/conjure/pkg/line"
	"github.com/conjure-dev/conjure/pkg/scenario"
	"github.com/conjure-dev/conjure/pkg/version"
)

// ScriptPlaceholder is replaced with the quoted script path in a terminal
// command, e.g. "open -a Terminal {script}".
const ScriptPlaceholder = "{script}"

const (
	// GenerateLocal runs the generation scenario in the console.
	GenerateLocal GenerationMode = iota
	// GenerateExternal writes the scenario to a script and opens it in a
	// separate terminal.
	GenerateExternal
)

var (
	// ErrNeedInstall is wrapped by *NeedInstallError.
	ErrNeedInstall = errors.New("application version is too old for this project")

	// ErrNoTerminalCommand is returned for external generation without a
	// terminal command.
	ErrNoTerminalCommand = errors.New("no terminal command configured")
)

type (
	// GenerationMode selects where the generation scenario runs.
	GenerationMode int

	// NeedInstallError reports that the running application cannot
	// generate the project and Required has to be installed first.
	NeedInstallError struct {
		Current  version.Version
		Required version.Version
	}

	// GenerateOptions configures Generate.
	GenerateOptions struct {
		Mode GenerationMode
		// ScriptDir receives the script in external mode. Empty means the
		// system temp directory.
		ScriptDir string
		// TerminalCommand opens the script in external mode.
		TerminalCommand string
	}
)

// Error implements the error interface.
func (e *NeedInstallError) Error() string {
	return fmt.Sprintf("conjure %s cannot generate this project, install %s or newer", e.Current, e.Required)
}

// Unwrap returns ErrNeedInstall.
func (e *NeedInstallError) Unwrap() error { return ErrNeedInstall }

// String implements fmt.Stringer.
func (m GenerationMode) String() string {
	if m == GenerateExternal {
		return "external"
	}
	return "local"
}

// ParseGenerationMode parses "local" or "external".
func ParseGenerationMode(s string) (GenerationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "local":
		return GenerateLocal, nil
	case "external":
		return GenerateExternal, nil
	}
	return GenerateLocal, fmt.Errorf("invalid generation mode %q (expected local or external)", s)
}

// CheckGeneration returns nil when app may generate the project and a
// *NeedInstallError otherwise.
func (p *Project) CheckGeneration(app version.Version) error {
	if version.CanGenerate(p.minimal, app) {
		return nil
	}
	return &NeedInstallError{Current: app, Required: p.minimal}
}

// Generate runs the generation scenario through c. The returned error is
// set only when generation could not start; the bool reports whether the
// scenario (or, in external mode, the terminal launch) succeeded.
func (p *Project) Generate(ctx context.Context, c *console.Console, app version.Version, opts GenerateOptions) (bool, error) {
	if err := p.CheckGeneration(app); err != nil {
		return false, err
	}

	s := p.GenerationScenario()
	if opts.Mode == GenerateLocal {
		return c.RunScenario(ctx, s, console.WithStrategy(scenario.PublishAll)), nil
	}
	if strings.TrimSpace(opts.TerminalCommand) == "" {
		return false, ErrNoTerminalCommand
	}

	c.AddEmptyLine()
	c.AddText("Preparing to run scenario "+s.Title+" in an external terminal", line.Default)
	dir := opts.ScriptDir
	if dir == "" {
		dir = os.TempDir()
	}
	path, err := s.WriteScript(dir)
	if err != nil {
		c.AddText("Cannot write the generation script: "+err.Error(), line.Red)
		return false, nil
	}

	ok := c.RunText(ctx, terminalCommand(opts.TerminalCommand, path),
		console.WithTitle("open terminal"),
		console.ConvertErrorToWarning())
	if ok {
		c.AddText("Generation script started in an external terminal", line.Green)
	} else {
		c.AddText("Failed to start the generation script in an external terminal", line.Red)
	}
	return ok, nil
}

// terminalCommand substitutes the quoted script path into tmpl, appending
// it when tmpl has no placeholder.
func terminalCommand(tmpl, script string) string {
	q, err := syntax.Quote(script, syntax.LangPOSIX)
	if err != nil {
		q = "'" + strings.ReplaceAll(script, "'", `'\''`) + "'"
	}
	if strings.Contains(tmpl, ScriptPlaceholder) {
		return strings.ReplaceAll(tmpl, ScriptPlaceholder, q)
	}
	return tmpl + " " + q
}
