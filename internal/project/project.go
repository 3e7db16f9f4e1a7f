// SPDX-License-Identifier: MPL-2.0

package project

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conjure-dev/conjure/internal/environment"
	"github.com/conjure-dev/conjure/internal/environment/tools"
	"github.com/conjure-dev/conjure/internal/issue"
	"github.com/conjure-dev/conjure/pkg/cueutil"
	"github.com/conjure-dev/conjure/pkg/scenario"
	"github.com/conjure-dev/conjure/pkg/version"
)

const (
	// FileName is the project file at the project root.
	FileName = "conjure.cue"
	// MiseFileName holds optional tool versions.
	MiseFileName = "mise.toml"
)

//go:embed project_schema.cue
var schema []byte

// ErrNotFound is returned by Find when no project file exists.
var ErrNotFound = errors.New("project file not found")

type (
	// File is the decoded conjure.cue.
	File struct {
		ProjectID      string          `json:"project_id"`
		Name           string          `json:"name,omitempty"`
		MinimalVersion string          `json:"minimal_version"`
		Generation     GenerationSpec  `json:"generation"`
		Operations     []OperationSpec `json:"operations,omitempty"`
		Tools          []ToolSpec      `json:"tools,omitempty"`
	}

	// GenerationSpec is the generation scenario.
	GenerationSpec struct {
		Title string     `json:"title,omitempty"`
		Steps []StepSpec `json:"steps"`
	}

	// StepSpec is one scenario step. Dir is relative to the project root.
	StepSpec struct {
		Run      string `json:"run"`
		Dir      string `json:"dir,omitempty"`
		Optional bool   `json:"optional,omitempty"`
	}

	// OperationSpec is a quick operation grouped under a section.
	OperationSpec struct {
		Section     string     `json:"section"`
		Title       string     `json:"title"`
		Description string     `json:"description,omitempty"`
		Steps       []StepSpec `json:"steps"`
	}

	// ToolSpec declares a tool the environment check probes.
	ToolSpec struct {
		Name       string `json:"name"`
		Probe      string `json:"probe"`
		Version    string `json:"version,omitempty"`
		Constraint string `json:"constraint,omitempty"`
		Install    string `json:"install,omitempty"`
		WarnOnly   bool   `json:"warn_only,omitempty"`
	}

	// Project is a loaded project.
	Project struct {
		Root    string
		File    File
		minimal version.Version
		mise    map[string]string
	}

	// Operation is a ready-to-run quick operation.
	Operation struct {
		Section     string
		Title       string
		Description string
		Scenario    scenario.Scenario
	}
)

// Find returns the directory at or above start that holds FileName.
func Find(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, FileName)); err == nil && !info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", issue.NewErrorContext().
				WithOperation("find project").
				WithResource(start).
				WithIssue(issue.ProjectNotFoundId).
				Wrap(ErrNotFound).
				BuildError()
		}
		dir = parent
	}
}

// Load reads and validates the project file in dir.
func Load(ctx context.Context, dir string) (*Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(root, FileName)

	fail := func(err error, hint string) error {
		ec := issue.NewErrorContext().
			WithOperation("load project").
			WithResource(path).
			WithIssue(issue.ProjectParseErrorId)
		if hint != "" {
			ec.WithSuggestion(hint)
		}
		return ec.Wrap(err).BuildError()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, issue.NewErrorContext().
			WithOperation("load project").
			WithResource(path).
			WithIssue(issue.ProjectNotFoundId).
			Wrap(fmt.Errorf("%w: %w", ErrNotFound, err)).
			BuildError()
	}
	if err != nil {
		return nil, fail(err, "")
	}

	f, err := cueutil.Decode[File](schema, data, "#Project", cueutil.WithFilename(path))
	if err != nil {
		return nil, fail(err, "")
	}
	minimal, err := version.Parse(f.MinimalVersion)
	if err != nil {
		return nil, fail(err, `minimal_version must look like "1.2.3"`)
	}

	p := &Project{Root: root, File: *f, minimal: minimal}
	if err := p.GenerationScenario().Validate(); err != nil {
		return nil, fail(fmt.Errorf("generation: %w", err), "")
	}
	for _, op := range p.Operations() {
		if err := op.Scenario.Validate(); err != nil {
			return nil, fail(fmt.Errorf("operation %q: %w", op.Title, err), "")
		}
	}

	p.mise, err = readMiseTools(filepath.Join(root, MiseFileName))
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("read tool versions").
			WithResource(filepath.Join(root, MiseFileName)).
			Wrap(err).
			BuildError()
	}
	return p, nil
}

// ID returns the project identifier.
func (p *Project) ID() string { return p.File.ProjectID }

// Title returns the display name, falling back to the identifier.
func (p *Project) Title() string {
	if p.File.Name != "" {
		return p.File.Name
	}
	return p.File.ProjectID
}

// MinimalVersion is the lowest conjure version able to generate the project.
func (p *Project) MinimalVersion() version.Version { return p.minimal }

// GenerationScenario returns the generation scenario with step directories
// resolved against the project root.
func (p *Project) GenerationScenario() scenario.Scenario {
	title := p.File.Generation.Title
	if title == "" {
		title = "Generate " + p.Title()
	}
	return p.buildScenario(title, p.File.Generation.Steps)
}

// Operations returns the quick operations in file order.
func (p *Project) Operations() []Operation {
	ops := make([]Operation, 0, len(p.File.Operations))
	for _, o := range p.File.Operations {
		ops = append(ops, Operation{
			Section:     o.Section,
			Title:       o.Title,
			Description: o.Description,
			Scenario:    p.buildScenario(o.Title, o.Steps),
		})
	}
	return ops
}

// Operation returns the operation titled title.
func (p *Project) Operation(title string) (Operation, bool) {
	for _, op := range p.Operations() {
		if op.Title == title {
			return op, true
		}
	}
	return Operation{}, false
}

// EnvironmentItems returns one tools.CommandTool per declared tool. A tool
// without an explicit version or constraint takes its version from
// mise.toml.
func (p *Project) EnvironmentItems() []environment.Item {
	items := make([]environment.Item, 0, len(p.File.Tools))
	for _, t := range p.File.Tools {
		v := t.Version
		if v == "" && t.Constraint == "" {
			v = p.mise[t.Name]
		}
		items = append(items, &tools.CommandTool{
			Name:           t.Name,
			ProbeCommand:   t.Probe,
			Version:        v,
			Constraint:     t.Constraint,
			Install:        t.Install,
			WarnOnMismatch: t.WarnOnly,
			Dir:            p.Root,
		})
	}
	return items
}

func (p *Project) buildScenario(title string, steps []StepSpec) scenario.Scenario {
	s := scenario.New(title)
	for _, st := range steps {
		cmd := scenario.NewCommand(st.Run, scenario.AtPath(p.resolve(st.Dir)))
		if st.Optional {
			s.AddOptional(cmd)
		} else {
			s.Add(cmd)
		}
	}
	return s
}

func (p *Project) resolve(dir string) string {
	if dir == "" {
		return p.Root
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(p.Root, dir)
}
