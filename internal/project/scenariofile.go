// SPDX-License-Identifier: MPL-2.0

package project

import (
	"context"
	"os"
	"path/filepath"

	"github.com/conjure-dev/conjure/internal/issue"
	"github.com/conjure-dev/conjure/pkg/cueutil"
	"github.com/conjure-dev/conjure/pkg/scenario"
)

type scenarioFile struct {
	Title string     `json:"title"`
	Steps []StepSpec `json:"steps"`
}

// LoadScenarioFile reads a standalone scenario file. Step directories are
// relative to the file's directory.
func LoadScenarioFile(ctx context.Context, path string) (scenario.Scenario, error) {
	if err := ctx.Err(); err != nil {
		return scenario.Scenario{}, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return scenario.Scenario{}, err
	}
	fail := func(err error) error {
		return issue.NewErrorContext().
			WithOperation("load scenario").
			WithResource(abs).
			WithIssue(issue.ProjectParseErrorId).
			Wrap(err).
			BuildError()
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return scenario.Scenario{}, fail(err)
	}
	f, err := cueutil.Decode[scenarioFile](schema, data, "#Scenario", cueutil.WithFilename(abs))
	if err != nil {
		return scenario.Scenario{}, fail(err)
	}

	base := &Project{Root: filepath.Dir(abs)}
	s := base.buildScenario(f.Title, f.Steps)
	if err := s.Validate(); err != nil {
		return scenario.Scenario{}, fail(err)
	}
	return s, nil
}
