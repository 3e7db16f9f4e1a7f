// SPDX-License-Identifier: MPL-2.0

package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/conjure-dev/conjure/internal/environment/tools"
	"github.com/conjure-dev/conjure/internal/issue"
)

const sampleProject = `
project_id:      "mobile"
name:            "Mobile"
minimal_version: "2.4.0"
generation: {
	steps: [
		{run: "mise install"},
		{run: "tuist generate --no-open", dir: "App"},
		{run: "open Mobile.xcworkspace", optional: true},
	]
}
operations: [
	{section: "Tuist", title: "Clean", description: "Remove generated files", steps: [{run: "tuist clean"}]},
	{section: "Git", title: "Prune", steps: [{run: "git fetch --prune"}, {run: "git gc", optional: true}]},
]
tools: [
	{name: "tuist", probe: "tuist version", install: "mise install tuist@{{version}}"},
	{name: "swiftlint", probe: "swiftlint version", version: "0.57.0"},
	{name: "node", probe: "node --version", constraint: ">= 20"},
	{name: "git", probe: "git --version", warn_only: true},
]
`

func writeProject(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, sampleProject)
	p, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if p.ID() != "mobile" || p.Title() != "Mobile" {
		t.Errorf("ID/Title = %q/%q", p.ID(), p.Title())
	}
	if got := p.MinimalVersion().String(); got != "2.4.0" {
		t.Errorf("MinimalVersion() = %s", got)
	}

	s := p.GenerationScenario()
	if s.Title != "Generate Mobile" {
		t.Errorf("scenario title = %q", s.Title)
	}
	if len(s.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(s.Steps))
	}
	if s.Steps[0].Command.WorkDir != p.Root {
		t.Errorf("default step dir = %q, want %q", s.Steps[0].Command.WorkDir, p.Root)
	}
	if want := filepath.Join(p.Root, "App"); s.Steps[1].Command.WorkDir != want {
		t.Errorf("relative step dir = %q, want %q", s.Steps[1].Command.WorkDir, want)
	}
	if !s.Steps[1].RequiredSuccess || s.Steps[2].RequiredSuccess {
		t.Error("optional flag not carried over")
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantId  issue.Id
	}{
		{
			name:    "syntax error",
			content: `project_id: "x`,
			wantId:  issue.ProjectParseErrorId,
		},
		{
			name:    "missing generation",
			content: `project_id: "x", minimal_version: "1.0.0"`,
			wantId:  issue.ProjectParseErrorId,
		},
		{
			name: "bad minimal version",
			content: `project_id: "x", minimal_version: "1.0"
generation: steps: [{run: "true"}]`,
			wantId: issue.ProjectParseErrorId,
		},
		{
			name: "unknown field",
			content: `project_id: "x", minimal_version: "1.0.0", colour: "red"
generation: steps: [{run: "true"}]`,
			wantId: issue.ProjectParseErrorId,
		},
		{
			name: "unparsable step",
			content: `project_id: "x", minimal_version: "1.0.0"
generation: steps: [{run: "echo 'unterminated"}]`,
			wantId: issue.ProjectParseErrorId,
		},
		{
			name: "unparsable operation step",
			content: `project_id: "x", minimal_version: "1.0.0"
generation: steps: [{run: "true"}]
operations: [{section: "s", title: "t", steps: [{run: "if then"}]}]`,
			wantId: issue.ProjectParseErrorId,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(context.Background(), writeProject(t, tt.content))
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			is, ok := issue.IssueOf(err)
			if !ok || is.Id() != tt.wantId {
				t.Errorf("issue of %v = %v, want %d", err, is, tt.wantId)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()

	_, err := Load(context.Background(), t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() error = %v, want ErrNotFound", err)
	}
	if is, ok := issue.IssueOf(err); !ok || is.Id() != issue.ProjectNotFoundId {
		t.Errorf("issue = %v", is)
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	root := writeProject(t, sampleProject)
	nested := filepath.Join(root, "App", "Sources")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := Find(nested)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("Find() = %q, want %q", got, want)
	}

	if _, err := Find(t.TempDir()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find() outside a project = %v, want ErrNotFound", err)
	}
}

func TestOperations(t *testing.T) {
	t.Parallel()

	p, err := Load(context.Background(), writeProject(t, sampleProject))
	if err != nil {
		t.Fatal(err)
	}

	ops := p.Operations()
	var titles []string
	for _, op := range ops {
		titles = append(titles, op.Section+"/"+op.Title)
	}
	if want := []string{"Tuist/Clean", "Git/Prune"}; !slices.Equal(titles, want) {
		t.Errorf("operations = %q, want %q", titles, want)
	}

	prune, ok := p.Operation("Prune")
	if !ok {
		t.Fatal("Operation(Prune) not found")
	}
	if len(prune.Scenario.Steps) != 2 || prune.Scenario.Steps[1].RequiredSuccess {
		t.Errorf("Prune steps = %+v", prune.Scenario.Steps)
	}
	if _, ok := p.Operation("nope"); ok {
		t.Error("Operation(nope) found")
	}
}

func TestEnvironmentItemsUseMise(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, sampleProject)
	mise := `
[tools]
tuist = "4.43.2"
swiftlint = "0.50.0"
node = ["20.11.0", "18"]
git = { version = "2.43.0" }
python = "latest"
`
	if err := os.WriteFile(filepath.Join(dir, MiseFileName), []byte(mise), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]*tools.CommandTool{}
	for _, it := range p.EnvironmentItems() {
		ct, ok := it.(*tools.CommandTool)
		if !ok {
			t.Fatalf("item %T is not a CommandTool", it)
		}
		if ct.Dir != p.Root {
			t.Errorf("%s Dir = %q", ct.Name, ct.Dir)
		}
		got[ct.Name] = ct
	}

	tests := []struct {
		name, version string
	}{
		{"tuist", "4.43.2"},
		{"swiftlint", "0.57.0"}, // explicit version wins
		{"node", ""},            // constraint wins
		{"git", "2.43.0"},
	}
	for _, tt := range tests {
		if got[tt.name] == nil || got[tt.name].Version != tt.version {
			t.Errorf("%s version = %+v, want %q", tt.name, got[tt.name], tt.version)
		}
	}
	if !got["git"].WarnOnMismatch {
		t.Error("git warn_only not carried over")
	}
}

func TestLoadBadMise(t *testing.T) {
	t.Parallel()

	dir := writeProject(t, sampleProject)
	if err := os.WriteFile(filepath.Join(dir, MiseFileName), []byte("[tools\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(context.Background(), dir)
	if err == nil || !strings.Contains(err.Error(), MiseFileName) {
		t.Errorf("Load() error = %v, want mise.toml parse error", err)
	}
}
