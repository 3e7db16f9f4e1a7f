// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/conjure-dev/conjure/internal/console"
	"github.com/conjure-dev/conjure/internal/executor"
	"github.com/conjure-dev/conjure/internal/logging"
	"github.com/conjure-dev/conjure/internal/project"
	"github.com/conjure-dev/conjure/pkg/line"
	"github.com/conjure-dev/conjure/pkg/platform"
	"github.com/conjure-dev/conjure/pkg/scenario"
	"github.com/conjure-dev/conjure/pkg/version"
)

// sampleProject is a representative conjure.cue.
const sampleProject = `
project_id:      "mobile"
name:            "Mobile App"
minimal_version: "2.4.0"

generation: {
	title: "Generate Mobile App"
	steps: [
		{run: "mise install"},
		{run: "tuist install", dir: "App"},
		{run: "tuist generate --no-open", dir: "App"},
		{run: "swiftlint --fix", optional: true},
	]
}

operations: [
	{section: "Tuist", title: "clean", description: "Remove generated files", steps: [{run: "tuist clean"}]},
	{section: "Tuist", title: "edit", steps: [{run: "tuist edit"}]},
	{section: "Git", title: "prune", description: "Drop merged branches", steps: [
		{run: "git fetch --prune"},
		{run: "git branch --merged main | grep -v main | xargs git branch -d", optional: true},
	]},
]

tools: [
	{name: "mise", probe: "mise --version", constraint: ">= 2024.9.0", install: "curl https://mise.run | sh"},
	{name: "tuist", probe: "tuist version", install: "mise install tuist@{{version}}"},
	{name: "swiftlint", probe: "swiftlint version", version: "0.57.0", warn_only: true},
]
`

const sampleMise = `
[tools]
tuist = "4.43.2"
swiftlint = "0.57.0"
`

func writeSample(b *testing.B) string {
	b.Helper()
	dir := b.TempDir()
	for name, content := range map[string]string{
		project.FileName:     sampleProject,
		project.MiseFileName: sampleMise,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			b.Fatal(err)
		}
	}
	return dir
}

func requireShell(b *testing.B) {
	b.Helper()
	if runtime.GOOS == platform.Windows {
		b.Skip("native benchmarks need a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		b.Skip("sh not available")
	}
}

// BenchmarkProjectLoad covers CUE decoding, schema validation and the
// mise.toml read.
func BenchmarkProjectLoad(b *testing.B) {
	dir := writeSample(b)
	ctx := context.Background()

	for b.Loop() {
		p, err := project.Load(ctx, dir)
		if err != nil {
			b.Fatalf("Load failed: %v", err)
		}
		if len(p.EnvironmentItems()) != 3 {
			b.Fatal("unexpected tool count")
		}
	}
}

func BenchmarkVersionGate(b *testing.B) {
	minimal := version.MustParse("2.4.0")
	for b.Loop() {
		app, err := version.Parse("2.11.3")
		if err != nil {
			b.Fatal(err)
		}
		if !version.CanGenerate(minimal, app) {
			b.Fatal("gate rejected a compatible version")
		}
	}
}

func BenchmarkExecutorNative(b *testing.B) {
	requireShell(b)
	ex := &executor.Native{Shell: "sh"}
	benchmarkExecutor(b, ex)
}

func BenchmarkExecutorVirtual(b *testing.B) {
	benchmarkExecutor(b, &executor.Virtual{})
}

func benchmarkExecutor(b *testing.B, ex executor.Executor) {
	b.Helper()
	ctx := context.Background()
	cmd := scenario.NewCommand("for i in 1 2 3 4 5; do echo line $i; done")

	for b.Loop() {
		n := 0
		if err := ex.Execute(ctx, cmd, func(line.Line) { n++ }); err != nil {
			b.Fatalf("Execute failed: %v", err)
		}
		if n != 5 {
			b.Fatalf("got %d lines, want 5", n)
		}
	}
}

// BenchmarkConsoleScenario runs a generation-like scenario through the
// console with a subscriber attached.
func BenchmarkConsoleScenario(b *testing.B) {
	ctx := context.Background()
	c := console.New(&executor.Virtual{}, logging.Discard())
	events, unsubscribe := c.Subscribe()
	defer unsubscribe()
	go func() {
		for range events {
		}
	}()

	s := scenario.New("Generate")
	s.Add(scenario.NewCommand("echo resolving"))
	s.AddOptional(scenario.NewCommand("exit 3"))
	s.Add(scenario.NewCommand("for i in 1 2 3; do echo step $i; done"))

	for b.Loop() {
		if !c.RunScenario(ctx, s, console.WithStrategy(scenario.PublishAll)) {
			b.Fatal("scenario failed")
		}
		c.Clear()
	}
}
