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

	"github.com/conjure-dev/conjure/internal/console"
	"github.com/conjure-dev/conjure/internal/testutil"
	"github.com/conjure-dev/conjure/pkg/line"
	"github.com/conjure-dev/conjure/pkg/scenario"
	"github.com/conjure-dev/conjure/pkg/version"
)

// recordingTerminal scripts the result of the terminal command, whose text
// depends on the generated script path.
type recordingTerminal struct {
	*testutil.FakeExecutor
	result testutil.FakeResult
}

func (r *recordingTerminal) Execute(ctx context.Context, cmd scenario.Command, onLine func(line.Line)) error {
	if strings.HasPrefix(cmd.Text, "launch-terminal ") {
		r.On(cmd.Text, r.result)
	}
	return r.FakeExecutor.Execute(ctx, cmd, onLine)
}

func loadSample(t *testing.T) *Project {
	t.Helper()
	p, err := Load(context.Background(), writeProject(t, sampleProject))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func lastLine(c *console.Console) line.Line {
	out := c.Output()
	return out[len(out)-1]
}

func TestCheckGeneration(t *testing.T) {
	t.Parallel()

	p := loadSample(t) // minimal 2.4.0

	tests := []struct {
		app  string
		want bool
	}{
		{"2.4.0", true},
		{"2.4.1", true},
		{"2.9.0", true},
		{"2.3.9", false},
		{"3.0.0", false},
		{"1.9.9", false},
	}
	for _, tt := range tests {
		err := p.CheckGeneration(version.MustParse(tt.app))
		if (err == nil) != tt.want {
			t.Errorf("CheckGeneration(%s) = %v, want allowed=%v", tt.app, err, tt.want)
		}
		if err == nil {
			continue
		}
		var need *NeedInstallError
		if !errors.As(err, &need) || need.Required.String() != "2.4.0" {
			t.Errorf("CheckGeneration(%s) = %v, want *NeedInstallError for 2.4.0", tt.app, err)
		}
		if !errors.Is(err, ErrNeedInstall) {
			t.Errorf("error does not wrap ErrNeedInstall")
		}
	}
}

func TestGenerateLocal(t *testing.T) {
	t.Parallel()

	p := loadSample(t)
	fake := testutil.NewFakeExecutor().
		On("open Mobile.xcworkspace", testutil.FakeResult{ExitCode: 1})
	c := console.New(fake, nil)

	ok, err := p.Generate(context.Background(), c, version.MustParse("2.5.0"), GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !ok {
		t.Error("Generate() = false, want true despite the failed optional step")
	}
	want := []string{"mise install", "tuist generate --no-open", "open Mobile.xcworkspace"}
	if got := fake.Texts(); !slices.Equal(got, want) {
		t.Errorf("executed = %q, want %q", got, want)
	}
}

func TestGenerateBlocked(t *testing.T) {
	t.Parallel()

	p := loadSample(t)
	fake := testutil.NewFakeExecutor()
	c := console.New(fake, nil)

	ok, err := p.Generate(context.Background(), c, version.MustParse("3.0.0"), GenerateOptions{})
	if ok || !errors.Is(err, ErrNeedInstall) {
		t.Fatalf("Generate() = %v, %v, want false, ErrNeedInstall", ok, err)
	}
	if len(fake.Calls()) != 0 {
		t.Errorf("commands ran: %q", fake.Texts())
	}
}

func TestGenerateExternal(t *testing.T) {
	t.Parallel()

	p := loadSample(t)
	scripts := t.TempDir()

	tests := []struct {
		name     string
		result   testutil.FakeResult
		wantOK   bool
		wantLast line.Color
	}{
		{name: "started", wantOK: true, wantLast: line.Green},
		{name: "terminal fails", result: testutil.FakeResult{ExitCode: 1}, wantOK: false, wantLast: line.Red},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := filepath.Join(scripts, tt.name)
			fake := &recordingTerminal{FakeExecutor: testutil.NewFakeExecutor(), result: tt.result}
			c := console.New(fake, nil)

			ok, err := p.Generate(context.Background(), c, version.MustParse("2.4.0"), GenerateOptions{
				Mode:            GenerateExternal,
				ScriptDir:       dir,
				TerminalCommand: "launch-terminal {script}",
			})
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Errorf("Generate() = %v, want %v", ok, tt.wantOK)
			}
			if got := lastLine(c).Color(); got != tt.wantLast {
				t.Errorf("last line %q color = %v, want %v", lastLine(c).String(), got, tt.wantLast)
			}

			matches, _ := filepath.Glob(filepath.Join(dir, "scenario-*.sh"))
			if len(matches) != 1 {
				t.Fatalf("scripts = %q, want one", matches)
			}
			calls := fake.Texts()
			if len(calls) != 1 || !strings.HasPrefix(calls[0], "launch-terminal ") || !strings.Contains(calls[0], matches[0]) {
				t.Errorf("terminal command = %q, want launch-terminal with %s", calls, matches[0])
			}

			body, err := os.ReadFile(matches[0])
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(body), "tuist generate --no-open") {
				t.Errorf("script does not contain the generation steps:\n%s", body)
			}
		})
	}
}

func TestGenerateExternalWithoutTerminal(t *testing.T) {
	t.Parallel()

	p := loadSample(t)
	c := console.New(testutil.NewFakeExecutor(), nil)
	_, err := p.Generate(context.Background(), c, version.MustParse("2.4.0"), GenerateOptions{Mode: GenerateExternal})
	if !errors.Is(err, ErrNoTerminalCommand) {
		t.Errorf("Generate() error = %v, want ErrNoTerminalCommand", err)
	}
}

func TestTerminalCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tmpl, script, want string
	}{
		{"open -a Terminal {script}", "/tmp/s.sh", "open -a Terminal /tmp/s.sh"},
		{"x-terminal-emulator -e", "/tmp/s.sh", "x-terminal-emulator -e /tmp/s.sh"},
		{"run {script}", "/tmp/my script.sh", "run '/tmp/my script.sh'"},
	}
	for _, tt := range tests {
		if got := terminalCommand(tt.tmpl, tt.script); got != tt.want {
			t.Errorf("terminalCommand(%q, %q) = %q, want %q", tt.tmpl, tt.script, got, tt.want)
		}
	}
}

func TestParseGenerationMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]GenerationMode{"": GenerateLocal, "local": GenerateLocal, "External": GenerateExternal} {
		got, err := ParseGenerationMode(in)
		if err != nil || got != want {
			t.Errorf("ParseGenerationMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseGenerationMode("remote"); err == nil {
		t.Error("ParseGenerationMode(remote) succeeded")
	}
}
