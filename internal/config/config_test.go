// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/conjure-dev/conjure/internal/executor"
	"github.com/conjure-dev/conjure/internal/issue"
	"github.com/conjure-dev/conjure/internal/testutil"
)

func loadFrom(t *testing.T, dir string) (*Config, string, error) {
	t.Helper()
	return LoadWithPath(context.Background(), LoadOptions{DirPath: dir})
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, path, err := loadFrom(t, t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want none", path)
	}

	want := DefaultConfig()
	if cfg.Executor != "native" || cfg.KillGrace != executor.DefaultKillGrace || cfg.Log.Level != "info" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Updates != want.Updates || cfg.UI != want.UI || cfg.TerminalCommand != want.TerminalCommand {
		t.Errorf("cfg = %+v, want %+v", cfg, want)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, FileName), `
executor:   "virtual"
kill_grace: "500ms"
pty:        true
log: level: "debug"
updates: {
	owner:     "acme"
	token_env: "ACME_TOKEN"
}
`)

	cfg, path, err := loadFrom(t, dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != filepath.Join(dir, FileName) {
		t.Errorf("path = %q", path)
	}
	if cfg.Executor != "virtual" || cfg.KillGrace != 500*time.Millisecond || !cfg.PTY {
		t.Errorf("top-level fields = %+v", cfg)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
	if cfg.Updates.Owner != "acme" || cfg.Updates.Repo != "conjure" || cfg.Updates.TokenEnv != "ACME_TOKEN" {
		t.Errorf("updates = %+v, want owner override with default repo", cfg.Updates)
	}

	ec, err := cfg.ExecutorConfig()
	if err != nil {
		t.Fatal(err)
	}
	if ec.Kind != executor.KindVirtual || ec.KillGrace != 500*time.Millisecond || !ec.PTY {
		t.Errorf("ExecutorConfig() = %+v", ec)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown executor", `executor: "docker"`, "executor"},
		{"bad duration", `kill_grace: "soon"`, "kill_grace"},
		{"unknown key", `colour: true`, "colour"},
		{"bad level", `log: level: "loud"`, "log.level"},
		{"syntax", `executor: "native`, FileName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			testutil.MustWriteFile(t, filepath.Join(dir, FileName), tt.content)

			_, _, err := loadFrom(t, dir)
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("Load() error = %v, want *issue.ActionableError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
			if is, ok := issue.IssueOf(err); !ok || is.Id() != issue.ConfigLoadFailedId {
				t.Errorf("IssueOf() = %v, %v", is, ok)
			}
		})
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "custom.cue")
	testutil.MustWriteFile(t, p, `shell: "/bin/zsh"`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{FilePath: p, DirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Shell != "/bin/zsh" {
		t.Errorf("shell = %q", cfg.Shell)
	}

	_, err = NewProvider().Load(context.Background(), LoadOptions{FilePath: p + ".missing"})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing explicit file error = %v, want os.ErrNotExist", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{DirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, FileName), `log: level: "warn"`)
	t.Setenv("CONJURE_LOG_LEVEL", "debug")
	t.Setenv("CONJURE_EXECUTOR", "virtual")
	t.Setenv("CONJURE_KILL_GRACE", "10s")

	cfg, _, err := loadFrom(t, dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Executor != "virtual" || cfg.KillGrace != 10*time.Second {
		t.Errorf("cfg = %+v, want environment values", cfg)
	}

	t.Setenv("CONJURE_EXECUTOR", "docker")
	if _, _, err := loadFrom(t, dir); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load() with bad env = %v, want ErrInvalidConfig", err)
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Executor = "virtual"
	cfg.Shell = "/bin/bash"
	cfg.KillGrace = 1500 * time.Millisecond
	cfg.TempDir = "/var/tmp/conjure"
	cfg.Log.File = "/var/log/conjure.log"
	cfg.Updates.Disabled = true
	cfg.UI.ColorScheme = ColorSchemeDark

	dir := t.TempDir()
	if _, err := Save(cfg, dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, _, err := loadFrom(t, dir)
	if err != nil {
		t.Fatalf("reloading saved config: %v", err)
	}
	if *got != *cfg {
		t.Errorf("reloaded = %+v\nwant      %+v", got, cfg)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"empty executor means native", func(c *Config) { c.Executor = "" }, true},
		{"negative grace", func(c *Config) { c.KillGrace = -time.Second }, false},
		{"bad scheme", func(c *Config) { c.UI.ColorScheme = "neon" }, false},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout")
	}
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	got, err := Dir()
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join("/xdg", AppName) {
		t.Errorf("Dir() = %q", got)
	}
}

func TestGitHubTokenAndScriptDir(t *testing.T) {
	t.Setenv("ACME_TOKEN", "t0k")
	cfg := DefaultConfig()
	cfg.Updates.TokenEnv = "ACME_TOKEN"
	if got := cfg.GitHubToken(); got != "t0k" {
		t.Errorf("GitHubToken() = %q", got)
	}
	if cfg.ScriptDir() != os.TempDir() {
		t.Errorf("ScriptDir() = %q", cfg.ScriptDir())
	}
	cfg.TempDir = "/scripts"
	if cfg.ScriptDir() != "/scripts" {
		t.Errorf("ScriptDir() = %q", cfg.ScriptDir())
	}
}
