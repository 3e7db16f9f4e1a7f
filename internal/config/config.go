// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/conjure-dev/conjure/internal/issue"
	"github.com/conjure-dev/conjure/pkg/cueutil"
	"github.com/conjure-dev/conjure/pkg/platform"
)

const (
	// AppName names the configuration directory.
	AppName = "conjure"
	// FileName is the configuration file name inside Dir.
	FileName = "config.cue"

	envPrefix = "CONJURE"
)

//go:embed config_schema.cue
var schema []byte

// Dir returns the platform configuration directory of conjure.
func Dir() (string, error) {
	var base string
	switch runtime.GOOS {
	case platform.Windows:
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locating home directory: %w", err)
		}
		base = filepath.Join(home, "Library", "Application Support")
	default:
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("locating home directory: %w", err)
			}
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, AppName), nil
}

// load builds the configuration: defaults, then the CUE file, then
// CONJURE_* environment variables. It returns the path of the file that
// was read, or "" when defaults were used.
func load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := resolvePath(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := mergeCUE(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check the file against 'conjure config show'").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return &cfg, path, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("executor", d.Executor)
	v.SetDefault("shell", d.Shell)
	v.SetDefault("kill_grace", d.KillGrace)
	v.SetDefault("pty", d.PTY)
	v.SetDefault("terminal_command", d.TerminalCommand)
	v.SetDefault("temp_dir", d.TempDir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("updates.disabled", d.Updates.Disabled)
	v.SetDefault("updates.owner", d.Updates.Owner)
	v.SetDefault("updates.repo", d.Updates.Repo)
	v.SetDefault("updates.token_env", d.Updates.TokenEnv)
	v.SetDefault("ui.color_scheme", string(d.UI.ColorScheme))
}

// resolvePath picks the explicit file, or config.cue in the configuration
// directory when it exists.
func resolvePath(opts LoadOptions) (string, error) {
	if opts.FilePath != "" {
		if !fileExists(opts.FilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.FilePath).
				WithSuggestion("Check the --config path").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(os.ErrNotExist).
				BuildError()
		}
		return opts.FilePath, nil
	}

	dir := opts.DirPath
	if dir == "" {
		var err error
		if dir, err = Dir(); err != nil {
			return "", err
		}
	}
	if p := filepath.Join(dir, FileName); fileExists(p) {
		return p, nil
	}
	return "", nil
}

// mergeCUE validates path against #Config and merges it into v. Fields are
// optional, so the value need not be concrete.
func mergeCUE(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	unified, err := cueutil.Unify(schema, data, "#Config",
		cueutil.WithFilename(path), cueutil.WithConcrete(false))
	if err != nil {
		return err
	}

	var m map[string]any
	if err := unified.Decode(&m); err != nil {
		return cueutil.FormatError(err, path)
	}
	return v.MergeConfigMap(m)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Save writes cfg as CUE to config.cue in dir, creating dir as needed.
func Save(cfg *Config, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	p := filepath.Join(dir, FileName)
	if err := os.WriteFile(p, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	return p, nil
}

// GenerateCUE renders cfg in the config file format.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder
	sb.WriteString("// conjure configuration\n\n")
	fmt.Fprintf(&sb, "executor:         %q\n", cfg.Executor)
	if cfg.Shell != "" {
		fmt.Fprintf(&sb, "shell:            %q\n", cfg.Shell)
	}
	fmt.Fprintf(&sb, "kill_grace:       %q\n", cfg.KillGrace.String())
	fmt.Fprintf(&sb, "pty:              %v\n", cfg.PTY)
	if cfg.TerminalCommand != "" {
		fmt.Fprintf(&sb, "terminal_command: %q\n", cfg.TerminalCommand)
	}
	if cfg.TempDir != "" {
		fmt.Fprintf(&sb, "temp_dir:         %q\n", cfg.TempDir)
	}

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	if cfg.Log.File != "" {
		fmt.Fprintf(&sb, "\tfile:  %q\n", cfg.Log.File)
	}
	sb.WriteString("}\n")

	sb.WriteString("\nupdates: {\n")
	fmt.Fprintf(&sb, "\tdisabled:  %v\n", cfg.Updates.Disabled)
	fmt.Fprintf(&sb, "\towner:     %q\n", cfg.Updates.Owner)
	fmt.Fprintf(&sb, "\trepo:      %q\n", cfg.Updates.Repo)
	fmt.Fprintf(&sb, "\ttoken_env: %q\n", cfg.Updates.TokenEnv)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	sb.WriteString("}\n")
	return sb.String()
}

func defaultTerminalCommand() string {
	switch runtime.GOOS {
	case platform.Darwin:
		return "open -a Terminal {script}"
	case platform.Windows:
		return "cmd /C start {script}"
	}
	return "x-terminal-emulator -e {script}"
}
