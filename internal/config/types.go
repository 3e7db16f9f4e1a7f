// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/conjure-dev/conjure/internal/executor"
	"github.com/conjure-dev/conjure/internal/logging"
	"github.com/conjure-dev/conjure/pkg/platform"
)

const (
	// ColorSchemeAuto follows the terminal background.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark styles.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light styles.
	ColorSchemeLight ColorScheme = "light"

	// DefaultTokenEnv names the variable read for a GitHub token.
	DefaultTokenEnv = "GITHUB_TOKEN"
)

// ErrInvalidConfig is wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// ColorScheme selects the terminal styles.
	ColorScheme string

	// Config holds the user configuration.
	Config struct {
		// Executor is "native" or "virtual".
		Executor string `json:"executor" mapstructure:"executor"`
		// Shell overrides native shell detection.
		Shell string `json:"shell" mapstructure:"shell"`
		// KillGrace is the delay between SIGTERM and SIGKILL on cancellation.
		KillGrace time.Duration `json:"kill_grace" mapstructure:"kill_grace"`
		PTY       bool          `json:"pty" mapstructure:"pty"`
		// TerminalCommand opens a script in a new terminal window; "{script}"
		// is replaced with the quoted script path.
		TerminalCommand string `json:"terminal_command" mapstructure:"terminal_command"`
		// TempDir holds generated scripts. Empty means os.TempDir().
		TempDir string `json:"temp_dir" mapstructure:"temp_dir"`

		Log     LogConfig     `json:"log" mapstructure:"log"`
		Updates UpdatesConfig `json:"updates" mapstructure:"updates"`
		UI      UIConfig      `json:"ui" mapstructure:"ui"`
	}

	// LogConfig configures the application logger.
	LogConfig struct {
		Level string `json:"level" mapstructure:"level"`
		File  string `json:"file" mapstructure:"file"`
	}

	// UpdatesConfig locates the release repository.
	UpdatesConfig struct {
		Disabled bool   `json:"disabled" mapstructure:"disabled"`
		Owner    string `json:"owner" mapstructure:"owner"`
		Repo     string `json:"repo" mapstructure:"repo"`
		TokenEnv string `json:"token_env" mapstructure:"token_env"`
	}

	// UIConfig configures terminal output.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
	}

	// InvalidConfigError collects field errors found after decoding.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Executor:        string(executor.KindNative),
		KillGrace:       executor.DefaultKillGrace,
		TerminalCommand: defaultTerminalCommand(),
		Log:             LogConfig{Level: "info"},
		Updates:         UpdatesConfig{Owner: "conjure-dev", Repo: "conjure", TokenEnv: DefaultTokenEnv},
		UI:              UIConfig{ColorScheme: ColorSchemeAuto},
	}
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("%s: %v", ErrInvalidConfig, errors.Join(e.FieldErrors...))
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks the constraints the schema does not cover, such as
// values that arrived through environment variables.
func (c *Config) Validate() error {
	var errs []error
	if _, err := executor.ParseKind(c.Executor); err != nil {
		errs = append(errs, fmt.Errorf("executor: %w", err))
	}
	if c.KillGrace < 0 {
		errs = append(errs, fmt.Errorf("kill_grace: must not be negative, got %s", c.KillGrace))
	}
	switch c.UI.ColorScheme {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight, "":
	default:
		errs = append(errs, fmt.Errorf("ui.color_scheme: unknown scheme %q", c.UI.ColorScheme))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// ExecutorConfig returns the executor settings.
func (c *Config) ExecutorConfig() (executor.Config, error) {
	kind, err := executor.ParseKind(c.Executor)
	if err != nil {
		return executor.Config{}, err
	}
	return executor.Config{
		Kind:      kind,
		Shell:     c.Shell,
		KillGrace: c.KillGrace,
		PTY:       c.PTY,
		Sandbox:   platform.DetectSandbox(),
	}, nil
}

// LogOptions returns the logger settings.
func (c *Config) LogOptions() logging.Options {
	return logging.Options{Level: c.Log.Level, File: c.Log.File}
}

// GitHubToken reads the token from the configured environment variable.
func (c *Config) GitHubToken() string {
	name := c.Updates.TokenEnv
	if name == "" {
		name = DefaultTokenEnv
	}
	return os.Getenv(name)
}

// ScriptDir returns the directory generated scripts are written to.
func (c *Config) ScriptDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return os.TempDir()
}
