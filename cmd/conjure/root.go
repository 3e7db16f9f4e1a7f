// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/conjure-dev/conjure/internal/config"
	"github.com/conjure-dev/conjure/internal/environment"
	"github.com/conjure-dev/conjure/internal/executor"
	"github.com/conjure-dev/conjure/internal/issue"
	"github.com/conjure-dev/conjure/internal/logging"
	"github.com/conjure-dev/conjure/internal/project"
	"github.com/conjure-dev/conjure/pkg/version"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// App wires configuration, logging and the executor for one CLI
	// invocation. Commands receive it and build consoles through it.
	App struct {
		deps  Dependencies
		flags globalFlags

		cfg      *config.Config
		cfgPath  string
		log      *log.Logger
		closeLog func() error
		exec     executor.Executor
		renderer *lipgloss.Renderer
		styles   styles
	}

	// Dependencies are the injection points of an App. Nil fields get
	// production defaults.
	Dependencies struct {
		Stdout   io.Writer
		Stderr   io.Writer
		Config   config.Provider
		Executor executor.Executor
		// Updater replaces the GitHub release service.
		Updater environment.Updater
		// Version overrides the build version.
		Version string
	}

	globalFlags struct {
		configPath string
		projectDir string
		executor   string
		verbose    bool
	}
)

// NewApp creates an App from deps.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Version == "" {
		deps.Version = Version
	}
	r := lipgloss.NewRenderer(deps.Stdout)
	return &App{deps: deps, renderer: r, styles: newStyles(r), closeLog: func() error { return nil }}
}

// NewRootCommand builds the command tree for app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "conjure",
		Short: "Run project scenarios and keep the developer environment in shape",
		Long: titleStyle.Render("conjure") + subtitleStyle.Render(" - project scenarios and environment checks") + `

conjure runs shell commands and multi-step scenarios for a project,
streams their colored output, checks the tools the project needs and
generates the project once the installed conjure is compatible with it.

Projects are described by a conjure.cue file at their root.

` + subtitleStyle.Render("Examples:") + `
  conjure generate          Generate the project in this directory
  conjure env check         Check tools and the conjure version
  conjure ops               List the project's quick operations
  conjure run -- make lint  Run a single command`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return app.closeLog()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default is the user config dir's conjure/config.cue)")
	pf.StringVarP(&app.flags.projectDir, "project", "C", ".", "project directory or any directory below it")
	pf.StringVar(&app.flags.executor, "executor", "", "executor to run commands with: native or virtual")
	pf.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newRunCommand(app),
		newScenarioCommand(app),
		newGenerateCommand(app),
		newOpsCommand(app),
		newEnvCommand(app),
		newVersionCommand(app),
		newUpgradeCommand(app),
		newGitCommand(app),
		newConfigCommand(app),
	)
	return root
}

// Execute runs the CLI and exits with the command's status.
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(app.handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// setup loads configuration and creates the logger and executor.
func (a *App) setup(ctx context.Context) error {
	cfg, path, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	if a.flags.executor != "" {
		cfg.Executor = a.flags.executor
	}
	a.cfg, a.cfgPath = cfg, path

	logOpts := cfg.LogOptions()
	logOpts.Writer = a.deps.Stderr
	logOpts.Prefix = config.AppName
	if a.flags.verbose {
		logOpts.Level = "debug"
	}
	a.log, a.closeLog, err = logging.New(logOpts)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("create logger").
			WithResource(cfg.Log.File).
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	switch cfg.UI.ColorScheme {
	case config.ColorSchemeDark:
		a.renderer.SetHasDarkBackground(true)
	case config.ColorSchemeLight:
		a.renderer.SetHasDarkBackground(false)
	}

	if a.deps.Executor != nil {
		a.exec = a.deps.Executor
		return nil
	}
	execCfg, err := cfg.ExecutorConfig()
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("select executor").
			WithSuggestion("use --executor native or --executor virtual").
			Wrap(err).
			BuildError()
	}
	a.exec, err = executor.New(execCfg)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("create executor").
			WithResource(execCfg.Shell).
			WithIssue(issue.ShellNotFoundId).
			Wrap(err).
			BuildError()
	}
	return nil
}

func (a *App) loadConfig(ctx context.Context) (*config.Config, string, error) {
	opts := config.LoadOptions{FilePath: a.flags.configPath}
	if a.deps.Config != nil {
		cfg, err := a.deps.Config.Load(ctx, opts)
		return cfg, "", err
	}
	return config.LoadWithPath(ctx, opts)
}

// appVersion returns the running version. Builds without a release version
// report ok == false.
func (a *App) appVersion() (version.Version, bool) {
	v, err := version.Parse(a.deps.Version)
	if err != nil {
		return version.Version{}, false
	}
	return v, true
}

// loadProject finds and loads the project containing --project.
func (a *App) loadProject(ctx context.Context) (*project.Project, error) {
	root, err := project.Find(a.flags.projectDir)
	if err != nil {
		return nil, err
	}
	a.log.Debug("project found", "root", root)
	return project.Load(ctx, root)
}

// handleError prints err unless a console run already reported it.
func (a *App) handleError(w io.Writer, _ fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fmt.Fprintln(w, a.styles.Error.Render("Error: ")+formatErrorForDisplay(err, a.flags.verbose))
}

// formatErrorForDisplay renders an ActionableError with its suggestions and
// any catalogued issue guidance.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return err.Error()
	}
	out := ae.Format(verbose)
	if is, ok := issue.IssueOf(err); ok && verbose {
		if md, renderErr := is.Render("auto"); renderErr == nil {
			out += "\n" + md
		}
	}
	return out
}
