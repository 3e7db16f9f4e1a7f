// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/conjure-dev/conjure/internal/console"
	"github.com/conjure-dev/conjure/internal/issue"
	"github.com/conjure-dev/conjure/internal/project"
	"github.com/conjure-dev/conjure/internal/watch"
	"github.com/conjure-dev/conjure/pkg/version"
)

func newGenerateCommand(app *App) *cobra.Command {
	var external, watchFiles bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the project",
		Long: `Generate the project with its generation scenario.

The installed conjure must be on the same major version as the project's
minimal_version and not older than it. With --external the scenario is
written to a script and opened with the configured terminal_command.

With --watch the project is generated again whenever conjure.cue or
mise.toml change, until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.loadProject(cmd.Context())
			if err != nil {
				return err
			}

			app.log.Debug("generating", "project", p.ID(), "external", external)
			v := app.generationVersion(p)

			opts := project.GenerateOptions{
				ScriptDir:       app.cfg.ScriptDir(),
				TerminalCommand: app.cfg.TerminalCommand,
			}
			if external {
				opts.Mode = project.GenerateExternal
			}

			done, err := app.generate(cmd.Context(), p, v, opts)
			if err != nil {
				return err
			}
			if !watchFiles {
				return runResult(done)
			}
			return app.watchProject(cmd.Context(), p.Root, opts)
		},
	}
	cmd.Flags().BoolVar(&external, "external", false, "run the generation script in a separate terminal")
	cmd.Flags().BoolVarP(&watchFiles, "watch", "w", false, "generate again when the project file changes")
	cmd.MarkFlagsMutuallyExclusive("external", "watch")
	return cmd
}

// generationVersion is the version p is generated with. A development
// build takes the project's minimal version so the gate always passes.
func (a *App) generationVersion(p *project.Project) version.Version {
	if v, ok := a.appVersion(); ok {
		return v
	}
	a.log.Warn("development build, skipping the version check", "version", a.deps.Version)
	return p.MinimalVersion()
}

func (a *App) generate(ctx context.Context, p *project.Project, v version.Version, opts project.GenerateOptions) (bool, error) {
	var genErr error
	done := a.withConsole(ctx, func(ctx context.Context, c *console.Console) bool {
		var ok bool
		ok, genErr = p.Generate(ctx, c, v, opts)
		return ok
	})
	if genErr != nil {
		return false, generationError(genErr)
	}
	return done, nil
}

// watchProject reloads the project in root and generates it again after
// every change to its files. It returns when ctx is cancelled.
func (a *App) watchProject(ctx context.Context, root string, opts project.GenerateOptions) error {
	w, err := watch.New(watch.Config{
		Dir:   root,
		Files: []string{project.FileName, project.MiseFileName},
		Log:   a.log,
		OnChange: func(ctx context.Context, changed []string) error {
			a.log.Info("project changed", "files", changed)
			p, err := project.Load(ctx, root)
			if err != nil {
				a.handleError(a.deps.Stderr, fang.Styles{}, err)
				return nil
			}
			_, err = a.generate(ctx, p, a.generationVersion(p), opts)
			return err
		},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.deps.Stdout, "Watching %s for changes, press Ctrl+C to stop.\n", root)
	return w.Run(ctx)
}

func generationError(err error) error {
	var need *project.NeedInstallError
	if errors.As(err, &need) {
		return issue.NewErrorContext().
			WithOperation("generate project").
			WithSuggestion(fmt.Sprintf("run 'conjure upgrade %s' to install a compatible version", need.Required)).
			WithIssue(issue.GenerationBlockedId).
			Wrap(err).
			BuildError()
	}
	if errors.Is(err, project.ErrNoTerminalCommand) {
		return issue.NewErrorContext().
			WithOperation("generate project").
			WithSuggestion(`set terminal_command in the config file, e.g. "open -a Terminal {script}"`).
			Wrap(err).
			BuildError()
	}
	return err
}
