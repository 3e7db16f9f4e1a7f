// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/conjure-dev/conjure/internal/config"
	"github.com/conjure-dev/conjure/internal/console"
	"github.com/conjure-dev/conjure/internal/environment"
	"github.com/conjure-dev/conjure/internal/project"
	"github.com/conjure-dev/conjure/internal/selfupdate"
)

// reportWidth is the word wrap of the rendered environment report.
const reportWidth = 100

func newEnvCommand(app *App) *cobra.Command {
	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Check and fix the developer environment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var report bool
	check := &cobra.Command{
		Use:   "check",
		Short: "Check the project's tools and the conjure version",
		Long: `Check every tool the project declares and whether a newer conjure
release is available or required.

Exits with status 2 when anything needs attention.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := app.loadProject(cmd.Context())
			if err != nil {
				return err
			}

			var co *environment.Coordinator
			ok := app.withConsole(cmd.Context(), func(ctx context.Context, c *console.Console) bool {
				co = app.coordinator(c, p)
				return co.CheckAsTask(ctx, p.MinimalVersion())
			})
			if !ok {
				return errReported
			}

			if report {
				out, err := app.renderReport(p, co)
				if err != nil {
					return err
				}
				fmt.Fprint(app.deps.Stdout, out)
			}
			if co.NeedUpdate() {
				return &ExitError{Code: 2}
			}
			return nil
		},
	}
	check.Flags().BoolVar(&report, "report", false, "print a Markdown summary after the check")

	fix := &cobra.Command{
		Use:   "fix <tool>",
		Short: "Run the remedy of a tool that failed its check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.loadProject(cmd.Context())
			if err != nil {
				return err
			}
			return runResult(app.withConsole(cmd.Context(), func(ctx context.Context, c *console.Console) bool {
				return app.coordinator(c, p).Fix(ctx, args[0])
			}))
		},
	}

	envCmd.AddCommand(check, fix)
	return envCmd
}

// coordinator builds the environment coordinator for p. The application
// version is only checked for release builds with updates enabled.
func (a *App) coordinator(c *console.Console, p *project.Project) *environment.Coordinator {
	v, _ := a.appVersion()
	return environment.NewCoordinator(c, a.exec, a.updater(), v, a.log, p.EnvironmentItems()...)
}

// updater returns the release service, or nil when updates are disabled
// or the build has no release version.
func (a *App) updater() environment.Updater {
	if a.deps.Updater != nil {
		return a.deps.Updater
	}
	if a.cfg.Updates.Disabled {
		return nil
	}
	if _, ok := a.appVersion(); !ok {
		return nil
	}
	client := selfupdate.NewGitHubClient(
		selfupdate.WithRepo(a.cfg.Updates.Owner, a.cfg.Updates.Repo),
		selfupdate.WithToken(a.cfg.GitHubToken()),
		selfupdate.WithUserAgent(config.AppName+"/"+a.deps.Version),
	)
	return selfupdate.NewService(selfupdate.WithClient(client), selfupdate.WithLogger(a.log))
}

func (a *App) renderReport(p *project.Project, co *environment.Coordinator) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Environment of %s\n\n", p.Title())

	v, ok := a.appVersion()
	current := a.deps.Version
	if ok {
		current = v.String()
	}
	fmt.Fprintf(&sb, "conjure **%s** is %s", current, co.AppStatus())
	if req := co.RequiredVersion(); req != nil {
		fmt.Fprintf(&sb, ", newest compatible release is **%s**", req)
	}
	fmt.Fprintf(&sb, ". The project needs %s or newer on major %d.\n\n",
		p.MinimalVersion(), p.MinimalVersion().Major)

	if entries := co.Entries(); len(entries) > 0 {
		sb.WriteString("| Tool | Status | Details | Remedy |\n| --- | --- | --- | --- |\n")
		for _, e := range entries {
			st := e.Status()
			remedy := ""
			if st.Operation != nil {
				remedy = "`conjure env fix " + e.Title() + "`"
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", e.Title(), st.Kind, markdownCell(st.Description), remedy)
		}
	}
	if co.AppStatus() == environment.AppNeedUpdate || co.AppStatus() == environment.AppCanUpdate {
		sb.WriteString("\nRun `conjure upgrade` to install the newer release.\n")
	}

	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle(a.reportStyle()), glamour.WithWordWrap(reportWidth))
	if err != nil {
		return "", err
	}
	return r.Render(sb.String())
}

func (a *App) reportStyle() string {
	if a.renderer.ColorProfile() == termenv.Ascii {
		return "notty"
	}
	switch a.cfg.UI.ColorScheme {
	case config.ColorSchemeLight:
		return "light"
	case config.ColorSchemeDark:
		return "dark"
	}
	if a.renderer.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

func markdownCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
