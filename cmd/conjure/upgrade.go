// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conjure-dev/conjure/internal/console"
	"github.com/conjure-dev/conjure/internal/environment"
	"github.com/conjure-dev/conjure/internal/issue"
	"github.com/conjure-dev/conjure/internal/project"
	"github.com/conjure-dev/conjure/internal/selfupdate"
	"github.com/conjure-dev/conjure/pkg/version"
)

var (
	errUpdatesDisabled = errors.New("updates are disabled in the configuration")
	errDevBuild        = errors.New("development builds cannot be upgraded")
)

// recordingUpdater keeps the last UpdateTo failure so the command can
// classify it after the console run reported it.
type recordingUpdater struct {
	environment.Updater
	err error
}

func (r *recordingUpdater) UpdateTo(ctx context.Context, v version.Version) error {
	r.err = r.Updater.UpdateTo(ctx, v)
	return r.err
}

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the conjure version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintf(app.deps.Stdout, "conjure %s\n", app.deps.Version)
			if app.deps.Version == Version && Version != "dev" {
				fmt.Fprintf(app.deps.Stdout, "commit %s, built %s\n", Commit, BuildDate)
			}
			return nil
		},
	}
}

func newUpgradeCommand(app *App) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "upgrade [version]",
		Short: "Install the newest compatible conjure release or a specific version",
		Long: `Install a conjure release from GitHub Releases.

Without a version the newest stable release on the current major version is
installed, or on the project's major version when the project requires a
newer one. The archive is verified against the release checksums before it
replaces the running binary.

Installs managed by Homebrew, go install or mise must be upgraded with
those tools.`,
		Example: `  conjure upgrade --check
  conjure upgrade
  conjure upgrade 2.5.1`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updater := app.updater()
			current, ok := app.appVersion()
			switch {
			case !ok:
				return errDevBuild
			case updater == nil:
				return errUpdatesDisabled
			}

			var target version.Version
			if len(args) == 1 {
				v, err := version.Parse(args[0])
				if err != nil {
					return err
				}
				target = v
			} else {
				// The project is optional here; without one the current
				// major is kept.
				p, _ := app.loadProject(cmd.Context())
				latest, err := updater.LastAvailableVersion(cmd.Context(), requiredFor(p, current), current)
				if err != nil {
					return upgradeError(err)
				}
				if latest == nil {
					fmt.Fprintf(app.deps.Stdout, "conjure %s is up to date.\n", current)
					return nil
				}
				target = *latest
			}

			if check {
				fmt.Fprintf(app.deps.Stdout, "Current version: %s\n", current)
				fmt.Fprintf(app.deps.Stdout, "Target version:  %s\n", target)
				fmt.Fprintln(app.deps.Stdout, "Run 'conjure upgrade' to install.")
				return nil
			}

			rec := &recordingUpdater{Updater: updater}
			done := app.withConsole(cmd.Context(), func(ctx context.Context, c *console.Console) bool {
				co := environment.NewCoordinator(c, app.exec, rec, current, app.log)
				return co.UpdateApplication(ctx, target)
			})
			if !done {
				if rec.err != nil {
					return &ExitError{Code: classifyUpgradeExitCode(rec.err), Err: upgradeError(rec.err)}
				}
				return errReported
			}
			fmt.Fprintln(app.deps.Stdout, app.styles.Success.Render("Successfully upgraded to "+target.String()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "report the target version without installing")
	return cmd
}

// requiredFor returns the version whose major an upgrade stays on: the
// project's minimal version when it is on a newer major, else current.
func requiredFor(p *project.Project, current version.Version) version.Version {
	if p != nil && p.MinimalVersion().IsMajorHigher(current) {
		return p.MinimalVersion()
	}
	return current
}

// classifyUpgradeExitCode maps user-correctable failures to 1 and
// everything else to 2.
func classifyUpgradeExitCode(err error) int {
	switch {
	case errors.Is(err, os.ErrPermission),
		errors.Is(err, selfupdate.ErrUnavailableVersion),
		errors.Is(err, selfupdate.ErrUnsupportedInstall):
		return 1
	}
	return 2
}

// upgradeError attaches remediation guidance to err.
func upgradeError(err error) error {
	ec := issue.NewErrorContext().WithOperation("upgrade conjure").Wrap(err)

	var rateLimit *selfupdate.RateLimitError
	var managed *selfupdate.ManagedInstallError
	switch {
	case errors.As(err, &rateLimit):
		ec.WithSuggestion("set GITHUB_TOKEN (or updates.token_env) for a higher rate limit").
			WithIssue(issue.ReleaseCheckFailedId)
	case errors.As(err, &managed):
		ec.WithSuggestion(managed.Method.UpgradeHint())
	case errors.Is(err, selfupdate.ErrChecksumMismatch):
		ec.WithSuggestion("the download may be corrupted, try again").
			WithIssue(issue.UpdateFailedId)
	case errors.Is(err, os.ErrPermission):
		ec.WithSuggestion("re-run with permission to replace the binary, e.g. sudo conjure upgrade").
			WithIssue(issue.UpdateFailedId)
	case errors.Is(err, selfupdate.ErrUnavailableVersion):
		ec.WithSuggestion("run 'conjure upgrade --check' to see the newest release")
	default:
		ec.WithIssue(issue.ReleaseCheckFailedId)
	}
	return ec.BuildError()
}
