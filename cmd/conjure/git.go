// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conjure-dev/conjure/internal/gitprobe"
	"github.com/conjure-dev/conjure/internal/project"
)

func newGitCommand(app *App) *cobra.Command {
	gitCmd := &cobra.Command{
		Use:   "git",
		Short: "Inspect the project's git checkout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var (
		fetch  bool
		main   string
		remote string
	)
	status := &cobra.Command{
		Use:   "status",
		Short: "Show the branch and whether it is current with the main branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := app.flags.projectDir
			if root, err := project.Find(dir); err == nil {
				dir = root
			}

			opts := []gitprobe.Option{gitprobe.WithFetch(fetch), gitprobe.WithRemote(remote), gitprobe.WithLogger(app.log)}
			if main != "" {
				opts = append(opts, gitprobe.WithMainBranch(main))
			}
			st, err := gitprobe.New(app.exec, dir, opts...).Status(cmd.Context())
			if err != nil {
				return err
			}

			out := app.deps.Stdout
			fmt.Fprintf(out, "%s %s\n", app.styles.Label.Render("Branch:"), st.Branch)
			fmt.Fprintf(out, "%s %s\n", app.styles.Label.Render(st.Main+" vs "+remoteName(remote)+":"),
				app.yesNo(st.MainUpToDateWithRemote, "up to date", "behind"))
			fmt.Fprintf(out, "%s %s\n", app.styles.Label.Render("Contains "+st.Main+":"),
				app.yesNo(st.BranchContainsMain, "yes", "no, merge or rebase onto "+st.Main))
			return nil
		},
	}
	status.Flags().BoolVar(&fetch, "fetch", false, "fetch the remote before comparing")
	status.Flags().StringVar(&main, "main", "", "main branch name (default: main, or master when main does not exist)")
	status.Flags().StringVar(&remote, "remote", gitprobe.DefaultRemote, "remote to compare the main branch with")

	gitCmd.AddCommand(status)
	return gitCmd
}

func remoteName(r string) string {
	if r == "" {
		return gitprobe.DefaultRemote
	}
	return r
}

func (a *App) yesNo(ok bool, yes, no string) string {
	if ok {
		return a.styles.Success.Render(yes)
	}
	return a.styles.Warning.Render(no)
}
