// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Catalogued failures.
const (
	ProjectNotFoundId Id = iota + 1
	ProjectParseErrorId
	ConfigLoadFailedId
	ShellNotFoundId
	CommandFailedId
	GenerationBlockedId
	ReleaseCheckFailedId
	UpdateFailedId
	NotGitRepositoryId
)

type (
	// Id identifies a catalogued Issue.
	Id int

	// Issue is Markdown guidance for a well-known failure.
	Issue struct {
		id    Id
		md    string
		links []string
	}
)

// Id returns the issue identifier.
func (i *Issue) Id() Id { return i.id }

// Markdown returns the guidance followed by a "See also" list of links.
func (i *Issue) Markdown() string {
	if len(i.links) == 0 {
		return i.md
	}
	var sb strings.Builder
	sb.WriteString(i.md)
	sb.WriteString("\n\n## See also\n")
	for _, l := range i.links {
		sb.WriteString("- <" + l + ">\n")
	}
	return sb.String()
}

// Render renders the guidance for a terminal. style is a glamour style
// name ("dark", "light", "notty") or a path to a style file.
func (i *Issue) Render(style string) (string, error) {
	return glamour.Render(i.Markdown(), style)
}

const docsURL = "https://github.com/conjure-dev/conjure/blob/main/docs/"

var issues = map[Id]*Issue{
	ProjectNotFoundId: {
		id: ProjectNotFoundId,
		md: `
# No project file found

conjure looks for ` + "`conjure.cue`" + ` in the current directory and its parents.

## Things you can try
- Run conjure from inside the project checkout.
- Point at the project explicitly:
~~~
$ conjure --project /path/to/project generate
~~~`,
		links: []string{docsURL + "project.md"},
	},
	ProjectParseErrorId: {
		id: ProjectParseErrorId,
		md: `
# The project file is invalid

The error above names the field that failed validation.

## Things you can try
- Check that every generation step has a ` + "`run`" + ` command.
- Check that ` + "`minimal_version`" + ` looks like ` + "`\"1.2.3\"`" + `.`,
		links: []string{docsURL + "project.md"},
	},
	ConfigLoadFailedId: {
		id: ConfigLoadFailedId,
		md: `
# Configuration could not be loaded

## Things you can try
- Show the effective configuration:
~~~
$ conjure config show
~~~
- Remove the offending key from ` + "`config.cue`" + `; every key is optional.`,
	},
	ShellNotFoundId: {
		id: ShellNotFoundId,
		md: `
# No shell available

The native executor needs a shell to run commands.

## Things you can try
- Set ` + "`shell`" + ` in the configuration, or the ` + "`SHELL`" + ` variable.
- Use the built-in interpreter instead:
~~~
$ conjure --executor virtual run "make build"
~~~`,
	},
	CommandFailedId: {
		id: CommandFailedId,
		md: `
# A command failed

The command output above shows why.

## Things you can try
- Run the failing command by hand in the same directory.
- Re-run with ` + "`--log-level debug`" + ` to see every executed command.`,
	},
	GenerationBlockedId: {
		id: GenerationBlockedId,
		md: `
# This project needs a newer conjure

The project requires a conjure release on another major line, or a newer
minor or patch than the one installed.

## Things you can try
~~~
$ conjure upgrade
~~~`,
		links: []string{docsURL + "versions.md"},
	},
	ReleaseCheckFailedId: {
		id: ReleaseCheckFailedId,
		md: `
# Releases could not be listed

## Things you can try
- Check your network connection.
- Export a token when the GitHub rate limit is exhausted:
~~~
$ export GITHUB_TOKEN=...
~~~`,
	},
	UpdateFailedId: {
		id: UpdateFailedId,
		md: `
# conjure could not be updated

## Things you can try
- Upgrade through your package manager if conjure was installed with one.
- Check that the directory of the conjure binary is writable.`,
	},
	NotGitRepositoryId: {
		id: NotGitRepositoryId,
		md: `
# Not a git repository

Branch checks need the project to be a git checkout with an ` + "`origin`" + ` remote.`,
	},
}

// Get returns the issue for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}

// Values returns every catalogued issue ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int { return int(a.id - b.id) })
}
