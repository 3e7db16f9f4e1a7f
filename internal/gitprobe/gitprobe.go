// SPDX-License-Identifier: MPL-2.0

// Package gitprobe answers questions about a project's git checkout: the
// current branch, whether the main branch has fallen behind its remote and
// whether the current branch contains the main branch.
package gitprobe

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-git/go-git/v5"

	"github.com/conjure-dev/conjure/internal/executor"
	"github.com/conjure-dev/conjure/internal/issue"
	"github.com/conjure-dev/conjure/internal/logging"
)

const (
	// DefaultRemote is compared against unless WithRemote is given.
	DefaultRemote = "origin"

	defaultMain = "main"
	// fallbackMain is tried when defaultMain does not exist.
	fallbackMain = "master"
)

// ErrNotRepository is returned when dir is not inside a git checkout.
var ErrNotRepository = errors.New("not a git repository")

type (
	// Prober runs git commands in a project directory.
	Prober struct {
		exec   executor.Executor
		dir    string
		main   string
		remote string
		fetch  bool
		log    logging.Sink
	}

	// Option configures a Prober.
	Option func(*Prober)

	// Status is the result of Prober.Status.
	Status struct {
		Branch                 string
		Main                   string
		MainUpToDateWithRemote bool
		BranchContainsMain     bool
	}
)

// WithMainBranch fixes the main branch name instead of detecting main or
// master.
func WithMainBranch(name string) Option {
	return func(p *Prober) { p.main = name }
}

// WithRemote overrides DefaultRemote.
func WithRemote(name string) Option {
	return func(p *Prober) {
		if name != "" {
			p.remote = name
		}
	}
}

// WithFetch fetches the remote before comparing against it.
func WithFetch(fetch bool) Option {
	return func(p *Prober) { p.fetch = fetch }
}

// WithLogger sets the sink for probe failures.
func WithLogger(log logging.Sink) Option {
	return func(p *Prober) {
		if log != nil {
			p.log = log
		}
	}
}

// New creates a Prober for the checkout at dir.
func New(exec executor.Executor, dir string, opts ...Option) *Prober {
	p := &Prober{exec: exec, dir: dir, remote: DefaultRemote, log: logging.Discard()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CurrentBranch returns the short name of the checked-out branch, or the
// commit hash when HEAD is detached. When git itself cannot answer, HEAD is
// read directly from the repository.
func (p *Prober) CurrentBranch(ctx context.Context) (string, error) {
	if out, err := p.exec.Output(ctx, "git symbolic-ref --short -q HEAD", p.dir); err == nil && out != "" {
		return out, nil
	}
	if out, err := p.exec.Output(ctx, "git rev-parse HEAD", p.dir); err == nil && out != "" {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.log.Log(logging.DebugLevel, "git binary failed, reading HEAD directly", "dir", p.dir)
	return headFromRepository(p.dir)
}

func headFromRepository(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", notRepository(dir, err)
		}
		return "", fmt.Errorf("open repository %s: %w", dir, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("read HEAD of %s: %w", dir, err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return head.Hash().String(), nil
}

// MainBranch returns the configured main branch, or the first of "main"
// and "master" that exists locally.
func (p *Prober) MainBranch(ctx context.Context) (string, error) {
	if p.main != "" {
		return p.main, nil
	}
	for _, name := range []string{defaultMain, fallbackMain} {
		_, err := p.exec.Output(ctx, "git rev-parse --verify -q refs/heads/"+name, p.dir)
		if err == nil {
			return name, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("neither %s nor %s exists in %s", defaultMain, fallbackMain, p.dir)
}

// IsMainUpToDateWithOrigin reports whether the remote main branch has no
// commits missing from the local main branch.
func (p *Prober) IsMainUpToDateWithOrigin(ctx context.Context) (bool, error) {
	main, err := p.MainBranch(ctx)
	if err != nil {
		return false, err
	}
	if p.fetch {
		if _, err := p.exec.Output(ctx, "git fetch -q "+p.remote, p.dir); err != nil {
			return false, fmt.Errorf("fetch %s: %w", p.remote, err)
		}
	}

	out, err := p.exec.Output(ctx, fmt.Sprintf("git rev-list --count %s..%s/%s", main, p.remote, main), p.dir)
	if err != nil {
		return false, fmt.Errorf("compare %s with %s/%s: %w", main, p.remote, main, err)
	}
	behind, err := strconv.Atoi(out)
	if err != nil {
		return false, fmt.Errorf("unexpected rev-list output %q: %w", out, err)
	}
	return behind == 0, nil
}

// IsBranchUpToDateWithMain reports whether the local main branch is an
// ancestor of HEAD.
func (p *Prober) IsBranchUpToDateWithMain(ctx context.Context) (bool, error) {
	main, err := p.MainBranch(ctx)
	if err != nil {
		return false, err
	}

	_, err = p.exec.Output(ctx, "git merge-base --is-ancestor "+main+" HEAD", p.dir)
	var exitErr *executor.ExitError
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &exitErr) && exitErr.Code == 1:
		return false, nil
	}
	return false, fmt.Errorf("check ancestry of %s: %w", main, err)
}

// Status collects every probe. The first failing probe aborts.
func (p *Prober) Status(ctx context.Context) (Status, error) {
	var (
		st  Status
		err error
	)
	if st.Branch, err = p.CurrentBranch(ctx); err != nil {
		return Status{}, err
	}
	if st.Main, err = p.MainBranch(ctx); err != nil {
		return Status{}, err
	}
	if st.MainUpToDateWithRemote, err = p.IsMainUpToDateWithOrigin(ctx); err != nil {
		return Status{}, err
	}
	if st.BranchContainsMain, err = p.IsBranchUpToDateWithMain(ctx); err != nil {
		return Status{}, err
	}
	return st, nil
}

func notRepository(dir string, cause error) error {
	return issue.NewErrorContext().
		WithOperation("read git branch").
		WithResource(dir).
		WithIssue(issue.NotGitRepositoryId).
		Wrap(fmt.Errorf("%w: %w", ErrNotRepository, cause)).
		BuildError()
}
