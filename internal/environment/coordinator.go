// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/conjure-dev/conjure/internal/console"
	"github.com/conjure-dev/conjure/internal/executor"
	"github.com/conjure-dev/conjure/internal/logging"
	"github.com/conjure-dev/conjure/pkg/line"
	"github.com/conjure-dev/conjure/pkg/version"
)

var (
	// ErrUnknownItem is returned by Fix for a title no entry carries.
	ErrUnknownItem = errors.New("unknown environment item")

	// ErrNoTargetVersion is returned by UpdateApplication when neither an
	// explicit nor a required version is known.
	ErrNoTargetVersion = errors.New("no version to update to")
)

type (
	// Updater discovers and installs releases of the application.
	Updater interface {
		// AvailableVersions lists every published release.
		AvailableVersions(ctx context.Context) ([]version.Version, error)
		// LastAvailableVersion returns the newest release that a project
		// requiring after can use and that is higher than comparedWith, or
		// nil when comparedWith is already the newest.
		LastAvailableVersion(ctx context.Context, after, comparedWith version.Version) (*version.Version, error)
		// UpdateTo replaces the running application with v.
		UpdateTo(ctx context.Context, v version.Version) error
	}

	// Coordinator checks and remedies a set of environment items plus the
	// application's own version.
	Coordinator struct {
		console *console.Console
		exec    executor.Executor
		updater Updater
		current version.Version
		log     logging.Sink
		entries []*Entry

		mu        sync.Mutex
		appStatus AppStatus
		required  *version.Version
	}
)

// NewCoordinator creates a coordinator over items. A nil updater skips the
// application version check.
func NewCoordinator(c *console.Console, exec executor.Executor, updater Updater, current version.Version, log logging.Sink, items ...Item) *Coordinator {
	if log == nil {
		log = logging.Discard()
	}
	entries := make([]*Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, NewEntry(it))
	}
	return &Coordinator{
		console:   c,
		exec:      exec,
		updater:   updater,
		current:   current,
		log:       log,
		entries:   entries,
		appStatus: AppWaitingCheckingUpdating,
	}
}

// Entries returns the entries in check order.
func (co *Coordinator) Entries() []*Entry {
	return slices.Clone(co.entries)
}

// Entry returns the entry titled title.
func (co *Coordinator) Entry(title string) (*Entry, bool) {
	for _, e := range co.entries {
		if e.Title() == title {
			return e, true
		}
	}
	return nil, false
}

// AppStatus returns the application's update status.
func (co *Coordinator) AppStatus() AppStatus {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.appStatus
}

// RequiredVersion returns the release found by the last check, if any.
func (co *Coordinator) RequiredVersion() *version.Version {
	co.mu.Lock()
	defer co.mu.Unlock()
	if co.required == nil {
		return nil
	}
	v := *co.required
	return &v
}

func (co *Coordinator) setApp(s AppStatus) {
	co.mu.Lock()
	defer co.mu.Unlock()
	co.appStatus = s
}

// Check resets every entry to Waiting, classifies the application version
// against minimal, then probes the entries one after another in order.
func (co *Coordinator) Check(ctx context.Context, minimal version.Version) {
	for _, e := range co.entries {
		e.Reset()
	}
	co.setApp(AppCheckingInProgress)
	co.checkApp(ctx, minimal)

	for _, e := range co.entries {
		st := e.Check(ctx, co.exec, co.log)
		level := logging.DebugLevel
		if st.NeedsAttention() {
			level = logging.WarnLevel
		}
		co.log.Log(level, "environment item checked", "item", e.Title(), "status", st.String())
	}
}

func (co *Coordinator) checkApp(ctx context.Context, minimal version.Version) {
	if co.updater == nil {
		co.setApp(AppActualVersion)
		return
	}

	latest, err := co.updater.LastAvailableVersion(ctx, minimal, co.current)
	co.mu.Lock()
	defer co.mu.Unlock()
	if err != nil {
		co.log.Log(logging.WarnLevel, "application version check failed", "err", err)
		co.required = nil
		co.appStatus = AppErrorDuringChecking
		return
	}

	co.required = latest
	switch version.Classify(co.current, latest) {
	case version.MandatoryUpdate:
		co.appStatus = AppNeedUpdate
	case version.OptionalUpdate:
		co.appStatus = AppCanUpdate
	default:
		co.appStatus = AppActualVersion
	}
}

// CheckAsTask runs Check as a console task titled "Environment check" and
// writes one line per entry with its resulting status.
func (co *Coordinator) CheckAsTask(ctx context.Context, minimal version.Version) bool {
	return co.console.Run(ctx, func(ctx context.Context, c *console.Console) error {
		co.Check(ctx, minimal)
		if err := ctx.Err(); err != nil {
			return err
		}

		app := co.AppStatus()
		appLine := fmt.Sprintf("conjure %s: %s", co.current, app)
		if req := co.RequiredVersion(); req != nil {
			appLine += " (" + req.String() + ")"
		}
		c.AddText(appLine, appColor(app))
		for _, e := range co.entries {
			st := e.Status()
			c.AddText(e.Title()+": "+st.String(), statusColor(st))
		}
		return nil
	}, console.WithTitle("Environment check"))
}

// NeedUpdate reports whether any entry or the application needs action.
func (co *Coordinator) NeedUpdate() bool {
	for _, e := range co.entries {
		if e.Status().NeedsAttention() {
			return true
		}
	}
	return co.AppStatus().needsAction()
}

// ErrorIndicator reports whether the application check or update failed or
// any entry is not Actual.
func (co *Coordinator) ErrorIndicator() bool {
	if co.AppStatus().isError() {
		return true
	}
	for _, e := range co.entries {
		if e.Status().Kind != KindActual {
			return true
		}
	}
	return false
}

// WarningIndicator reports whether a mandatory application update exists.
func (co *Coordinator) WarningIndicator() bool {
	return co.AppStatus() == AppNeedUpdate
}

// IsChecking reports whether a check is in progress.
func (co *Coordinator) IsChecking() bool {
	return co.AppStatus() == AppCheckingInProgress
}

// UpdateApplication installs v, or the version found by the last check when
// v is the zero Version, as a console task.
func (co *Coordinator) UpdateApplication(ctx context.Context, v version.Version) bool {
	return co.console.Run(ctx, func(ctx context.Context, c *console.Console) error {
		target := v
		if target == (version.Version{}) {
			req := co.RequiredVersion()
			if req == nil {
				return ErrNoTargetVersion
			}
			target = *req
		}
		if co.updater == nil {
			return ErrNoTargetVersion
		}

		co.setApp(AppUpdatingInProgress)
		c.AddText("Installing conjure "+target.String(), line.Default)
		if err := co.updater.UpdateTo(ctx, target); err != nil {
			co.setApp(AppErrorDuringUpdating)
			return err
		}
		co.setApp(AppActualVersion)
		return nil
	}, console.WithTitle("Updating conjure"))
}

// Fix runs the remedy of the entry titled title as a console task. An
// entry that was never checked is probed first.
func (co *Coordinator) Fix(ctx context.Context, title string) bool {
	e, ok := co.Entry(title)
	name := title
	if ok && e.Status().Operation != nil {
		name = e.Status().Operation.Title() + " " + title
	}

	return co.console.Run(ctx, func(ctx context.Context, c *console.Console) error {
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownItem, title)
		}
		if k := e.Status().Kind; k == KindUnknown || k == KindWaiting {
			e.Check(ctx, co.exec, co.log)
		}
		if err := Remedy(ctx, e, co.exec, co.log); err != nil {
			return err
		}
		st := e.Status()
		c.AddText(e.Title()+": "+st.String(), statusColor(st))
		if st.Kind == KindError {
			return errors.New(st.String())
		}
		return nil
	}, console.WithTitle(name))
}

func statusColor(s Status) line.Color {
	switch s.Kind {
	case KindActual:
		return line.Green
	case KindWarning:
		return line.Yellow
	case KindError:
		return line.Red
	}
	return line.Default
}

func appColor(s AppStatus) line.Color {
	switch s {
	case AppActualVersion:
		return line.Green
	case AppCanUpdate, AppActualWithWarning:
		return line.Yellow
	case AppNeedUpdate, AppNeedInstall, AppErrorDuringChecking, AppErrorDuringUpdating, AppErrorDuringInstalling:
		return line.Red
	}
	return line.Default
}
