// SPDX-License-Identifier: MPL-2.0

package environment

import "fmt"

const (
	// KindUnknown means the item has not been probed or could not be.
	KindUnknown StatusKind = iota
	// KindWaiting means a check is scheduled.
	KindWaiting
	// KindInProgress means a probe or remedy is running.
	KindInProgress
	// KindActual means the dependency is installed and current.
	KindActual
	// KindWarning means the dependency works but needs attention.
	KindWarning
	// KindError means the dependency is missing or broken.
	KindError
)

type (
	// StatusKind is the closed set of environment item states.
	StatusKind int

	// Status is the state of an environment item. Description is set for
	// Unknown, Warning and Error; Operation is the optional remedy of a
	// Warning or Error.
	Status struct {
		Kind        StatusKind
		Description string
		Operation   Operation
	}
)

// String returns the kind name.
func (k StatusKind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindWaiting:
		return "waiting"
	case KindInProgress:
		return "in progress"
	case KindActual:
		return "actual"
	case KindWarning:
		return "warning"
	case KindError:
		return "error"
	}
	return fmt.Sprintf("StatusKind(%d)", int(k))
}

// Unknown returns an unknown status.
func Unknown(description string) Status {
	return Status{Kind: KindUnknown, Description: description}
}

// Waiting returns the scheduled status.
func Waiting() Status { return Status{Kind: KindWaiting} }

// InProgress returns the running status.
func InProgress() Status { return Status{Kind: KindInProgress} }

// Actual returns the healthy status.
func Actual() Status { return Status{Kind: KindActual} }

// Warning returns a warning with an optional remedy.
func Warning(description string, op Operation) Status {
	return Status{Kind: KindWarning, Description: description, Operation: op}
}

// Error returns an error with an optional remedy.
func Error(description string, op Operation) Status {
	return Status{Kind: KindError, Description: description, Operation: op}
}

// Equal reports whether both statuses have the same kind, description and
// remedy title.
func (s Status) Equal(other Status) bool {
	return s.Kind == other.Kind &&
		s.Description == other.Description &&
		operationTitle(s.Operation) == operationTitle(other.Operation)
}

// NeedsAttention reports whether the status asks the operator to act.
func (s Status) NeedsAttention() bool {
	switch s.Kind {
	case KindUnknown, KindWarning, KindError:
		return true
	}
	return false
}

// String renders the status for display, e.g. "error: git is not installed".
func (s Status) String() string {
	if s.Description == "" {
		return s.Kind.String()
	}
	return s.Kind.String() + ": " + s.Description
}

func operationTitle(op Operation) string {
	if op == nil {
		return ""
	}
	return op.Title()
}
