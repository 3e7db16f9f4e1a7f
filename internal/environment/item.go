// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/conjure-dev/conjure/internal/executor"
	"github.com/conjure-dev/conjure/internal/logging"
)

var (
	// ErrNoRemedy is returned by Remedy when the current status carries no
	// operation.
	ErrNoRemedy = errors.New("no remedy available")

	// ErrBusy is returned by Remedy while the entry is being probed or
	// remedied.
	ErrBusy = errors.New("environment item is busy")
)

type (
	// Item is one external dependency of the developer environment.
	//
	// Probe inspects the dependency and returns its status. It must not
	// change any state, so probing twice without an intervening remedy
	// yields the same Status.
	Item interface {
		Title() string
		Probe(ctx context.Context, exec executor.Executor, log logging.Sink) Status
	}

	// Operation is a remedy for a Warning or Error status.
	Operation interface {
		Title() string
		Run(ctx context.Context, exec executor.Executor, log logging.Sink) error
	}

	// OperationError is the typed failure of an Operation. Retry, when set,
	// replaces the failed operation as the entry's remedy.
	OperationError struct {
		Description string
		Retry       Operation
	}

	// OperationFunc adapts a function to Operation.
	OperationFunc struct {
		Name string
		Fn   func(ctx context.Context, exec executor.Executor, log logging.Sink) error
	}

	// Entry pairs an Item with its current Status.
	Entry struct {
		item Item

		mu     sync.Mutex
		status Status
	}
)

// Error implements the error interface.
func (e *OperationError) Error() string {
	return e.Description
}

// Title implements Operation.
func (o OperationFunc) Title() string { return o.Name }

// Run implements Operation.
func (o OperationFunc) Run(ctx context.Context, exec executor.Executor, log logging.Sink) error {
	return o.Fn(ctx, exec, log)
}

// NewEntry wraps item with an empty Unknown status.
func NewEntry(item Item) *Entry {
	return &Entry{item: item, status: Unknown("")}
}

// Item returns the wrapped item.
func (e *Entry) Item() Item { return e.item }

// Title returns the item title.
func (e *Entry) Title() string { return e.item.Title() }

// Status returns the current status.
func (e *Entry) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Reset schedules the entry for a check.
func (e *Entry) Reset() {
	e.setStatus(Waiting())
}

// Check moves the entry to InProgress, probes it and stores the result.
func (e *Entry) Check(ctx context.Context, exec executor.Executor, log logging.Sink) Status {
	e.setStatus(InProgress())
	st := e.item.Probe(ctx, exec, log)
	e.setStatus(st)
	return st
}

func (e *Entry) setStatus(s Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = s
}

// Remedy runs the operation attached to the entry's Warning or Error status.
// On success the entry is probed again; on failure it moves to Error with
// the failure description and, for an *OperationError, its Retry
// operation. The operation error is returned.
func Remedy(ctx context.Context, e *Entry, exec executor.Executor, log logging.Sink) error {
	if log == nil {
		log = logging.Discard()
	}
	op, err := e.beginRemedy()
	if err != nil {
		return err
	}

	log.Log(logging.InfoLevel, "running remedy", "item", e.Title(), "operation", op.Title())
	runErr := op.Run(ctx, exec, log)
	if runErr == nil {
		e.setStatus(e.item.Probe(ctx, exec, log))
		return nil
	}

	log.Log(logging.WarnLevel, "remedy failed", "item", e.Title(), "err", runErr)
	var opErr *OperationError
	if errors.As(runErr, &opErr) {
		e.setStatus(Error(opErr.Description, opErr.Retry))
	} else {
		e.setStatus(Error(runErr.Error(), op))
	}
	return fmt.Errorf("%s: %w", op.Title(), runErr)
}

func (e *Entry) beginRemedy() (Operation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.status.Kind {
	case KindInProgress:
		return nil, fmt.Errorf("%s: %w", e.item.Title(), ErrBusy)
	case KindWarning, KindError:
		if e.status.Operation != nil {
			op := e.status.Operation
			e.status = InProgress()
			return op, nil
		}
	}
	return nil, fmt.Errorf("%s (%s): %w", e.item.Title(), e.status.Kind, ErrNoRemedy)
}
