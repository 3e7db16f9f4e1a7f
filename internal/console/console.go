// SPDX-License-Identifier: MPL-2.0

// Package console implements the task orchestrator: it runs custom work,
// single commands and multi-step scenarios, tracks every in-flight run so
// they can be canceled together, and keeps an ordered, observable log of
// the console lines those runs produce.
package console

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/conjure-dev/conjure/internal/executor"
	"github.com/conjure-dev/conjure/internal/logging"
	"github.com/conjure-dev/conjure/pkg/line"
)

const (
	// EventLine reports a line appended to the output log.
	EventLine EventKind = iota
	// EventRunning reports a change of the running state.
	EventRunning
	// EventCleared reports that the output log was cleared.
	EventCleared
)

const defaultEventBuffer = 256

type (
	// Console is the task orchestrator. All methods are safe for concurrent
	// use.
	Console struct {
		exec        executor.Executor
		log         logging.Sink
		eventBuffer int

		// mu guards output and reveal, and orders event delivery with them.
		mu     sync.Mutex
		output []line.Line
		reveal bool

		runMu   sync.Mutex
		running map[uuid.UUID]func()

		subMu   sync.Mutex
		subs    map[int]chan Event
		nextSub int
	}

	// Option configures a Console.
	Option func(*Console)

	// EventKind classifies an Event.
	EventKind int

	// Event is delivered to subscribers. Line is set for EventLine, Running
	// for EventRunning.
	Event struct {
		Kind    EventKind
		Line    line.Line
		Running bool
	}
)

// WithEventBuffer sets the channel capacity of each subscription.
func WithEventBuffer(n int) Option {
	return func(c *Console) {
		if n > 0 {
			c.eventBuffer = n
		}
	}
}

// New creates a console that executes commands with exec and mirrors every
// line to log at debug level. A nil log discards.
func New(exec executor.Executor, log logging.Sink, opts ...Option) *Console {
	if log == nil {
		log = logging.Discard()
	}
	c := &Console{
		exec:        exec,
		log:         log,
		eventBuffer: defaultEventBuffer,
		running:     make(map[uuid.UUID]func()),
		subs:        make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Executor returns the executor the console runs commands with.
func (c *Console) Executor() executor.Executor {
	return c.exec
}

// AddLine appends l to the output log.
func (c *Console) AddLine(l line.Line) {
	c.log.Log(logging.DebugLevel, l.String())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.output = append(c.output, l)
	c.reveal = true
	c.publish(Event{Kind: EventLine, Line: l})
}

// AddLines appends lines in order.
func (c *Console) AddLines(lines []line.Line) {
	for _, l := range lines {
		c.AddLine(l)
	}
}

// AddText appends a single-fragment line.
func (c *Console) AddText(content string, color line.Color) {
	c.AddLine(line.Text(content, color))
}

// AddEmptyLine appends a blank line.
func (c *Console) AddEmptyLine() {
	c.AddLine(line.Empty())
}

// Output returns a snapshot of the output log.
func (c *Console) Output() []line.Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.output)
}

// Clear empties the output log.
func (c *Console) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.output = nil
	c.publish(Event{Kind: EventCleared})
}

// NeedsReveal reports whether output arrived since the last ConsumeReveal.
func (c *Console) NeedsReveal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reveal
}

// ConsumeReveal clears the new-output latch and returns its previous value.
func (c *Console) ConsumeReveal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	was := c.reveal
	c.reveal = false
	return was
}

// Subscribe returns a channel of console events and a function that ends
// the subscription and closes the channel. A subscriber that falls behind
// loses events; Output stays authoritative.
func (c *Console) Subscribe() (<-chan Event, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan Event, c.eventBuffer)
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
}

func (c *Console) publish(ev Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
