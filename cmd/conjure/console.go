// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/conjure-dev/conjure/internal/console"
)

// eventBuffer bounds the subscription the printer is woken through. Lines
// themselves are read back from the console's log, so a full buffer only
// coalesces wake-ups.
const eventBuffer = 4096

// printer writes a console's log to stdout in order. It tracks how much of
// the log it has written and catches up from Output on every event.
type printer struct {
	a *App
	c *console.Console
	n int
}

func (p *printer) catchUp() {
	out := p.c.Output()
	if len(out) < p.n {
		// The log was cleared and the event that said so was dropped.
		p.n = 0
	}
	for _, l := range out[p.n:] {
		fmt.Fprintln(p.a.deps.Stdout, l.Render(p.a.renderer))
	}
	p.n = len(out)
}

// withConsole creates a console, prints its lines to stdout while fn runs
// and cancels every running task when ctx is done.
func (a *App) withConsole(ctx context.Context, fn func(ctx context.Context, c *console.Console) bool) bool {
	c := console.New(a.exec, a.log, console.WithEventBuffer(eventBuffer))
	p := &printer{a: a, c: c}

	events, unsubscribe := c.Subscribe()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range events {
			switch ev.Kind {
			case console.EventCleared:
				p.n = 0
			case console.EventLine:
				p.catchUp()
			}
		}
	}()

	stop := context.AfterFunc(ctx, func() {
		a.log.Warn("interrupted, stopping running tasks")
		c.CancelRunning()
	})

	ok := fn(ctx, c)

	stop()
	unsubscribe()
	<-printed
	p.catchUp()
	return ok
}

// runResult maps a console result to the command's error.
func runResult(ok bool) error {
	if ok {
		return nil
	}
	return errReported
}
