// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"syscall"

	"github.com/conjure-dev/conjure/pkg/line"
)

type (
	// emitter serializes line delivery from concurrent output streams.
	emitter struct {
		mu     sync.Mutex
		onLine func(line.Line)
	}

	// lineWriter is an io.Writer that splits written bytes into lines.
	// Incomplete trailing data is held until the next newline or Flush,
	// up to maxLineSize bytes.
	lineWriter struct {
		mu      sync.Mutex
		emitter *emitter
		pending []byte
	}
)

func newEmitter(onLine func(line.Line)) *emitter {
	if onLine == nil {
		onLine = func(line.Line) {}
	}
	return &emitter{onLine: onLine}
}

func (e *emitter) emit(text string) {
	text = strings.TrimRight(text, "\r")
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onLine(line.Text(text, line.Default))
}

// pump reads r until EOF and emits one line per newline-terminated chunk.
// A line longer than maxLineSize stops line delivery; the rest of the
// stream is drained so the writer never blocks.
func (e *emitter) pump(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		e.emit(sc.Text())
	}
	err := sc.Err()
	if err != nil {
		_, _ = io.Copy(io.Discard, r)
	}
	if isClosedPTY(err) {
		return nil
	}
	return err
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		w.emitter.emit(string(w.pending[:i]))
		w.pending = w.pending[i+1:]
	}
	// A line longer than maxLineSize is delivered in maxLineSize pieces.
	for len(w.pending) > maxLineSize {
		w.emitter.emit(string(w.pending[:maxLineSize]))
		w.pending = bytes.Clone(w.pending[maxLineSize:])
	}
	return len(p), nil
}

// Flush emits any buffered partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) > 0 {
		w.emitter.emit(string(w.pending))
		w.pending = nil
	}
}

// isClosedPTY reports the error a PTY master returns once the child side
// is gone. It is the PTY equivalent of EOF.
func isClosedPTY(err error) bool {
	return errors.Is(err, syscall.EIO)
}
