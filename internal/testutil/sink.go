// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"fmt"
	"slices"
	"sync"

	"github.com/conjure-dev/conjure/internal/logging"
)

type (
	// Record is one captured log call.
	Record struct {
		Level   logging.Level
		Msg     string
		Keyvals []any
	}

	// RecordingSink is a logging.Sink that keeps every record in memory.
	RecordingSink struct {
		mu      sync.Mutex
		records []Record
	}
)

var _ logging.Sink = (*RecordingSink)(nil)

// Log implements logging.Sink.
func (s *RecordingSink) Log(level logging.Level, msg any, keyvals ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, Record{Level: level, Msg: fmt.Sprint(msg), Keyvals: slices.Clone(keyvals)})
}

// Records returns a copy of the captured records.
func (s *RecordingSink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

// Messages returns the messages logged at level, in order.
func (s *RecordingSink) Messages(level logging.Level) []string {
	var msgs []string
	for _, r := range s.Records() {
		if r.Level == level {
			msgs = append(msgs, r.Msg)
		}
	}
	return msgs
}
