// SPDX-License-Identifier: MPL-2.0

package scenario

import (
	"fmt"
	"strings"
)

const (
	// PublishEmptyLine emits a blank line before the run.
	PublishEmptyLine PublishStrategy = 1 << iota
	// PublishInformation emits "starting" and "completed" lines.
	PublishInformation
	// PublishCommand echoes the command text before executing it.
	PublishCommand
	// PublishOutput forwards the lines produced by the command.
	PublishOutput
	// PublishError emits failure and termination lines.
	PublishError

	// PublishAll enables every category.
	PublishAll = PublishEmptyLine | PublishInformation | PublishCommand | PublishOutput | PublishError
)

var strategyNames = []struct {
	flag PublishStrategy
	name string
}{
	{PublishEmptyLine, "empty-line"},
	{PublishInformation, "information"},
	{PublishCommand, "command"},
	{PublishOutput, "output"},
	{PublishError, "error"},
}

// PublishStrategy selects which categories of lines a console run emits.
// It filters output only; it never changes control flow.
type PublishStrategy uint8

// Has reports whether every flag in f is enabled.
func (p PublishStrategy) Has(f PublishStrategy) bool {
	return p&f == f
}

// String lists the enabled flags, e.g. "command|error".
func (p PublishStrategy) String() string {
	if p == 0 {
		return "none"
	}
	if p == PublishAll {
		return "all"
	}
	var parts []string
	for _, n := range strategyNames {
		if p.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParsePublishStrategy parses the String form: "all", "none", or flag
// names joined by "|" or ",".
func ParsePublishStrategy(s string) (PublishStrategy, error) {
	switch strings.TrimSpace(s) {
	case "all":
		return PublishAll, nil
	case "none":
		return 0, nil
	}

	var p PublishStrategy
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		part = strings.TrimSpace(part)
		found := false
		for _, n := range strategyNames {
			if n.name == part {
				p |= n.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown publish flag %q", part)
		}
	}
	if p == 0 {
		return 0, fmt.Errorf("empty publish strategy %q", s)
	}
	return p, nil
}
