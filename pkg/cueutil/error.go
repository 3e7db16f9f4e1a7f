// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// fileError carries a rewritten message while keeping the original error
// reachable through errors.Is and errors.As.
type fileError struct {
	msg string
	err error
}

func (e *fileError) Error() string { return e.msg }

func (e *fileError) Unwrap() error { return e.err }

// FormatError rewrites a CUE error as "<file>: <path>: <message>", one line
// per underlying error. Other errors are prefixed with file and wrapped.
func FormatError(err error, file string) error {
	if err == nil {
		return nil
	}

	var cueErr cueerrors.Error
	if !errors.As(err, &cueErr) {
		return fmt.Errorf("%s: %w", file, err)
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%s: %w", file, err)
	}

	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		path := FormatPath(cueerrors.Path(e))
		msg := e.Error()
		if path != "" {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
			msg = path + ": " + msg
		}
		lines = append(lines, msg)
	}

	if len(lines) == 1 {
		return &fileError{msg: file + ": " + lines[0], err: err}
	}
	return &fileError{msg: file + ": validation failed:\n  " + strings.Join(lines, "\n  "), err: err}
}

// FormatPath renders a CUE path as JSON-path notation: ["steps", "0",
// "run"] becomes "steps[0].run".
func FormatPath(path []string) string {
	var sb strings.Builder
	for i, part := range path {
		if _, err := strconv.Atoi(part); err == nil && i > 0 {
			sb.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(part)
	}
	return sb.String()
}

// CheckFileSize rejects data larger than limit bytes.
func CheckFileSize(data []byte, limit int64, file string) error {
	if int64(len(data)) > limit {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", file, len(data), limit)
	}
	return nil
}
