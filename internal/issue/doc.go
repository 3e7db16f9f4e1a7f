// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing errors: ActionableError adds the
// failed operation, the resource and remediation hints to an error, and
// Issue holds Markdown guidance for the well-known failures of conjure,
// rendered with glamour.
package issue
