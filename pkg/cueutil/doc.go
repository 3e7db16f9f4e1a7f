// SPDX-License-Identifier: MPL-2.0

// Package cueutil decodes CUE documents that are validated against an
// embedded schema.
//
// Decoding always follows the same flow: compile the schema, compile the
// user file, unify it with the schema's root definition, validate, then
// decode into a Go value.
//
//	//go:embed project_schema.cue
//	var schema []byte
//
//	p, err := cueutil.Decode[Project](schema, data, "#Project",
//	    cueutil.WithFilename("conjure.cue"))
//
// Errors carry the CUE path of the offending field, e.g.
// "conjure.cue: generation.steps[0].run: incomplete value string".
package cueutil
