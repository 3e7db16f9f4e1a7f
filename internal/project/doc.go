// SPDX-License-Identifier: MPL-2.0

// Package project loads a project's conjure.cue and turns it into the
// generation scenario, quick operations and environment items conjure
// works with.
//
// A project file looks like:
//
//	project_id:      "mobile"
//	minimal_version: "2.4.0"
//	generation: {
//		title: "Generate mobile"
//		steps: [
//			{run: "mise install"},
//			{run: "tuist generate --no-open"},
//			{run: "open Mobile.xcworkspace", optional: true},
//		]
//	}
//	tools: [{name: "tuist", probe: "mise list tuist", install: "mise install tuist@{{version}}"}]
//
// Tool versions missing from conjure.cue are taken from the [tools] table
// of a mise.toml next to it.
package project
