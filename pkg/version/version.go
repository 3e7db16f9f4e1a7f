// SPDX-License-Identifier: MPL-2.0

package version

import (
	"cmp"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// betaSuffix marks beta builds in the short version form ("1.4.0beta").
const betaSuffix = "beta"

// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
var ErrInvalidVersion = errors.New("invalid version")

type (
	// Version identifies a release of the application. Ordering uses Major,
	// Minor and Patch only; Beta distinguishes a beta build from the stable
	// build of the same triple.
	Version struct {
		Major int  `json:"major"`
		Minor int  `json:"minor"`
		Patch int  `json:"patch"`
		Beta  bool `json:"isBeta"`
	}

	// InvalidVersionError is returned when a version string cannot be parsed.
	// It wraps ErrInvalidVersion for errors.Is() compatibility.
	InvalidVersionError struct {
		Value string
		Cause error
	}
)

// Error implements the error interface.
func (e *InvalidVersionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid version %q: %v", e.Value, e.Cause)
	}
	return fmt.Sprintf("invalid version %q", e.Value)
}

// Unwrap returns ErrInvalidVersion so callers can use errors.Is.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// New returns a stable Version.
func New(major, minor, patch int) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// Parse accepts "1.2.3", "v1.2.3", "1.2.3beta" and "v1.2.3-beta[.N]".
// Exactly three numeric components are required.
func Parse(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Version{}, &InvalidVersionError{Value: s}
	}

	norm := strings.TrimPrefix(raw, "v")
	// The short form glues the suffix to the patch number.
	if trimmed, ok := strings.CutSuffix(norm, betaSuffix); ok && !strings.HasSuffix(trimmed, "-") {
		norm = trimmed + "-" + betaSuffix
	}

	sv, err := semver.StrictNewVersion(norm)
	if err != nil {
		return Version{}, &InvalidVersionError{Value: s, Cause: err}
	}

	pre := sv.Prerelease()
	if pre != "" && pre != betaSuffix && !strings.HasPrefix(pre, betaSuffix+".") {
		return Version{}, &InvalidVersionError{Value: s, Cause: fmt.Errorf("unsupported pre-release %q", pre)}
	}

	return Version{
		Major: int(sv.Major()),
		Minor: int(sv.Minor()),
		Patch: int(sv.Patch()),
		Beta:  pre != "",
	}, nil
}

// MustParse is like Parse but panics on error. Use only with literals.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the short form used in manifests and the UI: "1.2.3" or "1.2.3beta".
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Beta {
		s += betaSuffix
	}
	return s
}

// Tag returns the release tag form: "v1.2.3" or "v1.2.3-beta".
func (v Version) Tag() string {
	s := fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Beta {
		s += "-" + betaSuffix
	}
	return s
}

// Compare orders a and b by (major, minor, patch). The beta flag is ignored.
func Compare(a, b Version) int {
	if c := cmp.Compare(a.Major, b.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Minor, b.Minor); c != 0 {
		return c
	}
	return cmp.Compare(a.Patch, b.Patch)
}

// IsMajorHigher reports whether v has a higher major version than other.
func (v Version) IsMajorHigher(other Version) bool {
	return v.Major > other.Major
}

// IsMinorHigher reports whether v is on the same major line as other with a
// higher minor version.
func (v Version) IsMinorHigher(other Version) bool {
	return v.Major == other.Major && v.Minor > other.Minor
}

// IsPatchHigher reports whether v has the same major and minor as other with
// a higher patch version.
func (v Version) IsPatchHigher(other Version) bool {
	return v.Major == other.Major && v.Minor == other.Minor && v.Patch > other.Patch
}

// IsVersionHigher reports whether v orders strictly above other.
func (v Version) IsVersionHigher(other Version) bool {
	return Compare(v, other) > 0
}

// SameRelease reports whether v and other identify the same build,
// including the beta flag.
func (v Version) SameRelease(other Version) bool {
	return v == other
}
