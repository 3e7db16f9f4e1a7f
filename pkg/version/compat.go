// SPDX-License-Identifier: MPL-2.0

package version

import "slices"

const (
	// UpToDate means no newer compatible release exists.
	UpToDate Availability = iota
	// OptionalUpdate means a newer minor or patch release exists on the current major line.
	OptionalUpdate
	// MandatoryUpdate means the newest relevant release is on a higher major line.
	MandatoryUpdate
)

// Availability classifies what the application should do about its own version.
type Availability int

// String returns a human-readable label for the availability.
func (a Availability) String() string {
	switch a {
	case UpToDate:
		return "up-to-date"
	case OptionalUpdate:
		return "optional-update"
	case MandatoryUpdate:
		return "mandatory-update"
	}
	return "unknown"
}

// CanGenerate reports whether an application running app may generate a
// project that requires at least project. Compatibility is major-locked.
func CanGenerate(project, app Version) bool {
	return app.SameRelease(project) || app.IsMinorHigher(project) || app.IsPatchHigher(project)
}

// Classify decides whether current needs an update given the newest
// relevant release (nil when none exists).
func Classify(current Version, latest *Version) Availability {
	switch {
	case latest == nil:
		return UpToDate
	case latest.IsMajorHigher(current):
		return MandatoryUpdate
	default:
		return OptionalUpdate
	}
}

// LatestOnMajor returns the highest version in versions whose major equals
// major. Beta builds are skipped unless includeBeta is set. It returns nil
// when nothing matches.
func LatestOnMajor(versions []Version, major int, includeBeta bool) *Version {
	candidates := slices.DeleteFunc(slices.Clone(versions), func(v Version) bool {
		return v.Major != major || (v.Beta && !includeBeta)
	})
	if len(candidates) == 0 {
		return nil
	}
	best := slices.MaxFunc(candidates, Compare)
	return &best
}

// Contains reports whether versions holds exactly v, beta flag included.
func Contains(versions []Version, v Version) bool {
	return slices.ContainsFunc(versions, v.SameRelease)
}
