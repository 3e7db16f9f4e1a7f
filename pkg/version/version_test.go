// SPDX-License-Identifier: MPL-2.0

package version

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Version
		wantErr bool
	}{
		{name: "plain", input: "1.2.3", want: Version{Major: 1, Minor: 2, Patch: 3}},
		{name: "v prefix", input: "v10.0.7", want: Version{Major: 10, Minor: 0, Patch: 7}},
		{name: "short beta", input: "2.1.0beta", want: Version{Major: 2, Minor: 1, Patch: 0, Beta: true}},
		{name: "tag beta", input: "v2.1.0-beta", want: Version{Major: 2, Minor: 1, Patch: 0, Beta: true}},
		{name: "numbered beta", input: "v2.1.0-beta.3", want: Version{Major: 2, Minor: 1, Patch: 0, Beta: true}},
		{name: "surrounding space", input: " 0.0.1\n", want: Version{Patch: 1}},
		{name: "two components", input: "1.2", wantErr: true},
		{name: "four components", input: "1.2.3.4", wantErr: true},
		{name: "rc pre-release", input: "1.2.3-rc1", wantErr: true},
		{name: "letters", input: "one.two.three", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) = %v, want error", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidVersion) {
					t.Errorf("Parse(%q) error %v does not wrap ErrInvalidVersion", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestVersionStringAndTag(t *testing.T) {
	t.Parallel()

	stable := New(1, 4, 2)
	if got := stable.String(); got != "1.4.2" {
		t.Errorf("String() = %q, want %q", got, "1.4.2")
	}
	if got := stable.Tag(); got != "v1.4.2" {
		t.Errorf("Tag() = %q, want %q", got, "v1.4.2")
	}

	beta := Version{Major: 1, Minor: 5, Beta: true}
	if got := beta.String(); got != "1.5.0beta" {
		t.Errorf("String() = %q, want %q", got, "1.5.0beta")
	}
	if got := beta.Tag(); got != "v1.5.0-beta" {
		t.Errorf("Tag() = %q, want %q", got, "v1.5.0-beta")
	}

	for _, v := range []Version{stable, beta} {
		back, err := Parse(v.String())
		if err != nil || back != v {
			t.Errorf("Parse(%q) = %+v, %v; want %+v", v.String(), back, err, v)
		}
	}
}

func TestComparisons(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		v, other    string
		majorHigher bool
		minorHigher bool
		patchHigher bool
		higher      bool
	}{
		{name: "equal", v: "1.2.0", other: "1.2.0"},
		{name: "patch above", v: "1.2.1", other: "1.2.0", patchHigher: true, higher: true},
		{name: "minor above", v: "1.3.0", other: "1.2.9", minorHigher: true, higher: true},
		{name: "major above", v: "2.0.0", other: "1.9.9", majorHigher: true, higher: true},
		{name: "major above lower minor", v: "2.0.0", other: "1.3.0", majorHigher: true, higher: true},
		{name: "minor below", v: "1.1.9", other: "1.2.0"},
		{name: "patch above on other minor", v: "1.1.5", other: "1.2.0"},
		{name: "beta ignored for order", v: "1.2.0beta", other: "1.2.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, other := MustParse(tt.v), MustParse(tt.other)
			if got := v.IsMajorHigher(other); got != tt.majorHigher {
				t.Errorf("IsMajorHigher = %v, want %v", got, tt.majorHigher)
			}
			if got := v.IsMinorHigher(other); got != tt.minorHigher {
				t.Errorf("IsMinorHigher = %v, want %v", got, tt.minorHigher)
			}
			if got := v.IsPatchHigher(other); got != tt.patchHigher {
				t.Errorf("IsPatchHigher = %v, want %v", got, tt.patchHigher)
			}
			if got := v.IsVersionHigher(other); got != tt.higher {
				t.Errorf("IsVersionHigher = %v, want %v", got, tt.higher)
			}
		})
	}
}

func TestSameReleaseDistinguishesBeta(t *testing.T) {
	t.Parallel()

	stable := MustParse("1.2.0")
	beta := MustParse("1.2.0beta")

	if Compare(stable, beta) != 0 {
		t.Errorf("Compare(%v, %v) = %d, want 0", stable, beta, Compare(stable, beta))
	}
	if stable.SameRelease(beta) {
		t.Errorf("%v.SameRelease(%v) = true, want false", stable, beta)
	}
	if !stable.SameRelease(New(1, 2, 0)) {
		t.Errorf("%v.SameRelease(itself) = false", stable)
	}
}
