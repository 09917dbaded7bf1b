/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package version implements the permissive version type used for
// package, runtime and bundle version gating.
//
// Versions look like semver but are parsed leniently: "1", "1.2",
// "1.2.3-beta1", "1.2.3.rc2" and "1.0-SNAPSHOT" are all valid. Range
// markers (^, ~) are accepted on input and discarded; range semantics
// belong to [Accepted].
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidVersionFormat is returned when the leading component of a
// version string is not an integer.
var ErrInvalidVersionFormat = errors.New("invalid version format")

var (
	separator    = regexp.MustCompile(`[-.]`)
	buildPattern = regexp.MustCompile(`^(\D*)(\d*)`)
)

// Version is an immutable (major, minor, revision, build) tuple.
// The zero value is 0.0.0.
type Version struct {
	Major    int
	Minor    int
	Revision int
	Build    string
}

// New returns the version major.minor.revision with the given build
// identifier.
func New(major, minor, revision int, build string) Version {
	return Version{Major: major, Minor: minor, Revision: revision, Build: build}
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Parse reads a version from s. A leading "^", "~" or "v" marker is
// stripped. Components after the major version that are not integers are
// folded, with the rest of the string, into the build identifier.
func Parse(s string) (Version, error) {
	raw := s
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "^~=")
	s = strings.TrimPrefix(s, "v")
	if s == "" || s[0] < '0' || s[0] > '9' {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersionFormat, raw)
	}

	// Token start offsets, at most four tokens.
	starts := []int{0}
	for _, loc := range separator.FindAllStringIndex(s, 3) {
		starts = append(starts, loc[1])
	}
	token := func(i int) string {
		end := len(s)
		if i+1 < len(starts) {
			end = starts[i+1] - 1
		}
		return s[starts[i]:end]
	}

	var v Version
	major, err := strconv.Atoi(token(0))
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersionFormat, raw)
	}
	v.Major = major

	numeric := []*int{&v.Minor, &v.Revision}
	for i := 1; i < len(starts); i++ {
		if i-1 < len(numeric) {
			if n, err := strconv.Atoi(token(i)); err == nil {
				*numeric[i-1] = n
				continue
			}
		}
		v.Build = s[starts[i]:]
		break
	}
	return v, nil
}

// String formats the version as major.minor.revision with a "-build"
// suffix when a build identifier is present.
func (v Version) String() string {
	base := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision)
	if v.Build != "" {
		return base + "-" + v.Build
	}
	return base
}

// Compare returns -1, 0 or +1 when a is older than, equal to or newer
// than b.
func Compare(a, b Version) int {
	if c := compareInt(a.Major, b.Major); c != 0 {
		return c
	}
	if c := compareInt(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := compareInt(a.Revision, b.Revision); c != 0 {
		return c
	}
	return compareBuild(a.Build, b.Build)
}

// IsOlderThan reports whether v sorts before other.
func (v Version) IsOlderThan(other Version) bool { return Compare(v, other) < 0 }

// IsNewerThan reports whether v sorts after other.
func (v Version) IsNewerThan(other Version) bool { return Compare(v, other) > 0 }

// IsEqualOrNewer reports whether v is not older than other.
func (v Version) IsEqualOrNewer(other Version) bool { return Compare(v, other) >= 0 }

// IsEqualTo reports whether all four components match.
func (v Version) IsEqualTo(other Version) bool { return v == other }

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareBuild orders build identifiers. A release (empty identifier) is
// newer than any pre-release. Otherwise the alphabetic prefixes decide,
// then the numeric suffixes, then the full strings.
func compareBuild(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return 1
	}
	if b == "" {
		return -1
	}

	am := buildPattern.FindStringSubmatch(a)
	bm := buildPattern.FindStringSubmatch(b)
	ap, bp := strings.ToLower(am[1]), strings.ToLower(bm[1])
	if ap != bp {
		if ap == "" {
			return 1
		}
		if bp == "" {
			return -1
		}
		return strings.Compare(ap, bp)
	}
	if am[2] != "" && bm[2] != "" {
		an, aerr := strconv.Atoi(am[2])
		bn, berr := strconv.Atoi(bm[2])
		if aerr == nil && berr == nil && an != bn {
			return compareInt(an, bn)
		}
	}
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
