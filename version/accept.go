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

package version

import "strings"

// Accepted reports whether a resolved version satisfies a declared
// dependency specifier.
//
//   - "~x.y.z" accepts the same major and minor at or above x.y.z.
//   - "^x.y.z" accepts the same major at or above x.y.z.
//   - anything else requires an exact match.
//
// Specifiers that are not versions at all (tags, URLs, "workspace:*")
// are only accepted when both strings are identical.
func Accepted(expected, actual string) bool {
	want, werr := Parse(expected)
	got, gerr := Parse(actual)
	switch {
	case werr != nil && gerr != nil:
		return expected == actual
	case werr != nil || gerr != nil:
		return false
	}

	spec := strings.TrimSpace(expected)
	switch {
	case strings.HasPrefix(spec, "~"):
		return want.Major == got.Major && want.Minor == got.Minor && got.IsEqualOrNewer(want)
	case strings.HasPrefix(spec, "^"):
		return want.Major == got.Major && got.IsEqualOrNewer(want)
	}
	return want.IsEqualTo(got)
}
