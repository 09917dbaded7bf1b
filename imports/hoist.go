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

package imports

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// orderedSet keeps the first occurrence of each value in encounter order.
type orderedSet[T comparable] struct {
	seen  map[T]bool
	items []T
}

func newOrderedSet[T comparable]() *orderedSet[T] {
	return &orderedSet[T]{seen: map[T]bool{}}
}

func (s *orderedSet[T]) add(v T) bool {
	if s.seen[v] {
		return false
	}
	s.seen[v] = true
	s.items = append(s.items, v)
	return true
}

func (s *orderedSet[T]) addAll(vs ...T) {
	for _, v := range vs {
		s.add(v)
	}
}

// isImportLine reports whether line is a static import declaration.
func isImportLine(line string) bool {
	return strings.HasPrefix(line, "import ") || strings.HasPrefix(line, "import{")
}

// Hoist moves import declarations to the top, keeping the relative order
// of both the imports and the remaining lines. Repeated identical import
// lines are dropped.
func Hoist(lines []string) []string {
	imports := newOrderedSet[string]()
	var rest []string
	for _, l := range lines {
		if isImportLine(l) {
			imports.add(l)
			continue
		}
		rest = append(rest, l)
	}
	return append(imports.items, rest...)
}

// ImportStatement renders a side-effect import.
func ImportStatement(spec string) string {
	return "import '" + spec + "';"
}

// ContentHash is the hex SHA-256 of lines joined by "\n".
func ContentHash(lines []string) string {
	return HashString(strings.Join(lines, "\n"))
}

// HashString is the hex SHA-256 of s.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
