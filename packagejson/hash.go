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

package packagejson

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash returns the dependency hash of m: the SHA-256 of the sorted
// dependencies block followed by the sorted devDependencies block. It does
// not depend on the order keys were written in.
func Hash(m *Manifest) string {
	var b strings.Builder
	writeHashBlock(&b, KeyDependencies, m.Dependencies)
	writeHashBlock(&b, KeyDevDependencies, m.DevDependencies)
	return HashString(b.String())
}

func writeHashBlock(b *strings.Builder, name string, deps map[string]string) {
	if deps == nil {
		return
	}
	fmt.Fprintf(b, "%q: {", name)
	for i, key := range SortedKeys(deps) {
		if i > 0 {
			b.WriteString(",\n  ")
		}
		fmt.Fprintf(b, "%q: %q", key, deps[key])
	}
	b.WriteString("}")
}

// HashString returns the hex SHA-256 of s.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func lessFold(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}
