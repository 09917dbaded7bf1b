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
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrConflictingCSSTarget is returned for a stylesheet declaring both an id
// and a theme-for target.
var ErrConflictingCSSTarget = errors.New("css import cannot declare both id and theme-for")

// UnresolvedImportsError lists every relative module and stylesheet that
// could not be found in one pass.
type UnresolvedImportsError struct {
	Modules     []string
	Stylesheets []string
	FrontendDir string
	JarDir      string
}

func (e *UnresolvedImportsError) Error() string {
	var b strings.Builder
	if len(e.Modules) > 0 {
		b.WriteString("\n\n  Failed to find the following files:")
		writeList(&b, e.Modules)
		fmt.Fprintf(&b, "\n  Locations searched were:\n      - `%s` in this project\n      - `%s` for packaged resources\n", e.FrontendDir, e.JarDir)
	}
	if len(e.Stylesheets) > 0 {
		fmt.Fprintf(&b, "\n\n  Failed to find the following css files in the `node_modules` or `%s` directory tree:", e.FrontendDir)
		writeList(&b, e.Stylesheets)
	}
	b.WriteString("\n  Please double check that those files exist. If you use a custom directory for your\n" +
		"  resource files instead of the default `frontend` folder, make sure it is configured\n" +
		"  (--frontend or FRONTIER_FRONTEND).\n")
	return b.String()
}

// Paths returns all unresolved paths, sorted.
func (e *UnresolvedImportsError) Paths() []string {
	out := slices.Concat(e.Modules, e.Stylesheets)
	slices.Sort(out)
	return out
}

func writeList(b *strings.Builder, items []string) {
	sorted := slices.Clone(items)
	slices.Sort(sorted)
	for _, it := range sorted {
		b.WriteString("\n      - ")
		b.WriteString(it)
	}
	b.WriteString("\n")
}
