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

package bundle

import (
	"fmt"
	"strings"
)

// Check identifies the validation step that asked for a rebuild.
type Check int

const (
	CheckError Check = iota
	CheckForced
	CheckPresence
	CheckEagerRoutes
	CheckPackages
	CheckDependencies
	CheckIndexHTML
	CheckImports
	CheckHashes
	CheckBootstrap
	CheckTheme
	CheckThemeComponents
	CheckWebComponents
)

var checkNames = [...]string{
	CheckError:           "error",
	CheckForced:          "forced",
	CheckPresence:        "presence",
	CheckEagerRoutes:     "eager-routes",
	CheckPackages:        "packages",
	CheckDependencies:    "dependencies",
	CheckIndexHTML:       "index-html",
	CheckImports:         "imports",
	CheckHashes:          "hashes",
	CheckBootstrap:       "bootstrap",
	CheckTheme:           "theme",
	CheckThemeComponents: "theme-components",
	CheckWebComponents:   "web-components",
}

func (c Check) String() string {
	if c < 0 || int(c) >= len(checkNames) {
		return "unknown"
	}
	return checkNames[c]
}

// Reason explains a rebuild verdict.
type Reason struct {
	Check   Check
	Message string
	// Files lists the offending packages, imports, files or theme entries.
	Files []string
}

func (r *Reason) String() string {
	if r == nil {
		return "up to date"
	}
	if len(r.Files) == 0 {
		return fmt.Sprintf("%s: %s", r.Check, r.Message)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s:", r.Check, r.Message)
	for _, f := range r.Files {
		b.WriteString("\n - ")
		b.WriteString(f)
	}
	return b.String()
}
