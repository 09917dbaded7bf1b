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

// Package scanner defines the dependency scanner port: the source of the
// per-chunk module, script and stylesheet requirements that drive import
// generation, package.json updates and bundle validation.
package scanner

import (
	"context"
	"slices"
)

// GlobalChunk is the identity of the synthetic chunk that owns
// everything not attributed to a route.
const GlobalChunk = "__global__"

// ChunkKind distinguishes route entry points from global groupings.
type ChunkKind int

const (
	// KindGlobal chunks are always loaded eagerly.
	KindGlobal ChunkKind = iota
	// KindRoute chunks belong to a route entry point.
	KindRoute
)

func (k ChunkKind) String() string {
	switch k {
	case KindGlobal:
		return "global"
	case KindRoute:
		return "route"
	default:
		return "unknown"
	}
}

// CSSImport is a stylesheet declaration as the scanner reports it.
// ID and ThemeFor are mutually exclusive.
type CSSImport struct {
	Value    string
	Include  string
	ID       string
	ThemeFor string
}

// Chunk groups the frontend requirements of one route or of the global
// bucket.
type Chunk struct {
	ID   string
	Kind ChunkKind
	// Lazy marks a route chunk that should load on demand.
	Lazy bool
	// Triggers are the keys whose activation loads this chunk.
	Triggers []string

	Modules    []string
	DevModules []string
	Scripts    []string
	DevScripts []string
	CSS        []CSSImport
}

// IsLazy reports whether the chunk is loaded on demand. Only route chunks
// flagged lazy are.
func (c Chunk) IsLazy() bool {
	return c.Kind == KindRoute && c.Lazy
}

// JSImports returns the chunk's modules followed by its scripts. Development
// only entries are included unless production is set.
func (c Chunk) JSImports(production bool) []string {
	out := slices.Clone(c.Modules)
	if !production {
		out = append(out, c.DevModules...)
	}
	out = append(out, c.Scripts...)
	if !production {
		out = append(out, c.DevScripts...)
	}
	return out
}

// Theme is the single active theme of the application.
type Theme struct {
	// Name is the project theme folder name under <frontend>/themes.
	Name string
	// BaseURL is the generic component path segment, such as "src/".
	BaseURL string
	// ThemeURL replaces BaseURL for themed files, such as "theme/lumo/".
	ThemeURL string
	Variant  string
}

// Result is everything a scan discovers.
type Result struct {
	Chunks []Chunk
	Theme  *Theme

	// Packages and DevPackages are npm requirements, name to version.
	Packages    map[string]string
	DevPackages map[string]string

	// WebComponents are the tag names of exported embeddable components.
	WebComponents []string

	// AppShellCSS are stylesheets applied to the application shell.
	AppShellCSS []CSSImport

	// EagerRoutes names routes that force their dependencies to load at
	// startup.
	EagerRoutes []string
}

// Chunk returns the chunk with the given identity.
func (r *Result) Chunk(id string) (Chunk, bool) {
	for _, c := range r.Chunks {
		if c.ID == id {
			return c, true
		}
	}
	return Chunk{}, false
}

// ThemeName returns the active theme name or "".
func (r *Result) ThemeName() string {
	if r == nil || r.Theme == nil {
		return ""
	}
	return r.Theme.Name
}

// Scanner produces the frontend requirements of an application.
type Scanner interface {
	Scan(ctx context.Context) (*Result, error)
}

// EagerRouteLister is implemented by scanners that can name the eagerly
// loaded routes without producing a full Result.
type EagerRouteLister interface {
	EagerRoutes(ctx context.Context) ([]string, error)
}

// Static is a Scanner that always returns the same result.
type Static struct {
	Result *Result
}

// Scan implements Scanner.
func (s Static) Scan(context.Context) (*Result, error) {
	return s.Result, nil
}

// EagerRoutes implements EagerRouteLister.
func (s Static) EagerRoutes(context.Context) ([]string, error) {
	if s.Result == nil {
		return nil, nil
	}
	return s.Result.EagerRoutes, nil
}
