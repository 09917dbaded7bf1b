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

package scanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"

	"bennypowers.dev/frontier/fs"
)

// DefaultFile is the conventional name of the declarative dependency
// file, relative to the project directory.
const DefaultFile = "frontend-deps.yaml"

// ErrDuplicateChunk is returned when two chunks share an id.
var ErrDuplicateChunk = errors.New("duplicate chunk id")

type yamlCSS struct {
	Value    string `yaml:"value"`
	Include  string `yaml:"include"`
	ID       string `yaml:"id"`
	ThemeFor string `yaml:"theme-for"`
}

type yamlChunk struct {
	ID         string    `yaml:"id"`
	Kind       string    `yaml:"kind"`
	Lazy       bool      `yaml:"lazy"`
	Triggers   []string  `yaml:"triggers"`
	Modules    []string  `yaml:"modules"`
	DevModules []string  `yaml:"dev-modules"`
	Scripts    []string  `yaml:"scripts"`
	DevScripts []string  `yaml:"dev-scripts"`
	CSS        []yamlCSS `yaml:"css"`
}

type yamlTheme struct {
	Name     string `yaml:"name"`
	BaseURL  string `yaml:"base-url"`
	ThemeURL string `yaml:"theme-url"`
	Variant  string `yaml:"variant"`
}

type yamlFile struct {
	Theme         *yamlTheme        `yaml:"theme"`
	Packages      map[string]string `yaml:"packages"`
	DevPackages   map[string]string `yaml:"dev-packages"`
	WebComponents []string          `yaml:"web-components"`
	AppShellCSS   []yamlCSS         `yaml:"app-shell-css"`
	EagerRoutes   []string          `yaml:"eager-routes"`
	Chunks        []yamlChunk       `yaml:"chunks"`
}

// FileScanner reads requirements from a declarative YAML document, for
// build pipelines where annotation scanning happened elsewhere.
type FileScanner struct {
	fs   fs.FileSystem
	path string
}

// NewFileScanner returns a scanner reading path.
func NewFileScanner(fsys fs.FileSystem, path string) *FileScanner {
	return &FileScanner{fs: fsys, path: path}
}

// Scan implements Scanner.
func (s *FileScanner) Scan(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	res, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return res, nil
}

// EagerRoutes implements EagerRouteLister by decoding only the
// eager-routes entry of the document.
func (s *FileScanner) EagerRoutes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	var doc struct {
		EagerRoutes []string `yaml:"eager-routes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return doc.EagerRoutes, nil
}

// ParseYAML decodes a dependency document.
func ParseYAML(data []byte) (*Result, error) {
	var doc yamlFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	res := &Result{
		Packages:      doc.Packages,
		DevPackages:   doc.DevPackages,
		WebComponents: doc.WebComponents,
		AppShellCSS:   convertCSS(doc.AppShellCSS),
		EagerRoutes:   doc.EagerRoutes,
	}
	if doc.Theme != nil && doc.Theme.Name != "" {
		res.Theme = &Theme{
			Name:     doc.Theme.Name,
			BaseURL:  doc.Theme.BaseURL,
			ThemeURL: doc.Theme.ThemeURL,
			Variant:  doc.Theme.Variant,
		}
	}

	seen := make(map[string]bool, len(doc.Chunks))
	for _, c := range doc.Chunks {
		id := c.ID
		if id == "" {
			id = GlobalChunk
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateChunk, id)
		}
		seen[id] = true

		kind := KindGlobal
		switch c.Kind {
		case "", "global":
		case "route":
			kind = KindRoute
		default:
			return nil, fmt.Errorf("chunk %s: unknown kind %q", id, c.Kind)
		}

		res.Chunks = append(res.Chunks, Chunk{
			ID:         id,
			Kind:       kind,
			Lazy:       c.Lazy,
			Triggers:   c.Triggers,
			Modules:    c.Modules,
			DevModules: c.DevModules,
			Scripts:    c.Scripts,
			DevScripts: c.DevScripts,
			CSS:        convertCSS(c.CSS),
		})
	}
	return res, nil
}

func convertCSS(in []yamlCSS) []CSSImport {
	if len(in) == 0 {
		return nil
	}
	out := make([]CSSImport, len(in))
	for i, c := range in {
		out[i] = CSSImport{Value: c.Value, Include: c.Include, ID: c.ID, ThemeFor: c.ThemeFor}
	}
	return out
}
