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

// Package stats reads the bundle manifest (stats.json) written by the
// bundler next to a compiled bundle.
package stats

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"

	"github.com/goccy/go-json"

	"bennypowers.dev/frontier/fs"
)

// FileName is the manifest file name inside a bundle's config folder.
const FileName = "stats.json"

// ErrNotFound is returned when no manifest exists at any candidate path.
var ErrNotFound = errors.New("bundle stats not found")

// Stats is the recorded snapshot of what a compiled bundle contains.
type Stats struct {
	PackageJSONHash         string            `json:"packageJsonHash"`
	PackageJSONDependencies map[string]string `json:"packageJsonDependencies"`
	NpmModules              map[string]string `json:"npmModules"`
	BundleImports           []string          `json:"bundleImports"`
	FrontendHashes          map[string]string `json:"frontendHashes"`
	// ThemeJSONContents maps theme name to the theme.json text.
	ThemeJSONContents map[string]string `json:"themeJsonContents"`
	EntryScripts      []string          `json:"entryScripts"`
	WebComponents     []string          `json:"webComponents"`
}

// Parse decodes a manifest.
func Parse(data []byte) (*Stats, error) {
	var s Stats
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	return &s, nil
}

// ParseFile reads and decodes the manifest at path.
func ParseFile(fsys fs.FileSystem, path string) (*Stats, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Find returns the first manifest found among the bundle directories.
// Each directory is expected to hold config/stats.json.
func Find(fsys fs.FileSystem, bundleDirs ...string) (*Stats, string, error) {
	for _, dir := range bundleDirs {
		if dir == "" {
			continue
		}
		p := filepath.Join(dir, "config", FileName)
		if !fsys.Exists(p) {
			continue
		}
		s, err := ParseFile(fsys, p)
		if err != nil {
			return nil, p, err
		}
		return s, p, nil
	}
	return nil, "", ErrNotFound
}

// Clone returns a deep copy, so checks may prune maps without touching
// the caller's value.
func (s *Stats) Clone() *Stats {
	c := *s
	c.PackageJSONDependencies = maps.Clone(s.PackageJSONDependencies)
	c.NpmModules = maps.Clone(s.NpmModules)
	c.FrontendHashes = maps.Clone(s.FrontendHashes)
	c.ThemeJSONContents = maps.Clone(s.ThemeJSONContents)
	c.BundleImports = append([]string(nil), s.BundleImports...)
	c.EntryScripts = append([]string(nil), s.EntryScripts...)
	c.WebComponents = append([]string(nil), s.WebComponents...)
	if c.FrontendHashes == nil {
		c.FrontendHashes = map[string]string{}
	}
	return &c
}

// HasImport reports whether spec is among the bundled imports.
func (s *Stats) HasImport(spec string) bool {
	for _, imp := range s.BundleImports {
		if imp == spec {
			return true
		}
	}
	return false
}
