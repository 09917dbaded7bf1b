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
	_ "embed"
	"fmt"

	"github.com/goccy/go-json"

	"bennypowers.dev/frontier/fs"
)

//go:embed catalog/default.json
var defaultCatalog []byte

// Catalog is the platform version catalog: the framework's own default
// dependencies and the versions pinned across all platform packages.
type Catalog struct {
	Platform        string            `json:"platform"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Pinned          map[string]string `json:"pinned"`
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// ParseCatalog decodes a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.Dependencies == nil {
		c.Dependencies = map[string]string{}
	}
	if c.DevDependencies == nil {
		c.DevDependencies = map[string]string{}
	}
	if c.Pinned == nil {
		c.Pinned = map[string]string{}
	}
	return &c, nil
}

// LoadCatalog reads a catalog file, falling back to DefaultCatalog when
// path is empty.
func LoadCatalog(fsys fs.FileSystem, path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading version catalog: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("parsing version catalog %s: %w", path, err)
	}
	return c, nil
}

// PinnedFor filters the pinned versions against m: packages the user
// declared with their own version (present in dependencies but not
// framework-managed) keep the user's choice.
func (c *Catalog) PinnedFor(m *Manifest) map[string]string {
	out := make(map[string]string, len(c.Pinned))
	for pkg, v := range c.Pinned {
		userVersion, declared := m.Dependencies[pkg]
		_, managed := m.Vaadin.Dependencies[pkg]
		if declared && !managed && userVersion != v {
			continue
		}
		out[pkg] = v
	}
	return out
}
