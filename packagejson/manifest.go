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
	"bytes"
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/goccy/go-json"

	"bennypowers.dev/frontier/fs"
)

// Keys of the project package.json.
const (
	KeyName            = "name"
	KeyVersion         = "version"
	KeyLicense         = "license"
	KeyType            = "type"
	KeyDependencies    = "dependencies"
	KeyDevDependencies = "devDependencies"
	KeyOverrides       = "overrides"
	KeyVaadin          = "vaadin"
	KeyHash            = "hash"

	DefaultName    = "no-name"
	DefaultLicense = "UNLICENSED"
)

// Section selects dependencies or devDependencies.
type Section string

const (
	Dependencies    Section = KeyDependencies
	DevDependencies Section = KeyDevDependencies
)

// Managed is the framework-private "vaadin" object: what the framework
// last wrote to each section and the resulting dependency hash.
type Managed struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Hash            string            `json:"hash"`
}

// Manifest is a mutable project package.json. Keys the framework does not
// manage are preserved verbatim.
type Manifest struct {
	Name            string
	Version         string
	License         string
	Type            string
	Dependencies    map[string]string
	DevDependencies map[string]string
	// Overrides values are usually strings; nested override objects
	// written by users survive as decoded JSON.
	Overrides map[string]any
	Vaadin    Managed

	extra map[string]json.RawMessage
}

// NewManifest returns the package.json written for a project without one.
func NewManifest() *Manifest {
	m := &Manifest{Name: DefaultName, License: DefaultLicense}
	m.ensureDefaults()
	return m
}

// ParseManifest decodes a package.json document.
func ParseManifest(data []byte) (*Manifest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	m := &Manifest{extra: map[string]json.RawMessage{}}
	fields := []struct {
		key  string
		dest any
	}{
		{KeyName, &m.Name},
		{KeyVersion, &m.Version},
		{KeyLicense, &m.License},
		{KeyType, &m.Type},
		{KeyDependencies, &m.Dependencies},
		{KeyDevDependencies, &m.DevDependencies},
		{KeyOverrides, &m.Overrides},
		{KeyVaadin, &m.Vaadin},
	}
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.key] = true
		value, ok := raw[f.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, f.dest); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.key, err)
		}
	}
	for key, value := range raw {
		if !known[key] {
			m.extra[key] = value
		}
	}
	m.ensureDefaults()
	return m, nil
}

// LoadManifest reads path, or returns NewManifest when it does not exist.
func LoadManifest(fsys fs.FileSystem, path string) (*Manifest, error) {
	if !fsys.Exists(path) {
		return NewManifest(), nil
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("cannot parse package file %s: %w", path, err)
	}
	return m, nil
}

func (m *Manifest) ensureDefaults() {
	if m.Dependencies == nil {
		m.Dependencies = map[string]string{}
	}
	if m.DevDependencies == nil {
		m.DevDependencies = map[string]string{}
	}
	if m.Vaadin.Dependencies == nil {
		m.Vaadin.Dependencies = map[string]string{}
	}
	if m.Vaadin.DevDependencies == nil {
		m.Vaadin.DevDependencies = map[string]string{}
	}
	if m.extra == nil {
		m.extra = map[string]json.RawMessage{}
	}
}

// Section returns the user-facing map and the managed record for s.
func (m *Manifest) Section(s Section) (deps, managed map[string]string) {
	if s == DevDependencies {
		return m.DevDependencies, m.Vaadin.DevDependencies
	}
	return m.Dependencies, m.Vaadin.Dependencies
}

// Clone returns a deep copy.
func (m *Manifest) Clone() *Manifest {
	c := *m
	c.Dependencies = maps.Clone(m.Dependencies)
	c.DevDependencies = maps.Clone(m.DevDependencies)
	c.Overrides = maps.Clone(m.Overrides)
	c.Vaadin.Dependencies = maps.Clone(m.Vaadin.Dependencies)
	c.Vaadin.DevDependencies = maps.Clone(m.Vaadin.DevDependencies)
	c.extra = maps.Clone(m.extra)
	c.ensureDefaults()
	return &c
}

// Marshal encodes the manifest with two-space indentation and a trailing
// newline. Key order is fixed so identical manifests encode identically.
func (m *Manifest) Marshal() ([]byte, error) {
	type entry struct {
		key   string
		value any
	}
	var entries []entry
	add := func(key string, value any, present bool) {
		if present {
			entries = append(entries, entry{key, value})
		}
	}
	add(KeyName, m.Name, m.Name != "")
	add(KeyVersion, m.Version, m.Version != "")
	add(KeyType, m.Type, m.Type != "")
	add(KeyLicense, m.License, m.License != "")

	extraKeys := slices.Sorted(maps.Keys(m.extra))
	for _, k := range extraKeys {
		add(k, m.extra[k], true)
	}

	add(KeyDependencies, m.Dependencies, true)
	add(KeyDevDependencies, m.DevDependencies, true)
	add(KeyOverrides, m.Overrides, len(m.Overrides) > 0)
	add(KeyVaadin, m.Vaadin, true)

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, e := range entries {
		value, err := json.MarshalIndent(e.value, "  ", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", e.key, err)
		}
		key, _ := json.Marshal(e.key)
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
		if i < len(entries)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// SortedKeys returns map keys ordered case-insensitively, ties broken by
// byte order.
func SortedKeys(m map[string]string) []string {
	keys := slices.Collect(maps.Keys(m))
	sort.Slice(keys, func(i, j int) bool {
		return lessFold(keys[i], keys[j])
	})
	return keys
}
