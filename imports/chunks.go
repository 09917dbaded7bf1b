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
	"fmt"
	"slices"
)

// ChunkFile is a content-addressed lazy chunk.
type ChunkFile struct {
	// Name is the file name, chunk-<hash>.js.
	Name  string
	Hash  string
	Lines []string
	// Triggers are the raw keys that load this chunk.
	Triggers []string
}

// chunkName names a chunk after the hash of its content.
func chunkName(hash string) string {
	return "chunk-" + hash + ".js"
}

// chunkTable collects lazy chunks; identical content from different routes
// collapses into one file.
type chunkTable struct {
	files    []*ChunkFile
	byHash   map[string]*ChunkFile
	triggers *orderedSet[string]
	loads    map[string]*orderedSet[string]
}

func newChunkTable() *chunkTable {
	return &chunkTable{
		byHash:   map[string]*ChunkFile{},
		triggers: newOrderedSet[string](),
		loads:    map[string]*orderedSet[string]{},
	}
}

func (t *chunkTable) add(lines []string, triggers []string) *ChunkFile {
	hash := ContentHash(lines)
	cf, ok := t.byHash[hash]
	if !ok {
		cf = &ChunkFile{Name: chunkName(hash), Hash: hash, Lines: lines}
		t.byHash[hash] = cf
		t.files = append(t.files, cf)
	}
	for _, trig := range triggers {
		if !slices.Contains(cf.Triggers, trig) {
			cf.Triggers = append(cf.Triggers, trig)
		}
		t.triggers.add(trig)
		if t.loads[trig] == nil {
			t.loads[trig] = newOrderedSet[string]()
		}
		t.loads[trig].add(cf.Name)
	}
	return cf
}

// loaderLines renders the on-demand loader dispatching on trigger hashes
// and registers it on window.Vaadin.Flow.
func (t *chunkTable) loaderLines() []string {
	lines := []string{
		"const loadOnDemand = (key) => {",
		"  const pending = [];",
	}
	for _, trig := range t.triggers.items {
		lines = append(lines, fmt.Sprintf("  if (key === '%s') {", HashString(trig)))
		for _, name := range t.loads[trig].items {
			lines = append(lines, fmt.Sprintf("    pending.push(import('./chunks/%s'));", name))
		}
		lines = append(lines, "  }")
	}
	return append(lines,
		"  return Promise.all(pending);",
		"}",
		"window.Vaadin = window.Vaadin || {};",
		"window.Vaadin.Flow = window.Vaadin.Flow || {};",
		"window.Vaadin.Flow.loadOnDemand = loadOnDemand;",
	)
}
