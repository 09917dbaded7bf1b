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

package toolchain

import (
	"sync"
	"sync/atomic"
)

// Cache holds the resolved installation. Resolution runs at most once per
// cache until it succeeds; failures are not remembered.
type Cache struct {
	inst atomic.Pointer[Installation]
	mu   sync.Mutex
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the cached installation, or nil.
func (c *Cache) Get() *Installation {
	return c.inst.Load()
}

// Resolve returns the cached installation or runs resolve to produce it.
func (c *Cache) Resolve(resolve func() (*Installation, error)) (*Installation, error) {
	if inst := c.inst.Load(); inst != nil {
		return inst, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if inst := c.inst.Load(); inst != nil {
		return inst, nil
	}
	inst, err := resolve()
	if err != nil {
		return nil, err
	}
	c.inst.Store(inst)
	return inst, nil
}

// Reset forgets the cached installation.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inst.Store(nil)
}
