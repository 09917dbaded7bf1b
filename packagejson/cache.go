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
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds MemoryCache when no size is given.
const DefaultCacheSize = 512

// Cache stores parsed package.json files of installed packages, keyed by
// file path.
type Cache interface {
	Get(path string) (*PackageJSON, bool)
	Set(path string, pkg *PackageJSON)
	Invalidate(path string)
	// GetOrLoad returns the cached package or runs loader once per path,
	// concurrent callers waiting for the same result.
	GetOrLoad(path string, loader func() (*PackageJSON, error)) (*PackageJSON, error)
}

type cacheEntry struct {
	pkg  *PackageJSON
	err  error
	once sync.Once
}

// MemoryCache is a thread-safe, size-bounded Cache with LRU eviction.
type MemoryCache struct {
	cache   *lru.Cache[string, *PackageJSON]
	loading sync.Map // path -> *cacheEntry for in-flight loads
}

// NewMemoryCache creates a cache holding at most size entries. A size of
// zero or less uses DefaultCacheSize.
func NewMemoryCache(size int) *MemoryCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *PackageJSON](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &MemoryCache{cache: c}
}

// Get retrieves a cached package.json by its file path.
func (c *MemoryCache) Get(path string) (*PackageJSON, bool) {
	return c.cache.Get(path)
}

// Set stores a parsed package.json.
func (c *MemoryCache) Set(path string, pkg *PackageJSON) {
	c.cache.Add(path, pkg)
}

// Invalidate removes a cached entry and any in-flight loading state.
func (c *MemoryCache) Invalidate(path string) {
	c.cache.Remove(path)
	c.loading.Delete(path)
}

// Len returns the number of cached packages.
func (c *MemoryCache) Len() int {
	return c.cache.Len()
}

// GetOrLoad implements Cache.
func (c *MemoryCache) GetOrLoad(path string, loader func() (*PackageJSON, error)) (*PackageJSON, error) {
	if pkg, ok := c.cache.Get(path); ok {
		return pkg, nil
	}

	actual, _ := c.loading.LoadOrStore(path, &cacheEntry{})
	entry := actual.(*cacheEntry)
	// A concurrent load may have finished between the miss and LoadOrStore.
	if pkg, ok := c.cache.Get(path); ok {
		return pkg, nil
	}
	entry.once.Do(func() {
		entry.pkg, entry.err = loader()
		if entry.err == nil {
			c.cache.Add(path, entry.pkg)
		}
	})
	// Failed loads stay memoized until Invalidate, successful ones are
	// served from the LRU from now on.
	if entry.err == nil {
		c.loading.Delete(path)
	}
	return entry.pkg, entry.err
}
