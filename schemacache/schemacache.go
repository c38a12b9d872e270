// Package schemacache provides the process-local, concurrent (project,
// collection) -> schema.Schema cache that sits in front of the metastore.
//
// The cache is a latency optimization, not the source of truth: it is
// write-through, may lag a sibling process's update, and publishes only
// whole, immutable schema.Schema values so readers never observe a
// partially constructed field list.
package schemacache

import (
	"sync"

	"github.com/c360/eventschema/schema"
)

type key struct {
	project    string
	collection string
}

// Cache is a concurrency-safe map from (project, collection) to the current
// schema.Schema the caller last observed or published.
type Cache struct {
	mu sync.RWMutex
	m  map[key]schema.Schema
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{m: make(map[key]schema.Schema)}
}

// Get returns the cached schema for (project, collection) and whether it
// was present.
func (c *Cache) Get(project, collection string) (schema.Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.m[key{project, collection}]
	return s, ok
}

// Put publishes s as the current schema for (project, collection). Callers
// are expected to only ever put a schema that is a superset of any prior
// value they observed; the cache itself does not enforce monotonicity,
// since that invariant is the metastore's responsibility (see
// ErrTypeConflict at the merge layer).
func (c *Cache) Put(project, collection string, s schema.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key{project, collection}] = s
}

// Len returns the number of (project, collection) pairs currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
