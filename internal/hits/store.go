package hits

import (
	"fmt"
	"sort"
)

// Registry assigns stable ids to collection keys for the whole run. It is
// built once before workers start and only read afterwards.
type Registry struct {
	ids  map[string]int
	keys []string
}

// NewRegistry assigns ids 0..n-1 to the given keys in order. Duplicate
// keys keep their first id.
func NewRegistry(keys ...string) *Registry {
	reg := &Registry{ids: make(map[string]int, len(keys))}
	for _, k := range keys {
		if _, ok := reg.ids[k]; ok {
			continue
		}
		reg.ids[k] = len(reg.keys)
		reg.keys = append(reg.keys, k)
	}
	return reg
}

// ID returns the id of key.
func (reg *Registry) ID(key string) (int, bool) {
	id, ok := reg.ids[key]
	return id, ok
}

// Keys returns the registered keys in id order.
func (reg *Registry) Keys() []string {
	return append([]string(nil), reg.keys...)
}

// Store is the per-event set of hit collections, addressable by key or id.
type Store struct {
	byKey map[string]*Collection
	byID  map[int]*Collection
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{byKey: make(map[string]*Collection), byID: make(map[int]*Collection)}
}

// Add registers a collection. Keys and ids must be unique within the store.
func (s *Store) Add(c *Collection) error {
	if _, dup := s.byKey[c.Key()]; dup {
		return fmt.Errorf("hits: collection %q already registered", c.Key())
	}
	if _, dup := s.byID[c.ID()]; dup {
		return fmt.Errorf("hits: collection id %d already registered", c.ID())
	}
	s.byKey[c.Key()] = c
	s.byID[c.ID()] = c
	return nil
}

// Get looks up a collection by key.
func (s *Store) Get(key string) (*Collection, bool) {
	c, ok := s.byKey[key]
	return c, ok
}

// GetByID looks up a collection by id.
func (s *Store) GetByID(id int) (*Collection, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Len returns the number of collections.
func (s *Store) Len() int { return len(s.byID) }

// Collections returns the collections in id order.
func (s *Store) Collections() []*Collection {
	out := make([]*Collection, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// CloseAll closes every collection.
func (s *Store) CloseAll() {
	for _, c := range s.byID {
		c.Close()
	}
}

// Release returns every record to the pool and empties the store. Records
// obtained from the store must not be used afterwards.
func (s *Store) Release(p *Pool) {
	for _, c := range s.byID {
		c.release(p)
	}
	clear(s.byKey)
	clear(s.byID)
}
