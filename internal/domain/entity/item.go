// Package entity defines the core domain types of deltawatch: observed items,
// the persisted set of known item ids, notification batches and fetch
// requests, along with their validation rules and domain-specific errors.
package entity

import (
	"sort"
	"sync"
)

// Item is one uniquely identified unit of observed data, such as a listing
// or a contributor record. Identity is ID; Title is display-only.
type Item struct {
	ID    string
	Title string
}

// KnownSet is the set of item ids observed by previous runs.
// It is safe for concurrent use; no method blocks while holding the lock.
type KnownSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewKnownSet returns a set containing the given ids. Duplicates collapse.
func NewKnownSet(ids ...string) *KnownSet {
	s := &KnownSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is in the set.
func (s *KnownSet) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Add inserts id and reports whether it was absent before the call.
func (s *KnownSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Len returns the number of ids in the set.
func (s *KnownSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// IDs returns the ids in ascending order.
func (s *KnownSet) IDs() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	s.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Clone returns an independent copy of the set.
func (s *KnownSet) Clone() *KnownSet {
	return NewKnownSet(s.IDs()...)
}

// Equal reports whether both sets hold exactly the same ids.
func (s *KnownSet) Equal(other *KnownSet) bool {
	if other == nil {
		return false
	}
	a, b := s.IDs(), other.IDs()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NotificationBatch is the ordered list of newly observed items dispatched
// together in one notification. It is never empty.
type NotificationBatch struct {
	Items []Item
}

// NewNotificationBatch builds a batch from items, keeping their order.
// It returns ErrEmptyBatch when items is empty.
func NewNotificationBatch(items []Item) (NotificationBatch, error) {
	if len(items) == 0 {
		return NotificationBatch{}, ErrEmptyBatch
	}
	cp := make([]Item, len(items))
	copy(cp, items)
	return NotificationBatch{Items: cp}, nil
}

// Len returns the number of items in the batch.
func (b NotificationBatch) Len() int {
	return len(b.Items)
}
