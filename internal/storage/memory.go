package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
)

// MemoryStore is an in-memory Store. It is safe for concurrent use and
// stores deep copies, so callers may keep mutating the items they pass in.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*feedback.Item
	order []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*feedback.Item)}
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, item *feedback.Item) error {
	if item == nil {
		return ErrNilItem
	}
	if err := item.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; !ok {
		s.order = append(s.order, item.ID)
	}
	s.items[item.ID] = copyItem(item)
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*feedback.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyItem(it), nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]*feedback.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*feedback.Item
	for _, id := range s.order {
		it := s.items[id]
		if filter.Matches(it) {
			out = append(out, copyItem(it))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count implements Store.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

// snapshot returns copies of all items in insertion order. Used by
// FileStore when persisting.
func (s *MemoryStore) snapshot() []*feedback.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*feedback.Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyItem(s.items[id]))
	}
	return out
}

// copyItem deep-copies an item so store internals never alias caller data.
func copyItem(it *feedback.Item) *feedback.Item {
	cp := *it
	if it.Tags != nil {
		cp.Tags = append([]string(nil), it.Tags...)
	}
	if it.Reliability != nil {
		r := *it.Reliability
		cp.Reliability = &r
	}
	if it.Relations != nil {
		cp.Relations = make([]feedback.Relation, len(it.Relations))
		for i, rel := range it.Relations {
			cp.Relations[i] = rel
			if rel.Metadata != nil {
				md := make(map[string]any, len(rel.Metadata))
				for k, v := range rel.Metadata {
					md[k] = v
				}
				cp.Relations[i].Metadata = md
			}
		}
	}
	if it.Content.Data != nil {
		data := make(map[string]any, len(it.Content.Data))
		for k, v := range it.Content.Data {
			data[k] = v
		}
		cp.Content.Data = data
	}
	return &cp
}
