package feedback

import (
	"sort"
	"time"
)

// Collection is an in-memory index over a set of items. It supports the
// lookups the fusion pipeline needs: by ID, by source, by kind, and by
// recency. A Collection does not own its items; callers may share item
// pointers across collections.
type Collection struct {
	items    []*Item
	byID     map[string]*Item
	bySource map[string][]*Item
	byKind   map[string][]*Item
}

// NewCollection builds a collection over the given items. Items with
// duplicate IDs replace earlier ones.
func NewCollection(items ...*Item) *Collection {
	c := &Collection{
		byID:     make(map[string]*Item),
		bySource: make(map[string][]*Item),
		byKind:   make(map[string][]*Item),
	}
	for _, it := range items {
		c.Add(it)
	}
	return c
}

// Add indexes an item. Adding an item whose ID is already present replaces
// the previous entry.
func (c *Collection) Add(it *Item) {
	if it == nil {
		return
	}
	if _, ok := c.byID[it.ID]; ok {
		c.remove(it.ID)
	}
	c.items = append(c.items, it)
	c.byID[it.ID] = it
	c.bySource[it.Source] = append(c.bySource[it.Source], it)
	c.byKind[it.Kind] = append(c.byKind[it.Kind], it)
}

func (c *Collection) remove(id string) {
	it, ok := c.byID[id]
	if !ok {
		return
	}
	delete(c.byID, id)
	c.items = removeItem(c.items, it)
	c.bySource[it.Source] = removeItem(c.bySource[it.Source], it)
	c.byKind[it.Kind] = removeItem(c.byKind[it.Kind], it)
}

func removeItem(items []*Item, target *Item) []*Item {
	for i, it := range items {
		if it == target {
			return append(items[:i], items[i+1:]...)
		}
	}
	return items
}

// Get returns the item with the given ID, or nil.
func (c *Collection) Get(id string) *Item {
	return c.byID[id]
}

// Len returns the number of indexed items.
func (c *Collection) Len() int {
	return len(c.items)
}

// All returns the items in insertion order. The returned slice is a copy;
// the items it points to are shared.
func (c *Collection) All() []*Item {
	out := make([]*Item, len(c.items))
	copy(out, c.items)
	return out
}

// BySource returns the items with the given source, in insertion order.
func (c *Collection) BySource(source string) []*Item {
	src := c.bySource[source]
	out := make([]*Item, len(src))
	copy(out, src)
	return out
}

// ByKind returns the items with the given kind, in insertion order.
func (c *Collection) ByKind(kind string) []*Item {
	src := c.byKind[kind]
	out := make([]*Item, len(src))
	copy(out, src)
	return out
}

// Since returns the items created at or after the cutoff, in insertion order.
func (c *Collection) Since(cutoff time.Time) []*Item {
	var out []*Item
	for _, it := range c.items {
		if !it.CreatedAt.Before(cutoff) {
			out = append(out, it)
		}
	}
	return out
}

// Recent returns up to n items ordered newest first. Ties keep insertion
// order.
func (c *Collection) Recent(n int) []*Item {
	out := make([]*Item, len(c.items))
	copy(out, c.items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// FilterOptions selects a subset of a collection. Zero-valued fields are
// ignored; set fields must all match.
type FilterOptions struct {
	// MinReliability drops items whose reliability, derived when unscored,
	// falls below it.
	MinReliability float64

	// Sources and Kinds restrict to the listed categories.
	Sources []string
	Kinds   []string

	// From and To bound the creation time, inclusive.
	From time.Time
	To   time.Time
}

// Filter returns the items matching the options, in insertion order. The
// reference time feeds reliability derivation for unscored items.
func (c *Collection) Filter(opts FilterOptions, now time.Time) []*Item {
	var out []*Item
	for _, it := range c.items {
		if opts.MinReliability > 0 && it.ReliabilityOrDefault(now) < opts.MinReliability {
			continue
		}
		if len(opts.Sources) > 0 && !containsString(opts.Sources, it.Source) {
			continue
		}
		if len(opts.Kinds) > 0 && !containsString(opts.Kinds, it.Kind) {
			continue
		}
		if !opts.From.IsZero() && it.CreatedAt.Before(opts.From) {
			continue
		}
		if !opts.To.IsZero() && it.CreatedAt.After(opts.To) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Sources returns the distinct source categories present, sorted.
func (c *Collection) Sources() []string {
	out := make([]string, 0, len(c.bySource))
	for s, items := range c.bySource {
		if len(items) > 0 {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Kinds returns the distinct kinds present, sorted.
func (c *Collection) Kinds() []string {
	out := make([]string, 0, len(c.byKind))
	for k, items := range c.byKind {
		if len(items) > 0 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
