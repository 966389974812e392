package storage

import (
	"context"
	"errors"
	"time"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
)

// Store errors.
var (
	ErrNotFound = errors.New("feedback item not found")
	ErrNilItem  = errors.New("item cannot be nil")
)

// Filter narrows List results. Zero-valued fields match everything.
type Filter struct {
	// Source matches items with this exact source.
	Source string

	// Kind matches items with this exact kind.
	Kind string

	// Tag matches items carrying this tag.
	Tag string

	// Since matches items created at or after this time.
	Since time.Time

	// Limit caps the number of returned items; zero means no cap.
	Limit int
}

// Matches reports whether the item passes the filter.
func (f Filter) Matches(it *feedback.Item) bool {
	if f.Source != "" && it.Source != f.Source {
		return false
	}
	if f.Kind != "" && it.Kind != f.Kind {
		return false
	}
	if f.Tag != "" && !it.HasTag(f.Tag) {
		return false
	}
	if !f.Since.IsZero() && it.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}

// Store is the feedback persistence interface. Implementations own the
// items they return; callers must not mutate them.
type Store interface {
	// Put stores an item, replacing any existing item with the same ID.
	Put(ctx context.Context, item *feedback.Item) error

	// Get returns the item with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*feedback.Item, error)

	// List returns items matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]*feedback.Item, error)

	// Delete removes the item with the given ID or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored items.
	Count(ctx context.Context) (int, error)
}
