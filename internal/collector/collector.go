// Package collector gathers feedback items from registered sources and
// hands them to storage. Sources are pull-based: the collector asks each
// registered source for new items on every collection run.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
	"github.com/fyrsmithlabs/fusiond/internal/storage"
)

// Collector errors.
var (
	ErrNilStore        = errors.New("store cannot be nil")
	ErrEmptySourceName = errors.New("source name cannot be empty")
	ErrNilSource       = errors.New("source cannot be nil")
	ErrDuplicateSource = errors.New("source already registered")
	ErrUnknownSource   = errors.New("source not registered")
)

// SourceFunc produces new feedback items on demand. Returning an empty
// slice is fine; returning an error skips the source for this run without
// aborting the others.
type SourceFunc func(ctx context.Context) ([]*feedback.Item, error)

// Preparer preprocesses an item before it is stored. processor.Pipeline
// satisfies it.
type Preparer interface {
	Run(ctx context.Context, item *feedback.Item) error
}

// Report summarizes one collection run.
type Report struct {
	// Collected is the number of items stored across all sources.
	Collected int

	// PerSource maps source names to the number of items each produced.
	PerSource map[string]int

	// Failures maps source names to the error that stopped them.
	Failures map[string]error
}

// Collector pulls feedback from registered sources into a store. It is
// safe for concurrent use.
type Collector struct {
	logger   *zap.Logger
	store    storage.Store
	preparer Preparer

	mu      sync.RWMutex
	sources map[string]SourceFunc
}

// New creates a collector backed by the given store.
func New(store storage.Store, logger *zap.Logger) (*Collector, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		logger:  logger,
		store:   store,
		sources: make(map[string]SourceFunc),
	}, nil
}

// SetPreparer installs a preprocessing step applied to every item before it
// is validated and stored. A nil preparer disables preprocessing.
func (c *Collector) SetPreparer(p Preparer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preparer = p
}

// Register adds a named source. Registering an existing name is an error;
// sources are identities, not handlers to swap at runtime.
func (c *Collector) Register(name string, fn SourceFunc) error {
	if name == "" {
		return ErrEmptySourceName
	}
	if fn == nil {
		return ErrNilSource
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sources[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSource, name)
	}
	c.sources[name] = fn
	return nil
}

// Sources returns the registered source names, sorted.
func (c *Collector) Sources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Submit validates and stores a single item directly, bypassing the
// registered sources. An item without a timestamp is stamped with the
// current time.
func (c *Collector) Submit(ctx context.Context, item *feedback.Item) error {
	if item == nil {
		return storage.ErrNilItem
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	c.mu.RLock()
	prep := c.preparer
	c.mu.RUnlock()
	if prep != nil {
		if err := prep.Run(ctx, item); err != nil {
			return fmt.Errorf("prepare feedback item: %w", err)
		}
	}
	if err := item.Validate(); err != nil {
		return fmt.Errorf("invalid feedback item: %w", err)
	}
	if err := c.store.Put(ctx, item); err != nil {
		return fmt.Errorf("store feedback item: %w", err)
	}
	c.logger.Debug("feedback submitted",
		zap.String("id", item.ID),
		zap.String("source", item.Source),
		zap.String("kind", item.Kind),
	)
	return nil
}

// Collect runs every registered source once, in name order, and stores what
// they produce. A failing source is reported but does not stop the run; the
// returned error is non-nil only when the context is done.
func (c *Collector) Collect(ctx context.Context) (Report, error) {
	report := Report{
		PerSource: make(map[string]int),
		Failures:  make(map[string]error),
	}

	for _, name := range c.Sources() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		c.mu.RLock()
		fn := c.sources[name]
		c.mu.RUnlock()

		items, err := fn(ctx)
		if err != nil {
			c.logger.Warn("source failed", zap.String("source", name), zap.Error(err))
			report.Failures[name] = err
			continue
		}
		for _, it := range items {
			if err := c.Submit(ctx, it); err != nil {
				c.logger.Warn("dropping item from source",
					zap.String("source", name),
					zap.Error(err),
				)
				continue
			}
			report.PerSource[name]++
			report.Collected++
		}
	}

	c.logger.Info("collection run complete",
		zap.Int("collected", report.Collected),
		zap.Int("failed_sources", len(report.Failures)),
	)
	return report, nil
}

// CollectOne runs a single registered source by name.
func (c *Collector) CollectOne(ctx context.Context, name string) (int, error) {
	c.mu.RLock()
	fn, ok := c.sources[name]
	c.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}

	items, err := fn(ctx)
	if err != nil {
		return 0, fmt.Errorf("source %s: %w", name, err)
	}
	stored := 0
	for _, it := range items {
		if err := c.Submit(ctx, it); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}
