// Package processor runs fusion over stored feedback and writes fused items
// back to the store, linked to their inputs.
package processor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
	"github.com/fyrsmithlabs/fusiond/internal/fusion"
	"github.com/fyrsmithlabs/fusiond/internal/storage"
)

// Processor errors.
var (
	ErrNilStore  = errors.New("store cannot be nil")
	ErrNilEngine = errors.New("engine cannot be nil")
	ErrNoMatch   = errors.New("no feedback items match")
)

// Processor connects a feedback store to a fusion engine.
type Processor struct {
	logger *zap.Logger
	store  storage.Store
	engine *fusion.Engine
}

// New creates a processor.
func New(store storage.Store, engine *fusion.Engine, logger *zap.Logger) (*Processor, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if engine == nil {
		return nil, ErrNilEngine
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{logger: logger, store: store, engine: engine}, nil
}

// Process fuses the stored items matching the filter and stores the fused
// item. The fused item inherits the filter's tag so repeated runs over the
// same case stay discoverable; its refine relations point at the inputs,
// which remain unchanged in the store.
func (p *Processor) Process(ctx context.Context, filter storage.Filter, opts fusion.Options) (*fusion.Result, error) {
	items, err := p.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNoMatch
	}

	res, err := p.engine.Fuse(ctx, items, opts)
	if err != nil {
		return nil, fmt.Errorf("fuse %d items: %w", len(items), err)
	}
	if filter.Tag != "" {
		res.Item.Tags = append(res.Item.Tags, filter.Tag)
	}

	if err := p.store.Put(ctx, res.Item); err != nil {
		return nil, fmt.Errorf("store fused item: %w", err)
	}

	p.logger.Info("fused stored feedback",
		zap.Int("inputs", len(items)),
		zap.String("strategy", res.Strategy),
		zap.String("fused_id", res.Item.ID),
	)
	return res, nil
}

// ProcessByIDs fuses a specific set of stored items, looked up by ID. A
// missing ID fails the whole call rather than silently fusing a subset.
func (p *Processor) ProcessByIDs(ctx context.Context, ids []string, opts fusion.Options) (*fusion.Result, error) {
	if len(ids) == 0 {
		return nil, ErrNoMatch
	}

	items := make([]*feedback.Item, 0, len(ids))
	for _, id := range ids {
		it, err := p.store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load feedback %s: %w", id, err)
		}
		items = append(items, it)
	}

	res, err := p.engine.Fuse(ctx, items, opts)
	if err != nil {
		return nil, fmt.Errorf("fuse %d items: %w", len(items), err)
	}
	if err := p.store.Put(ctx, res.Item); err != nil {
		return nil, fmt.Errorf("store fused item: %w", err)
	}

	p.logger.Info("fused selected feedback",
		zap.Int("inputs", len(items)),
		zap.String("strategy", res.Strategy),
		zap.String("fused_id", res.Item.ID),
	)
	return res, nil
}
