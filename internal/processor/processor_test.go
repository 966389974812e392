package processor

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
	"github.com/fyrsmithlabs/fusiond/internal/fusion"
	"github.com/fyrsmithlabs/fusiond/internal/storage"
)

func newProcessor(t *testing.T) (*Processor, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	engine := fusion.NewEngine(nil, rand.New(rand.NewSource(1)))
	p, err := New(store, engine, nil)
	require.NoError(t, err)
	return p, store
}

func seedCase(t *testing.T, store storage.Store, tag string) []string {
	t.Helper()
	ctx := context.Background()
	var ids []string
	for _, spec := range []struct {
		source, kind, text string
	}{
		{feedback.SourceHumanDoctor, feedback.KindDiagnostic, "suspected pneumonia start antibiotics"},
		{feedback.SourceHumanPatient, feedback.KindTextual, "persistent cough and fever"},
		{feedback.SourceSystemImaging, feedback.KindMonitoring, "infiltrate in lower lobe"},
	} {
		it, err := feedback.NewItem(spec.source, spec.kind, feedback.TextContent(spec.text))
		require.NoError(t, err)
		if tag != "" {
			it.Tags = append(it.Tags, tag)
		}
		require.NoError(t, store.Put(ctx, it))
		ids = append(ids, it.ID)
	}
	return ids
}

func TestNewValidation(t *testing.T) {
	engine := fusion.NewEngine(nil, rand.New(rand.NewSource(1)))
	_, err := New(nil, engine, nil)
	assert.ErrorIs(t, err, ErrNilStore)
	_, err = New(storage.NewMemoryStore(), nil, nil)
	assert.ErrorIs(t, err, ErrNilEngine)
}

func TestProcess(t *testing.T) {
	ctx := context.Background()
	p, store := newProcessor(t)
	seedCase(t, store, "case:77")

	t.Run("no match", func(t *testing.T) {
		_, err := p.Process(ctx, storage.Filter{Tag: "case:nope"}, fusion.Options{})
		assert.ErrorIs(t, err, ErrNoMatch)
	})

	t.Run("fuses and stores", func(t *testing.T) {
		res, err := p.Process(ctx, storage.Filter{Tag: "case:77"}, fusion.Options{})
		require.NoError(t, err)
		require.NotNil(t, res.Item)

		stored, err := store.Get(ctx, res.Item.ID)
		require.NoError(t, err)
		assert.Equal(t, feedback.KindFused, stored.Kind)
		assert.True(t, stored.HasTag("case:77"), "fused item inherits case tag")
		assert.True(t, stored.HasTag(fusion.StrategyTag+res.Strategy))
		assert.Len(t, stored.Relations, 3)
	})
}

func TestProcessByIDs(t *testing.T) {
	ctx := context.Background()
	p, store := newProcessor(t)
	ids := seedCase(t, store, "")

	t.Run("missing id fails", func(t *testing.T) {
		_, err := p.ProcessByIDs(ctx, append([]string{"ghost"}, ids...), fusion.Options{})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("fuses the selection", func(t *testing.T) {
		res, err := p.ProcessByIDs(ctx, ids[:2], fusion.Options{})
		require.NoError(t, err)
		assert.Len(t, res.Weights, 2)

		_, err = store.Get(ctx, res.Item.ID)
		assert.NoError(t, err)
	})

	t.Run("empty selection", func(t *testing.T) {
		_, err := p.ProcessByIDs(ctx, nil, fusion.Options{})
		assert.ErrorIs(t, err, ErrNoMatch)
	})
}
