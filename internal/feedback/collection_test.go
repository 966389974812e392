package feedback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectionItem(t *testing.T, id, source, kind string, created time.Time) *Item {
	t.Helper()
	it := &Item{
		ID:        id,
		Source:    source,
		Kind:      kind,
		CreatedAt: created,
		Content:   TextContent("content for " + id),
	}
	require.NoError(t, it.Validate())
	return it
}

func TestCollectionIndexes(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a := collectionItem(t, "a", SourceHumanDoctor, KindDiagnostic, now)
	b := collectionItem(t, "b", SourceHumanDoctor, KindTherapeutic, now.Add(time.Hour))
	c := collectionItem(t, "c", SourceSystemLab, KindNumeric, now.Add(2*time.Hour))

	col := NewCollection(a, b, c)
	assert.Equal(t, 3, col.Len())
	assert.Same(t, b, col.Get("b"))
	assert.Nil(t, col.Get("missing"))

	assert.Equal(t, []*Item{a, b}, col.BySource(SourceHumanDoctor))
	assert.Equal(t, []*Item{c}, col.ByKind(KindNumeric))
	assert.Equal(t, []string{SourceHumanDoctor, SourceSystemLab}, col.Sources())
	assert.Equal(t, []string{KindDiagnostic, KindNumeric, KindTherapeutic}, col.Kinds())
}

func TestCollectionAddReplacesByID(t *testing.T) {
	now := time.Now()
	first := collectionItem(t, "a", SourceHumanDoctor, KindDiagnostic, now)
	second := collectionItem(t, "a", SourceHumanPatient, KindTextual, now)

	col := NewCollection(first)
	col.Add(second)

	assert.Equal(t, 1, col.Len())
	assert.Same(t, second, col.Get("a"))
	assert.Empty(t, col.BySource(SourceHumanDoctor))
	assert.Equal(t, []*Item{second}, col.BySource(SourceHumanPatient))
}

func TestCollectionSinceAndRecent(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	old := collectionItem(t, "old", SourceHumanPatient, KindTextual, now.AddDate(0, -2, 0))
	mid := collectionItem(t, "mid", SourceHumanDoctor, KindDiagnostic, now.AddDate(0, -1, 0))
	fresh := collectionItem(t, "fresh", SourceSystemLab, KindNumeric, now)

	col := NewCollection(old, mid, fresh)

	assert.Equal(t, []*Item{mid, fresh}, col.Since(now.AddDate(0, -1, 0)))
	assert.Equal(t, []*Item{fresh, mid}, col.Recent(2))
	assert.Len(t, col.Recent(10), 3)
}

func TestCollectionFilter(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a := collectionItem(t, "a", SourceHumanDoctor, KindDiagnostic, now.AddDate(0, 0, -10))
	b := collectionItem(t, "b", SourceHumanPatient, KindTextual, now.AddDate(0, 0, -5))
	c := collectionItem(t, "c", SourceSystemLab, KindNumeric, now)
	require.NoError(t, a.SetReliability(0.9))
	require.NoError(t, b.SetReliability(0.3))
	require.NoError(t, c.SetReliability(0.8))

	col := NewCollection(a, b, c)

	t.Run("no options returns all", func(t *testing.T) {
		assert.Len(t, col.Filter(FilterOptions{}, now), 3)
	})

	t.Run("min reliability", func(t *testing.T) {
		got := col.Filter(FilterOptions{MinReliability: 0.5}, now)
		assert.Equal(t, []*Item{a, c}, got)
	})

	t.Run("sources and kinds", func(t *testing.T) {
		got := col.Filter(FilterOptions{Sources: []string{SourceHumanDoctor, SourceSystemLab}}, now)
		assert.Equal(t, []*Item{a, c}, got)

		got = col.Filter(FilterOptions{Kinds: []string{KindTextual}}, now)
		assert.Equal(t, []*Item{b}, got)
	})

	t.Run("time range", func(t *testing.T) {
		got := col.Filter(FilterOptions{
			From: now.AddDate(0, 0, -7),
			To:   now.AddDate(0, 0, -1),
		}, now)
		assert.Equal(t, []*Item{b}, got)
	})

	t.Run("combined", func(t *testing.T) {
		got := col.Filter(FilterOptions{
			MinReliability: 0.5,
			Sources:        []string{SourceHumanDoctor, SourceHumanPatient},
		}, now)
		assert.Equal(t, []*Item{a}, got)
	})

	t.Run("derives unscored reliability", func(t *testing.T) {
		d := collectionItem(t, "d", SourceHumanDoctor, KindDiagnostic, now)
		col.Add(d)
		got := col.Filter(FilterOptions{MinReliability: 0.8}, now)
		assert.Contains(t, got, d)
	})
}
