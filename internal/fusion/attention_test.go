package fusion

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
)

func TestFeatureVector(t *testing.T) {
	it := &feedback.Item{
		ID:        "a",
		Source:    feedback.SourceHumanDoctor,
		Kind:      feedback.KindDiagnostic,
		CreatedAt: testNow.Add(-15 * 24 * time.Hour),
		Tags:      []string{"urgent", "cardio"},
		Content:   feedback.TextContent("diagnosis of acute cardiac symptoms, treatment pending"),
	}
	require.NoError(t, it.SetReliability(0.8))
	rel, err := feedback.NewRelation("a", "b", feedback.RelationSupport, 0.5)
	require.NoError(t, err)
	it.AddRelation(*rel)

	v := featureVector(it, testNow)
	require.Len(t, v, featureDim)

	assert.InDelta(t, 0.8, v[0], 1e-9, "reliability")
	assert.InDelta(t, 0.5, v[1], 1e-9, "recency at half the window")
	assert.InDelta(t, 0.9, v[2], 1e-9, "doctor source score")
	assert.InDelta(t, 0.85, v[3], 1e-9, "diagnostic kind score")
	assert.InDelta(t, 0.2, v[4], 1e-9, "one relation")
	assert.InDelta(t, float64(it.Content.Length())/1000, v[5], 1e-9, "content length")
	// diagnosis, acute, cardiac, symptom, symptoms, treatment
	assert.InDelta(t, 0.6, v[6], 1e-9, "medical term density")
	assert.InDelta(t, 0.2, v[7], 1e-9, "two tags")
	assert.InDelta(t, 1.0, v[8], 1e-9, "urgency tag")
	assert.InDelta(t, 0.7, v[9], 1e-9, "doctor expertise")
}

func TestFeatureVectorBounds(t *testing.T) {
	old := &feedback.Item{
		ID:        "old",
		Source:    "unknown",
		Kind:      "other",
		CreatedAt: testNow.AddDate(-1, 0, 0),
		Content:   feedback.TextContent("plain words"),
	}
	v := featureVector(old, testNow)
	for i, f := range v {
		assert.GreaterOrEqual(t, f, 0.0, "feature %d", i)
		assert.LessOrEqual(t, f, 1.0, "feature %d", i)
	}
	assert.Zero(t, v[1], "stale item has no recency")
	assert.InDelta(t, 0.5, v[2], 1e-9, "unknown source")
	assert.InDelta(t, 0.5, v[3], 1e-9, "unknown kind")
}

func TestExpertiseScore(t *testing.T) {
	assert.InDelta(t, 0.5, expertiseScore("human.patient", "plain words"), 1e-9)
	assert.InDelta(t, 0.7, expertiseScore("human.doctor", "plain words"), 1e-9)
	assert.InDelta(t, 0.8, expertiseScore("doctor.specialist", "plain words"), 1e-9)
	assert.InDelta(t, 0.75, expertiseScore("human.doctor", "differential diagnosis"), 1e-9)
}

func attentionItems() []*feedback.Item {
	return []*feedback.Item{
		textItem("a", feedback.SourceHumanDoctor, feedback.KindDiagnostic, "suspected pneumonia based on auscultation"),
		textItem("b", feedback.SourceHumanPatient, feedback.KindTextual, "persistent cough and fever for days"),
		textItem("c", feedback.SourceSystemImaging, feedback.KindMonitoring, "infiltrate visible in lower lobe"),
	}
}

func TestAttentionStrategyFuse(t *testing.T) {
	s := NewAttentionStrategy(nil, rand.New(rand.NewSource(42)))

	t.Run("empty input", func(t *testing.T) {
		_, err := s.Fuse(context.Background(), nil, Options{})
		assert.ErrorIs(t, err, ErrNoItems)
	})

	t.Run("single item gets full weight", func(t *testing.T) {
		res, err := s.Fuse(context.Background(), attentionItems()[:1], Options{Now: testNow})
		require.NoError(t, err)
		require.Len(t, res.Weights, 1)
		assert.InDelta(t, 1.0, res.Weights[0], 1e-9)
	})

	t.Run("weights normalized", func(t *testing.T) {
		res, err := s.Fuse(context.Background(), attentionItems(), Options{Now: testNow})
		require.NoError(t, err)
		assert.Equal(t, StrategyAttention, res.Strategy)
		require.Len(t, res.Weights, 3)
		var sum float64
		for _, w := range res.Weights {
			assert.GreaterOrEqual(t, w, 0.0)
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	})
}

func TestAttentionSeededReproducibility(t *testing.T) {
	s1 := NewAttentionStrategy(nil, rand.New(rand.NewSource(7)))
	s2 := NewAttentionStrategy(nil, rand.New(rand.NewSource(7)))

	r1, err := s1.Fuse(context.Background(), attentionItems(), Options{Now: testNow})
	require.NoError(t, err)
	r2, err := s2.Fuse(context.Background(), attentionItems(), Options{Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, r1.Weights, r2.Weights)
}

func TestIsMedicalDomain(t *testing.T) {
	assert.True(t, isMedicalDomain([]*feedback.Item{
		textItem("a", feedback.SourceHumanDoctor, "other", "x"),
	}))
	assert.True(t, isMedicalDomain([]*feedback.Item{
		textItem("a", "sensor.network", feedback.KindTherapeutic, "x"),
	}))
	assert.False(t, isMedicalDomain([]*feedback.Item{
		textItem("a", "sensor.network", "telemetry", "x"),
	}))
}

func TestDomainWeights(t *testing.T) {
	items := []*feedback.Item{
		textItem("a", feedback.SourceHumanDoctor, feedback.KindDiagnostic, "routine follow up"),
		textItem("b", feedback.SourceHumanPatient, feedback.KindTextual, "routine follow up"),
	}
	w := domainWeights(items)
	require.Len(t, w, 2)
	assert.Greater(t, w[0], w[1], "doctor outweighs patient")
	assert.InDelta(t, 1.0, w[0]+w[1], 1e-9)

	// A critical term boosts an otherwise light item.
	items[1].Content = feedback.TextContent("severe chest pain")
	w2 := domainWeights(items)
	assert.Greater(t, w2[1], w[1])
}

func TestSoftmaxInPlace(t *testing.T) {
	row := []float64{1000, 1001, 1002}
	softmaxInPlace(row)
	var sum float64
	for _, v := range row {
		assert.False(t, v != v, "NaN in softmax output")
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, row[2], row[1])
}

func TestAttentionFusedReliabilityBounds(t *testing.T) {
	items := []*feedback.Item{
		textItem("a", feedback.SourceSystemEHR, feedback.KindMonitoring, "vitals recorded"),
		textItem("b", feedback.SourceSystemEHR, feedback.KindMonitoring, "vitals recorded"),
		textItem("c", feedback.SourceSystemEHR, feedback.KindMonitoring, "vitals recorded"),
		textItem("d", feedback.SourceSystemEHR, feedback.KindMonitoring, "vitals recorded"),
	}
	require.NoError(t, items[0].SetReliability(1.0))
	for _, it := range items[1:] {
		require.NoError(t, it.SetReliability(0.0))
	}

	s := NewAttentionStrategy(nil, rand.New(rand.NewSource(1)))
	res, err := s.Fuse(context.Background(), items, Options{Now: testNow})
	require.NoError(t, err)

	// Only the first item carries reliability, so the fused score is
	// exactly its weight.
	require.NotNil(t, res.Item.Reliability)
	got := *res.Item.Reliability
	assert.InDelta(t, res.Weights[0], got, 1e-9)
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 1.0)
}
