package processor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
)

func textItem(t *testing.T, text string) *feedback.Item {
	t.Helper()
	it, err := feedback.NewItem(feedback.SourceHumanPatient, feedback.KindTextual, feedback.TextContent(text))
	require.NoError(t, err)
	return it
}

func TestTextNormalizer(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"collapses whitespace", "cough   and \t fever\n", "cough and fever"},
		{"unifies punctuation", "发热，咳嗽。severe！", "发热,咳嗽.severe!"},
		{"typographic quotes", "patient said “fine”", `patient said "fine"`},
		{"already clean", "stable overnight", "stable overnight"},
	}
	n := NewTextNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := textItem(t, tt.in)
			require.NoError(t, n.Apply(context.Background(), it))
			assert.Equal(t, tt.want, it.Content.Text)
		})
	}

	t.Run("structured untouched", func(t *testing.T) {
		it, err := feedback.NewItem(feedback.SourceSystemLab, feedback.KindNumeric,
			feedback.StructuredContent(map[string]any{"glucose": 5.4}))
		require.NoError(t, err)
		require.NoError(t, n.Apply(context.Background(), it))
		assert.True(t, it.Content.IsStructured())
	})
}

func TestNoiseFilter(t *testing.T) {
	f := NewNoiseFilter(10, []string{"test entry"})

	tests := []struct {
		name  string
		text  string
		noise bool
	}{
		{"long enough", "persistent dry cough", false},
		{"too short", "ok", true},
		{"pattern match", "this is a TEST ENTRY please ignore", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := textItem(t, tt.text)
			require.NoError(t, f.Apply(context.Background(), it))
			assert.Equal(t, tt.noise, it.HasTag(TagNoise))
		})
	}

	t.Run("does not double tag", func(t *testing.T) {
		it := textItem(t, "ok")
		require.NoError(t, f.Apply(context.Background(), it))
		require.NoError(t, f.Apply(context.Background(), it))
		n := 0
		for _, tag := range it.Tags {
			if tag == TagNoise {
				n++
			}
		}
		assert.Equal(t, 1, n)
	})
}

func TestSentiment(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"positive", "patient improved, vitals stable and normal", 1},
		{"negative", "severe pain, condition worsening", -1},
		{"mixed", "improved mobility but severe pain", -1.0 / 3},
		{"no hits", "follow up next week", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Sentiment(tt.text), 1e-9)
		})
	}
}

func TestSentimentScorer(t *testing.T) {
	s := NewSentimentScorer()

	tests := []struct {
		name, text, label string
	}{
		{"positive", "recovered fully, feeling better", "sentiment:positive"},
		{"negative", "adverse reaction, condition critical", "sentiment:negative"},
		{"neutral", "scheduled for imaging tomorrow", "sentiment:neutral"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := textItem(t, tt.text)
			require.NoError(t, s.Apply(context.Background(), it))
			assert.True(t, it.HasTag(tt.label), "tags: %v", it.Tags)
		})
	}

	t.Run("keeps existing label", func(t *testing.T) {
		it := textItem(t, "recovered fully, feeling better")
		it.Tags = append(it.Tags, "sentiment:neutral")
		require.NoError(t, s.Apply(context.Background(), it))
		assert.False(t, it.HasTag("sentiment:positive"))
	})
}

func TestPipelineRun(t *testing.T) {
	p := DefaultPipeline(nil)
	it := textItem(t, "patient   improved，vitals  stable")

	require.NoError(t, p.Run(context.Background(), it))
	assert.Equal(t, "patient improved,vitals stable", it.Content.Text)
	assert.False(t, it.HasTag(TagNoise))
	assert.True(t, it.HasTag("sentiment:positive"))
}
