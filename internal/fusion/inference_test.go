package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
)

func TestSupportScore(t *testing.T) {
	t.Run("identical text from clinician and system boosted", func(t *testing.T) {
		a := textItem("a", feedback.SourceHumanDoctor, feedback.KindDiagnostic, "glucose elevated high risk")
		b := textItem("b", feedback.SourceSystemLab, feedback.KindNumeric, "glucose elevated high risk")
		assert.InDelta(t, 1.0, supportScore(a, b), 1e-9)
	})

	t.Run("same source dampened", func(t *testing.T) {
		a := textItem("a", feedback.SourceHumanDoctor, feedback.KindDiagnostic, "glucose elevated high risk")
		b := textItem("b", feedback.SourceHumanDoctor, feedback.KindDiagnostic, "glucose elevated high risk")
		assert.InDelta(t, 0.8, supportScore(a, b), 1e-9)
	})

	t.Run("no overlap", func(t *testing.T) {
		a := textItem("a", feedback.SourceHumanDoctor, feedback.KindDiagnostic, "cardiac murmur")
		b := textItem("b", feedback.SourceHumanPatient, feedback.KindTextual, "knee pain")
		assert.Zero(t, supportScore(a, b))
	})

	t.Run("structured agreement", func(t *testing.T) {
		a := structuredItem("a", feedback.SourceSystemLab, feedback.KindNumeric, map[string]any{"hba1c": 7.0, "status": "elevated"})
		b := structuredItem("b", feedback.SourceSystemEHR, feedback.KindNumeric, map[string]any{"hba1c": 7.0, "status": "elevated"})
		assert.InDelta(t, 1.0, supportScore(a, b), 1e-9)
	})

	t.Run("structured no common keys", func(t *testing.T) {
		a := structuredItem("a", feedback.SourceSystemLab, feedback.KindNumeric, map[string]any{"hba1c": 7.0})
		b := structuredItem("b", feedback.SourceSystemEHR, feedback.KindNumeric, map[string]any{"bp": 140})
		assert.Zero(t, supportScore(a, b))
	})

	t.Run("mixed content types score zero", func(t *testing.T) {
		a := textItem("a", feedback.SourceHumanDoctor, feedback.KindDiagnostic, "note")
		b := structuredItem("b", feedback.SourceSystemLab, feedback.KindNumeric, map[string]any{"k": 1})
		assert.Zero(t, supportScore(a, b))
	})
}

func TestOpposeScore(t *testing.T) {
	t.Run("negation on one side strengthens opposition", func(t *testing.T) {
		a := textItem("a", feedback.SourceHumanDoctor, feedback.KindDiagnostic, "infection present")
		b := textItem("b", feedback.SourceSystemLab, feedback.KindNumeric, "infection not present")
		// overlap 2/3, full negation factor
		assert.InDelta(t, 2.0/3.0, opposeScore(a, b), 1e-9)
	})

	t.Run("antonyms between clinicians", func(t *testing.T) {
		a := textItem("a", feedback.SourceHumanDoctor, feedback.KindDiagnostic, "lesion appears malignant")
		b := textItem("b", "human.specialist", feedback.KindDiagnostic, "lesion appears benign")
		// jaccard 0.5 * 0.5 + 0.3 antonym bonus, then *1.2 for two clinicians
		assert.InDelta(t, 0.66, opposeScore(a, b), 1e-9)
	})

	t.Run("structured sign flip", func(t *testing.T) {
		a := structuredItem("a", feedback.SourceSystemLab, feedback.KindNumeric, map[string]any{"trend": 2.0})
		b := structuredItem("b", feedback.SourceSystemEHR, feedback.KindNumeric, map[string]any{"trend": -1.0})
		assert.InDelta(t, 1.0, opposeScore(a, b), 1e-9)
	})

	t.Run("unrelated text stays low", func(t *testing.T) {
		a := textItem("a", feedback.SourceHumanDoctor, feedback.KindDiagnostic, "cardiac murmur")
		b := textItem("b", feedback.SourceHumanPatient, feedback.KindTextual, "knee pain")
		assert.Zero(t, opposeScore(a, b))
	})
}

func TestComplementScore(t *testing.T) {
	t.Run("different content types complement by form", func(t *testing.T) {
		a := textItem("a", feedback.SourceHumanDoctor, feedback.KindDiagnostic, "note")
		b := structuredItem("b", feedback.SourceSystemLab, feedback.KindNumeric, map[string]any{"k": 1})
		assert.InDelta(t, 0.6, complementScore(a, b), 1e-9)
	})

	t.Run("clinician and patient boosted", func(t *testing.T) {
		a := textItem("a", feedback.SourceHumanDoctor, feedback.KindDiagnostic, "prescribe metformin daily")
		b := textItem("b", feedback.SourceHumanPatient, feedback.KindTextual, "nausea after breakfast")
		// disjoint vocabulary: 0.7 * 1.5
		assert.InDelta(t, 1.0, complementScore(a, b), 1e-9)
	})

	t.Run("complement pair bonus", func(t *testing.T) {
		a := textItem("a", feedback.SourceSystemEHR, feedback.KindDiagnostic, "diagnosis confirmed")
		b := textItem("b", feedback.SourceSystemLab, feedback.KindTherapeutic, "treatment started")
		// unique ratio 1.0*0.7 + 0.2 for diagnosis/treatment
		assert.InDelta(t, 0.9, complementScore(a, b), 1e-9)
	})

	t.Run("structured unique keys", func(t *testing.T) {
		a := structuredItem("a", feedback.SourceSystemLab, feedback.KindNumeric, map[string]any{"hba1c": 7.0})
		b := structuredItem("b", feedback.SourceSystemEHR, feedback.KindNumeric, map[string]any{"bp": 140})
		assert.InDelta(t, 0.7, complementScore(a, b), 1e-9)
	})

	t.Run("identical structured payloads do not complement", func(t *testing.T) {
		a := structuredItem("a", feedback.SourceSystemLab, feedback.KindNumeric, map[string]any{"hba1c": 7.0})
		b := structuredItem("b", feedback.SourceSystemEHR, feedback.KindNumeric, map[string]any{"hba1c": 7.0})
		assert.Zero(t, complementScore(a, b))
	})
}

func TestValueSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, valueSimilarity(5, 5), 1e-9)
	assert.InDelta(t, 0.5, valueSimilarity(5.0, 10.0), 1e-9)
	assert.InDelta(t, 1.0, valueSimilarity(0, 0.0), 1e-9)
	assert.InDelta(t, 1.0, valueSimilarity("stable", "stable"), 1e-9)
	assert.InDelta(t, 0.0, valueSimilarity("stable", "worsening"), 1e-9)
	assert.InDelta(t, 1.0, valueSimilarity(true, true), 1e-9)
	assert.InDelta(t, 0.0, valueSimilarity(true, false), 1e-9)
}

func TestJaccard(t *testing.T) {
	a := wordSet("one two three")
	b := wordSet("two three four")
	assert.InDelta(t, 0.5, jaccard(a, b), 1e-9)
	assert.Zero(t, jaccard(a, wordSet("")))
}
