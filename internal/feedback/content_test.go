package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentVariants(t *testing.T) {
	text := TextContent("patient reports dizziness")
	assert.True(t, text.IsText())
	assert.False(t, text.IsStructured())
	assert.Equal(t, "patient reports dizziness", text.String())
	assert.Equal(t, 25, text.Length())

	structured := StructuredContent(map[string]any{"bp": 140, "hr": 82})
	assert.True(t, structured.IsStructured())
	assert.False(t, structured.IsText())
}

func TestContentRenderDeterministic(t *testing.T) {
	c := StructuredContent(map[string]any{"zeta": 1, "alpha": "low", "mid": 2.5})
	assert.Equal(t, "alpha=low; mid=2.5; zeta=1", c.String())
	assert.Equal(t, len(c.String()), c.Length())
}

func TestContentWords(t *testing.T) {
	c := TextContent("Elevated glucose ELEVATED risk")
	words := c.Words()
	assert.Len(t, words, 3)
	assert.Contains(t, words, "elevated")
	assert.Contains(t, words, "glucose")
	assert.Contains(t, words, "risk")

	assert.Empty(t, StructuredContent(map[string]any{"k": "v"}).Words())
}
