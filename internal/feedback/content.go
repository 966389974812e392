package feedback

import (
	"fmt"
	"sort"
	"strings"
)

// ContentType identifies the shape of an item's content.
type ContentType string

const (
	// ContentText is free-form text (a diagnosis note, a patient report).
	ContentText ContentType = "text"

	// ContentStructured is a key/value map (form data, tool output).
	ContentStructured ContentType = "structured"
)

// Content is the tagged content variant of a feedback item.
//
// Exactly one of Text or Data is meaningful, selected by Type. The zero
// value is an empty text content.
type Content struct {
	// Type selects the active variant.
	Type ContentType `json:"type"`

	// Text is the payload for ContentText.
	Text string `json:"text,omitempty"`

	// Data is the payload for ContentStructured.
	Data map[string]any `json:"data,omitempty"`
}

// TextContent builds a text content value.
func TextContent(text string) Content {
	return Content{Type: ContentText, Text: text}
}

// StructuredContent builds a structured content value.
func StructuredContent(data map[string]any) Content {
	return Content{Type: ContentStructured, Data: data}
}

// IsText reports whether the content carries text.
func (c Content) IsText() bool {
	return c.Type == ContentText
}

// IsStructured reports whether the content carries a key/value map.
func (c Content) IsStructured() bool {
	return c.Type == ContentStructured
}

// Length returns the content size used for length-based features: character
// count for text, rendered length for structured data.
func (c Content) Length() int {
	if c.IsStructured() {
		return len(c.renderData())
	}
	return len(c.Text)
}

// String renders the content for inclusion in fused text output.
func (c Content) String() string {
	if c.IsStructured() {
		return c.renderData()
	}
	return c.Text
}

// renderData produces a stable textual rendering of the structured payload.
// Keys are sorted so the rendering is deterministic.
func (c Content) renderData() string {
	keys := make([]string, 0, len(c.Data))
	for k := range c.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s=%v", k, c.Data[k])
	}
	return b.String()
}

// Words returns the lowercased whitespace-tokenized word set of text
// content. Structured content yields an empty set.
func (c Content) Words() map[string]struct{} {
	words := make(map[string]struct{})
	if !c.IsText() {
		return words
	}
	for _, w := range strings.Fields(strings.ToLower(c.Text)) {
		words[w] = struct{}{}
	}
	return words
}
