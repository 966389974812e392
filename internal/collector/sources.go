package collector

import (
	"context"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
)

// The typed source constructors below wrap a domain fetch function into a
// SourceFunc, stamping the right feedback source and kind so callers only
// have to produce payloads.

// HumanSource collects free-text feedback from a person. The source string
// should be one of the human.* categories.
func HumanSource(source, kind string, fetch func(ctx context.Context) ([]string, error)) SourceFunc {
	return func(ctx context.Context) ([]*feedback.Item, error) {
		texts, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]*feedback.Item, 0, len(texts))
		for _, t := range texts {
			it, err := feedback.NewItem(source, kind, feedback.TextContent(t))
			if err != nil {
				return nil, err
			}
			items = append(items, it)
		}
		return items, nil
	}
}

// ToolSource collects structured outputs from an automated system.
func ToolSource(source, kind string, fetch func(ctx context.Context) ([]map[string]any, error)) SourceFunc {
	return func(ctx context.Context) ([]*feedback.Item, error) {
		payloads, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]*feedback.Item, 0, len(payloads))
		for _, p := range payloads {
			it, err := feedback.NewItem(source, kind, feedback.StructuredContent(p))
			if err != nil {
				return nil, err
			}
			items = append(items, it)
		}
		return items, nil
	}
}

// KnowledgeSource collects textual results from a knowledge base lookup.
func KnowledgeSource(source string, fetch func(ctx context.Context) ([]string, error)) SourceFunc {
	return HumanSource(source, feedback.KindTextual, fetch)
}

// SelfSource collects self-assessment text produced by the system itself.
func SelfSource(fetch func(ctx context.Context) ([]string, error)) SourceFunc {
	return HumanSource(feedback.SourceSelfAssessment, feedback.KindTextual, fetch)
}
