package fusion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
)

// Errors shared by all strategies.
var (
	// ErrNoItems is returned when a strategy is asked to fuse an empty set.
	ErrNoItems = errors.New("no feedback items to fuse")
)

// Strategy names, as reported in Result.Strategy and recorded by Engine.
const (
	StrategyGraph     = "graph"
	StrategyAttention = "attention"
	StrategyRL        = "rl"
)

// Task types recognized by the Engine's strategy cascade.
const (
	TaskLongTermOptimization = "long_term_optimization"
	TaskSequentialDecision   = "sequential_decision"
	TaskDiagnostic           = "diagnostic"
	TaskTherapeutic          = "therapeutic"
	TaskInformationRetrieval = "information_retrieval"
	TaskQuestionAnswering    = "question_answering"
)

// Options carries per-call fusion parameters.
type Options struct {
	// TaskType hints at the downstream use of the fused item. The Engine
	// cascade and the RL reward both read it; individual strategies may
	// ignore it.
	TaskType string

	// TaskContext carries arbitrary task metadata for strategies that
	// want it.
	TaskContext map[string]any

	// Now anchors recency calculations. The zero value means time.Now().
	Now time.Time
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// Result is the output of a fusion call.
type Result struct {
	// Item is the fused feedback item. It carries a refine relation to
	// every input, with the input's weight as the relation strength.
	Item *feedback.Item

	// Weights are the normalized per-item weights, aligned with the input
	// slice. They sum to 1 for any non-empty input.
	Weights []float64

	// Strategy is the name of the strategy that produced the result.
	Strategy string
}

// Strategy fuses a set of feedback items into one.
type Strategy interface {
	// Name returns the strategy's stable name.
	Name() string

	// Fuse combines the items. It returns ErrNoItems for an empty input
	// and never mutates the input items.
	Fuse(ctx context.Context, items []*feedback.Item, opts Options) (*Result, error)
}

// normalizeWeights scales weights to sum to 1. When the total is not
// positive (all-zero or degenerate scores) every item gets an equal share,
// so a weight vector is always usable downstream.
func normalizeWeights(weights []float64) []float64 {
	out := make([]float64, len(weights))
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		if len(weights) == 0 {
			return out
		}
		uniform := 1.0 / float64(len(weights))
		for i := range out {
			out[i] = uniform
		}
		return out
	}
	for i, w := range weights {
		if w > 0 {
			out[i] = w / total
		}
	}
	return out
}

// minWeightForText is the cutoff below which an item's text is left out of
// the fused rendering. The item still contributes to reliability and keeps
// its refine relation.
const minWeightForText = 0.1

// buildFused assembles the fused item from the inputs and their normalized
// weights: majority-type content, weight-combined reliability, and one
// refine relation per input.
func buildFused(items []*feedback.Item, weights []float64, strategy string, now time.Time) (*feedback.Item, error) {
	fused, err := feedback.NewItem("fusion."+strategy, feedback.KindFused, fuseContent(items, weights))
	if err != nil {
		return nil, fmt.Errorf("build fused item: %w", err)
	}

	var reliability float64
	for i, it := range items {
		reliability += weights[i] * it.ReliabilityOrDefault(now)
	}
	if err := fused.SetReliability(feedback.ClampStrength(reliability)); err != nil {
		return nil, err
	}

	for i, it := range items {
		rel, err := feedback.NewRelation(fused.ID, it.ID, feedback.RelationRefine, weights[i])
		if err != nil {
			return nil, fmt.Errorf("relate fused item to %s: %w", it.ID, err)
		}
		rel.Metadata = map[string]any{"weight": weights[i]}
		fused.AddRelation(*rel)
	}
	return fused, nil
}

// fuseContent merges contents by the majority content type among the inputs.
// Ties go to text.
func fuseContent(items []*feedback.Item, weights []float64) feedback.Content {
	var structured int
	for _, it := range items {
		if it.Content.IsStructured() {
			structured++
		}
	}
	if structured > len(items)-structured {
		return fuseStructured(items, weights)
	}
	return fuseText(items, weights)
}

// fuseText concatenates the text of sufficiently weighted items in input
// order, prefixing each with its weight so consumers can see how much each
// voice contributed.
func fuseText(items []*feedback.Item, weights []float64) feedback.Content {
	var parts []string
	for i, it := range items {
		if weights[i] <= minWeightForText {
			continue
		}
		text := it.Content.String()
		if text == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[weight %.2f] %s", weights[i], text))
	}
	if len(parts) == 0 {
		// Every item fell under the cutoff; keep the heaviest one so the
		// fused item is never empty.
		best := 0
		for i := range items {
			if weights[i] > weights[best] {
				best = i
			}
		}
		parts = append(parts, fmt.Sprintf("[weight %.2f] %s", weights[best], items[best].Content.String()))
	}
	return feedback.TextContent(strings.Join(parts, "\n"))
}

// fuseStructured merges the structured payloads key by key. On a key
// conflict the higher-weighted item wins; equal weights keep the earlier
// item's value.
func fuseStructured(items []*feedback.Item, weights []float64) feedback.Content {
	merged := make(map[string]any)
	winner := make(map[string]float64)
	for i, it := range items {
		if !it.Content.IsStructured() {
			continue
		}
		for k, v := range it.Content.Data {
			if w, ok := winner[k]; ok && weights[i] <= w {
				continue
			}
			merged[k] = v
			winner[k] = weights[i]
		}
	}
	return feedback.StructuredContent(merged)
}
