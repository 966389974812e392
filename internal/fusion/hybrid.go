package fusion

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
)

// historyCapacity bounds the Engine's selection history. Older records are
// dropped as new ones arrive, so a long-lived Engine holds constant memory.
const historyCapacity = 256

// StrategyTag is the tag prefix the Engine stamps on fused items, followed
// by the strategy name.
const StrategyTag = "fusion_strategy:"

// SelectionRecord is one entry in the Engine's history.
type SelectionRecord struct {
	Time        time.Time
	Strategy    string
	TaskType    string
	ItemCount   int
	SourceCount int
	KindCount   int
	Reliability float64
}

// StrategyStats aggregates the history records of one strategy.
type StrategyStats struct {
	Selections     int
	AvgReliability float64
	AvgItemCount   float64
}

// PatternReport summarizes the shape of an input set.
type PatternReport struct {
	ItemCount       int
	SourceCounts    map[string]int
	KindCounts      map[string]int
	RelationDensity float64
	DominantSource  string
	DominantKind    string
	MedicalDomain   bool
}

// Engine routes each fusion call to one of the three strategies through a
// rule cascade and keeps a bounded record of its choices. It implements
// Strategy itself, so callers can treat it as just another strategy.
//
// Engine is safe for concurrent use; the graph strategy is stateless per
// call and the attention and RL strategies lock internally.
type Engine struct {
	logger    *zap.Logger
	graph     *GraphStrategy
	attention *AttentionStrategy
	rl        *RLStrategy

	mu      sync.Mutex
	history []SelectionRecord
	start   int
	count   int
}

// NewEngine creates an engine with freshly built strategies. The random
// source seeds the attention projections and RL exploration.
func NewEngine(logger *zap.Logger, rng *rand.Rand) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		logger:    logger,
		graph:     NewGraphStrategy(logger),
		attention: NewAttentionStrategy(logger, rng),
		rl:        NewRLStrategy(logger, rng),
		history:   make([]SelectionRecord, historyCapacity),
	}
}

// Name implements Strategy.
func (e *Engine) Name() string {
	return "hybrid"
}

// RL exposes the engine's RL strategy, mainly so callers can reset its
// learned state.
func (e *Engine) RL() *RLStrategy {
	return e.rl
}

// Fuse implements Strategy: it selects a strategy for the input, runs it,
// tags the fused item with the chosen strategy, and records the selection.
func (e *Engine) Fuse(ctx context.Context, items []*feedback.Item, opts Options) (*Result, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	name := e.Select(items, opts)
	res, err := e.strategy(name).Fuse(ctx, items, opts)
	if err != nil {
		return nil, err
	}
	res.Item.Tags = append(res.Item.Tags, StrategyTag+name)

	rec := SelectionRecord{
		Time:        opts.now(),
		Strategy:    name,
		TaskType:    opts.TaskType,
		ItemCount:   len(items),
		SourceCount: distinctSources(items),
		KindCount:   distinctKinds(items),
	}
	if res.Item.Reliability != nil {
		rec.Reliability = *res.Item.Reliability
	}
	e.mu.Lock()
	e.push(rec)
	e.mu.Unlock()

	e.logger.Debug("hybrid fusion complete",
		zap.String("strategy", name),
		zap.Int("items", len(items)),
		zap.String("task_type", opts.TaskType),
	)
	return res, nil
}

// Select runs the cascade and returns the strategy name it would use,
// without fusing. The rules fire in order; the first match wins.
func (e *Engine) Select(items []*feedback.Item, opts Options) string {
	if len(items) <= 2 {
		return StrategyAttention
	}
	if hasRelations(items) {
		return StrategyGraph
	}
	if distinctSources(items) >= 3 {
		return StrategyGraph
	}
	switch opts.TaskType {
	case TaskLongTermOptimization, TaskSequentialDecision:
		return StrategyRL
	case TaskDiagnostic, TaskTherapeutic:
		return StrategyGraph
	case TaskInformationRetrieval, TaskQuestionAnswering:
		return StrategyAttention
	}
	if distinctKinds(items) >= 3 {
		return StrategyGraph
	}
	return StrategyAttention
}

func (e *Engine) strategy(name string) Strategy {
	switch name {
	case StrategyGraph:
		return e.graph
	case StrategyRL:
		return e.rl
	}
	return e.attention
}

// push appends to the ring buffer. Caller holds mu.
func (e *Engine) push(rec SelectionRecord) {
	idx := (e.start + e.count) % historyCapacity
	e.history[idx] = rec
	if e.count < historyCapacity {
		e.count++
	} else {
		e.start = (e.start + 1) % historyCapacity
	}
}

// History returns the retained selection records, oldest first.
func (e *Engine) History() []SelectionRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]SelectionRecord, e.count)
	for i := 0; i < e.count; i++ {
		out[i] = e.history[(e.start+i)%historyCapacity]
	}
	return out
}

// AnalyzeStrategyPerformance aggregates the retained history per strategy.
func (e *Engine) AnalyzeStrategyPerformance() map[string]StrategyStats {
	stats := make(map[string]StrategyStats)
	for _, rec := range e.History() {
		s := stats[rec.Strategy]
		s.Selections++
		s.AvgReliability += rec.Reliability
		s.AvgItemCount += float64(rec.ItemCount)
		stats[rec.Strategy] = s
	}
	for name, s := range stats {
		s.AvgReliability /= float64(s.Selections)
		s.AvgItemCount /= float64(s.Selections)
		stats[name] = s
	}
	return stats
}

// StrategyRecommendation combines the cascade's pick for the input with the
// historically best-performing strategy: when history shows a strategy with
// a clearly higher average fused reliability over enough selections, it is
// recommended over the cascade's choice.
func (e *Engine) StrategyRecommendation(items []*feedback.Item, opts Options) string {
	pick := e.Select(items, opts)

	stats := e.AnalyzeStrategyPerformance()
	best, bestScore := "", 0.0
	for name, s := range stats {
		if s.Selections >= 5 && s.AvgReliability > bestScore {
			best, bestScore = name, s.AvgReliability
		}
	}
	if best != "" && best != pick {
		if cur, ok := stats[pick]; !ok || bestScore > cur.AvgReliability+0.1 {
			return best
		}
	}
	return pick
}

// EvaluateStrategyOutcome scores a fusion result in [0,1]: the fused
// reliability, how evenly the weight mass is spread, and how many inputs
// contributed at all.
func EvaluateStrategyOutcome(res *Result) float64 {
	if res == nil || res.Item == nil || len(res.Weights) == 0 {
		return 0
	}

	var reliability float64
	if res.Item.Reliability != nil {
		reliability = *res.Item.Reliability
	}

	// Shannon entropy of the weights, normalized to [0,1].
	var entropy float64
	for _, w := range res.Weights {
		if w > 0 {
			entropy -= w * math.Log(w)
		}
	}
	balance := 1.0
	if len(res.Weights) > 1 {
		balance = entropy / math.Log(float64(len(res.Weights)))
	}

	contributing := 0
	for _, w := range res.Weights {
		if w > 0.01 {
			contributing++
		}
	}
	coverage := float64(contributing) / float64(len(res.Weights))

	return clamp01(0.5*reliability + 0.3*balance + 0.2*coverage)
}

// AnalyzeFeedbackPatterns summarizes an input set for callers deciding how
// to fuse it or whether to collect more feedback first.
func AnalyzeFeedbackPatterns(items []*feedback.Item) PatternReport {
	report := PatternReport{
		ItemCount:     len(items),
		SourceCounts:  make(map[string]int),
		KindCounts:    make(map[string]int),
		MedicalDomain: isMedicalDomain(items),
	}
	for _, it := range items {
		report.SourceCounts[it.Source]++
		report.KindCounts[it.Kind]++
	}
	if pairs := len(items) * (len(items) - 1) / 2; pairs > 0 {
		report.RelationDensity = float64(interItemRelations(items)) / float64(pairs)
	}
	report.DominantSource = dominantKey(report.SourceCounts)
	report.DominantKind = dominantKey(report.KindCounts)
	return report
}

func dominantKey(counts map[string]int) string {
	best, bestCount := "", 0
	for k, c := range counts {
		if c > bestCount || (c == bestCount && k < best) {
			best, bestCount = k, c
		}
	}
	return best
}

// hasRelations reports whether any item carries a relation, regardless of
// where it points.
func hasRelations(items []*feedback.Item) bool {
	for _, it := range items {
		if len(it.Relations) > 0 {
			return true
		}
	}
	return false
}

// interItemRelations counts relations whose both endpoints are in the set.
func interItemRelations(items []*feedback.Item) int {
	ids := make(map[string]struct{}, len(items))
	for _, it := range items {
		ids[it.ID] = struct{}{}
	}
	n := 0
	for _, it := range items {
		for _, rel := range it.Relations {
			if _, ok := ids[rel.Other(it.ID)]; ok {
				n++
			}
		}
	}
	return n
}

func distinctSources(items []*feedback.Item) int {
	seen := make(map[string]struct{})
	for _, it := range items {
		seen[it.Source] = struct{}{}
	}
	return len(seen)
}

func distinctKinds(items []*feedback.Item) int {
	seen := make(map[string]struct{})
	for _, it := range items {
		seen[it.Kind] = struct{}{}
	}
	return len(seen)
}
