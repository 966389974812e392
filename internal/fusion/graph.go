package fusion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
)

// propagationRounds is the fixed number of synchronous propagation passes.
// The update magnitudes are small enough that three rounds settle the
// scores; there is no convergence test.
const propagationRounds = 3

// nodeState is the evolving per-item state inside a RelationGraph.
// Reliability stays in [0,1]; importance starts at 1 and stays in [0,2].
type nodeState struct {
	item        *feedback.Item
	reliability float64
	importance  float64
}

// RelationGraph holds feedback items as nodes and typed relations as edges,
// and propagates reliability and importance along those edges.
//
// Edges influence both endpoints during propagation regardless of their
// direction. A graph never mutates the items it was built from.
type RelationGraph struct {
	order     []string
	nodes     map[string]*nodeState
	adjacency map[string][]feedback.Relation
	relations []feedback.Relation
}

// NewRelationGraph builds a graph over the items. Initial reliability comes
// from each item's score (explicit or derived at now); relations already
// attached to the items are added as edges when both endpoints are present.
func NewRelationGraph(items []*feedback.Item, now time.Time) *RelationGraph {
	g := &RelationGraph{
		nodes:     make(map[string]*nodeState, len(items)),
		adjacency: make(map[string][]feedback.Relation, len(items)),
	}
	for _, it := range items {
		if _, ok := g.nodes[it.ID]; ok {
			continue
		}
		g.order = append(g.order, it.ID)
		g.nodes[it.ID] = &nodeState{
			item:        it,
			reliability: it.ReliabilityOrDefault(now),
			importance:  1.0,
		}
	}
	for _, it := range items {
		for _, rel := range it.Relations {
			g.AddRelation(rel)
		}
	}
	return g
}

// Len returns the number of nodes.
func (g *RelationGraph) Len() int {
	return len(g.order)
}

// AddRelation adds an edge between two nodes already in the graph. Edges
// touching unknown items, self-edges, and duplicate (source, target, type)
// edges are ignored.
func (g *RelationGraph) AddRelation(rel feedback.Relation) bool {
	if rel.SourceID == rel.TargetID {
		return false
	}
	if _, ok := g.nodes[rel.SourceID]; !ok {
		return false
	}
	if _, ok := g.nodes[rel.TargetID]; !ok {
		return false
	}
	for _, existing := range g.relations {
		if existing.ID() == rel.ID() {
			return false
		}
	}
	g.relations = append(g.relations, rel)
	g.adjacency[rel.SourceID] = append(g.adjacency[rel.SourceID], rel)
	g.adjacency[rel.TargetID] = append(g.adjacency[rel.TargetID], rel)
	return true
}

// Relations returns a copy of the graph's edges.
func (g *RelationGraph) Relations() []feedback.Relation {
	out := make([]feedback.Relation, len(g.relations))
	copy(out, g.relations)
	return out
}

// InferRelations scores every unordered node pair with the support, oppose,
// and complement detectors and adds an edge for each score above the
// threshold. A pair can gain more than one edge type. Returns the number of
// edges added.
func (g *RelationGraph) InferRelations() int {
	added := 0
	for i := 0; i < len(g.order); i++ {
		for j := i + 1; j < len(g.order); j++ {
			a := g.nodes[g.order[i]].item
			b := g.nodes[g.order[j]].item
			for _, inferred := range []struct {
				relType feedback.RelationType
				score   float64
			}{
				{feedback.RelationSupport, supportScore(a, b)},
				{feedback.RelationOppose, opposeScore(a, b)},
				{feedback.RelationComplement, complementScore(a, b)},
			} {
				if inferred.score <= relationThreshold {
					continue
				}
				if g.AddRelation(feedback.Relation{
					SourceID: a.ID,
					TargetID: b.ID,
					Type:     inferred.relType,
					Strength: inferred.score,
				}) {
					added++
				}
			}
		}
	}
	return added
}

// Propagate runs the fixed number of synchronous update rounds. Each round
// reads the previous round's scores for every node, so update order within
// a round does not matter.
//
// Per neighbor edge of strength s:
//   - support:    reliability += s * neighbor reliability * 0.1
//     importance += s * neighbor importance * 0.1
//   - oppose:     reliability -= s * neighbor reliability * 0.1
//   - complement: importance += s * 0.05
func (g *RelationGraph) Propagate() {
	for round := 0; round < propagationRounds; round++ {
		prevRel := make(map[string]float64, len(g.nodes))
		prevImp := make(map[string]float64, len(g.nodes))
		for id, n := range g.nodes {
			prevRel[id] = n.reliability
			prevImp[id] = n.importance
		}

		for _, id := range g.order {
			node := g.nodes[id]
			rel := prevRel[id]
			imp := prevImp[id]
			for _, edge := range g.adjacency[id] {
				other := edge.Other(id)
				switch edge.Type {
				case feedback.RelationSupport:
					rel += edge.Strength * prevRel[other] * 0.1
					imp += edge.Strength * prevImp[other] * 0.1
				case feedback.RelationOppose:
					rel -= edge.Strength * prevRel[other] * 0.1
				case feedback.RelationComplement:
					imp += edge.Strength * 0.05
				}
			}
			node.reliability = clamp01(rel)
			node.importance = clampImportance(imp)
		}
	}
}

// NodeReliability returns a node's current reliability score.
func (g *RelationGraph) NodeReliability(id string) (float64, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return 0, false
	}
	return n.reliability, true
}

// NodeImportance returns a node's current importance score.
func (g *RelationGraph) NodeImportance(id string) (float64, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return 0, false
	}
	return n.importance, true
}

// Weights returns the normalized per-node weights in insertion order:
// reliability times importance, scaled to sum to 1.
func (g *RelationGraph) Weights() []float64 {
	raw := make([]float64, len(g.order))
	for i, id := range g.order {
		n := g.nodes[id]
		raw[i] = n.reliability * n.importance
	}
	return normalizeWeights(raw)
}

func clampImportance(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 2 {
		return 2
	}
	return v
}

// GraphStrategy fuses items by building a relation graph, inferring edges,
// propagating reliability and importance, and weighting each item by the
// product of the two scores.
type GraphStrategy struct {
	logger *zap.Logger
}

// NewGraphStrategy creates the strategy. A nil logger disables logging.
func NewGraphStrategy(logger *zap.Logger) *GraphStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphStrategy{logger: logger}
}

// Name implements Strategy.
func (s *GraphStrategy) Name() string {
	return StrategyGraph
}

// Fuse implements Strategy.
func (s *GraphStrategy) Fuse(ctx context.Context, items []*feedback.Item, opts Options) (*Result, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := opts.now()
	graph := NewRelationGraph(items, now)
	inferred := graph.InferRelations()
	graph.Propagate()
	weights := graph.Weights()

	fused, err := buildFused(items, weights, StrategyGraph, now)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("graph fusion complete",
		zap.Int("items", len(items)),
		zap.Int("inferred_relations", inferred),
		zap.Int("total_relations", len(graph.relations)),
	)
	return &Result{Item: fused, Weights: weights, Strategy: StrategyGraph}, nil
}
