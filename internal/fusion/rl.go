package fusion

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
)

// Q-learning parameters.
const (
	rlEpsilon       = 0.1
	rlAlpha         = 0.01
	rlGamma         = 0.9
	rlHistoryWindow = 10
)

// rlActions are the weighting policies the learner chooses between. Order
// is part of the Q-table layout and of greedy tie-breaking.
var rlActions = []string{
	"uniform",
	"reliability",
	"recency",
	"source",
	"feedback_type",
}

type rlRecord struct {
	state  string
	action int
	reward float64
}

// RLStrategy learns which weighting policy works best for which kind of
// input set. Each call encodes the input into a discrete state, picks a
// policy epsilon-greedily from its Q-table, scores the outcome by weight
// consistency with the items' relations, and replays the recent history
// through the Q-update rule.
//
// The Q-table and history belong to the instance. Reset discards both.
// RLStrategy is safe for concurrent use.
type RLStrategy struct {
	logger *zap.Logger

	mu      sync.Mutex
	rng     *rand.Rand
	epsilon float64
	qtable  map[string][]float64
	history []rlRecord
}

// NewRLStrategy creates the strategy. The random source drives exploration;
// pass a seeded source for reproducible behavior. A nil source falls back
// to a time-seeded one, and a nil logger disables logging.
func NewRLStrategy(logger *zap.Logger, rng *rand.Rand) *RLStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RLStrategy{
		logger:  logger,
		rng:     rng,
		epsilon: rlEpsilon,
		qtable:  make(map[string][]float64),
	}
}

// SetEpsilon overrides the exploration rate. Zero makes action selection
// fully greedy and therefore deterministic for a fixed Q-table.
func (s *RLStrategy) SetEpsilon(epsilon float64) error {
	if epsilon < 0 || epsilon > 1 {
		return fmt.Errorf("epsilon must be in [0,1], got %g", epsilon)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epsilon = epsilon
	return nil
}

// Name implements Strategy.
func (s *RLStrategy) Name() string {
	return StrategyRL
}

// Reset clears the Q-table and the learning history.
func (s *RLStrategy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qtable = make(map[string][]float64)
	s.history = nil
}

// Fuse implements Strategy.
func (s *RLStrategy) Fuse(ctx context.Context, items []*feedback.Item, opts Options) (*Result, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := opts.now()
	state := encodeState(items)

	s.mu.Lock()
	action := s.selectAction(state)
	weights := applyAction(action, items, now)
	reward := consistencyReward(items, weights, now)
	s.record(state, action, reward)
	s.replay()
	s.mu.Unlock()

	fused, err := buildFused(items, weights, StrategyRL, now)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("rl fusion complete",
		zap.Int("items", len(items)),
		zap.String("state", state),
		zap.String("action", rlActions[action]),
		zap.Float64("reward", reward),
	)
	return &Result{Item: fused, Weights: weights, Strategy: StrategyRL}, nil
}

// selectAction is epsilon-greedy over the state's Q-values. Ties between
// equal Q-values resolve to the earliest action. Caller holds mu.
func (s *RLStrategy) selectAction(state string) int {
	if s.epsilon > 0 && s.rng.Float64() < s.epsilon {
		return s.rng.Intn(len(rlActions))
	}
	q, ok := s.qtable[state]
	if !ok {
		return 0
	}
	best := 0
	for i := 1; i < len(q); i++ {
		if q[i] > q[best] {
			best = i
		}
	}
	return best
}

// record appends to the bounded history. Caller holds mu.
func (s *RLStrategy) record(state string, action int, reward float64) {
	s.history = append(s.history, rlRecord{state: state, action: action, reward: reward})
	if len(s.history) > rlHistoryWindow {
		s.history = s.history[len(s.history)-rlHistoryWindow:]
	}
}

// replay runs the Q-update over every consecutive pair in the history:
//
//	Q(s,a) += alpha * (r + gamma*max Q(s',.) - Q(s,a))
//
// Caller holds mu.
func (s *RLStrategy) replay() {
	for t := 0; t+1 < len(s.history); t++ {
		cur, next := s.history[t], s.history[t+1]

		q := s.qvalues(cur.state)
		nextQ := s.qvalues(next.state)
		maxNext := nextQ[0]
		for _, v := range nextQ[1:] {
			if v > maxNext {
				maxNext = v
			}
		}
		q[cur.action] += rlAlpha * (cur.reward + rlGamma*maxNext - q[cur.action])
	}
}

func (s *RLStrategy) qvalues(state string) []float64 {
	q, ok := s.qtable[state]
	if !ok {
		q = make([]float64, len(rlActions))
		s.qtable[state] = q
	}
	return q
}

// QValues returns a copy of the Q-values for a state, or nil when the state
// has never been seen.
func (s *RLStrategy) QValues(state string) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.qtable[state]
	if !ok {
		return nil
	}
	out := make([]float64, len(q))
	copy(out, q)
	return out
}

// encodeState buckets an input set into a discrete state string: the top
// three kinds, the top three sources, the relation density in tenths, and
// the item count. Density counts every attached relation, in-set or not,
// over the n(n-1) ordered pairs.
func encodeState(items []*feedback.Item) string {
	kinds := make(map[string]int)
	sources := make(map[string]int)
	relations := 0
	for _, it := range items {
		kinds[it.Kind]++
		sources[it.Source]++
		relations += len(it.Relations)
	}

	density := 0.0
	if pairs := len(items) * (len(items) - 1); pairs > 0 {
		density = float64(relations) / float64(pairs)
	}

	return fmt.Sprintf("types:%s|sources:%s|density:%d|count:%d",
		topCounts(kinds), topCounts(sources), int(density*10), len(items))
}

// topCounts renders up to three entries ordered by count descending, name
// ascending on ties.
func topCounts(counts map[string]int) string {
	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	if len(entries) > 3 {
		entries = entries[:3]
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s:%d", e.name, e.count)
	}
	return strings.Join(parts, ",")
}

// applyAction turns an action index into a normalized weight vector.
func applyAction(action int, items []*feedback.Item, now time.Time) []float64 {
	raw := make([]float64, len(items))
	switch rlActions[action] {
	case "reliability":
		for i, it := range items {
			raw[i] = it.ReliabilityOrDefault(now)
		}
	case "recency":
		for i, it := range items {
			ageDays := now.Sub(it.CreatedAt).Hours() / 24
			raw[i] = math.Max(0, 1-ageDays/30)
		}
	case "source":
		for i, it := range items {
			raw[i] = attentionSourceScore(it.Source)
		}
	case "feedback_type":
		for i, it := range items {
			raw[i] = attentionKindScore(it.Kind)
		}
	default: // uniform
		for i := range raw {
			raw[i] = 1
		}
	}
	return normalizeWeights(raw)
}

// consistencyReward scores a weight vector against the items' relations:
// weight mass on reliable items raises the reward, weight gaps across
// supporting pairs lower it, and weight gaps across opposing pairs raise it.
func consistencyReward(items []*feedback.Item, weights []float64, now time.Time) float64 {
	index := make(map[string]int, len(items))
	for i, it := range items {
		index[it.ID] = i
	}

	var reward float64
	for i, it := range items {
		reward += weights[i] * it.ReliabilityOrDefault(now)
	}
	for i, it := range items {
		for _, rel := range it.Relations {
			j, ok := index[rel.Other(it.ID)]
			if !ok || j == i {
				continue
			}
			diff := math.Abs(weights[i] - weights[j])
			switch rel.Type {
			case feedback.RelationSupport:
				reward -= diff * rel.Strength
			case feedback.RelationOppose:
				reward += diff * rel.Strength
			}
		}
	}
	return reward
}
