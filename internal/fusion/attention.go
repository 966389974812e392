package fusion

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
)

const (
	featureDim     = 10
	attentionHeads = 4
	dropoutRate    = 0.1
)

// medicalTerms feed the terminology-density feature.
var medicalTerms = []string{
	"diagnosis", "treatment", "symptom", "symptoms", "patient", "therapy",
	"medication", "dose", "dosage", "clinical", "chronic", "acute",
	"prognosis", "blood", "pressure", "glucose", "cardiac", "lesion",
	"biopsy", "pathology", "imaging", "lab",
}

// advancedTerms feed the domain-expertise feature.
var advancedTerms = []string{
	"pathophysiology", "differential", "etiology", "pharmacokinetics",
	"contraindication", "comorbidity", "histopathology", "titration",
}

// criticalTerms trigger the urgency boost in domain weighting.
var criticalTerms = []string{
	"critical", "severe", "emergency", "urgent", "deteriorating",
}

// featureVector maps an item to the fixed-size numeric vector the attention
// layer scores. Every component lies in [0,1].
func featureVector(it *feedback.Item, now time.Time) []float64 {
	v := make([]float64, featureDim)

	v[0] = it.ReliabilityOrDefault(now)

	ageDays := now.Sub(it.CreatedAt).Hours() / 24
	v[1] = math.Max(0, 1-ageDays/30)

	v[2] = attentionSourceScore(it.Source)
	v[3] = attentionKindScore(it.Kind)
	v[4] = math.Min(1, float64(len(it.Relations))*0.2)
	v[5] = math.Min(1, float64(it.Content.Length())/1000)

	text := strings.ToLower(it.Content.String())
	terms := 0
	for _, t := range medicalTerms {
		if strings.Contains(text, t) {
			terms++
		}
	}
	v[6] = math.Min(1, float64(terms)/10)
	v[7] = math.Min(1, float64(len(it.Tags))/10)

	if it.HasTag("urgent") || it.HasTag("emergency") {
		v[8] = 1
	}

	v[9] = expertiseScore(it.Source, text)
	return v
}

func attentionSourceScore(source string) float64 {
	s := strings.ToLower(source)
	switch {
	case strings.Contains(s, "specialist"):
		return 0.95
	case strings.Contains(s, "doctor"):
		return 0.9
	case strings.Contains(s, "literature"):
		return 0.88
	case strings.Contains(s, "knowledge"):
		return 0.85
	case strings.Contains(s, "system"):
		return 0.8
	case strings.Contains(s, "patient"):
		return 0.7
	}
	return 0.5
}

func attentionKindScore(kind string) float64 {
	switch kind {
	case feedback.KindEmergency:
		return 0.95
	case feedback.KindTherapeutic:
		return 0.9
	case feedback.KindDiagnostic:
		return 0.85
	case feedback.KindMonitoring:
		return 0.82
	case feedback.KindPrognostic:
		return 0.8
	case feedback.KindPreventive:
		return 0.75
	}
	return 0.5
}

// expertiseScore estimates how expert the producing source is: a base of
// 0.5 plus source-role bonuses plus a capped bonus for advanced vocabulary.
func expertiseScore(source, lowerText string) float64 {
	s := strings.ToLower(source)
	score := 0.5
	if strings.Contains(s, "doctor") || strings.Contains(s, "physician") {
		score += 0.2
	}
	if strings.Contains(s, "specialist") {
		score += 0.1
	}
	if strings.Contains(s, "expert") || strings.Contains(s, "professor") {
		score += 0.1
	}
	adv := 0
	for _, t := range advancedTerms {
		if strings.Contains(lowerText, t) {
			adv++
		}
	}
	score += math.Min(0.2, float64(adv)*0.05)
	return clamp01(score)
}

// multiHeadAttention is a fixed-size scaled dot-product attention layer.
// Projection matrices are drawn once at construction from the injected
// random source, so two layers built from equally seeded sources behave
// identically.
type multiHeadAttention struct {
	headDim int
	wq      [][][]float64
	wk      [][][]float64
	rng     *rand.Rand
}

// Only query and key projections are kept: item weights come from the
// attention matrix itself, so a value path would never be read.
func newMultiHeadAttention(rng *rand.Rand) *multiHeadAttention {
	headDim := featureDim / attentionHeads
	m := &multiHeadAttention{headDim: headDim, rng: rng}
	scale := 1 / math.Sqrt(featureDim)
	for h := 0; h < attentionHeads; h++ {
		m.wq = append(m.wq, randomMatrix(rng, featureDim, headDim, scale))
		m.wk = append(m.wk, randomMatrix(rng, featureDim, headDim, scale))
	}
	return m
}

func randomMatrix(rng *rand.Rand, rows, cols int, scale float64) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
		for j := range m[i] {
			m[i][j] = (rng.Float64()*2 - 1) * scale
		}
	}
	return m
}

// attend computes the per-head attention matrices over the feature rows and
// returns their element-wise average: an n x n matrix whose row i holds how
// much item i attends to every item.
func (m *multiHeadAttention) attend(features [][]float64) [][]float64 {
	n := len(features)
	avg := make([][]float64, n)
	for i := range avg {
		avg[i] = make([]float64, n)
	}

	for h := 0; h < attentionHeads; h++ {
		q := matmul(features, m.wq[h])
		k := matmul(features, m.wk[h])

		scores := make([][]float64, n)
		for i := 0; i < n; i++ {
			scores[i] = make([]float64, n)
			for j := 0; j < n; j++ {
				var dot float64
				for d := 0; d < m.headDim; d++ {
					dot += q[i][d] * k[j][d]
				}
				scores[i][j] = dot / math.Sqrt(float64(m.headDim))
			}
			softmaxInPlace(scores[i])
			m.dropoutInPlace(scores[i])
		}

		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				avg[i][j] += scores[i][j] / attentionHeads
			}
		}
	}
	return avg
}

// dropoutInPlace applies inverted dropout so the surviving weights keep the
// row's expected mass.
func (m *multiHeadAttention) dropoutInPlace(row []float64) {
	for i := range row {
		if m.rng.Float64() < dropoutRate {
			row[i] = 0
		} else {
			row[i] /= 1 - dropoutRate
		}
	}
}

func matmul(a [][]float64, b [][]float64) [][]float64 {
	rows, inner, cols := len(a), len(b), len(b[0])
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		for k := 0; k < inner; k++ {
			if a[i][k] == 0 {
				continue
			}
			for j := 0; j < cols; j++ {
				out[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return out
}

// softmaxInPlace is numerically stable under large scores.
func softmaxInPlace(row []float64) {
	maxv := row[0]
	for _, v := range row[1:] {
		if v > maxv {
			maxv = v
		}
	}
	var sum float64
	for i, v := range row {
		row[i] = math.Exp(v - maxv)
		sum += row[i]
	}
	for i := range row {
		row[i] /= sum
	}
}

// AttentionStrategy weights items by scoring their feature vectors against
// each other with multi-head attention. For inputs that look medical it
// blends the learned attention weights evenly with rule-based domain
// weights.
type AttentionStrategy struct {
	logger    *zap.Logger
	attention *multiHeadAttention

	// mu serializes access to the attention layer, whose dropout draws
	// from the shared random source.
	mu sync.Mutex
}

// NewAttentionStrategy creates the strategy. The random source seeds the
// attention projections and drives dropout; pass a seeded source for
// reproducible fusions. A nil source falls back to a time-seeded one, and a
// nil logger disables logging.
func NewAttentionStrategy(logger *zap.Logger, rng *rand.Rand) *AttentionStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &AttentionStrategy{
		logger:    logger,
		attention: newMultiHeadAttention(rng),
	}
}

// Name implements Strategy.
func (s *AttentionStrategy) Name() string {
	return StrategyAttention
}

// Fuse implements Strategy.
func (s *AttentionStrategy) Fuse(ctx context.Context, items []*feedback.Item, opts Options) (*Result, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := opts.now()
	weights := s.weights(items, now)

	fused, err := buildFused(items, weights, StrategyAttention, now)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("attention fusion complete",
		zap.Int("items", len(items)),
		zap.Bool("medical_domain", isMedicalDomain(items)),
	)
	return &Result{Item: fused, Weights: weights, Strategy: StrategyAttention}, nil
}

func (s *AttentionStrategy) weights(items []*feedback.Item, now time.Time) []float64 {
	if len(items) == 1 {
		return []float64{1}
	}

	features := make([][]float64, len(items))
	for i, it := range items {
		features[i] = featureVector(it, now)
	}

	s.mu.Lock()
	matrix := s.attention.attend(features)
	s.mu.Unlock()

	// An item's weight is the average attention it receives across all
	// attending rows.
	raw := make([]float64, len(items))
	for j := range items {
		for i := range matrix {
			raw[j] += matrix[i][j]
		}
		raw[j] /= float64(len(matrix))
	}
	weights := normalizeWeights(raw)

	if isMedicalDomain(items) {
		domain := domainWeights(items)
		for i := range weights {
			weights[i] = 0.5*weights[i] + 0.5*domain[i]
		}
		weights = normalizeWeights(weights)
	}
	return weights
}

// isMedicalDomain reports whether any item looks like clinical feedback.
func isMedicalDomain(items []*feedback.Item) bool {
	for _, it := range items {
		s := strings.ToLower(it.Source)
		for _, marker := range []string{"doctor", "patient", "hospital", "clinic", "medical"} {
			if strings.Contains(s, marker) {
				return true
			}
		}
		k := strings.ToLower(it.Kind)
		for _, marker := range []string{"diagnostic", "therapeutic", "clinical"} {
			if strings.Contains(k, marker) {
				return true
			}
		}
	}
	return false
}

// domainWeights applies clinical role and urgency multipliers on top of a
// uniform base, then normalizes.
func domainWeights(items []*feedback.Item) []float64 {
	raw := make([]float64, len(items))
	for i, it := range items {
		w := 1.0
		s := strings.ToLower(it.Source)
		if strings.Contains(s, "doctor") {
			w *= 1.5
		}
		if strings.Contains(s, "specialist") {
			w *= 1.2
		}
		if strings.Contains(s, "patient") {
			w *= 0.8
		}
		switch it.Kind {
		case feedback.KindEmergency:
			w *= 2.0
		case feedback.KindTherapeutic:
			w *= 1.3
		case feedback.KindDiagnostic:
			w *= 1.2
		}
		text := strings.ToLower(it.Content.String())
		for _, t := range criticalTerms {
			if strings.Contains(text, t) {
				w *= 1.5
				break
			}
		}
		raw[i] = w
	}
	return normalizeWeights(raw)
}
