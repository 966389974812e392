package fusion

import (
	"math"
	"strings"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
)

// relationThreshold is the minimum inferred score for an edge to be added
// to the relation graph. Scores at or below the threshold are discarded.
const relationThreshold = 0.5

// negationMarkers flag a sentence as negated. One negated side and one
// plain side sharing vocabulary is the strongest textual opposition signal.
var negationMarkers = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "without": {},
	"deny": {}, "denies": {}, "denied": {}, "negative": {},
	"absent": {}, "ruled": {},
}

// antonymPairs are word pairs whose co-occurrence across two items suggests
// opposing conclusions.
var antonymPairs = [][2]string{
	{"increase", "decrease"},
	{"improve", "worsen"},
	{"improving", "worsening"},
	{"benign", "malignant"},
	{"safe", "unsafe"},
	{"effective", "ineffective"},
	{"elevated", "reduced"},
	{"high", "low"},
	{"positive", "negative"},
	{"stable", "unstable"},
	{"continue", "discontinue"},
}

// complementPairs are word pairs whose co-occurrence across two items
// suggests they cover complementary aspects of the same case.
var complementPairs = [][2]string{
	{"diagnosis", "treatment"},
	{"symptom", "cause"},
	{"dosage", "duration"},
	{"risk", "benefit"},
	{"acute", "chronic"},
	{"observation", "intervention"},
	{"history", "examination"},
}

// complementKeyPairs mirror complementPairs for structured payload keys.
var complementKeyPairs = [][2]string{
	{"diagnosis", "treatment"},
	{"symptoms", "causes"},
	{"dosage", "duration"},
	{"risk", "benefit"},
}

// supportScore estimates how strongly two items back the same conclusion.
func supportScore(a, b *feedback.Item) float64 {
	if a.Content.IsStructured() && b.Content.IsStructured() {
		return structuredAgreement(a.Content.Data, b.Content.Data)
	}
	if !a.Content.IsText() || !b.Content.IsText() {
		return 0
	}

	score := jaccard(a.Content.Words(), b.Content.Words())
	switch {
	case a.Source == b.Source:
		// Overlap inside one source is restatement more than corroboration.
		score *= 0.8
	case clinicianSystemPair(a, b):
		// A clinician and an automated system converging independently is
		// stronger evidence than either alone.
		score *= 1.2
	}
	return clamp01(score)
}

// opposeScore estimates how strongly two items contradict each other.
func opposeScore(a, b *feedback.Item) float64 {
	if a.Content.IsStructured() && b.Content.IsStructured() {
		return structuredDivergence(a.Content.Data, b.Content.Data)
	}
	if !a.Content.IsText() || !b.Content.IsText() {
		return 0
	}

	wordsA, wordsB := a.Content.Words(), b.Content.Words()
	overlap := jaccard(wordsA, wordsB)

	negFactor := 0.5
	if hasNegation(wordsA) != hasNegation(wordsB) {
		negFactor = 1.0
	}
	score := overlap * negFactor

	for _, pair := range antonymPairs {
		if crossContains(wordsA, wordsB, pair) {
			score += 0.3
		}
	}

	if feedback.IsClinicianSource(a.Source) && feedback.IsClinicianSource(b.Source) {
		// Two clinicians disagreeing is a conflict worth surfacing.
		score *= 1.2
	}
	return clamp01(score)
}

// complementScore estimates how much two items add missing information to
// each other.
func complementScore(a, b *feedback.Item) float64 {
	if a.Content.IsStructured() != b.Content.IsStructured() {
		// A narrative and a measurement about the same case complement by
		// form alone.
		return 0.6
	}
	if a.Content.IsStructured() {
		return structuredComplement(a.Content.Data, b.Content.Data)
	}

	wordsA, wordsB := a.Content.Words(), b.Content.Words()
	union := len(wordsA) + len(wordsB) - intersection(wordsA, wordsB)
	if union == 0 {
		return 0.3
	}

	uniqueRatio := 1 - jaccard(wordsA, wordsB)
	score := uniqueRatio * 0.7
	for _, pair := range complementPairs {
		if crossContains(wordsA, wordsB, pair) {
			score += 0.2
		}
	}

	switch {
	case clinicianPatientPair(a, b):
		score *= 1.5
	case clinicianKnowledgePair(a, b):
		score *= 1.3
	}
	return clamp01(score)
}

// structuredAgreement averages per-key similarity over the keys both
// payloads share. Numeric values compare by relative distance, strings by
// equality then word overlap, anything else by equality.
func structuredAgreement(a, b map[string]any) float64 {
	var total float64
	var n int
	for k, va := range a {
		vb, ok := b[k]
		if !ok {
			continue
		}
		total += valueSimilarity(va, vb)
		n++
	}
	if n == 0 {
		return 0
	}
	return clamp01(total / float64(n))
}

// structuredDivergence averages per-key disagreement over shared keys.
// Numeric values with opposite signs count as full disagreement.
func structuredDivergence(a, b map[string]any) float64 {
	var total float64
	var n int
	for k, va := range a {
		vb, ok := b[k]
		if !ok {
			continue
		}
		na, aok := toFloat(va)
		nb, bok := toFloat(vb)
		switch {
		case aok && bok:
			if na*nb < 0 {
				total += 1
			} else if m := math.Max(math.Abs(na), math.Abs(nb)); m > 0 {
				total += math.Abs(na-nb) / m
			}
		default:
			if va != vb {
				total += 0.5
			}
		}
		n++
	}
	if n == 0 {
		return 0
	}
	return clamp01(total / float64(n))
}

// structuredComplement scores two payloads by how many keys each brings
// that the other lacks, plus a bonus for complementary key pairs.
func structuredComplement(a, b map[string]any) float64 {
	union := make(map[string]struct{}, len(a)+len(b))
	shared := 0
	for k := range a {
		union[k] = struct{}{}
	}
	for k := range b {
		if _, ok := union[k]; ok {
			shared++
		}
		union[k] = struct{}{}
	}
	if len(union) == 0 {
		return 0.3
	}

	uniqueRatio := 1 - float64(shared)/float64(len(union))
	score := uniqueRatio * 0.7
	for _, pair := range complementKeyPairs {
		if keyCrossContains(a, b, pair) {
			score += 0.2
		}
	}
	return clamp01(score)
}

func valueSimilarity(a, b any) float64 {
	na, aok := toFloat(a)
	nb, bok := toFloat(b)
	if aok && bok {
		m := math.Max(math.Abs(na), math.Abs(nb))
		if m == 0 {
			return 1
		}
		return clamp01(1 - math.Abs(na-nb)/m)
	}
	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		if sa == sb {
			return 1
		}
		return jaccard(wordSet(sa), wordSet(sb))
	}
	if a == b {
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := intersection(a, b)
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func intersection(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

func wordSet(s string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		words[w] = struct{}{}
	}
	return words
}

func hasNegation(words map[string]struct{}) bool {
	for w := range words {
		if _, ok := negationMarkers[w]; ok {
			return true
		}
	}
	return false
}

// crossContains reports whether one word of the pair appears in a and the
// other in b, in either order.
func crossContains(a, b map[string]struct{}, pair [2]string) bool {
	_, a0 := a[pair[0]]
	_, a1 := a[pair[1]]
	_, b0 := b[pair[0]]
	_, b1 := b[pair[1]]
	return (a0 && b1) || (a1 && b0)
}

func keyCrossContains(a, b map[string]any, pair [2]string) bool {
	_, a0 := a[pair[0]]
	_, a1 := a[pair[1]]
	_, b0 := b[pair[0]]
	_, b1 := b[pair[1]]
	return (a0 && b1) || (a1 && b0)
}

func clinicianSystemPair(a, b *feedback.Item) bool {
	return (feedback.IsClinicianSource(a.Source) && feedback.IsSystemSource(b.Source)) ||
		(feedback.IsSystemSource(a.Source) && feedback.IsClinicianSource(b.Source))
}

func clinicianPatientPair(a, b *feedback.Item) bool {
	return (feedback.IsClinicianSource(a.Source) && isPatientSource(b.Source)) ||
		(isPatientSource(a.Source) && feedback.IsClinicianSource(b.Source))
}

func clinicianKnowledgePair(a, b *feedback.Item) bool {
	return (feedback.IsClinicianSource(a.Source) && isKnowledgeSource(b.Source)) ||
		(isKnowledgeSource(a.Source) && feedback.IsClinicianSource(b.Source))
}

func isPatientSource(source string) bool {
	return strings.Contains(strings.ToLower(source), "patient")
}

func isKnowledgeSource(source string) bool {
	s := strings.ToLower(source)
	return strings.Contains(s, "knowledge") || strings.Contains(s, "literature")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
