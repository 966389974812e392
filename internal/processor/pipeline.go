package processor

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fusiond/internal/feedback"
)

// Tags stamped by the built-in stages.
const (
	// TagNoise marks items the noise filter flagged. Flagged items stay in
	// the store; downstream queries decide whether to skip them.
	TagNoise = "noise"

	// sentimentTagPrefix precedes the sentiment label tag.
	sentimentTagPrefix = "sentiment:"
)

// Stage transforms or annotates a feedback item before it is stored. Stages
// may mutate the item in place.
type Stage interface {
	Name() string
	Apply(ctx context.Context, item *feedback.Item) error
}

// Pipeline runs stages in order over incoming items.
type Pipeline struct {
	logger *zap.Logger
	stages []Stage
}

// NewPipeline builds a pipeline over the given stages.
func NewPipeline(logger *zap.Logger, stages ...Stage) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{logger: logger, stages: stages}
}

// DefaultPipeline wires the built-in stages in their usual order: normalize
// text, flag noise, score sentiment.
func DefaultPipeline(logger *zap.Logger) *Pipeline {
	return NewPipeline(logger,
		NewTextNormalizer(),
		NewNoiseFilter(0, nil),
		NewSentimentScorer(),
	)
}

// Run applies every stage to the item. The first stage error stops the run
// and is returned wrapped with the stage name.
func (p *Pipeline) Run(ctx context.Context, item *feedback.Item) error {
	if item == nil {
		return nil
	}
	for _, st := range p.stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := st.Apply(ctx, item); err != nil {
			return fmt.Errorf("stage %s: %w", st.Name(), err)
		}
	}
	p.logger.Debug("preprocessing complete",
		zap.String("id", item.ID),
		zap.Int("stages", len(p.stages)),
	)
	return nil
}

// TextNormalizer unifies punctuation and collapses whitespace in text
// content. Structured content passes through untouched.
type TextNormalizer struct{}

// NewTextNormalizer creates the stage.
func NewTextNormalizer() *TextNormalizer {
	return &TextNormalizer{}
}

// Name implements Stage.
func (n *TextNormalizer) Name() string { return "text_normalizer" }

// punctReplacer maps fullwidth and typographic punctuation to ASCII.
var punctReplacer = strings.NewReplacer(
	"，", ",", "。", ".", "！", "!", "？", "?", "：", ":", "；", ";",
	"（", "(", "）", ")", "“", `"`, "”", `"`, "‘", "'", "’", "'",
	"—", "-", "–", "-", "…", "...",
)

// Apply implements Stage.
func (n *TextNormalizer) Apply(_ context.Context, item *feedback.Item) error {
	if !item.Content.IsText() {
		return nil
	}
	text := punctReplacer.Replace(item.Content.Text)
	text = strings.Join(strings.Fields(text), " ")
	item.Content = feedback.TextContent(text)
	return nil
}

// NoiseFilter tags short or pattern-matching text items as noise rather
// than dropping them.
type NoiseFilter struct {
	minLength int
	patterns  []string
}

// defaultMinLength is the character count below which text counts as noise.
const defaultMinLength = 8

// NewNoiseFilter creates the stage. A non-positive minLength falls back to
// the default; patterns are matched case-insensitively as substrings.
func NewNoiseFilter(minLength int, patterns []string) *NoiseFilter {
	if minLength <= 0 {
		minLength = defaultMinLength
	}
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return &NoiseFilter{minLength: minLength, patterns: lowered}
}

// Name implements Stage.
func (f *NoiseFilter) Name() string { return "noise_filter" }

// Apply implements Stage.
func (f *NoiseFilter) Apply(_ context.Context, item *feedback.Item) error {
	if !item.Content.IsText() || item.HasTag(TagNoise) {
		return nil
	}
	text := strings.TrimSpace(item.Content.Text)
	if len(text) >= f.minLength && !f.matches(strings.ToLower(text)) {
		return nil
	}
	item.Tags = append(item.Tags, TagNoise)
	return nil
}

func (f *NoiseFilter) matches(text string) bool {
	for _, p := range f.patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// SentimentScorer assigns a lexicon-based sentiment label tag to text
// items: positive, negative, or neutral.
type SentimentScorer struct{}

// NewSentimentScorer creates the stage.
func NewSentimentScorer() *SentimentScorer {
	return &SentimentScorer{}
}

// Name implements Stage.
func (s *SentimentScorer) Name() string { return "sentiment_scorer" }

var positiveSentiment = map[string]struct{}{
	"good": {}, "improved": {}, "improving": {}, "better": {}, "stable": {},
	"normal": {}, "effective": {}, "recovered": {}, "recovering": {},
	"successful": {}, "benign": {}, "resolved": {}, "healthy": {},
}

var negativeSentiment = map[string]struct{}{
	"bad": {}, "worse": {}, "worsening": {}, "severe": {}, "critical": {},
	"abnormal": {}, "failed": {}, "deteriorating": {}, "pain": {},
	"malignant": {}, "adverse": {}, "unstable": {}, "elevated": {},
}

// sentimentCutoff separates the neutral band from the labeled ones.
const sentimentCutoff = 0.2

// Apply implements Stage.
func (s *SentimentScorer) Apply(_ context.Context, item *feedback.Item) error {
	if !item.Content.IsText() {
		return nil
	}
	label := sentimentTagPrefix + sentimentLabel(Sentiment(item.Content.Text))
	for _, t := range item.Tags {
		if strings.HasPrefix(t, sentimentTagPrefix) {
			return nil
		}
	}
	item.Tags = append(item.Tags, label)
	return nil
}

// Sentiment scores text in [-1, 1] from the sentiment lexicons. Text with
// no lexicon hits scores 0.
func Sentiment(text string) float64 {
	var pos, neg int
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:()\"'")
		if _, ok := positiveSentiment[w]; ok {
			pos++
		}
		if _, ok := negativeSentiment[w]; ok {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}

func sentimentLabel(score float64) string {
	switch {
	case score > sentimentCutoff:
		return "positive"
	case score < -sentimentCutoff:
		return "negative"
	default:
		return "neutral"
	}
}
