package feedback

import (
	"errors"
	"fmt"
)

// Relation-related errors.
var (
	ErrEmptySourceID       = errors.New("relation source ID cannot be empty")
	ErrEmptyTargetID       = errors.New("relation target ID cannot be empty")
	ErrUnknownRelationType = errors.New("unknown relation type")
)

// RelationType classifies the semantic link between two feedback items.
type RelationType string

const (
	// RelationSupport indicates one item backs the other's conclusion.
	RelationSupport RelationType = "support"

	// RelationOppose indicates one item contradicts the other.
	RelationOppose RelationType = "oppose"

	// RelationComplement indicates one item adds information the other lacks.
	RelationComplement RelationType = "complement"

	// RelationRefine indicates one item is a refinement of the other.
	// Fusion outputs carry refine relations back to their inputs.
	RelationRefine RelationType = "refine"

	// RelationTemporal indicates a before/after ordering between items.
	RelationTemporal RelationType = "temporal"

	// RelationCausal indicates a cause/effect link between items.
	RelationCausal RelationType = "causal"

	// RelationDerivedFrom links a fused item to the inputs it was built from.
	RelationDerivedFrom RelationType = "derived_from"
)

// Valid reports whether t is one of the recognized relation types.
func (t RelationType) Valid() bool {
	switch t {
	case RelationSupport, RelationOppose, RelationComplement,
		RelationRefine, RelationTemporal, RelationCausal, RelationDerivedFrom:
		return true
	}
	return false
}

// Relation is a typed, strength-weighted edge between two feedback items.
//
// Identity is (SourceID, TargetID, Type); strength and metadata are payload.
// Strength is always within [0,1] after construction.
type Relation struct {
	// SourceID is the item the relation originates from.
	SourceID string `json:"source_id"`

	// TargetID is the item the relation points to.
	TargetID string `json:"target_id"`

	// Type classifies the relation.
	Type RelationType `json:"type"`

	// Strength is the relation weight in [0,1].
	Strength float64 `json:"strength"`

	// Metadata carries optional context (e.g. the fusion weight that
	// produced a refine relation).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewRelation creates a relation between two items.
//
// Strength is clamped to [0,1] silently; out-of-range inputs are treated as
// saturated rather than invalid. An unrecognized type is rejected so that a
// typo cannot flow through the propagation rules unnoticed.
func NewRelation(sourceID, targetID string, relType RelationType, strength float64) (*Relation, error) {
	if sourceID == "" {
		return nil, ErrEmptySourceID
	}
	if targetID == "" {
		return nil, ErrEmptyTargetID
	}
	if !relType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRelationType, relType)
	}

	return &Relation{
		SourceID: sourceID,
		TargetID: targetID,
		Type:     relType,
		Strength: ClampStrength(strength),
	}, nil
}

// ID returns the deterministic relation identity string.
//
// Two relations over the same ordered pair and type share an ID regardless
// of strength, which is what makes re-adding an overwrite.
func (r *Relation) ID() string {
	return r.SourceID + "|" + r.TargetID + "|" + string(r.Type)
}

// Other returns the endpoint of the relation that is not itemID. It returns
// the source when itemID is the target, and vice versa.
func (r *Relation) Other(itemID string) string {
	if r.SourceID == itemID {
		return r.TargetID
	}
	return r.SourceID
}

// ClampStrength forces a strength value into [0,1].
func ClampStrength(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
