package feedback

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Item-related errors.
var (
	ErrEmptySource        = errors.New("item source cannot be empty")
	ErrEmptyKind          = errors.New("item kind cannot be empty")
	ErrInvalidReliability = errors.New("reliability must be between 0.0 and 1.0")
)

// Well-known source categories. Source is an open string set; these constants
// cover the producers fusiond ships collectors for.
const (
	SourceHumanDoctor         = "human.doctor"
	SourceHumanPatient        = "human.patient"
	SourceHumanNurse          = "human.nurse"
	SourceSystemImaging       = "system.imaging"
	SourceSystemLab           = "system.lab"
	SourceSystemEHR           = "system.ehr"
	SourceKnowledgeGraph      = "knowledge.graph"
	SourceKnowledgeLiterature = "knowledge.literature"
	SourceSelfAssessment      = "self.assessment"
)

// Well-known feedback kinds.
const (
	KindNumeric        = "numeric"
	KindTextual        = "textual"
	KindStructured     = "structured"
	KindDiagnostic     = "diagnostic"
	KindTherapeutic    = "therapeutic"
	KindPrognostic     = "prognostic"
	KindPreventive     = "preventive"
	KindMonitoring     = "monitoring"
	KindEmergency      = "emergency"
	KindAdministrative = "administrative"
	KindFused          = "fused"
)

// Item is a single piece of feedback: one opinion, measurement, or structured
// judgment about a decision, with enough metadata to weight it against others.
type Item struct {
	// ID is the unique item identifier (UUID).
	ID string `json:"id"`

	// Source is the producer category (e.g. "human.doctor").
	Source string `json:"source"`

	// Kind is the functional category (e.g. "diagnostic").
	Kind string `json:"kind"`

	// CreatedAt is when the item was produced.
	CreatedAt time.Time `json:"created_at"`

	// Tags are free-form labels, in insertion order.
	Tags []string `json:"tags,omitempty"`

	// Reliability is the optional score in [0,1]. When nil, readers fall
	// back to ReliabilityOrDefault.
	Reliability *float64 `json:"reliability,omitempty"`

	// Content is the item payload.
	Content Content `json:"content"`

	// Relations are edges touching this item, outgoing or incoming.
	Relations []Relation `json:"relations,omitempty"`
}

// NewItem creates an item with a generated UUID and the current timestamp.
func NewItem(source, kind string, content Content) (*Item, error) {
	if source == "" {
		return nil, ErrEmptySource
	}
	if kind == "" {
		return nil, ErrEmptyKind
	}

	return &Item{
		ID:        uuid.New().String(),
		Source:    source,
		Kind:      kind,
		CreatedAt: time.Now(),
		Content:   content,
	}, nil
}

// Validate checks invariants on an item built outside NewItem (e.g. decoded
// from JSON).
func (it *Item) Validate() error {
	if it.ID == "" {
		return errors.New("item ID cannot be empty")
	}
	if it.Source == "" {
		return ErrEmptySource
	}
	if it.Kind == "" {
		return ErrEmptyKind
	}
	if it.Reliability != nil && (*it.Reliability < 0 || *it.Reliability > 1) {
		return ErrInvalidReliability
	}
	for i := range it.Relations {
		if !it.Relations[i].Type.Valid() {
			return ErrUnknownRelationType
		}
	}
	return nil
}

// SetReliability records an explicit reliability score.
func (it *Item) SetReliability(r float64) error {
	if r < 0 || r > 1 {
		return ErrInvalidReliability
	}
	it.Reliability = &r
	return nil
}

// AddRelation attaches a relation to the item. A relation with the same
// (target, type) as an existing one replaces it rather than duplicating it.
func (it *Item) AddRelation(rel Relation) {
	for i := range it.Relations {
		if it.Relations[i].TargetID == rel.TargetID && it.Relations[i].Type == rel.Type {
			it.Relations[i] = rel
			return
		}
	}
	it.Relations = append(it.Relations, rel)
}

// HasTag reports whether the item carries the given tag.
func (it *Item) HasTag(tag string) bool {
	for _, t := range it.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ReliabilityOrDefault returns the explicit reliability when present,
// otherwise a score derived from source category, kind, and age.
//
// The derivation combines four weighted components:
//   - source trust (0.4): per-category prior, 0.5 for unknown sources
//   - content consistency (0.3): neutral 0.7 absent a scorer
//   - time relevance (0.2): linear decay from 1 to 0 over a year
//   - evidence support (0.1): neutral 0.6 absent evidence links
//
// It never mutates the item; missing reliability stays missing.
func (it *Item) ReliabilityOrDefault(now time.Time) float64 {
	if it.Reliability != nil {
		return *it.Reliability
	}

	sourceScore := sourceTrust(it.Source)

	ageDays := now.Sub(it.CreatedAt).Hours() / 24
	timeRelevance := 1 - ageDays/365
	if timeRelevance < 0 {
		timeRelevance = 0
	}

	const (
		contentConsistency = 0.7
		evidenceSupport    = 0.6
	)
	return 0.4*sourceScore + 0.3*contentConsistency + 0.2*timeRelevance + 0.1*evidenceSupport
}

// sourceTrust maps a source category to its prior trust score.
func sourceTrust(source string) float64 {
	switch source {
	case SourceHumanDoctor, SourceSystemLab:
		return 0.9
	case SourceHumanNurse, SourceSystemEHR, SourceKnowledgeLiterature:
		return 0.8
	case SourceHumanPatient:
		return 0.7
	case SourceSystemImaging, SourceKnowledgeGraph:
		return 0.85
	case SourceSelfAssessment:
		return 0.6
	}
	return 0.5
}

// IsClinicianSource reports whether the source is a clinician-class producer
// (doctor, physician, specialist). Used by relation inference to weight
// agreement between professionals and systems.
func IsClinicianSource(source string) bool {
	s := strings.ToLower(source)
	return strings.Contains(s, "doctor") ||
		strings.Contains(s, "physician") ||
		strings.Contains(s, "specialist")
}

// IsSystemSource reports whether the source is an automated system producer.
func IsSystemSource(source string) bool {
	return strings.Contains(strings.ToLower(source), "system")
}
