// Package feedback defines the data model shared by every fusiond component:
// feedback items, their content variants, typed relations between items, and
// an indexed in-memory collection.
//
// # Core Concepts
//
// An Item is a single piece of input opinion or measurement. Each item has:
//   - Source: the producer category (e.g. "human.doctor", "system.imaging")
//   - Kind: the functional category (e.g. "diagnostic", "therapeutic")
//   - Content: either free text or a structured key/value map
//   - Reliability: optional score in [0,1], derived lazily when absent
//   - Relations: typed, strength-weighted edges to other items
//
// Items are owned by their creator until handed to fusion. Fusion never
// mutates inputs; it creates new items and links them back to the inputs
// via refine/derived_from relations.
//
// # Relations
//
// A Relation is identified by (source, target, type). Adding a relation with
// the same identity replaces the previous one instead of duplicating it.
// Strength is clamped to [0,1] on construction; an unrecognized relation type
// is rejected.
package feedback
