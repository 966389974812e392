// Package fusion combines multiple feedback items into a single fused item.
//
// Three strategies are provided. GraphStrategy builds a relation graph over
// the inputs, infers support/oppose/complement edges from content overlap,
// runs a fixed number of propagation rounds, and weights items by the
// resulting reliability and importance. AttentionStrategy extracts a numeric
// feature vector per item and scores items against each other with
// multi-head attention. RLStrategy keeps a Q-table over weighting actions
// and picks an action epsilon-greedily, learning from the consistency of
// past fusions.
//
// Engine wraps the three strategies behind a rule cascade that picks one per
// call based on item count, relations, source diversity, and task type, and
// records every selection in a bounded history for offline analysis.
//
// All strategies implement Strategy and share the same output shape: a fused
// item carrying refine relations back to each input, plus the normalized
// per-item weight vector that produced it. Strategies never mutate their
// input items.
package fusion
