// Package storage persists feedback items. MemoryStore keeps everything in
// process and backs the tests; FileStore adds JSON snapshots on disk so a
// restarted daemon keeps its collected feedback. Fusion state (attention
// projections, Q-tables) is deliberately not persisted here.
package storage
