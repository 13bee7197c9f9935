// Package merge reconciles the canonical graph with the indexed source
// tree: it patches bound declarations field by field, creates declarations
// for unbound entities, rewrites id references into imported identifiers and
// header placeholders into template expressions, and accounts a per-entity
// outcome.
//
// The merger never touches disk. It queues span edits on the indexed
// documents and assembles new files in memory; the emit package decides what
// actually gets written.
package merge
