// Package tscode parses TypeScript sources into structured documents and
// applies span edits against the original bytes.
//
// The synchronizer never regenerates whole files that a human may have
// touched. Every mutation is a byte-range replacement or insertion computed
// from tree-sitter node offsets, collected on the document and applied in a
// single batch. Text outside the edited spans, including comments, custom
// keys and formatting, survives verbatim.
package tscode
