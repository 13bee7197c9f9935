// Package index scans a target directory for builder-factory declarations
// and builds the binding table mapping (kind, id) to the declaration that
// currently expresses it.
//
// The table is built once per run from the files on disk and extended as the
// merger creates new declarations. Files that fail to parse are recorded and
// never touched. Two declarations claiming the same (kind, id) poison that
// id: neither is merged and both locations are reported.
package index
