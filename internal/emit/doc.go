// Package emit writes merge output into the target tree. Files that
// already hold the produced bytes are skipped; everything else is replaced
// atomically, fanned out across a bounded worker group.
package emit
