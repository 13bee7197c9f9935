// Package platform holds the filesystem primitives that differ across
// operating systems: atomic file replacement and permission handling.
// Windows has no Unix permission bits, so mode changes are skipped there.
package platform
