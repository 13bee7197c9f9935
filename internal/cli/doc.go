// Package cli defines the Cobra command tree for the agents-sync CLI. Each
// file in this package registers one top-level command (pull, validate,
// inspect, etc.) with the root command. Command implementations delegate to
// internal packages for the sync logic and only handle flag parsing, I/O
// formatting, and user interaction.
package cli
