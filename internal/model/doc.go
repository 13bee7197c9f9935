// Package model defines the canonical agent-project graph: the typed
// entities exported by the management API (agents, sub-agents, tools,
// context configs, credentials, components, triggers, skills, policies),
// the JSON export loader, and structural validation against the embedded
// project schema. The synchronizer consumes this graph; it never writes
// back to it.
package model
