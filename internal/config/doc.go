// Package config manages user-level settings stored at
// ~/.agents-sync/config.yaml: the default project export path, target
// directory and pull mode. Values can be overridden per invocation with
// flags or AGENTS_SYNC_* environment variables.
package config
