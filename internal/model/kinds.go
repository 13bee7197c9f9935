package model

import "path"

// Kind identifies an entity kind. Ids are unique within a kind's namespace;
// the same id may appear under two different kinds.
type Kind string

// Entity kinds, in canonical merge order. Leaf kinds (tools, credentials,
// components) come before the kinds that reference them so identifier
// bindings exist by the time a reference is rendered.
const (
	KindCredential        Kind = "credential"
	KindTool              Kind = "tool"
	KindHeadersSchema     Kind = "headers-schema"
	KindFetchDefinition   Kind = "fetch-definition"
	KindContextConfig     Kind = "context-config"
	KindDataComponent     Kind = "data-component"
	KindArtifactComponent Kind = "artifact-component"
	KindStatusComponent   Kind = "status-component"
	KindTrigger           Kind = "trigger"
	KindSubAgent          Kind = "sub-agent"
	KindAgent             Kind = "agent"
	KindSkill             Kind = "skill"
	KindPolicy            Kind = "policy"
)

// MergeOrder lists every kind in the order the merger visits them.
var MergeOrder = []Kind{
	KindCredential,
	KindTool,
	KindHeadersSchema,
	KindFetchDefinition,
	KindContextConfig,
	KindDataComponent,
	KindArtifactComponent,
	KindStatusComponent,
	KindTrigger,
	KindSubAgent,
	KindAgent,
	KindSkill,
	KindPolicy,
}

// SDKModule is the module specifier the builder factories are imported from
// when the synchronizer creates a new source file.
const SDKModule = "@inkeep/agents-sdk"

// ZodModule is the module specifier for the schema builder used in compiled
// prop/response schemas.
const ZodModule = "zod"

// kindMeta carries the per-kind constants the indexer, graph builder and
// merger share: the recognized factory call name and the target location.
type kindMeta struct {
	factory string // builder factory callee; empty for front-matter kinds
	dir     string // directory under the target root
}

var kinds = map[Kind]kindMeta{
	KindAgent:             {factory: "agent", dir: "agents"},
	KindSubAgent:          {factory: "subAgent", dir: "agents/sub-agents"},
	KindTool:              {factory: "mcpTool", dir: "tools"},
	KindContextConfig:     {factory: "contextConfig", dir: "context-configs"},
	KindHeadersSchema:     {factory: "headers", dir: "context-configs"},
	KindFetchDefinition:   {factory: "fetchDefinition", dir: "context-configs"},
	KindCredential:        {factory: "credential", dir: "credentials"},
	KindDataComponent:     {factory: "dataComponent", dir: "data-components"},
	KindArtifactComponent: {factory: "artifactComponent", dir: "artifact-components"},
	KindStatusComponent:   {factory: "statusComponent", dir: "status-components"},
	KindTrigger:           {factory: "trigger", dir: "triggers"},
	KindSkill:             {dir: "skills"},
	KindPolicy:            {dir: "policies"},
}

// Valid reports whether k names a known entity kind.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Factory returns the builder factory name for k, or "" for kinds emitted
// as front-matter documents (skills, policies).
func (k Kind) Factory() string {
	return kinds[k].factory
}

// Dir returns the directory for k relative to the target root.
func (k Kind) Dir() string {
	return kinds[k].dir
}

// DefaultPath returns the canonical relative path for an entity of kind k
// with the given id. Headers schemas and fetch definitions co-locate with
// the context config that owns them; this is their fallback location when
// no owner exists.
func (k Kind) DefaultPath(id string) string {
	switch k {
	case KindSkill:
		return path.Join(kinds[k].dir, id, "SKILL.md")
	case KindPolicy:
		return path.Join(kinds[k].dir, id+".md")
	default:
		return path.Join(kinds[k].dir, id+".ts")
	}
}

// FactoryKinds maps every recognized factory call name back to its kind.
// Built once at init; the indexer consults it for each top-level call.
var FactoryKinds = func() map[string]Kind {
	m := make(map[string]Kind, len(kinds))
	for k, meta := range kinds {
		if meta.factory != "" {
			m[meta.factory] = k
		}
	}
	return m
}()
