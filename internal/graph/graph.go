package graph

import (
	"fmt"

	"github.com/inkeep/agents-sync/internal/model"
)

// Entity is one canonical entity with its assigned target location.
type Entity struct {
	Kind  model.Kind
	ID    string
	Value any // *model.Agent, *model.Tool, ...

	// Path is the file the entity's declaration belongs in, relative to the
	// target root. Owned headers schemas and fetch definitions share their
	// owner's file.
	Path string

	// Owner is the context config a headers schema or fetch definition is
	// declared under, or the agent a trigger belongs to. Nil otherwise.
	Owner *Entity
}

// Failure is an entity excluded from merging at graph-build time.
type Failure struct {
	Kind model.Kind
	ID   string
	Err  error
}

// Graph is the closed reference graph for one run.
type Graph struct {
	Project *model.Project

	byKind  map[model.Kind]map[string]*Entity
	ordered []*Entity

	// Unresolved lists reference ids absent from the canonical graph. The
	// merger omits these elements and reports each once.
	Unresolved []*UnresolvedReferenceError

	// Failed lists entities rejected for duplicate ids or colliding target
	// paths.
	Failed []*Failure
}

// Build registers, associates and validates the project's entities. It
// always returns a usable graph; problems are carried on it.
func Build(p *model.Project) *Graph {
	g := &Graph{
		Project: p,
		byKind:  make(map[model.Kind]map[string]*Entity),
	}

	for _, a := range p.Credentials {
		g.register(model.KindCredential, a.ID, a)
	}
	for _, a := range p.Tools {
		g.register(model.KindTool, a.ID, a)
	}
	for _, a := range p.HeadersSchemas {
		g.register(model.KindHeadersSchema, a.ID, a)
	}
	for _, a := range p.FetchDefinitions {
		g.register(model.KindFetchDefinition, a.ID, a)
	}
	for _, a := range p.ContextConfigs {
		g.register(model.KindContextConfig, a.ID, a)
	}
	for _, a := range p.DataComponents {
		g.register(model.KindDataComponent, a.ID, a)
	}
	for _, a := range p.ArtifactComponents {
		g.register(model.KindArtifactComponent, a.ID, a)
	}
	for _, a := range p.StatusComponents {
		g.register(model.KindStatusComponent, a.ID, a)
	}
	for _, a := range p.Triggers {
		g.register(model.KindTrigger, a.ID, a)
	}
	for _, a := range p.SubAgents {
		g.register(model.KindSubAgent, a.ID, a)
	}
	for _, a := range p.Agents {
		g.register(model.KindAgent, a.ID, a)
	}
	for _, a := range p.Skills {
		g.register(model.KindSkill, a.ID, a)
	}
	for _, a := range p.Policies {
		g.register(model.KindPolicy, a.ID, a)
	}

	g.associateOwners()
	g.assignPaths()
	g.checkReferences()
	return g
}

func (g *Graph) register(kind model.Kind, id string, value any) {
	byID := g.byKind[kind]
	if byID == nil {
		byID = make(map[string]*Entity)
		g.byKind[kind] = byID
	}
	if _, dup := byID[id]; dup {
		g.Failed = append(g.Failed, &Failure{
			Kind: kind,
			ID:   id,
			Err:  fmt.Errorf("duplicate %s id %q in canonical project", kind, id),
		})
		return
	}
	e := &Entity{Kind: kind, ID: id, Value: value}
	byID[id] = e
	g.ordered = append(g.ordered, e)
}

// associateOwners links headers schemas and fetch definitions to the context
// config that declares them, and triggers to their agent. First claimant
// wins; the project slices give a stable order.
func (g *Graph) associateOwners() {
	for _, cc := range g.Project.ContextConfigs {
		owner, ok := g.Lookup(model.KindContextConfig, cc.ID)
		if !ok {
			continue
		}
		if cc.HeadersSchema != "" {
			if hs, ok := g.Lookup(model.KindHeadersSchema, cc.HeadersSchema); ok && hs.Owner == nil {
				hs.Owner = owner
			}
		}
		for _, fetchID := range sortedValues(cc.ContextVariables) {
			if fd, ok := g.Lookup(model.KindFetchDefinition, fetchID); ok && fd.Owner == nil {
				fd.Owner = owner
			}
		}
	}

	for _, agent := range g.Project.Agents {
		owner, ok := g.Lookup(model.KindAgent, agent.ID)
		if !ok {
			continue
		}
		for _, triggerID := range agent.Triggers {
			if tr, ok := g.Lookup(model.KindTrigger, triggerID); ok && tr.Owner == nil {
				tr.Owner = owner
			}
		}
	}
}

// assignPaths gives every entity its target file and rejects entities whose
// path is already claimed by a different file-owning entity.
func (g *Graph) assignPaths() {
	claimed := make(map[string]*Entity)

	for _, e := range g.ordered {
		guest := false
		switch e.Kind {
		case model.KindHeadersSchema, model.KindFetchDefinition:
			if e.Owner != nil {
				e.Path = e.Owner.Kind.DefaultPath(e.Owner.ID)
				guest = true
			}
		}
		if !guest {
			e.Path = e.Kind.DefaultPath(e.ID)
		}

		if guest {
			continue
		}
		if prior, taken := claimed[e.Path]; taken {
			g.drop(e, fmt.Errorf("%s %q and %s %q both resolve to %s", prior.Kind, prior.ID, e.Kind, e.ID, e.Path))
			continue
		}
		claimed[e.Path] = e
	}
}

// drop removes an entity from the graph and records the failure.
func (g *Graph) drop(e *Entity, err error) {
	g.Failed = append(g.Failed, &Failure{Kind: e.Kind, ID: e.ID, Err: err})
	delete(g.byKind[e.Kind], e.ID)
	for i, other := range g.ordered {
		if other == e {
			g.ordered = append(g.ordered[:i], g.ordered[i+1:]...)
			break
		}
	}
}

// Lookup finds a registered entity.
func (g *Graph) Lookup(kind model.Kind, id string) (*Entity, bool) {
	e, ok := g.byKind[kind][id]
	return e, ok
}

// Entities returns all registered entities in merge order: referenced kinds
// before referencing kinds, input order within a kind.
func (g *Graph) Entities() []*Entity {
	out := make([]*Entity, 0, len(g.ordered))
	for _, kind := range model.MergeOrder {
		for _, e := range g.ordered {
			if e.Kind == kind {
				out = append(out, e)
			}
		}
	}
	return out
}

// HeadersSchemaFor resolves the headers schema governing placeholder fields
// of e. Fetch definitions reach it through their owning context config;
// triggers through their agent's context config. Nil when the chain breaks.
func (g *Graph) HeadersSchemaFor(e *Entity) *Entity {
	var cc *Entity
	switch e.Kind {
	case model.KindFetchDefinition:
		cc = e.Owner
	case model.KindTrigger:
		if e.Owner == nil {
			return nil
		}
		agent, ok := e.Owner.Value.(*model.Agent)
		if !ok || agent.ContextConfig == "" {
			return nil
		}
		cc, _ = g.Lookup(model.KindContextConfig, agent.ContextConfig)
	default:
		return nil
	}
	if cc == nil {
		return nil
	}
	config, ok := cc.Value.(*model.ContextConfig)
	if !ok || config.HeadersSchema == "" {
		return nil
	}
	hs, _ := g.Lookup(model.KindHeadersSchema, config.HeadersSchema)
	return hs
}
