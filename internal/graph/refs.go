package graph

import (
	"fmt"
	"sort"

	"github.com/inkeep/agents-sync/internal/model"
)

// UnresolvedReferenceError reports a reference id absent from the canonical
// graph. The offending element is omitted; the rest of the entity still
// merges.
type UnresolvedReferenceError struct {
	Kind       model.Kind // referencing entity
	ID         string
	Field      string
	TargetKind model.Kind
	TargetID   string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s %q: %s references unknown %s %q", e.Kind, e.ID, e.Field, e.TargetKind, e.TargetID)
}

// checkReferences walks every outbound reference field of every registered
// entity and records the ids that do not resolve.
func (g *Graph) checkReferences() {
	for _, e := range g.ordered {
		switch v := e.Value.(type) {
		case *model.Agent:
			g.checkOne(e, "defaultSubAgent", model.KindSubAgent, v.DefaultSubAgent)
			g.checkList(e, "subAgents", model.KindSubAgent, v.SubAgents)
			g.checkOne(e, "contextConfig", model.KindContextConfig, v.ContextConfig)
			g.checkList(e, "triggers", model.KindTrigger, v.Triggers)
		case *model.SubAgent:
			g.checkList(e, "canUse", model.KindTool, v.CanUse)
			g.checkList(e, "canDelegateTo", model.KindSubAgent, v.CanDelegateTo)
			g.checkList(e, "canTransferTo", model.KindSubAgent, v.CanTransferTo)
			g.checkList(e, "dataComponents", model.KindDataComponent, v.DataComponents)
			g.checkList(e, "artifactComponents", model.KindArtifactComponent, v.ArtifactComponents)
			g.checkList(e, "statusComponents", model.KindStatusComponent, v.StatusComponents)
		case *model.Tool:
			g.checkOne(e, "credentialReferenceId", model.KindCredential, v.CredentialReferenceID)
		case *model.ContextConfig:
			g.checkOne(e, "headersSchema", model.KindHeadersSchema, v.HeadersSchema)
			for _, key := range sortedKeys(v.ContextVariables) {
				g.checkOne(e, "contextVariables."+key, model.KindFetchDefinition, v.ContextVariables[key])
			}
		case *model.FetchDefinition:
			g.checkOne(e, "credentialReferenceId", model.KindCredential, v.CredentialReferenceID)
		}
	}
}

func (g *Graph) checkOne(e *Entity, field string, target model.Kind, id string) {
	if id == "" {
		return
	}
	if _, ok := g.Lookup(target, id); !ok {
		g.Unresolved = append(g.Unresolved, &UnresolvedReferenceError{
			Kind:       e.Kind,
			ID:         e.ID,
			Field:      field,
			TargetKind: target,
			TargetID:   id,
		})
	}
}

func (g *Graph) checkList(e *Entity, field string, target model.Kind, ids []string) {
	for _, id := range ids {
		g.checkOne(e, field, target, id)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedValues(m map[string]string) []string {
	values := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		values = append(values, m[k])
	}
	return values
}
