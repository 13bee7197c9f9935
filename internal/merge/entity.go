package merge

import (
	"sort"

	"github.com/inkeep/agents-sync/internal/graph"
	"github.com/inkeep/agents-sync/internal/model"
)

// propsFor builds the managed property bag for one canonical entity, in
// canonical creation order. References that cannot be rendered, because the
// target is ambiguous or manually owned on disk, are dropped with a
// warning; references to ids absent from the canonical graph were already
// reported when the graph was built and are dropped silently here.
func (m *Merger) propsFor(e *graph.Entity) []prop {
	switch t := e.Value.(type) {
	case *model.Agent:
		return m.agentProps(e, t)
	case *model.SubAgent:
		return m.subAgentProps(e, t)
	case *model.Tool:
		return m.toolProps(e, t)
	case *model.ContextConfig:
		return m.contextConfigProps(e, t)
	case *model.HeadersSchema:
		return headersSchemaProps(t)
	case *model.FetchDefinition:
		return m.fetchDefinitionProps(e, t)
	case *model.Credential:
		return credentialProps(t)
	case *model.DataComponent:
		return dataComponentProps(t.ID, t.Name, t.Description, t.Props)
	case *model.ArtifactComponent:
		return dataComponentProps(t.ID, t.Name, t.Description, t.Props)
	case *model.StatusComponent:
		return statusComponentProps(t)
	case *model.Trigger:
		return m.triggerProps(e, t)
	}
	return nil
}

func (m *Merger) agentProps(e *graph.Entity, a *model.Agent) []prop {
	props := []prop{{key: "id", val: stringVal{a.ID}}}
	props = appendStr(props, "name", a.Name)
	props = appendStr(props, "description", a.Description)
	if v, ok := m.scalarRef(e, "defaultSubAgent", model.KindSubAgent, a.DefaultSubAgent); ok {
		props = append(props, prop{key: "defaultSubAgent", val: v})
	}
	if v, ok := m.refList(e, "subAgents", model.KindSubAgent, a.SubAgents, true); ok {
		props = append(props, prop{key: "subAgents", val: v})
	}
	if v, ok := m.scalarRef(e, "contextConfig", model.KindContextConfig, a.ContextConfig); ok {
		props = append(props, prop{key: "contextConfig", val: v})
	}
	if v, ok := m.refList(e, "triggers", model.KindTrigger, a.Triggers, true); ok {
		props = append(props, prop{key: "triggers", val: v})
	}
	if v := modelsVal(a.Models); v != nil {
		props = append(props, prop{key: "models", val: v})
	}
	if v := stopWhenVal(a.StopWhen); v != nil {
		props = append(props, prop{key: "stopWhen", val: v})
	}
	return props
}

func (m *Merger) subAgentProps(e *graph.Entity, sa *model.SubAgent) []prop {
	props := []prop{{key: "id", val: stringVal{sa.ID}}}
	props = appendStr(props, "name", sa.Name)
	props = appendStr(props, "description", sa.Description)
	props = append(props, prop{key: "prompt", val: stringVal{sa.Prompt}})
	if v, ok := m.refList(e, "canUse", model.KindTool, sa.CanUse, true); ok {
		props = append(props, prop{key: "canUse", val: v})
	}
	if v, ok := m.refList(e, "canDelegateTo", model.KindSubAgent, sa.CanDelegateTo, true); ok {
		props = append(props, prop{key: "canDelegateTo", val: v})
	}
	if v, ok := m.refList(e, "canTransferTo", model.KindSubAgent, sa.CanTransferTo, true); ok {
		props = append(props, prop{key: "canTransferTo", val: v})
	}
	if v, ok := m.refList(e, "dataComponents", model.KindDataComponent, sa.DataComponents, false); ok {
		props = append(props, prop{key: "dataComponents", val: v})
	}
	if v, ok := m.refList(e, "artifactComponents", model.KindArtifactComponent, sa.ArtifactComponents, false); ok {
		props = append(props, prop{key: "artifactComponents", val: v})
	}
	if v, ok := m.refList(e, "statusComponents", model.KindStatusComponent, sa.StatusComponents, false); ok {
		props = append(props, prop{key: "statusComponents", val: v})
	}
	if v := modelsVal(sa.Models); v != nil {
		props = append(props, prop{key: "models", val: v})
	}
	if v := stopWhenVal(sa.StopWhen); v != nil {
		props = append(props, prop{key: "stopWhen", val: v})
	}
	return props
}

func (m *Merger) toolProps(e *graph.Entity, t *model.Tool) []prop {
	props := []prop{{key: "id", val: stringVal{t.ID}}}
	props = appendStr(props, "name", t.Name)
	props = appendStr(props, "description", t.Description)
	props = append(props, prop{key: "serverUrl", val: stringVal{t.ServerURL}})
	props = appendStr(props, "transport", t.Transport)
	if len(t.ActiveTools) > 0 {
		props = append(props, prop{key: "activeTools", val: stringListVal{items: t.ActiveTools}})
	}
	if v := stringMapVal(t.Headers); v != nil {
		props = append(props, prop{key: "headers", val: v})
	}
	props = appendStr(props, "imageUrl", t.ImageURL)
	props = m.appendCredentialRef(props, e, t.CredentialReferenceID)
	return props
}

func (m *Merger) contextConfigProps(e *graph.Entity, cc *model.ContextConfig) []prop {
	props := []prop{{key: "id", val: stringVal{cc.ID}}}
	props = appendStr(props, "name", cc.Name)
	props = appendStr(props, "description", cc.Description)
	if v, ok := m.scalarRef(e, "headersSchema", model.KindHeadersSchema, cc.HeadersSchema); ok {
		props = append(props, prop{key: "headersSchema", val: v})
	}
	if len(cc.ContextVariables) > 0 {
		var vars []prop
		for _, k := range sortedKeys(cc.ContextVariables) {
			if v, ok := m.scalarRef(e, "contextVariables."+k, model.KindFetchDefinition, cc.ContextVariables[k]); ok {
				vars = append(vars, prop{key: k, val: v})
			}
		}
		if len(vars) > 0 {
			props = append(props, prop{key: "contextVariables", val: recordVal{props: vars}})
		}
	}
	return props
}

func headersSchemaProps(hs *model.HeadersSchema) []prop {
	return []prop{
		{key: "id", val: stringVal{hs.ID}},
		{key: "schema", val: zodVal{schema: hs.Schema}},
	}
}

func (m *Merger) fetchDefinitionProps(e *graph.Entity, fd *model.FetchDefinition) []prop {
	props := []prop{{key: "id", val: stringVal{fd.ID}}}
	props = appendStr(props, "name", fd.Name)
	props = appendStr(props, "trigger", fd.Trigger)
	if fd.FetchConfig != nil {
		cfg := fd.FetchConfig
		rec := []prop{{key: "url", val: m.templateOrString(e, "fetchConfig.url", cfg.URL)}}
		if cfg.Method != "" {
			rec = append(rec, prop{key: "method", val: stringVal{cfg.Method}})
		}
		if len(cfg.Headers) > 0 {
			var hdrs []prop
			for _, k := range sortedKeys(cfg.Headers) {
				hdrs = append(hdrs, prop{key: k, val: m.templateOrString(e, "fetchConfig.headers."+k, cfg.Headers[k])})
			}
			rec = append(rec, prop{key: "headers", val: recordVal{props: hdrs}})
		}
		if cfg.Body != "" {
			rec = append(rec, prop{key: "body", val: m.templateOrString(e, "fetchConfig.body", cfg.Body)})
		}
		if cfg.Timeout > 0 {
			rec = append(rec, prop{key: "timeout", val: numberVal{f: float64(cfg.Timeout)}})
		}
		props = append(props, prop{key: "fetchConfig", val: recordVal{props: rec}})
	}
	if len(fd.ResponseSchema) > 0 {
		props = append(props, prop{key: "responseSchema", val: zodVal{schema: fd.ResponseSchema}})
	}
	if fd.DefaultValue != nil {
		props = append(props, prop{key: "defaultValue", val: anyVal{v: fd.DefaultValue}})
	}
	props = m.appendCredentialRef(props, e, fd.CredentialReferenceID)
	return props
}

func credentialProps(c *model.Credential) []prop {
	props := []prop{
		{key: "id", val: stringVal{c.ID}},
		{key: "type", val: stringVal{c.Type}},
		{key: "credentialStoreId", val: stringVal{c.CredentialStoreID}},
	}
	if v := stringMapVal(c.RetrievalParams); v != nil {
		props = append(props, prop{key: "retrievalParams", val: v})
	}
	return props
}

func dataComponentProps(id, name, description string, schema model.Schema) []prop {
	props := []prop{{key: "id", val: stringVal{id}}}
	props = appendStr(props, "name", name)
	props = appendStr(props, "description", description)
	props = append(props, prop{key: "props", val: zodVal{schema: schema}})
	return props
}

func statusComponentProps(sc *model.StatusComponent) []prop {
	props := []prop{
		{key: "id", val: stringVal{sc.ID}},
		{key: "type", val: stringVal{sc.Type}},
	}
	props = appendStr(props, "description", sc.Description)
	if len(sc.DetailsSchema) > 0 {
		props = append(props, prop{key: "detailsSchema", val: zodVal{schema: sc.DetailsSchema}})
	}
	return props
}

func (m *Merger) triggerProps(e *graph.Entity, t *model.Trigger) []prop {
	props := []prop{{key: "id", val: stringVal{t.ID}}}
	props = appendStr(props, "name", t.Name)
	props = appendStr(props, "description", t.Description)
	props = appendStr(props, "method", t.Method)
	if t.URL != "" {
		props = append(props, prop{key: "url", val: m.templateOrString(e, "url", t.URL)})
	}
	if t.Body != "" {
		props = append(props, prop{key: "body", val: m.templateOrString(e, "body", t.Body)})
	}
	if len(t.InputSchema) > 0 {
		props = append(props, prop{key: "inputSchema", val: zodVal{schema: t.InputSchema}})
	}
	return props
}

// appendCredentialRef applies the credential rewrite: the scalar id field
// is removed and an object reference to the imported credential takes its
// place.
func (m *Merger) appendCredentialRef(props []prop, e *graph.Entity, id string) []prop {
	if id == "" {
		return props
	}
	v, ok := m.scalarRef(e, "credentialReference", model.KindCredential, id)
	if !ok {
		return props
	}
	props = append(props, prop{key: "credentialReferenceId"}) // removal
	props = append(props, prop{key: "credentialReference", val: v})
	return props
}

// scalarRef resolves a single-id reference field into a renderable value.
func (m *Merger) scalarRef(e *graph.Entity, field string, kind model.Kind, id string) (value, bool) {
	if id == "" {
		return nil, false
	}
	if _, ok := m.graph.Lookup(kind, id); !ok {
		return nil, false // reported as unresolved when the graph was built
	}
	if !m.canRef(kind, id) {
		m.warnf("%s %q: %s skipped, %s %q cannot be referenced", e.Kind, e.ID, field, kind, id)
		return nil, false
	}
	return refVal{kind: kind, id: id}, true
}

// refList resolves a reference-array field, dropping elements that cannot
// be rendered. A list with no renderable members is omitted entirely so an
// existing hand-written array is never emptied by a degraded run.
func (m *Merger) refList(e *graph.Entity, field string, kind model.Kind, ids []string, lazy bool) (refListVal, bool) {
	resolved := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := m.graph.Lookup(kind, id); !ok {
			continue
		}
		if !m.canRef(kind, id) {
			m.warnf("%s %q: element %q of %s skipped, %s cannot be referenced", e.Kind, e.ID, id, field, kind)
			continue
		}
		resolved = append(resolved, id)
	}
	if len(resolved) == 0 {
		return refListVal{}, false
	}
	return refListVal{kind: kind, ids: resolved, lazy: lazy}, true
}

// templateOrString picks the value shape for a field that may carry header
// placeholders.
func (m *Merger) templateOrString(e *graph.Entity, field, s string) value {
	if !hasPlaceholders(s) {
		return stringVal{s}
	}
	hs := m.graph.HeadersSchemaFor(e)
	if hs == nil || !m.canRef(model.KindHeadersSchema, hs.ID) {
		m.warnf("%s %q: %s has header placeholders but no reachable headers schema, kept as plain string", e.Kind, e.ID, field)
		return stringVal{s}
	}
	return templateVal{raw: s, hs: refVal{kind: model.KindHeadersSchema, id: hs.ID}}
}

func appendStr(props []prop, key, s string) []prop {
	if s == "" {
		return props
	}
	return append(props, prop{key: key, val: stringVal{s}})
}

func stringMapVal(mm map[string]string) value {
	if len(mm) == 0 {
		return nil
	}
	props := make([]prop, 0, len(mm))
	for _, k := range sortedKeys(mm) {
		props = append(props, prop{key: k, val: stringVal{mm[k]}})
	}
	return recordVal{props: props}
}

func modelsVal(am *model.AgentModels) value {
	if am == nil {
		return nil
	}
	var props []prop
	if v := modelSettingsVal(am.Base); v != nil {
		props = append(props, prop{key: "base", val: v})
	}
	if v := modelSettingsVal(am.StructuredOutput); v != nil {
		props = append(props, prop{key: "structuredOutput", val: v})
	}
	if v := modelSettingsVal(am.Summarizer); v != nil {
		props = append(props, prop{key: "summarizer", val: v})
	}
	if len(props) == 0 {
		return nil
	}
	return recordVal{props: props}
}

func modelSettingsVal(ms *model.ModelSettings) value {
	if ms == nil {
		return nil
	}
	var props []prop
	if ms.Model != "" {
		props = append(props, prop{key: "model", val: stringVal{ms.Model}})
	}
	if len(ms.ProviderOptions) > 0 {
		props = append(props, prop{key: "providerOptions", val: anyVal{v: ms.ProviderOptions}})
	}
	if len(props) == 0 {
		return nil
	}
	return recordVal{props: props}
}

func stopWhenVal(sw *model.StopWhen) value {
	if sw == nil {
		return nil
	}
	var props []prop
	if sw.TransferCountIs != nil {
		props = append(props, prop{key: "transferCountIs", val: numberVal{f: float64(*sw.TransferCountIs)}})
	}
	if sw.StepCountIs != nil {
		props = append(props, prop{key: "stepCountIs", val: numberVal{f: float64(*sw.StepCountIs)}})
	}
	if len(props) == 0 {
		return nil
	}
	return recordVal{props: props}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
