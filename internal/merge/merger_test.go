package merge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inkeep/agents-sync/internal/graph"
	"github.com/inkeep/agents-sync/internal/index"
	"github.com/inkeep/agents-sync/internal/model"
)

func runMerge(t *testing.T, p *model.Project, files map[string]string, mode Mode) *Summary {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, files)
	return runAt(t, p, root, mode)
}

func runAt(t *testing.T, p *model.Project, root string, mode Mode) *Summary {
	t.Helper()
	x, err := index.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	defer x.Close()

	res, err := New(graph.Build(p), x, mode).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
}

func fileContent(t *testing.T, res *Summary, rel string) string {
	t.Helper()
	for _, f := range res.Files {
		if f.Rel == rel {
			return string(f.Content)
		}
	}
	t.Fatalf("no output for %q, have %v", rel, outputPaths(res))
	return ""
}

func outputPaths(res *Summary) []string {
	paths := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		paths = append(paths, f.Rel)
	}
	return paths
}

func outcomeOf(t *testing.T, res *Summary, kind model.Kind, id string) Outcome {
	t.Helper()
	for _, e := range res.Entities {
		if e.Kind == kind && e.ID == id {
			return e.Outcome
		}
	}
	t.Fatalf("no result for %s %q", kind, id)
	return ""
}

func hasWarning(res *Summary, substr string) bool {
	for _, w := range res.Warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestRunCreatesProjectFiles(t *testing.T) {
	p := &model.Project{
		Tools: []*model.Tool{
			{ID: "search", Name: "Search", ServerURL: "https://mcp.example.com"},
		},
		SubAgents: []*model.SubAgent{
			{ID: "researcher", Name: "Researcher", Prompt: "Research things.", CanUse: []string{"search"}},
		},
		Agents: []*model.Agent{
			{ID: "support", Name: "Support", DefaultSubAgent: "researcher", SubAgents: []string{"researcher"}},
		},
	}

	res := runMerge(t, p, nil, ModeMerge)

	if got := res.Count(OutcomeCreated); got != 3 {
		t.Fatalf("created = %d, want 3", got)
	}
	if len(res.Files) != 3 {
		t.Fatalf("files = %v, want 3 entries", outputPaths(res))
	}

	want := `import { mcpTool } from '@inkeep/agents-sdk';

export const search = mcpTool({
  id: 'search',
  name: 'Search',
  serverUrl: 'https://mcp.example.com',
});
`
	if got := fileContent(t, res, "tools/search.ts"); got != want {
		t.Errorf("tools/search.ts = %q, want %q", got, want)
	}

	want = `import { subAgent } from '@inkeep/agents-sdk';
import { search } from '../../tools/search';

export const researcher = subAgent({
  id: 'researcher',
  name: 'Researcher',
  prompt: 'Research things.',
  canUse: () => [search],
});
`
	if got := fileContent(t, res, "agents/sub-agents/researcher.ts"); got != want {
		t.Errorf("researcher.ts = %q, want %q", got, want)
	}

	want = `import { agent } from '@inkeep/agents-sdk';
import { researcher } from './sub-agents/researcher';

export const support = agent({
  id: 'support',
  name: 'Support',
  defaultSubAgent: researcher,
  subAgents: () => [researcher],
});
`
	if got := fileContent(t, res, "agents/support.ts"); got != want {
		t.Errorf("support.ts = %q, want %q", got, want)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	p := &model.Project{
		Credentials: []*model.Credential{
			{ID: "api-key", Type: "memory", CredentialStoreID: "memory-default"},
		},
		Tools: []*model.Tool{
			{ID: "search", Name: "Search", ServerURL: "https://mcp.example.com", CredentialReferenceID: "api-key"},
		},
		HeadersSchemas: []*model.HeadersSchema{
			{ID: "hs", Schema: model.Schema{
				"type":       "object",
				"properties": map[string]any{"tenant": map[string]any{"type": "string"}},
				"required":   []any{"tenant"},
			}},
		},
		FetchDefinitions: []*model.FetchDefinition{
			{ID: "user", FetchConfig: &model.FetchConfig{URL: "https://x.e/{{headers.tenant}}"}},
		},
		ContextConfigs: []*model.ContextConfig{
			{ID: "ctx", HeadersSchema: "hs", ContextVariables: map[string]string{"user": "user"}},
		},
		DataComponents: []*model.DataComponent{
			{ID: "card", Name: "Card", Props: model.Schema{
				"type":       "object",
				"properties": map[string]any{"title": map[string]any{"type": "string"}},
				"required":   []any{"title"},
			}},
		},
		Triggers: []*model.Trigger{
			{ID: "notify", Method: "POST", URL: "https://x.e/{{headers.tenant}}"},
		},
		SubAgents: []*model.SubAgent{
			{ID: "researcher", Prompt: "Research things.", CanUse: []string{"search"}},
		},
		Agents: []*model.Agent{
			{ID: "support", Name: "Support", DefaultSubAgent: "researcher",
				SubAgents: []string{"researcher"}, ContextConfig: "ctx", Triggers: []string{"notify"}},
		},
		Skills: []*model.Skill{
			{ID: "writing", Name: "Writing", Description: "Writing guidance.", Content: "# Writing\n\nBe clear.\n"},
		},
	}

	root := t.TempDir()
	first := runAt(t, p, root, ModeMerge)

	if got := first.Count(OutcomeCreated); got != 10 {
		t.Fatalf("first run created = %d, want 10", got)
	}
	for _, f := range first.Files {
		path := filepath.Join(root, filepath.FromSlash(f.Rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(path, f.Content, 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	second := runAt(t, p, root, ModeMerge)

	if len(second.Files) != 0 {
		t.Fatalf("second run rewrote %v, want none", outputPaths(second))
	}
	if len(second.Warnings) != 0 {
		t.Errorf("second run warnings = %v, want none", second.Warnings)
	}
	if len(second.Orphaned) != 0 {
		t.Errorf("second run orphans = %v, want none", second.Orphaned)
	}
	for _, e := range second.Entities {
		if e.Outcome != OutcomeUnchanged {
			t.Errorf("%s %q = %s, want %s", e.Kind, e.ID, e.Outcome, OutcomeUnchanged)
		}
	}
}

func TestMergePatchesManagedFields(t *testing.T) {
	files := map[string]string{
		"agents/support.ts": `import { agent } from '@inkeep/agents-sdk';

// the main support agent
export const support = agent({
  id: 'support',
  name: 'Old Name',
  // human note on models
  temperature: 0.2,
});
`,
	}
	p := &model.Project{
		Agents: []*model.Agent{
			{ID: "support", Name: "Support Agent", Description: "Handles support."},
		},
	}

	res := runMerge(t, p, files, ModeMerge)

	if got := outcomeOf(t, res, model.KindAgent, "support"); got != OutcomeUpdated {
		t.Fatalf("outcome = %s, want %s", got, OutcomeUpdated)
	}

	want := `import { agent } from '@inkeep/agents-sdk';

// the main support agent
export const support = agent({
  id: 'support',
  name: 'Support Agent',
  // human note on models
  temperature: 0.2,
  description: 'Handles support.',
});
`
	if got := fileContent(t, res, "agents/support.ts"); got != want {
		t.Errorf("support.ts = %q, want %q", got, want)
	}
}

func TestMergeLeavesMatchingFileUntouched(t *testing.T) {
	files := map[string]string{
		"agents/support.ts": `import { agent } from '@inkeep/agents-sdk';

export const support = agent({
  id: 'support',
  name: 'Support',
});
`,
	}
	p := &model.Project{
		Agents: []*model.Agent{{ID: "support", Name: "Support"}},
	}

	res := runMerge(t, p, files, ModeMerge)

	if len(res.Files) != 0 {
		t.Fatalf("files = %v, want none", outputPaths(res))
	}
	if got := outcomeOf(t, res, model.KindAgent, "support"); got != OutcomeUnchanged {
		t.Errorf("outcome = %s, want %s", got, OutcomeUnchanged)
	}
}

func TestTriggersAppendedToExistingAgent(t *testing.T) {
	files := map[string]string{
		"agents/support.ts": `import { agent } from '@inkeep/agents-sdk';

export const support = agent({
  id: 'support',
  name: 'Support',
});
`,
	}
	p := &model.Project{
		Triggers: []*model.Trigger{
			{ID: "notify", Method: "POST", URL: "https://hooks.example.com/notify"},
		},
		Agents: []*model.Agent{
			{ID: "support", Name: "Support", Triggers: []string{"notify"}},
		},
	}

	res := runMerge(t, p, files, ModeMerge)

	if got := outcomeOf(t, res, model.KindTrigger, "notify"); got != OutcomeCreated {
		t.Errorf("notify = %s, want %s", got, OutcomeCreated)
	}
	if got := outcomeOf(t, res, model.KindAgent, "support"); got != OutcomeUpdated {
		t.Errorf("support = %s, want %s", got, OutcomeUpdated)
	}

	want := `import { agent } from '@inkeep/agents-sdk';
import { notify } from '../triggers/notify';

export const support = agent({
  id: 'support',
  name: 'Support',
  triggers: () => [notify],
});
`
	if got := fileContent(t, res, "agents/support.ts"); got != want {
		t.Errorf("support.ts = %q, want %q", got, want)
	}
}

func TestCustomIdentifierPersists(t *testing.T) {
	files := map[string]string{
		"tools/search.ts": `import { mcpTool } from '@inkeep/agents-sdk';

export const webSearch = mcpTool({
  id: 'search',
  serverUrl: 'https://mcp.example.com',
});
`,
	}
	p := &model.Project{
		Tools: []*model.Tool{
			{ID: "search", Name: "Search", ServerURL: "https://mcp.example.com"},
		},
		SubAgents: []*model.SubAgent{
			{ID: "researcher", Prompt: "Research things.", CanUse: []string{"search"}},
		},
	}

	res := runMerge(t, p, files, ModeMerge)

	want := `import { mcpTool } from '@inkeep/agents-sdk';

export const webSearch = mcpTool({
  id: 'search',
  serverUrl: 'https://mcp.example.com',
  name: 'Search',
});
`
	if got := fileContent(t, res, "tools/search.ts"); got != want {
		t.Errorf("search.ts = %q, want %q", got, want)
	}

	want = `import { subAgent } from '@inkeep/agents-sdk';
import { webSearch } from '../../tools/search';

export const researcher = subAgent({
  id: 'researcher',
  prompt: 'Research things.',
  canUse: () => [webSearch],
});
`
	if got := fileContent(t, res, "agents/sub-agents/researcher.ts"); got != want {
		t.Errorf("researcher.ts = %q, want %q", got, want)
	}
}

func TestRefListMembershipDiff(t *testing.T) {
	files := map[string]string{
		"tools/alpha.ts": `import { mcpTool } from '@inkeep/agents-sdk';

export const alpha = mcpTool({
  id: 'alpha',
  serverUrl: 'https://a.example.com',
});
`,
		"tools/beta.ts": `import { mcpTool } from '@inkeep/agents-sdk';

export const beta = mcpTool({
  id: 'beta',
  serverUrl: 'https://b.example.com',
});
`,
		"agents/sub-agents/worker.ts": `import { subAgent } from '@inkeep/agents-sdk';
import { alpha } from '../../tools/alpha';
import { beta } from '../../tools/beta';

export const worker = subAgent({
  id: 'worker',
  prompt: 'Work.',
  canUse: () => [
    alpha,
    beta,
  ],
});
`,
	}
	p := &model.Project{
		Tools: []*model.Tool{
			{ID: "alpha", ServerURL: "https://a.example.com"},
			{ID: "gamma", ServerURL: "https://g.example.com"},
		},
		SubAgents: []*model.SubAgent{
			{ID: "worker", Prompt: "Work.", CanUse: []string{"alpha", "gamma"}},
		},
	}

	res := runMerge(t, p, files, ModeMerge)

	if got := outcomeOf(t, res, model.KindTool, "gamma"); got != OutcomeCreated {
		t.Errorf("gamma = %s, want %s", got, OutcomeCreated)
	}
	if got := outcomeOf(t, res, model.KindSubAgent, "worker"); got != OutcomeUpdated {
		t.Errorf("worker = %s, want %s", got, OutcomeUpdated)
	}
	for _, f := range res.Files {
		if f.Rel == "tools/alpha.ts" || f.Rel == "tools/beta.ts" {
			t.Errorf("unexpected rewrite of %s", f.Rel)
		}
	}
	if len(res.Orphaned) != 1 {
		t.Fatalf("orphaned = %d, want 1", len(res.Orphaned))
	}
	if o := res.Orphaned[0]; o.Kind != model.KindTool || o.ID != "beta" || o.File != "tools/beta.ts" {
		t.Errorf("orphan = %s %q in %s, want tool \"beta\" in tools/beta.ts", o.Kind, o.ID, o.File)
	}

	want := `import { subAgent } from '@inkeep/agents-sdk';
import { alpha } from '../../tools/alpha';
import { beta } from '../../tools/beta';
import { gamma } from '../../tools/gamma';

export const worker = subAgent({
  id: 'worker',
  prompt: 'Work.',
  canUse: () => [
    alpha,
    gamma,
  ],
});
`
	if got := fileContent(t, res, "agents/sub-agents/worker.ts"); got != want {
		t.Errorf("worker.ts = %q, want %q", got, want)
	}

	want = `import { mcpTool } from '@inkeep/agents-sdk';

export const gamma = mcpTool({
  id: 'gamma',
  serverUrl: 'https://g.example.com',
});
`
	if got := fileContent(t, res, "tools/gamma.ts"); got != want {
		t.Errorf("gamma.ts = %q, want %q", got, want)
	}
}

func TestRefListKeepsEqualSetUntouched(t *testing.T) {
	files := map[string]string{
		"tools/alpha.ts": `import { mcpTool } from '@inkeep/agents-sdk';

export const alpha = mcpTool({
  id: 'alpha',
  serverUrl: 'https://a.example.com',
});
`,
		"tools/beta.ts": `import { mcpTool } from '@inkeep/agents-sdk';

export const beta = mcpTool({
  id: 'beta',
  serverUrl: 'https://b.example.com',
});
`,
		"agents/sub-agents/worker.ts": `import { subAgent } from '@inkeep/agents-sdk';
import { alpha } from '../../tools/alpha';
import { beta } from '../../tools/beta';

export const worker = subAgent({
  id: 'worker',
  prompt: 'Work.',
  canUse: () => [beta, alpha],
});
`,
	}
	p := &model.Project{
		Tools: []*model.Tool{
			{ID: "alpha", ServerURL: "https://a.example.com"},
			{ID: "beta", ServerURL: "https://b.example.com"},
		},
		SubAgents: []*model.SubAgent{
			{ID: "worker", Prompt: "Work.", CanUse: []string{"alpha", "beta"}},
		},
	}

	res := runMerge(t, p, files, ModeMerge)

	if len(res.Files) != 0 {
		t.Fatalf("files = %v, want none", outputPaths(res))
	}
	if got := outcomeOf(t, res, model.KindSubAgent, "worker"); got != OutcomeUnchanged {
		t.Errorf("worker = %s, want %s", got, OutcomeUnchanged)
	}
}

func TestCredentialReferenceRewrite(t *testing.T) {
	files := map[string]string{
		"tools/search.ts": `import { mcpTool } from '@inkeep/agents-sdk';

export const search = mcpTool({
  id: 'search',
  serverUrl: 'https://mcp.example.com',
  credentialReferenceId: 'api-key',
});
`,
	}
	p := &model.Project{
		Credentials: []*model.Credential{
			{ID: "api-key", Type: "memory", CredentialStoreID: "memory-default"},
		},
		Tools: []*model.Tool{
			{ID: "search", ServerURL: "https://mcp.example.com", CredentialReferenceID: "api-key"},
		},
	}

	res := runMerge(t, p, files, ModeMerge)

	if got := outcomeOf(t, res, model.KindTool, "search"); got != OutcomeUpdated {
		t.Errorf("search = %s, want %s", got, OutcomeUpdated)
	}
	if got := outcomeOf(t, res, model.KindCredential, "api-key"); got != OutcomeCreated {
		t.Errorf("api-key = %s, want %s", got, OutcomeCreated)
	}

	want := `import { mcpTool } from '@inkeep/agents-sdk';
import { apiKey } from '../credentials/api-key';

export const search = mcpTool({
  id: 'search',
  serverUrl: 'https://mcp.example.com',
  credentialReference: apiKey,
});
`
	if got := fileContent(t, res, "tools/search.ts"); got != want {
		t.Errorf("search.ts = %q, want %q", got, want)
	}

	want = `import { credential } from '@inkeep/agents-sdk';

export const apiKey = credential({
  id: 'api-key',
  type: 'memory',
  credentialStoreId: 'memory-default',
});
`
	if got := fileContent(t, res, "credentials/api-key.ts"); got != want {
		t.Errorf("api-key.ts = %q, want %q", got, want)
	}
}

func TestHeaderPlaceholderTemplates(t *testing.T) {
	p := &model.Project{
		HeadersSchemas: []*model.HeadersSchema{
			{ID: "hs", Schema: model.Schema{
				"type":       "object",
				"properties": map[string]any{"tenant": map[string]any{"type": "string"}},
				"required":   []any{"tenant"},
			}},
		},
		FetchDefinitions: []*model.FetchDefinition{
			{ID: "user", FetchConfig: &model.FetchConfig{URL: "https://x.e/{{headers.tenant}}"}},
		},
		ContextConfigs: []*model.ContextConfig{
			{ID: "ctx", HeadersSchema: "hs", ContextVariables: map[string]string{"user": "user"}},
		},
		Triggers: []*model.Trigger{
			{ID: "notify", Method: "POST", URL: "https://x.e/{{headers.tenant}}"},
		},
		Agents: []*model.Agent{
			{ID: "support", ContextConfig: "ctx", Triggers: []string{"notify"}},
		},
	}

	res := runMerge(t, p, nil, ModeMerge)

	if got := res.Count(OutcomeCreated); got != 5 {
		t.Fatalf("created = %d, want 5", got)
	}

	want := `import { headers, fetchDefinition, contextConfig } from '@inkeep/agents-sdk';
import { z } from 'zod';

export const hs = headers({
  id: 'hs',
  schema: z.object({ tenant: z.string() }),
});

export const user = fetchDefinition({
  id: 'user',
  fetchConfig: { url: ` + "`https://x.e/${hs.toTemplate('tenant')}`" + ` },
});

export const ctx = contextConfig({
  id: 'ctx',
  headersSchema: hs,
  contextVariables: { user: user },
});
`
	if got := fileContent(t, res, "context-configs/ctx.ts"); got != want {
		t.Errorf("ctx.ts = %q, want %q", got, want)
	}

	want = `import { trigger } from '@inkeep/agents-sdk';
import { hs } from '../context-configs/ctx';

export const notify = trigger({
  id: 'notify',
  method: 'POST',
  url: ` + "`https://x.e/${hs.toTemplate('tenant')}`" + `,
});
`
	if got := fileContent(t, res, "triggers/notify.ts"); got != want {
		t.Errorf("notify.ts = %q, want %q", got, want)
	}
}

func TestSkippedManualDeclaration(t *testing.T) {
	files := map[string]string{
		"agents/support.ts": `import { agent } from '@inkeep/agents-sdk';

const supportId = 'support';
export const support = agent({
  id: supportId,
});
`,
	}
	p := &model.Project{
		Agents: []*model.Agent{{ID: "support", Name: "Support"}},
	}

	res := runMerge(t, p, files, ModeMerge)

	if got := outcomeOf(t, res, model.KindAgent, "support"); got != OutcomeSkippedManual {
		t.Errorf("outcome = %s, want %s", got, OutcomeSkippedManual)
	}
	if len(res.Files) != 0 {
		t.Errorf("files = %v, want none", outputPaths(res))
	}
	if !hasWarning(res, "non-literal id") {
		t.Errorf("warnings = %v, want a non-literal id note", res.Warnings)
	}
}

func TestAmbiguousIdFails(t *testing.T) {
	files := map[string]string{
		"agents/one.ts": `export const one = agent({
  id: 'dup',
});
`,
		"agents/two.ts": `export const two = agent({
  id: 'dup',
});
`,
	}
	p := &model.Project{
		Agents: []*model.Agent{{ID: "dup", Name: "Duplicated"}},
	}

	res := runMerge(t, p, files, ModeMerge)

	if got := outcomeOf(t, res, model.KindAgent, "dup"); got != OutcomeFailed {
		t.Fatalf("outcome = %s, want %s", got, OutcomeFailed)
	}
	if len(res.Files) != 0 {
		t.Errorf("files = %v, want none", outputPaths(res))
	}

	for _, e := range res.Entities {
		if e.Kind == model.KindAgent && e.ID == "dup" {
			if e.Err == nil || !strings.Contains(e.Err.Error(), "multiple files") {
				t.Errorf("err = %v, want multiple-files detail", e.Err)
			}
		}
	}
}

func TestUnresolvedReferenceDropped(t *testing.T) {
	p := &model.Project{
		Agents: []*model.Agent{{ID: "support", DefaultSubAgent: "ghost"}},
	}

	res := runMerge(t, p, nil, ModeMerge)

	warning := `agent "support": defaultSubAgent references unknown sub-agent "ghost"`
	if !hasWarning(res, warning) {
		t.Errorf("warnings = %v, want %q", res.Warnings, warning)
	}

	want := `import { agent } from '@inkeep/agents-sdk';

export const support = agent({
  id: 'support',
});
`
	if got := fileContent(t, res, "agents/support.ts"); got != want {
		t.Errorf("support.ts = %q, want %q", got, want)
	}
}

func TestOverwriteReplacesObject(t *testing.T) {
	files := map[string]string{
		"agents/support.ts": `import { agent } from '@inkeep/agents-sdk';

// keep me
export const support = agent({
  id: 'support',
  custom: 1,
});
`,
	}
	p := &model.Project{
		Agents: []*model.Agent{{ID: "support", Name: "Support"}},
	}

	res := runMerge(t, p, files, ModeOverwrite)

	if got := outcomeOf(t, res, model.KindAgent, "support"); got != OutcomeUpdated {
		t.Fatalf("outcome = %s, want %s", got, OutcomeUpdated)
	}

	want := `import { agent } from '@inkeep/agents-sdk';

// keep me
export const support = agent({
  id: 'support',
  name: 'Support',
});
`
	if got := fileContent(t, res, "agents/support.ts"); got != want {
		t.Errorf("support.ts = %q, want %q", got, want)
	}
}

func TestExportAddedWhenReferenced(t *testing.T) {
	files := map[string]string{
		"tools/search.ts": `import { mcpTool } from '@inkeep/agents-sdk';

const search = mcpTool({
  id: 'search',
  serverUrl: 'https://mcp.example.com',
});
`,
	}
	p := &model.Project{
		Tools: []*model.Tool{{ID: "search", ServerURL: "https://mcp.example.com"}},
		SubAgents: []*model.SubAgent{
			{ID: "worker", Prompt: "Work.", CanUse: []string{"search"}},
		},
	}

	res := runMerge(t, p, files, ModeMerge)

	if got := outcomeOf(t, res, model.KindTool, "search"); got != OutcomeUpdated {
		t.Errorf("search = %s, want %s", got, OutcomeUpdated)
	}

	want := `import { mcpTool } from '@inkeep/agents-sdk';

export const search = mcpTool({
  id: 'search',
  serverUrl: 'https://mcp.example.com',
});
`
	if got := fileContent(t, res, "tools/search.ts"); got != want {
		t.Errorf("search.ts = %q, want %q", got, want)
	}

	want = `import { subAgent } from '@inkeep/agents-sdk';
import { search } from '../../tools/search';

export const worker = subAgent({
  id: 'worker',
  prompt: 'Work.',
  canUse: () => [search],
});
`
	if got := fileContent(t, res, "agents/sub-agents/worker.ts"); got != want {
		t.Errorf("worker.ts = %q, want %q", got, want)
	}
}

func TestParseErrorFailsEntity(t *testing.T) {
	files := map[string]string{
		"agents/support.ts": "export const support = agent({\n",
	}
	p := &model.Project{
		Agents: []*model.Agent{{ID: "support", Name: "Support"}},
	}

	res := runMerge(t, p, files, ModeMerge)

	if got := outcomeOf(t, res, model.KindAgent, "support"); got != OutcomeFailed {
		t.Errorf("outcome = %s, want %s", got, OutcomeFailed)
	}
	if len(res.Files) != 0 {
		t.Errorf("files = %v, want none", outputPaths(res))
	}
	if !hasWarning(res, "not valid TypeScript") {
		t.Errorf("warnings = %v, want a parse error note", res.Warnings)
	}
}

func TestSkillAndPolicyDocuments(t *testing.T) {
	files := map[string]string{
		"policies/style.md": `---
name: Old Style
owner: docs-team
---
Always use active voice.
`,
	}
	p := &model.Project{
		Skills: []*model.Skill{
			{ID: "writing", Name: "Writing", Description: "Writing guidance.", Content: "# Writing\n\nBe clear.\n"},
		},
		Policies: []*model.Policy{
			{ID: "style", Name: "Style", Content: "New canonical body.\n"},
		},
	}

	res := runMerge(t, p, files, ModeMerge)

	if got := outcomeOf(t, res, model.KindSkill, "writing"); got != OutcomeCreated {
		t.Errorf("writing = %s, want %s", got, OutcomeCreated)
	}
	if got := outcomeOf(t, res, model.KindPolicy, "style"); got != OutcomeUpdated {
		t.Errorf("style = %s, want %s", got, OutcomeUpdated)
	}

	want := `---
name: Writing
description: Writing guidance.
---

# Writing

Be clear.
`
	if got := fileContent(t, res, "skills/writing/SKILL.md"); got != want {
		t.Errorf("SKILL.md = %q, want %q", got, want)
	}

	want = `---
name: Style
owner: docs-team
---
Always use active voice.
`
	if got := fileContent(t, res, "policies/style.md"); got != want {
		t.Errorf("style.md = %q, want %q", got, want)
	}
}
