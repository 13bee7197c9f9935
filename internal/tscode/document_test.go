package tscode

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func parseSource(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Parse(context.Background(), "test.ts", []byte(src))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	t.Cleanup(doc.Close)
	return doc
}

func TestParse_InvalidSource(t *testing.T) {
	_, err := Parse(context.Background(), "broken.ts", []byte("const x = {{{"))
	if err == nil {
		t.Fatal("expected ParseError, got nil")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if perr.Path != "broken.ts" {
		t.Errorf("Path = %q, want %q", perr.Path, "broken.ts")
	}
}

func TestParse_ValidSource(t *testing.T) {
	doc := parseSource(t, "export const a = agent({ id: 'a', name: 'A' });\n")
	if doc.Root().Type() != "program" {
		t.Errorf("root type = %q, want program", doc.Root().Type())
	}
}

func TestDeclarations_FactoryCall(t *testing.T) {
	src := `import { agent } from '@inkeep/agents-sdk';

export const supportRouter = agent({
  id: 'support-router',
  name: 'Support Router',
});

const helper = 42;

const manual = agent(makeConfig());
`
	doc := parseSource(t, src)
	decls := doc.Declarations()
	if len(decls) != 3 {
		t.Fatalf("Declarations len = %d, want 3", len(decls))
	}

	first := decls[0]
	if first.Name != "supportRouter" {
		t.Errorf("Name = %q, want %q", first.Name, "supportRouter")
	}
	if !first.Exported {
		t.Error("Exported = false, want true")
	}
	if first.Callee != "agent" {
		t.Errorf("Callee = %q, want %q", first.Callee, "agent")
	}
	if first.Arg == nil {
		t.Fatal("Arg is nil, expected object literal")
	}
	if first.Arg.Type() != "object" {
		t.Errorf("Arg type = %q, want object", first.Arg.Type())
	}

	second := decls[1]
	if second.Name != "helper" {
		t.Errorf("Name = %q, want %q", second.Name, "helper")
	}
	if second.Exported {
		t.Error("helper Exported = true, want false")
	}
	if second.Call != nil {
		t.Error("helper Call is non-nil, want nil")
	}

	third := decls[2]
	if third.Callee != "agent" {
		t.Errorf("Callee = %q, want %q", third.Callee, "agent")
	}
	if third.Arg != nil {
		t.Error("call with non-object argument should have nil Arg")
	}
}

func TestDeclarations_LeadingComments(t *testing.T) {
	src := `// file header comment

// routes support traffic
// owned by the support team
export const router = agent({ id: 'router', name: 'R' });

const other = 1;
`
	doc := parseSource(t, src)
	decls := doc.Declarations()
	if len(decls) != 2 {
		t.Fatalf("Declarations len = %d, want 2", len(decls))
	}

	router := decls[0]
	if len(router.LeadingComments) != 2 {
		t.Fatalf("LeadingComments len = %d, want 2", len(router.LeadingComments))
	}
	firstComment := doc.Text(router.LeadingComments[0])
	if firstComment != "// routes support traffic" {
		t.Errorf("comment = %q", firstComment)
	}
	if !router.BlankBefore {
		t.Error("BlankBefore = false, want true (blank line after file header)")
	}

	other := decls[1]
	if len(other.LeadingComments) != 0 {
		t.Errorf("other LeadingComments len = %d, want 0", len(other.LeadingComments))
	}
	if !other.BlankBefore {
		t.Error("other BlankBefore = false, want true")
	}
}

func TestPairs_KeysAndLookup(t *testing.T) {
	src := `const t = mcpTool({
  id: 'search',
  name: 'Search',
  'server-note': 'quoted key',
  ...spread,
  timeout: 5000,
});
`
	doc := parseSource(t, src)
	decl := doc.Declarations()[0]
	pairs := doc.Pairs(decl.Arg)
	if len(pairs) != 4 {
		t.Fatalf("Pairs len = %d, want 4", len(pairs))
	}
	keys := make([]string, 0, len(pairs))
	for _, p := range pairs {
		keys = append(keys, p.Key)
	}
	want := []string{"id", "name", "server-note", "timeout"}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("key[%d] = %q, want %q", i, keys[i], k)
		}
	}

	if p := doc.Pair(decl.Arg, "name"); p == nil {
		t.Error("Pair(name) = nil")
	} else if got, _ := doc.StringValue(p.Value); got != "Search" {
		t.Errorf("name value = %q, want %q", got, "Search")
	}
	if p := doc.Pair(decl.Arg, "missing"); p != nil {
		t.Error("Pair(missing) should be nil")
	}
}

func TestElements_SkipsComments(t *testing.T) {
	src := `const a = agent({
  id: 'a',
  subAgents: [
    one,
    // keep two disabled for now
    two,
  ],
});
`
	doc := parseSource(t, src)
	decl := doc.Declarations()[0]
	arr := doc.Pair(decl.Arg, "subAgents").Value
	elems := doc.Elements(arr)
	if len(elems) != 2 {
		t.Fatalf("Elements len = %d, want 2", len(elems))
	}
	if doc.Text(elems[0]) != "one" || doc.Text(elems[1]) != "two" {
		t.Errorf("elements = %q, %q", doc.Text(elems[0]), doc.Text(elems[1]))
	}
}

func TestTrailingComma(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"trailing", "const a = f({\n  id: 'a',\n});\n", true},
		{"none", "const a = f({ id: 'a' });\n", false},
		{"empty", "const a = f({});\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseSource(t, tt.src)
			decl := doc.Declarations()[0]
			if got := doc.HasTrailingComma(decl.Arg); got != tt.want {
				t.Errorf("HasTrailingComma = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImports(t *testing.T) {
	src := `import { agent, subAgent as sub } from '@inkeep/agents-sdk';
import { z } from 'zod';
import def from './default-mod';
import * as helpers from '../helpers';
import './side-effect';

const x = 1;
`
	doc := parseSource(t, src)
	imports := doc.Imports()
	if len(imports) != 5 {
		t.Fatalf("Imports len = %d, want 5", len(imports))
	}

	sdk := imports[0]
	if sdk.Source != "@inkeep/agents-sdk" {
		t.Errorf("Source = %q", sdk.Source)
	}
	if len(sdk.Named) != 2 {
		t.Fatalf("Named len = %d, want 2", len(sdk.Named))
	}
	if sdk.Named[0].Name != "agent" || sdk.Named[0].Local != "agent" {
		t.Errorf("Named[0] = %+v", sdk.Named[0])
	}
	if sdk.Named[1].Name != "subAgent" || sdk.Named[1].Local != "sub" {
		t.Errorf("Named[1] = %+v", sdk.Named[1])
	}

	if imports[2].Default != "def" {
		t.Errorf("Default = %q, want %q", imports[2].Default, "def")
	}
	if imports[3].Namespace != "helpers" {
		t.Errorf("Namespace = %q, want %q", imports[3].Namespace, "helpers")
	}
	side := imports[4]
	if side.Source != "./side-effect" {
		t.Errorf("side-effect Source = %q", side.Source)
	}
	if side.Default != "" || side.Namespace != "" || len(side.Named) != 0 {
		t.Errorf("side-effect import should carry no bindings: %+v", side)
	}

	last := doc.LastImport()
	if last == nil {
		t.Fatal("LastImport = nil")
	}
	if !strings.Contains(doc.Text(last), "side-effect") {
		t.Errorf("LastImport = %q", doc.Text(last))
	}
}

func TestApply_Edits(t *testing.T) {
	src := "const a = f({ id: 'a', name: 'Old' });\n"
	doc := parseSource(t, src)
	decl := doc.Declarations()[0]

	namePair := doc.Pair(decl.Arg, "name")
	doc.Replace(namePair.Value, "'New'")

	brace := doc.CloseBrace(decl.Arg)
	doc.InsertAt(brace.StartByte(), ", extra: 1 ")

	if !doc.Dirty() {
		t.Fatal("Dirty = false after queuing edits")
	}

	out, err := doc.Apply()
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	got := string(out)
	if !strings.Contains(got, "name: 'New'") {
		t.Errorf("output missing replacement: %q", got)
	}
	if !strings.Contains(got, "extra: 1 }") {
		t.Errorf("output missing insertion: %q", got)
	}
	if strings.Contains(got, "'Old'") {
		t.Errorf("output still contains old value: %q", got)
	}
}

func TestApply_SamePositionInsertOrder(t *testing.T) {
	src := "ab\n"
	doc := parseSource(t, src)
	doc.InsertAt(1, "1")
	doc.InsertAt(1, "2")
	out, err := doc.Apply()
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if string(out) != "a12b\n" {
		t.Errorf("output = %q, want %q", string(out), "a12b\n")
	}
}

func TestApply_OverlapRejected(t *testing.T) {
	src := "const abc = 1;\n"
	doc := parseSource(t, src)
	doc.ReplaceRange(0, 10, "x")
	doc.ReplaceRange(5, 12, "y")
	if _, err := doc.Apply(); err == nil {
		t.Fatal("expected overlap error, got nil")
	}
}

func TestApply_NoEdits(t *testing.T) {
	src := "const a = 1;\n"
	doc := parseSource(t, src)
	out, err := doc.Apply()
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if string(out) != src {
		t.Errorf("output = %q, want original", string(out))
	}
	if doc.Dirty() {
		t.Error("Dirty = true with no edits")
	}
}

func TestStringHelpers(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`'plain'`, "plain"},
		{`"double"`, "double"},
		{`'it\'s'`, "it's"},
		{`'line\nbreak'`, "line\nbreak"},
		{`'tab\there'`, "tab\there"},
		{`'back\\slash'`, `back\slash`},
		{"`template`", "template"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := UnquoteString(tt.raw); got != tt.want {
				t.Errorf("UnquoteString(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestQuoteString(t *testing.T) {
	tests := []struct {
		in    string
		quote byte
		want  string
	}{
		{"plain", '\'', `'plain'`},
		{"it's", '\'', `'it\'s'`},
		{"say \"hi\"", '"', `"say \"hi\""`},
		{"line\nbreak", '\'', `'line\nbreak'`},
	}
	for _, tt := range tests {
		if got := QuoteString(tt.in, tt.quote); got != tt.want {
			t.Errorf("QuoteString(%q, %c) = %s, want %s", tt.in, tt.quote, got, tt.want)
		}
	}
}

func TestQuoteStyle(t *testing.T) {
	single := parseSource(t, "const a = f({ id: 'x', name: 'y' });\n")
	if q := single.QuoteStyle(); q != '\'' {
		t.Errorf("QuoteStyle = %c, want '", q)
	}
	double := parseSource(t, "const a = f({ id: \"x\", name: \"y\", desc: \"z\" });\n")
	if q := double.QuoteStyle(); q != '"' {
		t.Errorf("QuoteStyle = %c, want \"", q)
	}
	empty := parseSource(t, "const a = 1;\n")
	if q := empty.QuoteStyle(); q != '\'' {
		t.Errorf("QuoteStyle (no strings) = %c, want '", q)
	}
}

func TestArrowBody(t *testing.T) {
	src := `const a = agent({
  canUse: () => [one, two],
  custom: () => { return [three]; },
  plain: [four],
});
`
	doc := parseSource(t, src)
	decl := doc.Declarations()[0]

	arrow := doc.Pair(decl.Arg, "canUse").Value
	body := ArrowBody(arrow)
	if body == nil {
		t.Fatal("ArrowBody = nil for array-bodied arrow")
	}
	if body.Type() != "array" {
		t.Errorf("body type = %q, want array", body.Type())
	}

	blockArrow := doc.Pair(decl.Arg, "custom").Value
	blockBody := ArrowBody(blockArrow)
	if blockBody == nil {
		t.Fatal("ArrowBody = nil for block-bodied arrow")
	}
	if blockBody.Type() == "array" {
		t.Error("block body should not be an array node")
	}

	if ArrowBody(doc.Pair(decl.Arg, "plain").Value) != nil {
		t.Error("ArrowBody of a non-arrow value should be nil")
	}
}

func TestLineIndent(t *testing.T) {
	src := "const a = f({\n    id: 'a',\n});\n"
	doc := parseSource(t, src)
	decl := doc.Declarations()[0]
	idPair := doc.Pair(decl.Arg, "id")
	if indent := doc.LineIndent(idPair.Node.StartByte()); indent != "    " {
		t.Errorf("LineIndent = %q, want four spaces", indent)
	}
}

func TestIsMultiline(t *testing.T) {
	src := "const a = f({ id: 'a' });\nconst b = f({\n  id: 'b',\n});\n"
	doc := parseSource(t, src)
	decls := doc.Declarations()
	if doc.IsMultiline(decls[0].Arg) {
		t.Error("single-line object reported multiline")
	}
	if !doc.IsMultiline(decls[1].Arg) {
		t.Error("multi-line object reported single line")
	}
}
