package merge

import (
	"sort"

	"github.com/inkeep/agents-sync/internal/model"
	"github.com/inkeep/agents-sync/internal/tscode"
)

// zodExpr compiles a JSON-Schema property bag into a schema-builder
// expression, importing the builder on first use. Object schemas walk
// properties in sorted order; fields absent from required become optional.
func (fc *fileCtx) zodExpr(schema model.Schema, st style) string {
	z := fc.ensureModuleImport(model.ZodModule, "z")
	return fc.zodType(z, schema, st)
}

func (fc *fileCtx) zodType(z string, schema map[string]any, st style) string {
	if enum, ok := schema["enum"].([]any); ok && len(enum) > 0 {
		if lits, ok := stringLiterals(enum); ok {
			items := make([]string, len(lits))
			for i, s := range lits {
				items[i] = tscode.QuoteString(s, st.quote)
			}
			return describeSchema(z+".enum("+renderArray(items, st)+")", schema, st)
		}
	}

	typ, _ := schema["type"].(string)
	if typ == "" {
		if _, ok := schema["properties"]; ok {
			typ = "object"
		}
	}

	var expr string
	switch typ {
	case "object":
		expr = z + ".object(" + fc.zodProps(z, schema, st) + ")"
	case "array":
		item := z + ".any()"
		if items := asMap(schema["items"]); items != nil {
			item = fc.zodType(z, items, st.nested())
		}
		expr = z + ".array(" + item + ")"
	case "string":
		expr = z + ".string()"
	case "number":
		expr = z + ".number()"
	case "integer":
		expr = z + ".number().int()"
	case "boolean":
		expr = z + ".boolean()"
	case "null":
		expr = z + ".null()"
	default:
		expr = z + ".any()"
	}
	return describeSchema(expr, schema, st)
}

func (fc *fileCtx) zodProps(z string, schema map[string]any, st style) string {
	props := asMap(schema["properties"])
	required := map[string]bool{}
	if reqs, ok := schema["required"].([]any); ok {
		for _, r := range reqs {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		expr := fc.zodType(z, asMap(props[k]), st.nested())
		if !required[k] {
			expr += ".optional()"
		}
		parts = append(parts, objectKey(k, st.quote)+": "+expr)
	}
	return renderMembers(parts, "{", "}", st)
}

func describeSchema(expr string, schema map[string]any, st style) string {
	if desc, ok := schema["description"].(string); ok && desc != "" {
		expr += ".describe(" + tscode.QuoteString(desc, st.quote) + ")"
	}
	return expr
}

func stringLiterals(vals []any) ([]string, bool) {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// asMap unwraps a schema fragment regardless of whether it was decoded
// from JSON or built directly as a Schema value.
func asMap(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case model.Schema:
		return t
	}
	return nil
}
