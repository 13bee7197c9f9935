package merge

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/inkeep/agents-sync/internal/model"
	"github.com/inkeep/agents-sync/internal/tscode"
)

// defaultWidth is the single-line budget before a value is rendered
// multi-line.
const defaultWidth = 80

// indentUnit is one indentation step for rendered values and declarations.
const indentUnit = "  "

// style carries the rendering context for one value position.
type style struct {
	quote     byte
	indent    string // indentation of the line the value sits on
	multiline bool   // the original value spanned lines; stay multi-line
	width     int
}

func (st style) nested() style {
	st.indent += indentUnit
	st.multiline = false
	return st
}

// value renders one managed property value and can tell whether an existing
// node already expresses it.
type value interface {
	render(fc *fileCtx, st style) string
	matches(fc *fileCtx, n *sitter.Node) bool
}

// prop is one managed key of an object literal. A nil val removes the key.
type prop struct {
	key string
	val value
}

// stringVal is a plain string literal.
type stringVal struct{ s string }

func (v stringVal) render(fc *fileCtx, st style) string {
	return tscode.QuoteString(v.s, st.quote)
}

func (v stringVal) matches(fc *fileCtx, n *sitter.Node) bool {
	got, ok := fc.doc.StringValue(n)
	return ok && got == v.s
}

// numberVal is a numeric literal.
type numberVal struct{ f float64 }

func (v numberVal) render(fc *fileCtx, st style) string {
	return strconv.FormatFloat(v.f, 'f', -1, 64)
}

func (v numberVal) matches(fc *fileCtx, n *sitter.Node) bool {
	got, err := strconv.ParseFloat(strings.TrimSpace(fc.doc.Text(n)), 64)
	return err == nil && got == v.f
}

// boolVal is true or false.
type boolVal struct{ b bool }

func (v boolVal) render(fc *fileCtx, st style) string {
	if v.b {
		return "true"
	}
	return "false"
}

func (v boolVal) matches(fc *fileCtx, n *sitter.Node) bool {
	want := "false"
	if v.b {
		want = "true"
	}
	return strings.TrimSpace(fc.doc.Text(n)) == want
}

// refVal is a single entity reference rendered as an imported identifier.
type refVal struct {
	kind model.Kind
	id   string
}

func (v refVal) render(fc *fileCtx, st style) string {
	return fc.identFor(v.kind, v.id)
}

func (v refVal) matches(fc *fileCtx, n *sitter.Node) bool {
	if n.Type() != "identifier" {
		return false
	}
	b := fc.resolveIdent(fc.doc.Text(n))
	return b != nil && b.Kind == v.kind && b.ID == v.id
}

// refListVal is a reference array. Patch logic lives in the property
// writer; render covers creation and wholesale replacement.
type refListVal struct {
	kind model.Kind
	ids  []string
	lazy bool
}

func (v refListVal) render(fc *fileCtx, st style) string {
	idents := make([]string, 0, len(v.ids))
	for _, id := range v.ids {
		idents = append(idents, fc.identFor(v.kind, id))
	}
	arr := renderArray(idents, st)
	if v.lazy {
		return "() => " + arr
	}
	return arr
}

func (v refListVal) matches(fc *fileCtx, n *sitter.Node) bool {
	return false // the writer compares membership itself
}

// stringListVal is an array of plain strings, e.g. activeTools.
type stringListVal struct{ items []string }

func (v stringListVal) render(fc *fileCtx, st style) string {
	quoted := make([]string, 0, len(v.items))
	for _, s := range v.items {
		quoted = append(quoted, tscode.QuoteString(s, st.quote))
	}
	return renderArray(quoted, st)
}

func (v stringListVal) matches(fc *fileCtx, n *sitter.Node) bool {
	if n.Type() != "array" {
		return false
	}
	elems := fc.doc.Elements(n)
	if len(elems) != len(v.items) {
		return false
	}
	for i, el := range elems {
		got, ok := fc.doc.StringValue(el)
		if !ok || got != v.items[i] {
			return false
		}
	}
	return true
}

// recordVal is a nested object of managed keys. When the existing value is
// an object literal the writer patches it recursively; render covers
// creation and wholesale replacement.
type recordVal struct{ props []prop }

func (v recordVal) render(fc *fileCtx, st style) string {
	return renderObject(fc, v.props, st)
}

func (v recordVal) matches(fc *fileCtx, n *sitter.Node) bool {
	return false // the writer descends instead
}

// empty reports whether no key would be written.
func (v recordVal) empty() bool {
	for _, p := range v.props {
		if p.val != nil {
			return false
		}
	}
	return true
}

// zodVal compiles a JSON-Schema bag to a schema-builder expression.
type zodVal struct{ schema model.Schema }

func (v zodVal) render(fc *fileCtx, st style) string {
	return fc.zodExpr(v.schema, st)
}

func (v zodVal) matches(fc *fileCtx, n *sitter.Node) bool {
	st := style{quote: fc.quote, width: 1 << 20}
	return equivalentExpr(v.render(fc, st), fc.doc.Text(n))
}

// templateVal is a string carrying header placeholders, rendered as a
// template literal calling toTemplate on the headers binding.
type templateVal struct {
	raw string
	hs  refVal // the governing headers schema
}

func (v templateVal) render(fc *fileCtx, st style) string {
	return fc.templateExpr(v.raw, v.hs.render(fc, st), st.quote)
}

func (v templateVal) matches(fc *fileCtx, n *sitter.Node) bool {
	hsIdent := ""
	if b, ok := fc.m.index.Binding(v.hs.kind, v.hs.id); ok {
		hsIdent = fc.localIdent(b)
	}
	if hsIdent == "" {
		return false
	}
	want := fc.templateExpr(v.raw, hsIdent, fc.quote)
	return equivalentExpr(want, fc.doc.Text(n))
}

// anyVal renders an arbitrary JSON value as a TypeScript literal.
type anyVal struct{ v any }

func (v anyVal) render(fc *fileCtx, st style) string {
	return renderJSON(v.v, st)
}

func (v anyVal) matches(fc *fileCtx, n *sitter.Node) bool {
	st := style{quote: fc.quote, width: 1 << 20}
	return equivalentExpr(v.render(fc, st), fc.doc.Text(n))
}

// renderJSON renders decoded JSON as TypeScript literal text.
func renderJSON(v any, st style) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		return tscode.QuoteString(t, st.quote)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case []any:
		items := make([]string, 0, len(t))
		for _, el := range t {
			items = append(items, renderJSON(el, st.nested()))
		}
		return renderArray(items, st)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, objectKey(k, st.quote)+": "+renderJSON(t[k], st.nested()))
		}
		return renderMembers(parts, "{", "}", st)
	case model.Schema:
		return renderJSON(map[string]any(t), st)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return "null"
		}
		return string(data)
	}
}

// objectKey renders a key bare when it is a valid identifier, quoted
// otherwise.
func objectKey(k string, quote byte) string {
	if isIdentifier(k) {
		return k
	}
	return tscode.QuoteString(k, quote)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '$':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// renderArray lays out array members inline when they fit, one per line
// otherwise.
func renderArray(items []string, st style) string {
	return renderMembers(items, "[", "]", st)
}

// renderObject renders props as a fresh object literal in canonical order.
func renderObject(fc *fileCtx, props []prop, st style) string {
	parts := make([]string, 0, len(props))
	for _, p := range props {
		if p.val == nil {
			continue
		}
		parts = append(parts, objectKey(p.key, st.quote)+": "+p.val.render(fc, st.nested()))
	}
	return renderMembers(parts, "{", "}", st)
}

// renderMembers joins members inline inside the open/close tokens when the
// result fits the width budget and nothing forces multi-line layout.
func renderMembers(parts []string, open, closer string, st style) string {
	if len(parts) == 0 {
		return open + closer
	}

	inline := open
	if open == "{" {
		inline += " "
	}
	inline += strings.Join(parts, ", ")
	if open == "{" {
		inline += " "
	}
	inline += closer

	wide := len(st.indent)+len(inline) > widthOf(st) || strings.Contains(inline, "\n")
	if !st.multiline && !wide {
		return inline
	}

	var b strings.Builder
	b.WriteString(open)
	for _, part := range parts {
		b.WriteString("\n")
		b.WriteString(st.indent + indentUnit)
		b.WriteString(part)
		b.WriteString(",")
	}
	b.WriteString("\n")
	b.WriteString(st.indent)
	b.WriteString(closer)
	return b.String()
}

func widthOf(st style) int {
	if st.width > 0 {
		return st.width
	}
	return defaultWidth
}

// equivalentExpr compares two expression texts ignoring whitespace and
// trailing commas outside string literals.
func equivalentExpr(a, b string) bool {
	return normalizeExpr(a) == normalizeExpr(b)
}

func normalizeExpr(s string) string {
	var out []byte
	var quote byte
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			out = append(out, c)
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
			out = append(out, c)
		case ' ', '\t', '\n', '\r':
		case ')', ']', '}':
			if len(out) > 0 && out[len(out)-1] == ',' {
				out = out[:len(out)-1]
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
