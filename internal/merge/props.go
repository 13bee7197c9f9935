package merge

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/inkeep/agents-sync/internal/tscode"
)

// patchObject reconciles an object literal with the managed props. Existing
// managed keys are patched in place, missing ones appended before the close
// brace, keys the human added are never touched. prefix carries the field
// path for warnings on nested records.
func (fc *fileCtx) patchObject(obj *sitter.Node, props []prop, entity, prefix string) {
	doc := fc.doc

	removeSet := map[*sitter.Node]bool{}
	var missing []prop
	for _, p := range props {
		pair := doc.Pair(obj, p.key)
		if p.val == nil {
			if pair != nil {
				removeSet[pair.Node] = true
			}
			continue
		}
		if pair == nil {
			missing = append(missing, p)
			continue
		}
		fc.patchValue(pair.Value, p.val, entity, prefix+p.key)
	}

	mi := fc.memberIndent(obj, removeSet)
	adds := make([]string, 0, len(missing))
	for _, p := range missing {
		st := style{quote: fc.quote, indent: mi, width: fc.m.width}
		adds = append(adds, objectKey(p.key, fc.quote)+": "+p.val.render(fc, st))
	}
	fc.editMembers(obj, removeSet, adds)
}

// patchValue reconciles one existing value node with its managed value.
// Records recurse, reference lists diff their membership, everything else
// is replaced unless it already matches.
func (fc *fileCtx) patchValue(n *sitter.Node, v value, entity, field string) {
	switch t := v.(type) {
	case recordVal:
		if n.Type() == "object" {
			fc.patchObject(n, t.props, entity, field+".")
			return
		}
	case refListVal:
		fc.patchRefList(n, t, entity, field)
		return
	}

	if v.matches(fc, n) {
		return
	}
	st := style{
		quote:     fc.quote,
		indent:    fc.doc.LineIndent(n.StartByte()),
		multiline: fc.doc.IsMultiline(n),
		width:     fc.m.width,
	}
	fc.doc.Replace(n, v.render(fc, st))
}

// patchRefList diffs a reference array by resolved entity membership. The
// existing order and any unresolvable elements stay as the human wrote
// them; a wrapper function whose body is not exactly an array literal is
// owned by the human and never auto-merged.
func (fc *fileCtx) patchRefList(n *sitter.Node, v refListVal, entity, field string) {
	doc := fc.doc

	arr := n
	if n.Type() == "arrow_function" {
		body := tscode.ArrowBody(n)
		if body == nil || body.Type() != "array" {
			fc.m.warnf("%s: %s is manually owned, left untouched", entity, field)
			return
		}
		arr = body
	}
	if arr.Type() != "array" {
		fc.m.warnf("%s: %s is manually owned, left untouched", entity, field)
		return
	}

	want := make(map[string]bool, len(v.ids))
	for _, id := range v.ids {
		want[id] = true
	}

	removeSet := map[*sitter.Node]bool{}
	have := map[string]bool{}
	for _, el := range doc.Elements(arr) {
		if el.Type() != "identifier" {
			continue
		}
		b := fc.resolveIdent(doc.Text(el))
		if b == nil || b.Kind != v.kind || have[b.ID] {
			continue
		}
		have[b.ID] = true
		if !want[b.ID] {
			removeSet[el] = true
		}
	}

	var adds []string
	for _, id := range v.ids {
		if !have[id] {
			adds = append(adds, fc.identFor(v.kind, id))
		}
	}
	if len(removeSet) == 0 && len(adds) == 0 {
		return
	}
	fc.editMembers(arr, removeSet, adds)
}

type byteSpan struct{ start, end uint32 }

func inSpans(spans []byteSpan, pos uint32) bool {
	for _, s := range spans {
		if pos >= s.start && pos < s.end {
			return true
		}
	}
	return false
}

// editMembers removes and appends members of an object or array literal.
// Removal spans swallow the separating comma and, when a line is left
// blank, the whole line. Appends land after the last surviving member,
// honoring the literal's trailing-comma style, or before the close token
// when nothing survives. Comments between members are never touched.
func (fc *fileCtx) editMembers(literal *sitter.Node, removeSet map[*sitter.Node]bool, adds []string) {
	doc := fc.doc
	members := doc.Members(literal)

	var spans []byteSpan
	for i, m := range members {
		if !removeSet[m] {
			continue
		}
		start, end := m.StartByte(), m.EndByte()
		if comma := doc.CommaAfter(literal, end); comma != nil {
			end = comma.EndByte()
		} else if i > 0 && !removeSet[members[i-1]] {
			if comma := doc.CommaBefore(literal, start); comma != nil {
				start = comma.StartByte()
			}
		}
		start, end = fc.expandLine(start, end)
		spans = append(spans, byteSpan{start, end})
		doc.Delete(start, end)
	}

	if len(adds) == 0 {
		return
	}

	var lastKeep *sitter.Node
	for _, m := range members {
		if !removeSet[m] {
			lastKeep = m
		}
	}

	isObject := literal.Type() == "object"
	inline := strings.Join(adds, ", ")
	multiline := doc.IsMultiline(literal) || strings.Contains(inline, "\n")

	if lastKeep == nil {
		closeTok := doc.CloseToken(literal)
		if closeTok == nil {
			return
		}
		indent := doc.LineIndent(closeTok.StartByte())
		if len(indent)+len(inline)+4 > fc.m.width {
			multiline = true
		}
		switch {
		case multiline:
			mi := indent + indentUnit
			pos := closeTok.StartByte() - uint32(len(indent))
			var b strings.Builder
			for _, add := range adds {
				b.WriteString(mi)
				b.WriteString(add)
				b.WriteString(",\n")
			}
			doc.InsertAt(pos, b.String())
		case isObject:
			doc.InsertAt(closeTok.StartByte(), " "+inline+" ")
		default:
			doc.InsertAt(closeTok.StartByte(), inline)
		}
		return
	}

	mi := doc.LineIndent(lastKeep.StartByte())
	if len(mi)+len(inline) > fc.m.width {
		multiline = true
	}

	anchorComma := doc.CommaAfter(literal, lastKeep.EndByte())
	if anchorComma != nil && inSpans(spans, anchorComma.StartByte()) {
		anchorComma = nil
	}

	var b strings.Builder
	if anchorComma != nil {
		// an existing comma separates us from what follows; each added
		// member carries its own comma so the trailing style survives
		for _, add := range adds {
			if multiline {
				b.WriteString("\n")
				b.WriteString(mi)
			} else {
				b.WriteString(" ")
			}
			b.WriteString(add)
			b.WriteString(",")
		}
		doc.InsertAt(anchorComma.EndByte(), b.String())
		return
	}

	for _, add := range adds {
		if multiline {
			b.WriteString(",\n")
			b.WriteString(mi)
		} else {
			b.WriteString(", ")
		}
		b.WriteString(add)
	}
	doc.InsertAt(lastKeep.EndByte(), b.String())
}

// memberIndent returns the indentation added members should use: the last
// surviving member's line indent, or one unit past the close token's line
// for a literal about to receive its first member.
func (fc *fileCtx) memberIndent(literal *sitter.Node, removeSet map[*sitter.Node]bool) string {
	var lastKeep *sitter.Node
	for _, m := range fc.doc.Members(literal) {
		if !removeSet[m] {
			lastKeep = m
		}
	}
	if lastKeep != nil {
		return fc.doc.LineIndent(lastKeep.StartByte())
	}
	if closeTok := fc.doc.CloseToken(literal); closeTok != nil {
		return fc.doc.LineIndent(closeTok.StartByte()) + indentUnit
	}
	return indentUnit
}

// expandLine widens a removal span to the whole line when only whitespace
// would remain around it.
func (fc *fileCtx) expandLine(start, end uint32) (uint32, uint32) {
	src := fc.doc.Src()

	ls := start
	for ls > 0 && src[ls-1] != '\n' {
		if c := src[ls-1]; c != ' ' && c != '\t' {
			return start, end
		}
		ls--
	}
	le := end
	for le < uint32(len(src)) {
		switch src[le] {
		case '\n':
			return ls, le + 1
		case ' ', '\t', '\r':
			le++
		default:
			return start, end
		}
	}
	return ls, le
}
