package tscode

import (
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// ParseError reports a target file that is not syntactically valid
// TypeScript. The file is skipped entirely and left untouched.
type ParseError struct {
	Path string
	Line int // 1-based line of the first error node, 0 when unknown
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: file is not valid TypeScript", e.Path, e.Line)
	}
	return fmt.Sprintf("%s: file is not valid TypeScript", e.Path)
}

// Document is one parsed TypeScript source file plus its pending edits.
type Document struct {
	Path string

	src  []byte
	tree *sitter.Tree
	root *sitter.Node

	edits []edit
	decls []*Declaration
	imps  []*Import

	quote     byte
	quoteInit bool
}

type edit struct {
	start, end uint32
	text       string
	seq        int
}

// Parse parses src as TypeScript. A tree containing error or missing nodes
// yields a ParseError.
func Parse(ctx context.Context, path string, src []byte) (*Document, error) {
	p := sitter.NewParser()
	p.SetLanguage(typescript.GetLanguage())

	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	root := tree.RootNode()
	if root.HasError() {
		line := 0
		if bad := firstErrorNode(root); bad != nil {
			line = int(bad.StartPoint().Row) + 1
		}
		tree.Close()
		return nil, &ParseError{Path: path, Line: line}
	}

	return &Document{Path: path, src: src, tree: tree, root: root}, nil
}

// firstErrorNode finds the first ERROR or missing node in document order.
func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstErrorNode(n.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}

// Close releases the parse tree. The document's source bytes and any
// applied output remain valid.
func (d *Document) Close() {
	if d.tree != nil {
		d.tree.Close()
		d.tree = nil
	}
}

// Src returns the original, unedited source bytes.
func (d *Document) Src() []byte { return d.src }

// Root returns the program node.
func (d *Document) Root() *sitter.Node { return d.root }

// Text returns the source text covered by n.
func (d *Document) Text(n *sitter.Node) string {
	return n.Content(d.src)
}

// LineOf returns the 1-based line n starts on.
func (d *Document) LineOf(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// IsMultiline reports whether n spans more than one line in the original.
func (d *Document) IsMultiline(n *sitter.Node) bool {
	return n.StartPoint().Row != n.EndPoint().Row
}

// LineIndent returns the run of spaces and tabs at the start of the line
// containing pos.
func (d *Document) LineIndent(pos uint32) string {
	start := int(pos)
	if start > len(d.src) {
		start = len(d.src)
	}
	lineStart := start
	for lineStart > 0 && d.src[lineStart-1] != '\n' {
		lineStart--
	}
	end := lineStart
	for end < len(d.src) && (d.src[end] == ' ' || d.src[end] == '\t') {
		end++
	}
	return string(d.src[lineStart:end])
}

// Replace queues replacement of n's span with text.
func (d *Document) Replace(n *sitter.Node, text string) {
	d.ReplaceRange(n.StartByte(), n.EndByte(), text)
}

// ReplaceRange queues replacement of src[start:end] with text.
func (d *Document) ReplaceRange(start, end uint32, text string) {
	d.edits = append(d.edits, edit{start: start, end: end, text: text, seq: len(d.edits)})
}

// InsertAt queues insertion of text at pos. Multiple insertions at the same
// position apply in the order they were queued.
func (d *Document) InsertAt(pos uint32, text string) {
	d.edits = append(d.edits, edit{start: pos, end: pos, text: text, seq: len(d.edits)})
}

// Delete queues removal of src[start:end].
func (d *Document) Delete(start, end uint32) {
	d.ReplaceRange(start, end, "")
}

// Dirty reports whether any edits are queued.
func (d *Document) Dirty() bool { return len(d.edits) > 0 }

// EditCount returns the number of queued edits.
func (d *Document) EditCount() int { return len(d.edits) }

// Apply resolves all queued edits against the original bytes and returns the
// resulting content. Overlapping ranges are a programming error and are
// rejected so a bad merge cannot corrupt a user file.
func (d *Document) Apply() ([]byte, error) {
	if len(d.edits) == 0 {
		return d.src, nil
	}

	edits := make([]edit, len(d.edits))
	copy(edits, d.edits)
	sort.Slice(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		if edits[i].end != edits[j].end {
			return edits[i].end < edits[j].end
		}
		return edits[i].seq < edits[j].seq
	})

	var out []byte
	last := uint32(0)
	for _, e := range edits {
		if e.start < last {
			return nil, fmt.Errorf("%s: overlapping edits at byte %d", d.Path, e.start)
		}
		if int(e.end) > len(d.src) || e.end < e.start {
			return nil, fmt.Errorf("%s: edit range %d:%d outside document", d.Path, e.start, e.end)
		}
		out = append(out, d.src[last:e.start]...)
		out = append(out, e.text...)
		last = e.end
	}
	out = append(out, d.src[last:]...)
	return out, nil
}
