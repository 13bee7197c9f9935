package merge

import (
	"path"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/inkeep/agents-sync/internal/index"
	"github.com/inkeep/agents-sync/internal/model"
	"github.com/inkeep/agents-sync/internal/tscode"
)

// fileCtx accumulates the merge state of one target file: the parsed
// document (nil when the file is created this run), pending import
// requests, and declarations queued for append.
type fileCtx struct {
	m     *Merger
	rel   string
	doc   *tscode.Document
	quote byte

	reqs     []*importReq
	bySource map[string]*importReq

	newDecls []string
}

// importReq is one module specifier worth of named imports queued for the
// file. Requests against a specifier already imported by the file are
// folded into its existing clause when the imports are flushed.
type importReq struct {
	source string // specifier text to write
	file   string // resolved target path for relative specifiers, "" for bare modules
	names  []importName
}

type importName struct {
	name  string // exported name
	local string // alias, "" when imported under its own name
}

func (n importName) localName() string {
	if n.local != "" {
		return n.local
	}
	return n.name
}

func newFileCtx(m *Merger, rel string) *fileCtx {
	fc := &fileCtx{
		m:        m,
		rel:      rel,
		doc:      m.index.Doc(rel),
		quote:    '\'',
		bySource: make(map[string]*importReq),
	}
	if fc.doc != nil {
		fc.quote = fc.doc.QuoteStyle()
	}
	return fc
}

// identFor returns the identifier under which the entity (kind, id) is
// reachable from this file, importing and exporting as needed. Callers
// filter references to unbound entities first; an empty string means the
// binding disappeared anyway.
func (fc *fileCtx) identFor(kind model.Kind, id string) string {
	b, ok := fc.m.index.Binding(kind, id)
	if !ok {
		return ""
	}
	if b.File == fc.rel {
		return b.Name
	}
	fc.m.exportBinding(b)
	return fc.ensureImport(relativeSpecifier(fc.rel, b.File), b.File, b.Name)
}

// localIdent returns the name b is already visible under in this file, or
// "" when reaching it would require a new import.
func (fc *fileCtx) localIdent(b *index.Binding) string {
	if b.File == fc.rel {
		return b.Name
	}
	if fc.doc != nil {
		for _, imp := range fc.doc.Imports() {
			if resolveSpecifier(fc.rel, imp.Source) != b.File {
				continue
			}
			for _, ni := range imp.Named {
				if ni.Name == b.Name {
					return ni.Local
				}
			}
		}
	}
	for _, req := range fc.reqs {
		if req.file != b.File {
			continue
		}
		for _, n := range req.names {
			if n.name == b.Name {
				return n.localName()
			}
		}
	}
	return ""
}

// resolveIdent maps an identifier appearing in this file back to the entity
// binding it denotes, through either a local declaration or an import.
func (fc *fileCtx) resolveIdent(name string) *index.Binding {
	name = strings.TrimSpace(name)
	if b, ok := fc.m.index.BindingByName(fc.rel, name); ok {
		return b
	}
	if fc.doc == nil {
		return nil
	}
	for _, imp := range fc.doc.Imports() {
		for _, ni := range imp.Named {
			if ni.Local != name {
				continue
			}
			file := resolveSpecifier(fc.rel, imp.Source)
			if file == "" {
				return nil
			}
			if b, ok := fc.m.index.BindingByName(file, ni.Name); ok {
				return b
			}
			return nil
		}
	}
	return nil
}

// ensureModuleImport imports an exported name from a bare module specifier
// such as the builder SDK or the schema library.
func (fc *fileCtx) ensureModuleImport(module, exported string) string {
	return fc.ensureImport(module, "", exported)
}

func (fc *fileCtx) ensureImport(source, file, exported string) string {
	if fc.doc != nil {
		for _, imp := range fc.doc.Imports() {
			if !importMatches(fc.rel, imp, source, file) {
				continue
			}
			for _, ni := range imp.Named {
				if ni.Name == exported {
					return ni.Local
				}
			}
		}
	}

	req := fc.bySource[source]
	if req != nil {
		for _, n := range req.names {
			if n.name == exported {
				return n.localName()
			}
		}
	} else {
		req = &importReq{source: source, file: file}
		fc.bySource[source] = req
		fc.reqs = append(fc.reqs, req)
	}

	local := fc.pickLocal(exported)
	n := importName{name: exported}
	if local != exported {
		n.local = local
	}
	req.names = append(req.names, n)
	return local
}

// pickLocal claims a free identifier for the file, suffixing a counter when
// the preferred name is taken.
func (fc *fileCtx) pickLocal(preferred string) string {
	local := preferred
	for i := 2; fc.m.index.NameTaken(fc.rel, local); i++ {
		local = preferred + strconv.Itoa(i)
	}
	fc.m.index.TakeName(fc.rel, local)
	return local
}

// addDecl queues a rendered declaration: appended at end of file for
// existing documents, collected for assembly on new ones.
func (fc *fileCtx) addDecl(text string) {
	if fc.doc == nil {
		fc.newDecls = append(fc.newDecls, text)
		return
	}
	src := fc.doc.Src()
	sep := "\n"
	if len(src) > 0 && src[len(src)-1] != '\n' {
		sep = "\n\n"
	}
	fc.doc.InsertAt(uint32(len(src)), sep+text+"\n")
}

// flushImports materializes the pending import requests: folded into an
// existing named clause when the specifier is already imported, emitted as
// fresh statements after the last import otherwise.
func (fc *fileCtx) flushImports() {
	if fc.doc == nil || len(fc.reqs) == 0 {
		return
	}

	var fresh []string
	for _, req := range fc.reqs {
		if imp := fc.findImport(req); imp != nil {
			if named := fc.doc.NamedImportsNode(imp); named != nil {
				fc.appendSpecifiers(named, req)
				continue
			}
		}
		fresh = append(fresh, renderImport(req, fc.quote))
	}
	if len(fresh) == 0 {
		return
	}

	block := strings.Join(fresh, "\n")
	if last := fc.doc.LastImport(); last != nil {
		fc.doc.InsertAt(last.EndByte(), "\n"+block)
	} else if first := fc.firstStatement(); first != nil {
		fc.doc.InsertAt(first.StartByte(), block+"\n\n")
	} else {
		fc.doc.InsertAt(uint32(len(fc.doc.Src())), block+"\n")
	}
}

func (fc *fileCtx) findImport(req *importReq) *tscode.Import {
	for _, imp := range fc.doc.Imports() {
		if importMatches(fc.rel, imp, req.source, req.file) {
			return imp
		}
	}
	return nil
}

func importMatches(rel string, imp *tscode.Import, source, file string) bool {
	if file != "" {
		return resolveSpecifier(rel, imp.Source) == file
	}
	return imp.Source == source
}

func (fc *fileCtx) appendSpecifiers(named *sitter.Node, req *importReq) {
	specs := make([]string, 0, len(req.names))
	for _, n := range req.names {
		specs = append(specs, renderSpecifier(n))
	}

	var last *sitter.Node
	for i := 0; i < int(named.NamedChildCount()); i++ {
		ch := named.NamedChild(i)
		if ch.Type() == "import_specifier" {
			last = ch
		}
	}
	if last != nil {
		fc.doc.InsertAt(last.EndByte(), ", "+strings.Join(specs, ", "))
		return
	}
	// empty clause: import {} from '...'
	fc.doc.InsertAt(named.StartByte()+1, " "+strings.Join(specs, ", ")+" ")
}

func (fc *fileCtx) firstStatement() *sitter.Node {
	root := fc.doc.Root()
	for i := 0; i < int(root.ChildCount()); i++ {
		ch := root.Child(i)
		if ch.Type() != "comment" {
			return ch
		}
	}
	return nil
}

func renderImport(req *importReq, quote byte) string {
	specs := make([]string, 0, len(req.names))
	for _, n := range req.names {
		specs = append(specs, renderSpecifier(n))
	}
	return "import { " + strings.Join(specs, ", ") + " } from " +
		tscode.QuoteString(req.source, quote) + ";"
}

func renderSpecifier(n importName) string {
	if n.local != "" {
		return n.name + " as " + n.local
	}
	return n.name
}

// render assembles the full content of a file created this run.
func (fc *fileCtx) render() string {
	var b strings.Builder
	for _, req := range fc.reqs {
		b.WriteString(renderImport(req, fc.quote))
		b.WriteString("\n")
	}
	if len(fc.reqs) > 0 && len(fc.newDecls) > 0 {
		b.WriteString("\n")
	}
	for i, decl := range fc.newDecls {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(decl)
		b.WriteString("\n")
	}
	return b.String()
}

// relativeSpecifier builds the import specifier for file to as written from
// file from. Both are slash-separated paths relative to the target root.
func relativeSpecifier(from, to string) string {
	to = strings.TrimSuffix(to, ".ts")
	toParts := strings.Split(to, "/")

	var fromParts []string
	if dir := path.Dir(from); dir != "." {
		fromParts = strings.Split(dir, "/")
	}

	common := 0
	for common < len(fromParts) && common < len(toParts)-1 && fromParts[common] == toParts[common] {
		common++
	}

	parts := make([]string, 0, len(fromParts)-common+len(toParts)-common)
	for i := common; i < len(fromParts); i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, toParts[common:]...)

	spec := strings.Join(parts, "/")
	if !strings.HasPrefix(spec, ".") {
		spec = "./" + spec
	}
	return spec
}

// resolveSpecifier maps a relative import specifier back to a target-root
// path. Bare module specifiers resolve to "".
func resolveSpecifier(from, source string) string {
	if !strings.HasPrefix(source, ".") {
		return ""
	}
	joined := path.Join(path.Dir(from), source)
	joined = strings.TrimSuffix(joined, ".js")
	joined = strings.TrimSuffix(joined, ".ts")
	return joined + ".ts"
}
