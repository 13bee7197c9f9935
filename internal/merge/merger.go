package merge

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/inkeep/agents-sync/internal/frontmatter"
	"github.com/inkeep/agents-sync/internal/graph"
	"github.com/inkeep/agents-sync/internal/index"
	"github.com/inkeep/agents-sync/internal/model"
)

// Mode selects how existing declarations are reconciled.
type Mode int

const (
	// ModeMerge patches managed fields in place and preserves everything
	// the human wrote.
	ModeMerge Mode = iota
	// ModeOverwrite regenerates the managed argument object wholesale,
	// keeping only the declaration name and its surroundings.
	ModeOverwrite
)

func (m Mode) String() string {
	if m == ModeOverwrite {
		return "overwrite"
	}
	return "merge"
}

// Outcome is the per-entity result of one run.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeUpdated       Outcome = "updated"
	OutcomeUnchanged     Outcome = "unchanged"
	OutcomeSkippedManual Outcome = "skipped-manual"
	OutcomeFailed        Outcome = "failed"
)

// EntityResult records what happened to one canonical entity.
type EntityResult struct {
	Kind    model.Kind
	ID      string
	Outcome Outcome
	File    string
	Err     error
}

// OutFile is one file the run wants on disk. Original is nil for files
// created this run; the emitter byte-compares before writing.
type OutFile struct {
	Rel      string
	Content  []byte
	Original []byte
}

// OrphanedBinding is a tree declaration whose (kind, id) no longer exists
// in the canonical graph. Orphans are reported, never deleted.
type OrphanedBinding struct {
	Kind model.Kind
	ID   string
	Name string
	File string
}

// Summary aggregates a full run: per-entity outcomes, the files to write,
// orphaned declarations and the collected warnings.
type Summary struct {
	Entities []EntityResult
	Files    []*OutFile
	Orphaned []OrphanedBinding
	Warnings []string
}

// Count returns how many entities finished with the given outcome.
func (s *Summary) Count(o Outcome) int {
	n := 0
	for _, e := range s.Entities {
		if e.Outcome == o {
			n++
		}
	}
	return n
}

// Merger reconciles a canonical graph against an indexed source tree. It
// never touches the filesystem; the caller decides what to do with the
// resulting files.
type Merger struct {
	graph *graph.Graph
	index *index.Index
	mode  Mode
	width int

	files    map[string]*fileCtx
	order    []string
	mdFiles  []*OutFile
	warnings []string
	exported map[*index.Binding]bool
}

// New builds a merger over a validated graph and a scanned index.
func New(g *graph.Graph, x *index.Index, mode Mode) *Merger {
	return &Merger{
		graph:    g,
		index:    x,
		mode:     mode,
		width:    defaultWidth,
		files:    make(map[string]*fileCtx),
		exported: make(map[*index.Binding]bool),
	}
}

// Run merges every canonical entity and returns the aggregate summary.
func (m *Merger) Run() (*Summary, error) {
	result := &Summary{}

	for _, f := range m.graph.Failed {
		result.Entities = append(result.Entities, EntityResult{
			Kind: f.Kind, ID: f.ID, Outcome: OutcomeFailed, Err: f.Err,
		})
	}
	for _, u := range m.graph.Unresolved {
		m.warnings = append(m.warnings, u.Error())
	}
	for _, pe := range m.index.ParseErrors {
		m.warnings = append(m.warnings, pe.Error())
	}
	for _, md := range m.index.Manual {
		m.warnf("%s:%d: %s declaration %q has a non-literal id, skipped", md.File, md.Line, md.Kind, md.Name)
	}

	preset := m.plan()

	for _, e := range m.graph.Entities() {
		if e.Kind == model.KindSkill || e.Kind == model.KindPolicy {
			result.Entities = append(result.Entities, m.mergeDocument(e))
			continue
		}
		if r, ok := preset[entityKey(e.Kind, e.ID)]; ok {
			result.Entities = append(result.Entities, *r)
			continue
		}
		result.Entities = append(result.Entities, m.mergeEntity(e))
	}

	for _, rel := range m.order {
		m.files[rel].flushImports()
	}

	// exporting a referenced declaration edits its file after that
	// entity's own outcome was recorded
	for i := range result.Entities {
		er := &result.Entities[i]
		if er.Outcome != OutcomeUnchanged {
			continue
		}
		if b, ok := m.index.Binding(er.Kind, er.ID); ok && m.exported[b] {
			er.Outcome = OutcomeUpdated
		}
	}

	for _, b := range m.index.Bindings() {
		if _, ok := m.graph.Lookup(b.Kind, b.ID); ok {
			continue
		}
		result.Orphaned = append(result.Orphaned, OrphanedBinding{
			Kind: b.Kind, ID: b.ID, Name: b.Name, File: b.File,
		})
	}

	files, err := m.collectFiles()
	if err != nil {
		return nil, err
	}
	result.Files = files
	result.Warnings = m.warnings
	return result, nil
}

// plan decides, before any merging, which entities cannot be merged and
// binds a name for every entity that will be created, so references
// between entities created in the same run resolve in both directions.
func (m *Merger) plan() map[string]*EntityResult {
	preset := make(map[string]*EntityResult)

	manualAt := make(map[string]bool)
	for _, md := range m.index.Manual {
		manualAt[md.File+"\x00"+string(md.Kind)] = true
	}
	ambByKey := make(map[string]*index.AmbiguousIdError)
	for _, amb := range m.index.Ambiguous {
		ambByKey[entityKey(amb.Kind, amb.ID)] = amb
	}

	for _, e := range m.graph.Entities() {
		if e.Kind == model.KindSkill || e.Kind == model.KindPolicy {
			continue
		}
		key := entityKey(e.Kind, e.ID)

		if amb, ok := ambByKey[key]; ok {
			preset[key] = &EntityResult{Kind: e.Kind, ID: e.ID, Outcome: OutcomeFailed, File: e.Path, Err: amb}
			continue
		}
		if _, ok := m.index.Binding(e.Kind, e.ID); ok {
			continue
		}
		if m.index.Broken(e.Path) {
			preset[key] = &EntityResult{
				Kind: e.Kind, ID: e.ID, Outcome: OutcomeFailed, File: e.Path,
				Err: fmt.Errorf("target file %s failed to parse", e.Path),
			}
			continue
		}
		if manualAt[e.Path+"\x00"+string(e.Kind)] {
			preset[key] = &EntityResult{Kind: e.Kind, ID: e.ID, Outcome: OutcomeSkippedManual, File: e.Path}
			continue
		}

		name := deriveName(e.ID)
		base := name
		for i := 2; m.index.NameTaken(e.Path, name); i++ {
			name = base + strconv.Itoa(i)
		}
		m.index.Bind(&index.Binding{Kind: e.Kind, ID: e.ID, Name: name, Exported: true, File: e.Path})
	}
	return preset
}

// mergeEntity reconciles one builder-declared entity.
func (m *Merger) mergeEntity(e *graph.Entity) EntityResult {
	b, ok := m.index.Binding(e.Kind, e.ID)
	if !ok {
		return EntityResult{
			Kind: e.Kind, ID: e.ID, Outcome: OutcomeFailed, File: e.Path,
			Err: fmt.Errorf("no binding for %s %q", e.Kind, e.ID),
		}
	}

	props := m.propsFor(e)
	fc := m.fileFor(b.File)

	if b.Decl == nil {
		factory := fc.ensureModuleImport(model.SDKModule, e.Kind.Factory())
		st := style{quote: fc.quote, multiline: true, width: m.width}
		decl := "export const " + b.Name + " = " + factory + "(" + renderObject(fc, props, st) + ");"
		fc.addDecl(decl)
		return EntityResult{Kind: e.Kind, ID: e.ID, Outcome: OutcomeCreated, File: b.File}
	}

	doc := fc.doc
	baseline := doc.EditCount()

	if m.mode == ModeOverwrite {
		st := style{
			quote:     fc.quote,
			indent:    doc.LineIndent(b.Decl.Arg.StartByte()),
			multiline: true,
			width:     m.width,
		}
		rendered := renderObject(fc, props, st)
		if rendered != doc.Text(b.Decl.Arg) {
			doc.Replace(b.Decl.Arg, rendered)
		}
	} else {
		label := fmt.Sprintf("%s %q", e.Kind, e.ID)
		fc.patchObject(b.Decl.Arg, props, label, "")
	}

	outcome := OutcomeUnchanged
	if doc.EditCount() > baseline {
		outcome = OutcomeUpdated
	}
	return EntityResult{Kind: e.Kind, ID: e.ID, Outcome: outcome, File: b.File}
}

// mergeDocument reconciles a front-matter entity (skill or policy).
func (m *Merger) mergeDocument(e *graph.Entity) EntityResult {
	d := documentFor(e)
	res := EntityResult{Kind: e.Kind, ID: e.ID, File: e.Path}

	raw, exists := m.index.Raw(e.Path)
	if !exists {
		content, err := frontmatter.Render(d)
		if err != nil {
			res.Outcome, res.Err = OutcomeFailed, err
			return res
		}
		m.mdFiles = append(m.mdFiles, &OutFile{Rel: e.Path, Content: content})
		res.Outcome = OutcomeCreated
		return res
	}

	var content []byte
	var changed bool
	var err error
	if m.mode == ModeOverwrite {
		content, err = frontmatter.Render(d)
		changed = err == nil && !bytes.Equal(content, raw)
	} else {
		content, changed, err = frontmatter.Patch(raw, d)
	}
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	if !changed {
		res.Outcome = OutcomeUnchanged
		return res
	}
	m.mdFiles = append(m.mdFiles, &OutFile{Rel: e.Path, Content: content, Original: raw})
	res.Outcome = OutcomeUpdated
	return res
}

func documentFor(e *graph.Entity) frontmatter.Doc {
	switch t := e.Value.(type) {
	case *model.Skill:
		return frontmatter.Doc{Name: t.Name, Description: t.Description, Metadata: t.Metadata, Body: t.Content}
	case *model.Policy:
		return frontmatter.Doc{Name: t.Name, Description: t.Description, Metadata: t.Metadata, Body: t.Content}
	}
	return frontmatter.Doc{}
}

// collectFiles assembles every file the run changed or created, sorted by
// path for stable output.
func (m *Merger) collectFiles() ([]*OutFile, error) {
	var files []*OutFile

	docs := m.index.Docs()
	rels := make([]string, 0, len(docs))
	for rel := range docs {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	for _, rel := range rels {
		doc := docs[rel]
		if !doc.Dirty() {
			continue
		}
		content, err := doc.Apply()
		if err != nil {
			return nil, fmt.Errorf("applying edits to %s: %w", rel, err)
		}
		files = append(files, &OutFile{Rel: rel, Content: content, Original: doc.Src()})
	}

	for _, rel := range m.order {
		fc := m.files[rel]
		if fc.doc != nil {
			continue
		}
		if len(fc.newDecls) == 0 && len(fc.reqs) == 0 {
			continue
		}
		files = append(files, &OutFile{Rel: rel, Content: []byte(fc.render())})
	}

	files = append(files, m.mdFiles...)
	sort.Slice(files, func(i, j int) bool { return files[i].Rel < files[j].Rel })
	return files, nil
}

func (m *Merger) fileFor(rel string) *fileCtx {
	if fc, ok := m.files[rel]; ok {
		return fc
	}
	fc := newFileCtx(m, rel)
	m.files[rel] = fc
	m.order = append(m.order, rel)
	return fc
}

// canRef reports whether (kind, id) has a binding a reference can point
// at.
func (m *Merger) canRef(kind model.Kind, id string) bool {
	_, ok := m.index.Binding(kind, id)
	return ok
}

// exportBinding makes a declaration importable by inserting the export
// keyword, once.
func (m *Merger) exportBinding(b *index.Binding) {
	if b.Exported || b.Decl == nil || m.exported[b] {
		return
	}
	if doc := m.index.Doc(b.File); doc != nil {
		doc.InsertAt(b.Decl.Stmt.StartByte(), "export ")
	}
	m.exported[b] = true
	b.Exported = true
}

func (m *Merger) warnf(format string, args ...any) {
	m.warnings = append(m.warnings, fmt.Sprintf(format, args...))
}

func entityKey(kind model.Kind, id string) string {
	return string(kind) + "\x00" + id
}
