package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/inkeep/agents-sync/internal/model"
	"github.com/inkeep/agents-sync/internal/tscode"
)

// Binding maps one (kind, id) to the declaration expressing it. Bindings
// created during a run have no Decl or Doc; only their name and file are
// known until the file is rendered.
type Binding struct {
	Kind     model.Kind
	ID       string
	Name     string
	Exported bool
	File     string // relative to the target root, forward slashes

	Decl *tscode.Declaration
	Doc  *tscode.Document
}

// ManualDeclaration is a recognized factory call whose id is not a literal
// string. It is excluded from synchronization and reported.
type ManualDeclaration struct {
	File string
	Line int
	Name string
	Kind model.Kind
}

// AmbiguousIdError reports two or more declarations claiming one (kind, id).
type AmbiguousIdError struct {
	Kind  model.Kind
	ID    string
	Files []string
}

func (e *AmbiguousIdError) Error() string {
	return fmt.Sprintf("%s id %q is declared in multiple files: %s", e.Kind, e.ID, strings.Join(e.Files, ", "))
}

// Index is the per-run binding table plus everything the scan learned about
// the target tree.
type Index struct {
	Root string

	bindings map[model.Kind]map[string]*Binding
	byName   map[string]map[string]*Binding // file → declaration name → binding
	docs     map[string]*tscode.Document
	names    map[string]map[string]bool // file → identifiers in scope
	broken   map[string]bool
	raw      map[string][]byte // markdown documents, unparsed

	Manual      []*ManualDeclaration
	Ambiguous   []*AmbiguousIdError
	ParseErrors []*tscode.ParseError

	ambiguous map[string]*AmbiguousIdError
}

// Scan walks root and indexes every TypeScript file. A missing root yields
// an empty index; anything else that prevents the walk is an error.
func Scan(ctx context.Context, root string) (*Index, error) {
	x := &Index{
		Root:      root,
		bindings:  make(map[model.Kind]map[string]*Binding),
		byName:    make(map[string]map[string]*Binding),
		docs:      make(map[string]*tscode.Document),
		names:     make(map[string]map[string]bool),
		broken:    make(map[string]bool),
		raw:       make(map[string][]byte),
		ambiguous: make(map[string]*AmbiguousIdError),
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if strings.HasSuffix(d.Name(), ".md") {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			x.raw[rel] = data
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".ts") || strings.HasSuffix(d.Name(), ".d.ts") {
			return nil
		}
		return x.scanFile(ctx, rel, path)
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	return x, nil
}

func skipDir(name string) bool {
	return name == "node_modules" || name == "dist" || name == "build" || strings.HasPrefix(name, ".")
}

func (x *Index) scanFile(ctx context.Context, rel, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	doc, err := tscode.Parse(ctx, rel, src)
	if err != nil {
		var perr *tscode.ParseError
		if errors.As(err, &perr) {
			x.ParseErrors = append(x.ParseErrors, perr)
			x.broken[rel] = true
			return nil
		}
		return err
	}
	x.docs[rel] = doc

	names := make(map[string]bool)
	for _, imp := range doc.Imports() {
		if imp.Default != "" {
			names[imp.Default] = true
		}
		if imp.Namespace != "" {
			names[imp.Namespace] = true
		}
		for _, ni := range imp.Named {
			names[ni.Local] = true
		}
	}

	for _, decl := range doc.Declarations() {
		names[decl.Name] = true
		if decl.Callee == "" {
			continue
		}
		kind, ok := model.FactoryKinds[decl.Callee]
		if !ok {
			continue
		}

		id, literal := declarationID(doc, decl)
		if !literal {
			x.Manual = append(x.Manual, &ManualDeclaration{
				File: rel,
				Line: doc.LineOf(decl.Stmt),
				Name: decl.Name,
				Kind: kind,
			})
			continue
		}

		x.bind(&Binding{
			Kind:     kind,
			ID:       id,
			Name:     decl.Name,
			Exported: decl.Exported,
			File:     rel,
			Decl:     decl,
			Doc:      doc,
		})
	}

	x.names[rel] = names
	return nil
}

// declarationID reads the declaration's id field as a literal string.
func declarationID(doc *tscode.Document, decl *tscode.Declaration) (string, bool) {
	if decl.Arg == nil {
		return "", false
	}
	pair := doc.Pair(decl.Arg, "id")
	if pair == nil {
		return "", false
	}
	return doc.StringValue(pair.Value)
}

// bind enters a binding, demoting the id to ambiguous on collision.
func (x *Index) bind(b *Binding) {
	key := string(b.Kind) + "\x00" + b.ID

	if amb, ok := x.ambiguous[key]; ok {
		amb.Files = append(amb.Files, b.File)
		return
	}

	byID := x.bindings[b.Kind]
	if byID == nil {
		byID = make(map[string]*Binding)
		x.bindings[b.Kind] = byID
	}

	if prior, ok := byID[b.ID]; ok {
		amb := &AmbiguousIdError{Kind: b.Kind, ID: b.ID, Files: []string{prior.File, b.File}}
		x.ambiguous[key] = amb
		x.Ambiguous = append(x.Ambiguous, amb)
		delete(byID, b.ID)
		delete(x.byName[prior.File], prior.Name)
		return
	}
	byID[b.ID] = b

	names := x.byName[b.File]
	if names == nil {
		names = make(map[string]*Binding)
		x.byName[b.File] = names
	}
	names[b.Name] = b
}

// BindingByName finds the binding declared under name in file, if any.
func (x *Index) BindingByName(file, name string) (*Binding, bool) {
	b, ok := x.byName[file][name]
	return b, ok
}

// Binding looks up the declaration bound to (kind, id).
func (x *Index) Binding(kind model.Kind, id string) (*Binding, bool) {
	b, ok := x.bindings[kind][id]
	return b, ok
}

// Bindings returns every binding ordered by kind then id.
func (x *Index) Bindings() []*Binding {
	var out []*Binding
	for _, byID := range x.bindings {
		for _, b := range byID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// AmbiguousID reports whether (kind, id) is claimed by multiple files.
func (x *Index) AmbiguousID(kind model.Kind, id string) bool {
	_, ok := x.ambiguous[string(kind)+"\x00"+id]
	return ok
}

// Bind registers a binding created during the run so later entities can
// reference it. The caller has already checked for an existing binding.
func (x *Index) Bind(b *Binding) {
	x.bind(b)
	if b.Name != "" {
		x.addName(b.File, b.Name)
	}
}

func (x *Index) addName(file, name string) {
	names := x.names[file]
	if names == nil {
		names = make(map[string]bool)
		x.names[file] = names
	}
	names[name] = true
}

// Doc returns the parsed document for a scanned file, nil when the file did
// not exist at scan time or failed to parse.
func (x *Index) Doc(rel string) *tscode.Document {
	return x.docs[rel]
}

// Docs returns every parsed document keyed by relative path.
func (x *Index) Docs() map[string]*tscode.Document {
	return x.docs
}

// Broken reports whether rel exists but failed to parse. Such files are
// never written.
func (x *Index) Broken(rel string) bool {
	return x.broken[rel]
}

// Raw returns the bytes of a markdown document found by the scan.
func (x *Index) Raw(rel string) ([]byte, bool) {
	data, ok := x.raw[rel]
	return data, ok
}

// NameTaken reports whether an identifier is already in scope in rel,
// counting imports, declarations and bindings added this run.
func (x *Index) NameTaken(rel, name string) bool {
	return x.names[rel][name]
}

// TakeName reserves an identifier in rel's scope.
func (x *Index) TakeName(rel, name string) {
	x.addName(rel, name)
}

// Close releases every parse tree held by the index.
func (x *Index) Close() {
	for _, doc := range x.docs {
		doc.Close()
	}
}
