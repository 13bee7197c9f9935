package tscode

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// NamedImport is one specifier in an import clause. Local is the in-file
// binding: the alias when `name as alias` is used, otherwise the name.
type NamedImport struct {
	Name  string
	Local string
}

// Import is one parsed import statement.
type Import struct {
	Stmt      *sitter.Node
	Source    string // module specifier, quotes stripped
	Default   string // default import binding, "" if none
	Namespace string // `* as ns` binding, "" if none
	Named     []NamedImport
}

// Imports returns the document's import statements in source order. Results
// are cached.
func (d *Document) Imports() []*Import {
	if d.imps != nil {
		return d.imps
	}
	d.imps = []*Import{}

	for i := 0; i < int(d.root.ChildCount()); i++ {
		stmt := d.root.Child(i)
		if stmt.Type() != "import_statement" {
			continue
		}
		imp := &Import{Stmt: stmt}

		if srcNode := stmt.ChildByFieldName("source"); srcNode != nil {
			imp.Source = UnquoteString(srcNode.Content(d.src))
		}

		for j := 0; j < int(stmt.NamedChildCount()); j++ {
			child := stmt.NamedChild(j)
			if child.Type() != "import_clause" {
				continue
			}
			d.parseImportClause(child, imp)
		}
		d.imps = append(d.imps, imp)
	}
	return d.imps
}

func (d *Document) parseImportClause(clause *sitter.Node, imp *Import) {
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		part := clause.NamedChild(i)
		switch part.Type() {
		case "identifier":
			imp.Default = part.Content(d.src)
		case "namespace_import":
			for j := 0; j < int(part.NamedChildCount()); j++ {
				if id := part.NamedChild(j); id.Type() == "identifier" {
					imp.Namespace = id.Content(d.src)
				}
			}
		case "named_imports":
			for j := 0; j < int(part.NamedChildCount()); j++ {
				spec := part.NamedChild(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				if nameNode == nil {
					continue
				}
				ni := NamedImport{Name: d.importedName(nameNode)}
				ni.Local = ni.Name
				if aliasNode := spec.ChildByFieldName("alias"); aliasNode != nil {
					ni.Local = aliasNode.Content(d.src)
				}
				imp.Named = append(imp.Named, ni)
			}
		}
	}
}

func (d *Document) importedName(n *sitter.Node) string {
	if n.Type() == "string" {
		return UnquoteString(n.Content(d.src))
	}
	return n.Content(d.src)
}

// NamedImportsNode returns the `{ ... }` named-imports node of an import
// statement, or nil when the statement has none.
func (d *Document) NamedImportsNode(imp *Import) *sitter.Node {
	for i := 0; i < int(imp.Stmt.NamedChildCount()); i++ {
		child := imp.Stmt.NamedChild(i)
		if child.Type() != "import_clause" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			part := child.NamedChild(j)
			if part.Type() == "named_imports" {
				return part
			}
		}
	}
	return nil
}

// LastImport returns the final import statement of the document, or nil.
func (d *Document) LastImport() *sitter.Node {
	imports := d.Imports()
	if len(imports) == 0 {
		return nil
	}
	return imports[len(imports)-1].Stmt
}
