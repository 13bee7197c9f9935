package tscode

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Declaration is a top-level `const` or `export const` binding, with the
// callee and argument object resolved when the value is a factory call.
type Declaration struct {
	Stmt       *sitter.Node // export_statement or lexical_declaration
	Declarator *sitter.Node // variable_declarator
	NameNode   *sitter.Node
	Name       string
	Exported   bool

	Value  *sitter.Node // declarator value, nil for `const x;`
	Call   *sitter.Node // call_expression when the value is a call
	Callee string       // callee identifier, "" for member or computed callees
	Arg    *sitter.Node // first argument when it is an object literal

	// LeadingComments are the comment nodes directly above the statement
	// with no blank line separating them from it.
	LeadingComments []*sitter.Node
	// BlankBefore reports a blank line between this declaration block
	// (including its leading comments) and the preceding statement.
	BlankBefore bool
}

// Declarations returns the top-level const bindings of the document, in
// source order. Results are cached; the document is never re-parsed.
func (d *Document) Declarations() []*Declaration {
	if d.decls != nil {
		return d.decls
	}
	d.decls = []*Declaration{}

	for i := 0; i < int(d.root.ChildCount()); i++ {
		stmt := d.root.Child(i)

		var lexical *sitter.Node
		exported := false
		switch stmt.Type() {
		case "lexical_declaration":
			lexical = stmt
		case "export_statement":
			decl := stmt.ChildByFieldName("declaration")
			if decl == nil || decl.Type() != "lexical_declaration" {
				continue
			}
			lexical = decl
			exported = true
		default:
			continue
		}

		for j := 0; j < int(lexical.ChildCount()); j++ {
			declarator := lexical.Child(j)
			if declarator.Type() != "variable_declarator" {
				continue
			}
			nameNode := declarator.ChildByFieldName("name")
			if nameNode == nil || nameNode.Type() != "identifier" {
				continue
			}

			decl := &Declaration{
				Stmt:       stmt,
				Declarator: declarator,
				NameNode:   nameNode,
				Name:       nameNode.Content(d.src),
				Exported:   exported,
				Value:      declarator.ChildByFieldName("value"),
			}
			decl.resolveCall(d.src)
			decl.LeadingComments = leadingComments(stmt, d.src)
			decl.BlankBefore = blankBefore(stmt, decl.LeadingComments, d.src)
			d.decls = append(d.decls, decl)
		}
	}
	return d.decls
}

// resolveCall fills Call, Callee and Arg when the declarator value is a
// plain factory call `name({...})`.
func (decl *Declaration) resolveCall(src []byte) {
	if decl.Value == nil || decl.Value.Type() != "call_expression" {
		return
	}
	decl.Call = decl.Value

	fn := decl.Call.ChildByFieldName("function")
	if fn != nil && fn.Type() == "identifier" {
		decl.Callee = fn.Content(src)
	}

	args := decl.Call.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() == "comment" {
			continue
		}
		if arg.Type() == "object" {
			decl.Arg = arg
		}
		break
	}
}

// leadingComments collects the comment nodes immediately above stmt. A blank
// line between a comment and the statement breaks the attachment.
func leadingComments(stmt *sitter.Node, src []byte) []*sitter.Node {
	var comments []*sitter.Node
	expectRow := stmt.StartPoint().Row

	prev := stmt.PrevSibling()
	for prev != nil && prev.Type() == "comment" {
		if prev.EndPoint().Row+1 < expectRow {
			break
		}
		comments = append([]*sitter.Node{prev}, comments...)
		expectRow = prev.StartPoint().Row
		prev = prev.PrevSibling()
	}
	return comments
}

// blankBefore reports whether a blank line precedes the declaration block.
func blankBefore(stmt *sitter.Node, comments []*sitter.Node, src []byte) bool {
	first := stmt
	if len(comments) > 0 {
		first = comments[0]
	}
	prev := first.PrevSibling()
	if prev == nil {
		return false
	}
	return first.StartPoint().Row > prev.EndPoint().Row+1
}
