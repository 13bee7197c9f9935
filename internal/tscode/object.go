package tscode

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Pair is one `key: value` member of an object literal.
type Pair struct {
	Node  *sitter.Node // the pair node
	Key   string       // normalized key (quotes stripped)
	Value *sitter.Node
}

// Pairs returns the key/value members of an object literal in source order.
// Shorthand members, spreads, methods and comments are not returned; they
// belong to the human.
func (d *Document) Pairs(obj *sitter.Node) []Pair {
	if obj == nil || obj.Type() != "object" {
		return nil
	}
	var pairs []Pair
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		member := obj.NamedChild(i)
		if member.Type() != "pair" {
			continue
		}
		keyNode := member.ChildByFieldName("key")
		valueNode := member.ChildByFieldName("value")
		if keyNode == nil || valueNode == nil {
			continue
		}
		pairs = append(pairs, Pair{
			Node:  member,
			Key:   d.pairKey(keyNode),
			Value: valueNode,
		})
	}
	return pairs
}

// Pair finds the member with the given key, or nil.
func (d *Document) Pair(obj *sitter.Node, key string) *Pair {
	for _, p := range d.Pairs(obj) {
		if p.Key == key {
			pair := p
			return &pair
		}
	}
	return nil
}

func (d *Document) pairKey(keyNode *sitter.Node) string {
	switch keyNode.Type() {
	case "property_identifier":
		return keyNode.Content(d.src)
	case "string":
		if s, ok := d.StringValue(keyNode); ok {
			return s
		}
	}
	return keyNode.Content(d.src)
}

// Elements returns the element nodes of an array literal, skipping comments.
func (d *Document) Elements(arr *sitter.Node) []*sitter.Node {
	if arr == nil || arr.Type() != "array" {
		return nil
	}
	var elems []*sitter.Node
	for i := 0; i < int(arr.NamedChildCount()); i++ {
		el := arr.NamedChild(i)
		if el.Type() == "comment" {
			continue
		}
		elems = append(elems, el)
	}
	return elems
}

// Members returns the member nodes of an object or array literal in source
// order, skipping comments. For objects this includes shorthand members,
// spreads and methods alongside pairs.
func (d *Document) Members(literal *sitter.Node) []*sitter.Node {
	if literal == nil {
		return nil
	}
	var members []*sitter.Node
	for i := 0; i < int(literal.NamedChildCount()); i++ {
		m := literal.NamedChild(i)
		if m.Type() == "comment" {
			continue
		}
		members = append(members, m)
	}
	return members
}

// CommaAfter returns the first comma token of the literal starting at or
// past pos, or nil. Commas of nested literals are not visited.
func (d *Document) CommaAfter(literal *sitter.Node, pos uint32) *sitter.Node {
	for i := 0; i < int(literal.ChildCount()); i++ {
		child := literal.Child(i)
		if child.Type() == "," && child.StartByte() >= pos {
			return child
		}
	}
	return nil
}

// CommaBefore returns the last comma token of the literal ending at or
// before pos, or nil.
func (d *Document) CommaBefore(literal *sitter.Node, pos uint32) *sitter.Node {
	var found *sitter.Node
	for i := 0; i < int(literal.ChildCount()); i++ {
		child := literal.Child(i)
		if child.Type() == "," && child.EndByte() <= pos {
			found = child
		}
	}
	return found
}

// OpenToken returns the opening `{` or `[` of an object or array literal.
func (d *Document) OpenToken(literal *sitter.Node) *sitter.Node {
	for i := 0; i < int(literal.ChildCount()); i++ {
		child := literal.Child(i)
		if t := child.Type(); t == "{" || t == "[" {
			return child
		}
	}
	return nil
}

// CloseToken returns the closing `}` or `]` of an object or array literal.
func (d *Document) CloseToken(literal *sitter.Node) *sitter.Node {
	for i := int(literal.ChildCount()) - 1; i >= 0; i-- {
		child := literal.Child(i)
		if t := child.Type(); t == "}" || t == "]" {
			return child
		}
	}
	return nil
}

// CloseBrace returns the closing `}` token of an object literal.
func (d *Document) CloseBrace(obj *sitter.Node) *sitter.Node {
	for i := int(obj.ChildCount()) - 1; i >= 0; i-- {
		child := obj.Child(i)
		if child.Type() == "}" {
			return child
		}
	}
	return nil
}

// CloseBracket returns the closing `]` token of an array literal.
func (d *Document) CloseBracket(arr *sitter.Node) *sitter.Node {
	for i := int(arr.ChildCount()) - 1; i >= 0; i-- {
		child := arr.Child(i)
		if child.Type() == "]" {
			return child
		}
	}
	return nil
}

// LastMember returns the last named member of an object or array literal,
// comments included, or nil for an empty literal.
func (d *Document) LastMember(literal *sitter.Node) *sitter.Node {
	count := int(literal.NamedChildCount())
	if count == 0 {
		return nil
	}
	return literal.NamedChild(count - 1)
}

// HasTrailingComma reports whether the last member of an object or array
// literal is followed by a comma.
func (d *Document) HasTrailingComma(literal *sitter.Node) bool {
	last := d.LastMember(literal)
	if last == nil {
		return false
	}
	for i := 0; i < int(literal.ChildCount()); i++ {
		child := literal.Child(i)
		if child.StartByte() >= last.EndByte() && child.Type() == "," {
			return true
		}
	}
	return false
}

// ArrowBody returns the body of an arrow function value, or nil when the
// value is not an arrow function. `() => [...]` yields the array node.
func ArrowBody(value *sitter.Node) *sitter.Node {
	if value == nil || value.Type() != "arrow_function" {
		return nil
	}
	return value.ChildByFieldName("body")
}
