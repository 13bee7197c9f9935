// Package frontmatter renders and patches the YAML front-matter block of
// skill and policy documents. The managed keys are name, description and
// the canonical metadata; everything else in the block, and the whole
// markdown body, belongs to the human.
package frontmatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"go.yaml.in/yaml/v3"
)

const delimiter = "---"

// Doc is the canonical content of one front-matter document.
type Doc struct {
	Name        string
	Description string
	Metadata    map[string]any
	Body        string
}

// Render produces a complete document for a file created this run.
func Render(d Doc) ([]byte, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	if err := setManagedKeys(mapping, d); err != nil {
		return nil, err
	}

	block, err := encodeBlock(mapping)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(block)
	if d.Body != "" {
		buf.WriteString("\n")
		buf.WriteString(d.Body)
		if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}

// Patch reconciles an existing document's front matter with the canonical
// values. The body and unmanaged keys are preserved; a document whose
// managed values already match comes back byte-identical. The second
// return reports whether anything changed.
func Patch(existing []byte, d Doc) ([]byte, bool, error) {
	fm, body, found := split(existing)
	if !found {
		// no front-matter block yet; the whole file is the body
		out, err := Render(Doc{
			Name:        d.Name,
			Description: d.Description,
			Metadata:    d.Metadata,
			Body:        string(existing),
		})
		if err != nil {
			return nil, false, err
		}
		return out, !bytes.Equal(out, existing), nil
	}

	if matches(fm, d) {
		return existing, false, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(fm, &root); err != nil {
		return nil, false, fmt.Errorf("front matter: %w", err)
	}

	mapping := documentMapping(&root)
	if mapping == nil {
		return nil, false, fmt.Errorf("front matter is not a mapping")
	}
	if err := setManagedKeys(mapping, d); err != nil {
		return nil, false, err
	}

	block, err := encodeBlock(mapping)
	if err != nil {
		return nil, false, err
	}

	var buf bytes.Buffer
	buf.Write(block)
	buf.Write(body)
	return buf.Bytes(), true, nil
}

// split separates the leading front-matter block from the body. body keeps
// its bytes exactly as found, including the newline that follows the
// closing delimiter line.
func split(data []byte) (fm, body []byte, found bool) {
	if !bytes.HasPrefix(data, []byte(delimiter)) {
		return nil, data, false
	}
	rest := data[len(delimiter):]
	if len(rest) > 0 && rest[0] == '\r' {
		rest = rest[1:]
	}
	if len(rest) == 0 || rest[0] != '\n' {
		return nil, data, false
	}
	rest = rest[1:]

	for _, marker := range []string{"\n---\n", "\n---\r\n"} {
		if i := bytes.Index(rest, []byte(marker)); i >= 0 {
			return rest[:i+1], rest[i+len(marker):], true
		}
	}
	if bytes.HasSuffix(rest, []byte("\n---")) {
		return rest[:len(rest)-3], nil, true
	}
	return nil, data, false
}

// matches reports whether the managed values inside the front matter
// already equal the canonical ones, so the document can stay untouched.
func matches(fm []byte, d Doc) bool {
	var current map[string]any
	if err := yaml.Unmarshal(fm, &current); err != nil {
		return false
	}
	if !valueEqual(current["name"], d.Name) {
		return false
	}
	if d.Description != "" && !valueEqual(current["description"], d.Description) {
		return false
	}
	for k, v := range d.Metadata {
		if !valueEqual(current[k], v) {
			return false
		}
	}
	return true
}

// valueEqual compares a decoded YAML value with a canonical JSON-decoded
// one. Both sides are normalized through JSON so 5 and 5.0 agree.
func valueEqual(a, b any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}

func setManagedKeys(mapping *yaml.Node, d Doc) error {
	if err := setKey(mapping, "name", d.Name); err != nil {
		return err
	}
	if d.Description != "" {
		if err := setKey(mapping, "description", d.Description); err != nil {
			return err
		}
	}
	keys := make([]string, 0, len(d.Metadata))
	for k := range d.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := setKey(mapping, k, d.Metadata[k]); err != nil {
			return err
		}
	}
	return nil
}

func setKey(mapping *yaml.Node, key string, value any) error {
	var vn yaml.Node
	if err := vn.Encode(value); err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = &vn
			return nil
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&vn,
	)
	return nil
}

func documentMapping(root *yaml.Node) *yaml.Node {
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil
	}
	return root
}

func encodeBlock(mapping *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(delimiter)
	buf.WriteString("\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(mapping); err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	buf.WriteString(delimiter)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}
