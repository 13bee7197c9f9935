package tscode

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// StringValue returns the decoded value of a string literal node. Template
// strings with substitutions and non-string nodes report false.
func (d *Document) StringValue(n *sitter.Node) (string, bool) {
	switch n.Type() {
	case "string":
		return UnquoteString(n.Content(d.src)), true
	case "template_string":
		raw := n.Content(d.src)
		if strings.Contains(raw, "${") {
			return "", false
		}
		return UnquoteString(raw), true
	}
	return "", false
}

// UnquoteString strips the surrounding quotes from a TypeScript string
// literal and resolves escape sequences.
func UnquoteString(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	q := raw[0]
	if (q != '\'' && q != '"' && q != '`') || raw[len(raw)-1] != q {
		return raw
	}
	body := raw[1 : len(raw)-1]
	if !strings.ContainsRune(body, '\\') {
		return body
	}

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case 'x':
			if i+2 < len(body) {
				if v, err := strconv.ParseUint(body[i+1:i+3], 16, 8); err == nil {
					b.WriteByte(byte(v))
					i += 2
					continue
				}
			}
			b.WriteByte(body[i])
		case 'u':
			if r, width, ok := decodeUnicodeEscape(body[i:]); ok {
				b.WriteRune(r)
				i += width - 1
				continue
			}
			b.WriteByte(body[i])
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}

// decodeUnicodeEscape reads `uXXXX` or `u{XXXXXX}` at the start of s and
// returns the rune plus consumed length.
func decodeUnicodeEscape(s string) (rune, int, bool) {
	if len(s) < 2 {
		return 0, 0, false
	}
	if s[1] == '{' {
		end := strings.IndexByte(s, '}')
		if end < 2 {
			return 0, 0, false
		}
		v, err := strconv.ParseUint(s[2:end], 16, 32)
		if err != nil {
			return 0, 0, false
		}
		return rune(v), end + 1, true
	}
	if len(s) < 5 {
		return 0, 0, false
	}
	v, err := strconv.ParseUint(s[1:5], 16, 32)
	if err != nil {
		return 0, 0, false
	}
	return rune(v), 5, true
}

// QuoteString renders s as a TypeScript string literal using quote as the
// delimiter (' or ").
func QuoteString(s string, quote byte) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(quote)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case quote:
			b.WriteByte('\\')
			b.WriteByte(quote)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(quote)
	return b.String()
}

// QuoteStyle returns the string delimiter used by the file. The majority of
// existing string literals wins; single quotes are the default for new or
// stringless files.
func (d *Document) QuoteStyle() byte {
	if d.quoteInit {
		return d.quote
	}
	d.quoteInit = true

	single, double := 0, 0
	countStrings(d.root, d.src, &single, &double)
	if double > single {
		d.quote = '"'
	} else {
		d.quote = '\''
	}
	return d.quote
}

func countStrings(n *sitter.Node, src []byte, single, double *int) {
	if n.Type() == "string" {
		raw := n.Content(src)
		if len(raw) > 0 {
			switch raw[0] {
			case '\'':
				*single++
			case '"':
				*double++
			}
		}
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		countStrings(n.Child(i), src, single, double)
	}
}
