package merge

import (
	"regexp"
	"strings"

	"github.com/inkeep/agents-sync/internal/tscode"
)

// placeholderRe matches {{headers.<field>}} placeholders in canonical url,
// body and header values.
var placeholderRe = regexp.MustCompile(`\{\{\s*headers\.([A-Za-z0-9_.-]+)\s*\}\}`)

func hasPlaceholders(s string) bool {
	return placeholderRe.MatchString(s)
}

// templateExpr renders a placeholder-carrying string as a template literal
// interpolating toTemplate calls on the headers binding.
func (fc *fileCtx) templateExpr(raw, hsIdent string, quote byte) string {
	var b strings.Builder
	b.WriteByte('`')
	last := 0
	for _, m := range placeholderRe.FindAllStringSubmatchIndex(raw, -1) {
		b.WriteString(escapeTemplate(raw[last:m[0]]))
		field := raw[m[2]:m[3]]
		b.WriteString("${")
		b.WriteString(hsIdent)
		b.WriteString(".toTemplate(")
		b.WriteString(tscode.QuoteString(field, quote))
		b.WriteString(")}")
		last = m[1]
	}
	b.WriteString(escapeTemplate(raw[last:]))
	b.WriteByte('`')
	return b.String()
}

func escapeTemplate(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "`", "\\`")
	s = strings.ReplaceAll(s, "${", "\\${")
	return s
}
