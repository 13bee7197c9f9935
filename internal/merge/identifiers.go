package merge

import "strings"

// deriveName turns an entity id into a camelCase identifier:
// "support-router" becomes "supportRouter". An id with no usable
// characters falls back to "entity"; a leading digit gets an underscore.
func deriveName(id string) string {
	var words []string
	var cur strings.Builder
	for _, r := range id {
		if isAlnumRune(r) {
			cur.WriteRune(r)
			continue
		}
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		words = append(words, cur.String())
	}
	if len(words) == 0 {
		return "entity"
	}

	var b strings.Builder
	for i, w := range words {
		w = strings.ToLower(w)
		if i > 0 {
			w = strings.ToUpper(w[:1]) + w[1:]
		}
		b.WriteString(w)
	}

	name := b.String()
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

func isAlnumRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
