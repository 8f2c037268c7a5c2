package deid

import (
	"sort"
	"strings"

	"github.com/loopi346/MAIT-Privacy-Vault/pkg/dlp"
)

type claim struct {
	start, end int
	token      string
}

// Substitute replaces detected values with their tokens. Detected spans are
// claimed first; then every other literal occurrence of each value, in first
// encountered order, that does not overlap a claimed region. Names only
// match again as whole words so a longer word is never split. The output is
// assembled in a single pass so substituted text is never scanned again.
// tokens is keyed by original value.
func Substitute(text string, matches []dlp.Candidate, tokens map[string]string) string {
	if len(matches) == 0 || len(tokens) == 0 {
		return text
	}

	var claimed dlp.SpanSet
	claims := make([]claim, 0, len(matches))
	var order []string
	codes := make(map[string]string, len(tokens))

	for _, m := range matches {
		token, ok := tokens[m.Value]
		if !ok || m.Value == "" || claimed.Overlaps(m.Start, m.End) {
			continue
		}
		claimed.Add(m.Start, m.End)
		claims = append(claims, claim{start: m.Start, end: m.End, token: token})
		if _, dup := codes[m.Value]; !dup {
			codes[m.Value] = m.Code
			order = append(order, m.Value)
		}
	}

	for _, value := range order {
		token := tokens[value]
		for from := 0; from < len(text); {
			i := strings.Index(text[from:], value)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(value)
			if claimed.Overlaps(start, end) ||
				(codes[value] == dlp.CodeName && !dlp.IsWordBoundary(text, start, end)) {
				from = start + 1
				continue
			}
			claimed.Add(start, end)
			claims = append(claims, claim{start: start, end: end, token: token})
			from = end
		}
	}

	sort.Slice(claims, func(i, j int) bool { return claims[i].start < claims[j].start })

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, c := range claims {
		b.WriteString(text[last:c.start])
		b.WriteString(c.token)
		last = c.end
	}
	b.WriteString(text[last:])
	return b.String()
}
