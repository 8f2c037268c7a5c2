package deid

import (
	"context"
	"strings"
)

// Reconstitute finds every well-formed token in text, resolves each distinct
// token once and substitutes the originals back. All lookups happen before any
// output is built, so a resolver error aborts without partial text. Tokens the
// resolver does not know stay literal and are counted as unresolved.
func Reconstitute(ctx context.Context, text string, resolver Resolver) (Reconstitution, error) {
	locs := TokenPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return Reconstitution{Text: text}, nil
	}

	resolved := make(map[string]string)
	missing := make(map[string]struct{})
	for _, loc := range locs {
		token := text[loc[0]:loc[1]]
		if _, ok := resolved[token]; ok {
			continue
		}
		if _, ok := missing[token]; ok {
			continue
		}
		value, found, err := resolver.Resolve(ctx, token)
		if err != nil {
			return Reconstitution{}, err
		}
		if found {
			resolved[token] = value
		} else {
			missing[token] = struct{}{}
		}
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, loc := range locs {
		value, ok := resolved[text[loc[0]:loc[1]]]
		if !ok {
			continue
		}
		b.WriteString(text[last:loc[0]])
		b.WriteString(value)
		last = loc[1]
	}
	b.WriteString(text[last:])

	return Reconstitution{
		Text:       b.String(),
		Resolved:   len(resolved),
		Unresolved: len(missing),
	}, nil
}
