package dlp

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Candidate is a detected span prior to token assignment.
type Candidate struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Code  string `json:"code"`
	Value string `json:"value"`
}

// Detect runs the profile's categories over text in priority order. A span
// consumed by a higher-priority category is never reported again by a lower one.
// The result holds every accepted match ordered by offset.
func Detect(text string, p Profile) []Candidate {
	if text == "" || len(p.categories) == 0 {
		return nil
	}

	var consumed SpanSet
	var out []Candidate
	for _, cc := range p.categories {
		for _, m := range cc.find(text, p.exclusions) {
			if m[0] >= m[1] || consumed.Overlaps(m[0], m[1]) {
				continue
			}
			consumed.Add(m[0], m[1])
			out = append(out, Candidate{
				Start: m[0],
				End:   m[1],
				Code:  cc.category.Code,
				Value: text[m[0]:m[1]],
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Dedupe keeps one candidate per distinct (value, category) in first-occurrence order.
func Dedupe(matches []Candidate) []Candidate {
	type key struct{ value, code string }
	seen := make(map[key]struct{}, len(matches))
	out := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		k := key{m.Value, m.Code}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, m)
	}
	return out
}

func (cc compiledCategory) find(text string, exclusions map[string]struct{}) [][]int {
	if cc.category.Kind == KindName {
		return findNames(text, exclusions)
	}
	return cc.re.FindAllStringIndex(text, -1)
}

// findNames returns runs of capitalized words joined by blanks. Excluded words
// split a run and are never part of one.
func findNames(text string, exclusions map[string]struct{}) [][]int {
	var out [][]int
	runStart, runEnd := -1, -1
	flush := func() {
		if runStart >= 0 {
			out = append(out, []int{runStart, runEnd})
			runStart = -1
		}
	}

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isWordRune(r) {
			if r != ' ' && r != '\t' {
				flush()
			}
			i += size
			continue
		}

		j := i + size
		for j < len(text) {
			r2, s2 := utf8.DecodeRuneInString(text[j:])
			if !isWordRune(r2) {
				break
			}
			j += s2
		}

		word := text[i:j]
		if isCapitalized(word) && !isExcluded(word, exclusions) {
			if runStart < 0 {
				runStart = i
			}
			runEnd = j
		} else {
			flush()
		}
		i = j
	}
	flush()
	return out
}

// IsWordBoundary reports whether text[start:end] is not glued to a word rune
// on either side.
func IsWordBoundary(text string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_'
}

func isCapitalized(word string) bool {
	first, size := utf8.DecodeRuneInString(word)
	if !unicode.IsUpper(first) || size == len(word) {
		return false
	}
	for _, r := range word[size:] {
		if !unicode.IsLower(r) && !unicode.IsMark(r) {
			return false
		}
	}
	return true
}

func isExcluded(word string, exclusions map[string]struct{}) bool {
	_, ok := exclusions[strings.ToLower(word)]
	return ok
}
