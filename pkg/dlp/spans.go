package dlp

import "sort"

type span struct {
	start, end int
}

// SpanSet is a sorted set of disjoint half-open intervals. The zero value is empty.
type SpanSet struct {
	spans []span
}

func (s *SpanSet) Overlaps(start, end int) bool {
	i := sort.Search(len(s.spans), func(i int) bool { return s.spans[i].end > start })
	return i < len(s.spans) && s.spans[i].start < end
}

// Add inserts [start, end). Callers check Overlaps first.
func (s *SpanSet) Add(start, end int) {
	i := sort.Search(len(s.spans), func(i int) bool { return s.spans[i].start >= start })
	s.spans = append(s.spans, span{})
	copy(s.spans[i+1:], s.spans[i:])
	s.spans[i] = span{start: start, end: end}
}

func (s *SpanSet) Len() int {
	return len(s.spans)
}
