package richdoc

import (
	"fmt"
	"strings"
)

// StyleSpan is one run of Length characters sharing Style.
type StyleSpan[S comparable] struct {
	Length int
	Style  S
}

// StyleSpans is an immutable, canonical sequence of style spans: every span
// has Length >= 1 and no two adjacent spans carry equal styles. The zero value
// covers zero characters.
type StyleSpans[S comparable] struct {
	spans  []StyleSpan[S]
	length int
}

// NewStyleSpans builds a canonical sequence from spans, merging neighbors with
// equal styles. A span shorter than one character is rejected.
func NewStyleSpans[S comparable](spans ...StyleSpan[S]) (StyleSpans[S], error) {
	var b StyleSpansBuilder[S]
	for i, sp := range spans {
		if sp.Length < 1 {
			return StyleSpans[S]{}, fmt.Errorf("%w: span %d has length %d", ErrInvalidSpanCoverage, i, sp.Length)
		}
		b.Add(sp.Length, sp.Style)
	}
	return b.Build(), nil
}

// SingleStyle returns a sequence covering length characters with one style.
func SingleStyle[S comparable](length int, style S) StyleSpans[S] {
	if length <= 0 {
		return StyleSpans[S]{}
	}
	return StyleSpans[S]{spans: []StyleSpan[S]{{Length: length, Style: style}}, length: length}
}

// StyleSpansBuilder accumulates spans and merges equal neighbors as it goes.
// The zero value is ready to use.
type StyleSpansBuilder[S comparable] struct {
	spans  []StyleSpan[S]
	length int
}

// Add appends length characters of style. Non-positive lengths are ignored.
func (b *StyleSpansBuilder[S]) Add(length int, style S) {
	if length <= 0 {
		return
	}
	b.length += length
	if n := len(b.spans); n > 0 && b.spans[n-1].Style == style {
		b.spans[n-1].Length += length
		return
	}
	b.spans = append(b.spans, StyleSpan[S]{Length: length, Style: style})
}

// AddSpans appends every span of s.
func (b *StyleSpansBuilder[S]) AddSpans(s StyleSpans[S]) {
	for _, sp := range s.spans {
		b.Add(sp.Length, sp.Style)
	}
}

// Len reports the number of characters added so far.
func (b *StyleSpansBuilder[S]) Len() int { return b.length }

// Build returns the accumulated sequence and resets the builder.
func (b *StyleSpansBuilder[S]) Build() StyleSpans[S] {
	out := StyleSpans[S]{spans: b.spans, length: b.length}
	b.spans = nil
	b.length = 0
	return out
}

func (s StyleSpans[S]) Len() int { return s.length }

func (s StyleSpans[S]) SpanCount() int { return len(s.spans) }

// Span returns the i-th span. It panics if i is out of range, like a slice
// index would.
func (s StyleSpans[S]) Span(i int) StyleSpan[S] { return s.spans[i] }

// Spans returns a copy of the spans.
func (s StyleSpans[S]) Spans() []StyleSpan[S] {
	return append([]StyleSpan[S](nil), s.spans...)
}

// StyleAt returns the style of the character at offset.
func (s StyleSpans[S]) StyleAt(offset int) (S, error) {
	i, _, err := s.locate(offset)
	if err != nil {
		var zero S
		return zero, err
	}
	return s.spans[i].Style, nil
}

// StyleRangeAt returns the half-open bounds of the span containing offset.
func (s StyleSpans[S]) StyleRangeAt(offset int) (start, end int, err error) {
	i, spanStart, err := s.locate(offset)
	if err != nil {
		return 0, 0, err
	}
	return spanStart, spanStart + s.spans[i].Length, nil
}

func (s StyleSpans[S]) locate(offset int) (index, spanStart int, err error) {
	if offset < 0 || offset >= s.length {
		return 0, 0, fmt.Errorf("%w: offset %d outside [0, %d)", ErrOutOfBounds, offset, s.length)
	}
	pos := 0
	for i, sp := range s.spans {
		if offset < pos+sp.Length {
			return i, pos, nil
		}
		pos += sp.Length
	}
	// Unreachable while the length invariant holds.
	return 0, 0, fmt.Errorf("%w: offset %d", ErrOutOfBounds, offset)
}

func (s StyleSpans[S]) checkRange(start, end int) error {
	if start < 0 || start > end || end > s.length {
		return fmt.Errorf("%w: range [%d, %d) outside [0, %d]", ErrOutOfBounds, start, end, s.length)
	}
	return nil
}

// SubSequence returns the spans covering [start, end), splitting the spans
// that straddle either bound.
func (s StyleSpans[S]) SubSequence(start, end int) (StyleSpans[S], error) {
	if err := s.checkRange(start, end); err != nil {
		return StyleSpans[S]{}, err
	}
	return s.sub(start, end), nil
}

// sub is SubSequence without bounds checks.
func (s StyleSpans[S]) sub(start, end int) StyleSpans[S] {
	if start == 0 && end == s.length {
		return s
	}
	var b StyleSpansBuilder[S]
	pos := 0
	for _, sp := range s.spans {
		if pos >= end {
			break
		}
		spEnd := pos + sp.Length
		b.Add(min(spEnd, end)-max(pos, start), sp.Style)
		pos = spEnd
	}
	return b.Build()
}

// Concat returns s followed by other. Boundary spans with equal styles merge.
func (s StyleSpans[S]) Concat(other StyleSpans[S]) StyleSpans[S] {
	if other.length == 0 {
		return s
	}
	if s.length == 0 {
		return other
	}
	var b StyleSpansBuilder[S]
	b.spans = make([]StyleSpan[S], 0, len(s.spans)+len(other.spans))
	b.AddSpans(s)
	b.AddSpans(other)
	return b.Build()
}

// MapStyle returns a sequence where every character in [start, end) has its
// style replaced by fn(style). Spans partially inside the range are split and
// the results re-merged with their neighbors.
func (s StyleSpans[S]) MapStyle(start, end int, fn func(S) S) (StyleSpans[S], error) {
	if err := s.checkRange(start, end); err != nil {
		return StyleSpans[S]{}, err
	}
	if start == end || fn == nil {
		return s, nil
	}
	var b StyleSpansBuilder[S]
	pos := 0
	for _, sp := range s.spans {
		spEnd := pos + sp.Length
		lo, hi := max(pos, start), min(spEnd, end)
		if lo >= hi {
			b.Add(sp.Length, sp.Style)
			pos = spEnd
			continue
		}
		b.Add(lo-pos, sp.Style)
		b.Add(hi-lo, fn(sp.Style))
		b.Add(spEnd-hi, sp.Style)
		pos = spEnd
	}
	return b.Build(), nil
}

// Overlay sets style on every character of [start, end).
func (s StyleSpans[S]) Overlay(start, end int, style S) (StyleSpans[S], error) {
	return s.MapStyle(start, end, func(S) S { return style })
}

// Replace returns s with [start, end) swapped for replacement.
func (s StyleSpans[S]) Replace(start, end int, replacement StyleSpans[S]) (StyleSpans[S], error) {
	if err := s.checkRange(start, end); err != nil {
		return StyleSpans[S]{}, err
	}
	return s.sub(0, start).Concat(replacement).Concat(s.sub(end, s.length)), nil
}

// Equal reports whether both sequences hold the same spans.
func (s StyleSpans[S]) Equal(other StyleSpans[S]) bool {
	if s.length != other.length || len(s.spans) != len(other.spans) {
		return false
	}
	for i := range s.spans {
		if s.spans[i] != other.spans[i] {
			return false
		}
	}
	return true
}

func (s StyleSpans[S]) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, sp := range s.spans {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d:%v", sp.Length, sp.Style)
	}
	sb.WriteByte(']')
	return sb.String()
}
