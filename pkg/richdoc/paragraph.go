package richdoc

import (
	"fmt"
	"strings"
)

// Paragraph is an immutable line of styled text plus one paragraph style.
type Paragraph[PS, S comparable] struct {
	text  []rune
	spans StyleSpans[S]
	style PS
}

// NewParagraph pairs text with spans covering it exactly.
func NewParagraph[PS, S comparable](text string, spans StyleSpans[S], style PS) (Paragraph[PS, S], error) {
	runes := []rune(text)
	if containsSeparator(runes) {
		return Paragraph[PS, S]{}, ErrSeparatorInParagraph
	}
	if spans.Len() != len(runes) {
		return Paragraph[PS, S]{}, fmt.Errorf("%w: %d characters, spans cover %d", ErrInvalidSpanCoverage, len(runes), spans.Len())
	}
	return Paragraph[PS, S]{text: runes, spans: spans, style: style}, nil
}

// PlainParagraph returns a paragraph whose text carries a single style.
func PlainParagraph[PS, S comparable](text string, textStyle S, style PS) (Paragraph[PS, S], error) {
	runes := []rune(text)
	if containsSeparator(runes) {
		return Paragraph[PS, S]{}, ErrSeparatorInParagraph
	}
	return Paragraph[PS, S]{text: runes, spans: SingleStyle(len(runes), textStyle), style: style}, nil
}

// EmptyParagraph returns a paragraph with no text.
func EmptyParagraph[PS, S comparable](style PS) Paragraph[PS, S] {
	return Paragraph[PS, S]{style: style}
}

func containsSeparator(runes []rune) bool {
	for _, r := range runes {
		if r == '\n' || r == '\r' {
			return true
		}
	}
	return false
}

func (p Paragraph[PS, S]) Len() int { return len(p.text) }

func (p Paragraph[PS, S]) Text() string { return string(p.text) }

// Runes returns a copy of the paragraph's code points.
func (p Paragraph[PS, S]) Runes() []rune { return append([]rune(nil), p.text...) }

func (p Paragraph[PS, S]) Spans() StyleSpans[S] { return p.spans }

func (p Paragraph[PS, S]) Style() PS { return p.style }

// StyleAt returns the style of the character at column.
func (p Paragraph[PS, S]) StyleAt(column int) (S, error) { return p.spans.StyleAt(column) }

// WithStyle returns a copy of p carrying a different paragraph style.
func (p Paragraph[PS, S]) WithStyle(style PS) Paragraph[PS, S] {
	p.style = style
	return p
}

// WithSpans returns a copy of p restyled with spans, which must cover the
// paragraph text exactly.
func (p Paragraph[PS, S]) WithSpans(spans StyleSpans[S]) (Paragraph[PS, S], error) {
	if spans.Len() != len(p.text) {
		return p, fmt.Errorf("%w: %d characters, spans cover %d", ErrInvalidSpanCoverage, len(p.text), spans.Len())
	}
	p.spans = spans
	return p, nil
}

// Equal reports whether both paragraphs hold the same text, spans and style.
func (p Paragraph[PS, S]) Equal(other Paragraph[PS, S]) bool {
	if p.style != other.style || len(p.text) != len(other.text) {
		return false
	}
	for i := range p.text {
		if p.text[i] != other.text[i] {
			return false
		}
	}
	return p.spans.Equal(other.spans)
}

func (p Paragraph[PS, S]) String() string {
	return fmt.Sprintf("{%q %v %v}", string(p.text), p.spans, p.style)
}

// sub slices columns [start, end) without bounds checks. The result shares
// the text backing array, which is safe because paragraphs never write to it.
func (p Paragraph[PS, S]) sub(start, end int) Paragraph[PS, S] {
	if start == 0 && end == len(p.text) {
		return p
	}
	return Paragraph[PS, S]{text: p.text[start:end:end], spans: p.spans.sub(start, end), style: p.style}
}

// lastStyle returns the style of the final character, or fallback when the
// paragraph is empty.
func (p Paragraph[PS, S]) lastStyle(fallback S) S {
	if n := p.spans.SpanCount(); n > 0 {
		return p.spans.spans[n-1].Style
	}
	return fallback
}

// joinParagraphs concatenates the pieces into one paragraph with style.
func joinParagraphs[PS, S comparable](style PS, pieces ...Paragraph[PS, S]) Paragraph[PS, S] {
	n := 0
	nonEmpty := 0
	var only Paragraph[PS, S]
	for _, p := range pieces {
		if len(p.text) > 0 {
			n += len(p.text)
			nonEmpty++
			only = p
		}
	}
	if nonEmpty == 1 {
		return only.WithStyle(style)
	}
	text := make([]rune, 0, n)
	var b StyleSpansBuilder[S]
	for _, p := range pieces {
		text = append(text, p.text...)
		b.AddSpans(p.spans)
	}
	return Paragraph[PS, S]{text: text, spans: b.Build(), style: style}
}

// splitLines normalizes "\r\n" and '\r' to '\n' and splits on it.
func splitLines(text string) []string {
	if strings.IndexByte(text, '\r') >= 0 {
		text = strings.ReplaceAll(text, "\r\n", "\n")
		text = strings.ReplaceAll(text, "\r", "\n")
	}
	return strings.Split(text, "\n")
}
