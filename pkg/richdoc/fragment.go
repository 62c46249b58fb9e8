package richdoc

import (
	"fmt"
	"strings"
)

// Fragment is a contiguous slice of document content: one or more paragraph
// pieces, with one separator between each pair of neighbors. A piece carries
// the style of the paragraph it came from (or will produce).
type Fragment[PS, S comparable] struct {
	paras []Paragraph[PS, S]
	// style given to separators that follow an empty piece
	fallback S
}

// NewFragment returns a fragment made of paragraphs. An empty list yields a
// single empty piece with the zero paragraph style.
func NewFragment[PS, S comparable](fallback S, paragraphs ...Paragraph[PS, S]) Fragment[PS, S] {
	if len(paragraphs) == 0 {
		var ps PS
		return Fragment[PS, S]{paras: []Paragraph[PS, S]{EmptyParagraph[PS, S](ps)}, fallback: fallback}
	}
	return Fragment[PS, S]{paras: append([]Paragraph[PS, S](nil), paragraphs...), fallback: fallback}
}

// Len reports the fragment length in code points, separators included.
func (f Fragment[PS, S]) Len() int {
	if len(f.paras) == 0 {
		return 0
	}
	n := len(f.paras) - 1
	for _, p := range f.paras {
		n += p.Len()
	}
	return n
}

// IsEmpty reports whether the fragment holds no characters.
func (f Fragment[PS, S]) IsEmpty() bool { return len(f.paras) <= 1 && f.Len() == 0 }

func (f Fragment[PS, S]) ParagraphCount() int { return len(f.paras) }

func (f Fragment[PS, S]) Paragraph(i int) Paragraph[PS, S] { return f.paras[i] }

// Paragraphs returns a copy of the pieces.
func (f Fragment[PS, S]) Paragraphs() []Paragraph[PS, S] {
	return append([]Paragraph[PS, S](nil), f.paras...)
}

// Text returns the plain text with '\n' between pieces.
func (f Fragment[PS, S]) Text() string {
	var sb strings.Builder
	for i, p := range f.paras {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for _, r := range p.text {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// StyleSpans returns spans covering Len() characters. A separator takes the
// style of the character before it, or the fallback text style after an empty
// piece.
func (f Fragment[PS, S]) StyleSpans() StyleSpans[S] {
	var b StyleSpansBuilder[S]
	for i, p := range f.paras {
		if i > 0 {
			b.Add(1, f.paras[i-1].lastStyle(f.fallback))
		}
		b.AddSpans(p.spans)
	}
	return b.Build()
}

// ParagraphStyles returns the style of every piece in order.
func (f Fragment[PS, S]) ParagraphStyles() []PS {
	out := make([]PS, len(f.paras))
	for i, p := range f.paras {
		out[i] = p.style
	}
	return out
}

// Equal reports whether both fragments hold identical pieces.
func (f Fragment[PS, S]) Equal(other Fragment[PS, S]) bool {
	if len(f.paras) != len(other.paras) {
		return false
	}
	for i := range f.paras {
		if !f.paras[i].Equal(other.paras[i]) {
			return false
		}
	}
	return true
}

// sameText reports whether both fragments have identical plain text.
func (f Fragment[PS, S]) sameText(other Fragment[PS, S]) bool {
	if len(f.paras) != len(other.paras) {
		return false
	}
	for i := range f.paras {
		a, b := f.paras[i].text, other.paras[i].text
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}

func (f Fragment[PS, S]) sameSpans(other Fragment[PS, S]) bool {
	for i := range f.paras {
		if !f.paras[i].spans.Equal(other.paras[i].spans) {
			return false
		}
	}
	return true
}

func (f Fragment[PS, S]) String() string {
	parts := make([]string, len(f.paras))
	for i, p := range f.paras {
		parts[i] = p.String()
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, " "))
}
