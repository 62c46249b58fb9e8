package richdoc

import "fmt"

// ChangeKind classifies a Change by comparing its removed and inserted
// content.
type ChangeKind uint8

const (
	KindIdentity ChangeKind = iota
	KindInsert
	KindDelete
	KindReplace
	// KindRestyle changes character styles only; plain text is unchanged.
	KindRestyle
	// KindParagraphStyle changes paragraph styles only.
	KindParagraphStyle
)

func (k ChangeKind) String() string {
	switch k {
	case KindIdentity:
		return "identity"
	case KindInsert:
		return "insert"
	case KindDelete:
		return "delete"
	case KindReplace:
		return "replace"
	case KindRestyle:
		return "restyle"
	case KindParagraphStyle:
		return "paragraph-style"
	default:
		return fmt.Sprintf("ChangeKind(%d)", uint8(k))
	}
}

// Bias selects where an offset inside a removed range lands.
type Bias uint8

const (
	// CollapseToStart moves offsets inside a removed range to the change
	// position.
	CollapseToStart Bias = iota
	// CollapseToEnd moves them past the inserted content.
	CollapseToEnd
)

// Change records one edit: at Position, Removed was replaced by Inserted.
// Changes are values; they never alias mutable document state.
type Change[PS, S comparable] struct {
	pos      int
	removed  Fragment[PS, S]
	inserted Fragment[PS, S]
}

// NewChange builds a change record, typically to replay it with
// Document.Apply on another document.
func NewChange[PS, S comparable](position int, removed, inserted Fragment[PS, S]) Change[PS, S] {
	return Change[PS, S]{pos: position, removed: removed, inserted: inserted}
}

func (c Change[PS, S]) Position() int { return c.pos }

func (c Change[PS, S]) Removed() Fragment[PS, S] { return c.removed }

func (c Change[PS, S]) Inserted() Fragment[PS, S] { return c.inserted }

func (c Change[PS, S]) RemovedLen() int { return c.removed.Len() }

func (c Change[PS, S]) InsertedLen() int { return c.inserted.Len() }

func (c Change[PS, S]) RemovedText() string { return c.removed.Text() }

func (c Change[PS, S]) InsertedText() string { return c.inserted.Text() }

func (c Change[PS, S]) RemovedStyleSpans() StyleSpans[S] { return c.removed.StyleSpans() }

func (c Change[PS, S]) InsertedStyleSpans() StyleSpans[S] { return c.inserted.StyleSpans() }

func (c Change[PS, S]) RemovedParagraphStyles() []PS { return c.removed.ParagraphStyles() }

func (c Change[PS, S]) InsertedParagraphStyles() []PS { return c.inserted.ParagraphStyles() }

// Kind classifies the change.
func (c Change[PS, S]) Kind() ChangeKind {
	if c.removed.sameText(c.inserted) {
		switch {
		case !c.removed.sameSpans(c.inserted):
			return KindRestyle
		case c.removed.Equal(c.inserted):
			return KindIdentity
		default:
			return KindParagraphStyle
		}
	}
	switch {
	case c.removed.Len() == 0:
		return KindInsert
	case c.inserted.Len() == 0:
		return KindDelete
	default:
		return KindReplace
	}
}

// IsIdentity reports whether applying the change would leave a document
// unchanged.
func (c Change[PS, S]) IsIdentity() bool { return c.removed.Equal(c.inserted) }

// Invert returns the change that undoes c when applied right after it.
func (c Change[PS, S]) Invert() Change[PS, S] {
	return Change[PS, S]{pos: c.pos, removed: c.inserted, inserted: c.removed}
}

// AdjustOffset maps an offset taken before the change to the document after
// it, collapsing offsets inside the removed range to the change position.
func (c Change[PS, S]) AdjustOffset(offset int) int {
	return c.AdjustOffsetBias(offset, CollapseToStart)
}

// AdjustOffsetBias is AdjustOffset with an explicit choice of where offsets
// inside the removed range land. Offsets never move across style-only
// changes.
func (c Change[PS, S]) AdjustOffsetBias(offset int, bias Bias) int {
	if offset < c.pos {
		return offset
	}
	if c.removed.sameText(c.inserted) {
		return offset
	}
	removed, inserted := c.removed.Len(), c.inserted.Len()
	if offset >= c.pos+removed {
		return offset + inserted - removed
	}
	if bias == CollapseToEnd {
		return c.pos + inserted
	}
	return c.pos
}

// merge folds next into c when next continues c within one paragraph:
// typing after an insertion, a backspace run or a forward-delete run.
func (c Change[PS, S]) merge(next Change[PS, S]) (Change[PS, S], bool) {
	if !c.singleParagraph() || !next.singleParagraph() {
		return c, false
	}
	style := c.removed.paras[0].style
	if c.inserted.paras[0].style != style || next.removed.paras[0].style != style || next.inserted.paras[0].style != style {
		return c, false
	}
	prevKind, nextKind := c.Kind(), next.Kind()
	switch {
	case nextKind == KindInsert && (prevKind == KindInsert || prevKind == KindReplace) &&
		next.pos == c.pos+c.inserted.Len():
		joined := joinParagraphs(style, c.inserted.paras[0], next.inserted.paras[0])
		return Change[PS, S]{pos: c.pos, removed: c.removed, inserted: c.inserted.with(joined)}, true
	case nextKind == KindDelete && prevKind == KindDelete && next.pos+next.removed.Len() == c.pos:
		joined := joinParagraphs(style, next.removed.paras[0], c.removed.paras[0])
		return Change[PS, S]{pos: next.pos, removed: c.removed.with(joined), inserted: next.inserted}, true
	case nextKind == KindDelete && prevKind == KindDelete && next.pos == c.pos:
		joined := joinParagraphs(style, c.removed.paras[0], next.removed.paras[0])
		return Change[PS, S]{pos: c.pos, removed: c.removed.with(joined), inserted: c.inserted}, true
	}
	return c, false
}

func (c Change[PS, S]) singleParagraph() bool {
	return len(c.removed.paras) == 1 && len(c.inserted.paras) == 1
}

// with returns a one-piece fragment holding p and f's fallback style.
func (f Fragment[PS, S]) with(p Paragraph[PS, S]) Fragment[PS, S] {
	return Fragment[PS, S]{paras: []Paragraph[PS, S]{p}, fallback: f.fallback}
}

func (c Change[PS, S]) String() string {
	return fmt.Sprintf("%s@%d removed=%v inserted=%v", c.Kind(), c.pos, c.removed, c.inserted)
}
