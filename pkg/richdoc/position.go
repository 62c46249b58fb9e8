package richdoc

// Position is an offset into a Document that can follow later edits. It does
// not move on its own: call Follow with each change, or Track to subscribe.
type Position[PS, S comparable] struct {
	doc    *Document[PS, S]
	offset int
	bias   Bias
}

// NewPosition returns a position at offset, clamped to [0, Len()].
func (d *Document[PS, S]) NewPosition(offset int, bias Bias) *Position[PS, S] {
	p := &Position[PS, S]{doc: d, bias: bias}
	p.Set(offset)
	return p
}

// Offset returns the absolute offset as of the last Set or Follow.
func (p *Position[PS, S]) Offset() int { return p.offset }

func (p *Position[PS, S]) Bias() Bias { return p.bias }

// Set moves the position, clamping to the document bounds.
func (p *Position[PS, S]) Set(offset int) {
	p.offset = max(0, min(offset, p.doc.Len()))
}

// ParagraphColumn resolves the position against the current document.
func (p *Position[PS, S]) ParagraphColumn() (paragraph, column int) {
	p.Set(p.offset)
	return p.doc.locate(p.offset)
}

// Follow moves the position across ch.
func (p *Position[PS, S]) Follow(ch Change[PS, S]) {
	p.offset = ch.AdjustOffsetBias(p.offset, p.bias)
}

// Track subscribes the position to its document's changes and returns the
// func that stops tracking.
func (p *Position[PS, S]) Track() (untrack func()) {
	return p.doc.Subscribe(p.Follow)
}
