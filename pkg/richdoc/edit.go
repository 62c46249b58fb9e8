package richdoc

import "fmt"

// guard rejects mutations during notification and out-of-range bounds.
func (d *Document[PS, S]) guard(start, end int) error {
	if d.notifying {
		return ErrReentrantMutation
	}
	return d.checkRange(start, end)
}

func (d *Document[PS, S]) hostStyle(offset int) PS {
	a, _ := d.locate(offset)
	return d.paragraphs[a].style
}

// Insert inserts text with one character style at offset. Line separators in
// text ("\n", "\r\n" or "\r") start new paragraphs, which take the host
// paragraph's style.
func (d *Document[PS, S]) Insert(offset int, text string, style S) error {
	return d.Replace(offset, offset, text, style)
}

// InsertWithParagraphStyles is Insert with an explicit style for each new
// paragraph, one per separator in text.
func (d *Document[PS, S]) InsertWithParagraphStyles(offset int, text string, style S, paragraphStyles []PS) error {
	if err := d.guard(offset, offset); err != nil {
		return err
	}
	lines := splitLines(text)
	if len(paragraphStyles) != len(lines)-1 {
		return fmt.Errorf("%w: %d new paragraphs, %d paragraph styles", ErrInvalidSpanCoverage, len(lines)-1, len(paragraphStyles))
	}
	paras := plainPieces[PS](lines, style, d.hostStyle(offset))
	for i, ps := range paragraphStyles {
		paras[i+1].style = ps
	}
	return d.edit(offset, offset, d.fragment(paras))
}

// Replace swaps [start, end) for text in one atomic change.
func (d *Document[PS, S]) Replace(start, end int, text string, style S) error {
	if err := d.guard(start, end); err != nil {
		return err
	}
	paras := plainPieces[PS](splitLines(text), style, d.hostStyle(start))
	return d.edit(start, end, d.fragment(paras))
}

func plainPieces[PS, S comparable](lines []string, style S, host PS) []Paragraph[PS, S] {
	paras := make([]Paragraph[PS, S], len(lines))
	for i, line := range lines {
		r := []rune(line)
		paras[i] = Paragraph[PS, S]{text: r, spans: SingleStyle(len(r), style), style: host}
	}
	return paras
}

// InsertStyled inserts text whose character styles are given by spans, which
// must cover every code point of text. Spans over separators are ignored.
func (d *Document[PS, S]) InsertStyled(offset int, text string, spans StyleSpans[S]) error {
	return d.ReplaceStyled(offset, offset, text, spans)
}

// ReplaceStyled swaps [start, end) for styled text in one atomic change.
func (d *Document[PS, S]) ReplaceStyled(start, end int, text string, spans StyleSpans[S]) error {
	if err := d.guard(start, end); err != nil {
		return err
	}
	runes := []rune(text)
	if spans.Len() != len(runes) {
		return fmt.Errorf("%w: %d characters, spans cover %d", ErrInvalidSpanCoverage, len(runes), spans.Len())
	}
	host := d.hostStyle(start)
	var paras []Paragraph[PS, S]
	lineStart := 0
	for i := 0; i <= len(runes); i++ {
		if i < len(runes) && runes[i] != '\n' && runes[i] != '\r' {
			continue
		}
		paras = append(paras, Paragraph[PS, S]{
			text:  runes[lineStart:i:i],
			spans: spans.sub(lineStart, i),
			style: host,
		})
		if i+1 < len(runes) && runes[i] == '\r' && runes[i+1] == '\n' {
			i++
		}
		lineStart = i + 1
	}
	return d.edit(start, end, d.fragment(paras))
}

// InsertParagraphs inserts whole paragraphs at offset. The first one merges
// into the host paragraph, which keeps its style unless offset is at its
// column 0; the host's tail joins the last inserted paragraph.
func (d *Document[PS, S]) InsertParagraphs(offset int, paragraphs []Paragraph[PS, S]) error {
	return d.ReplaceParagraphs(offset, offset, paragraphs)
}

// ReplaceParagraphs swaps [start, end) for paragraphs in one atomic change.
// An empty list deletes the range.
func (d *Document[PS, S]) ReplaceParagraphs(start, end int, paragraphs []Paragraph[PS, S]) error {
	if len(paragraphs) == 0 {
		return d.Delete(start, end)
	}
	if err := d.guard(start, end); err != nil {
		return err
	}
	paras := append([]Paragraph[PS, S](nil), paragraphs...)
	if a, ca := d.locate(start); ca != 0 {
		paras[0] = paras[0].WithStyle(d.paragraphs[a].style)
	}
	return d.edit(start, end, d.fragment(paras))
}

// Delete removes [start, end). Paragraphs at both ends merge and keep the
// start paragraph's style.
func (d *Document[PS, S]) Delete(start, end int) error {
	if err := d.guard(start, end); err != nil {
		return err
	}
	return d.edit(start, end, d.fragment([]Paragraph[PS, S]{EmptyParagraph[PS, S](d.hostStyle(start))}))
}

// SetStyle gives every character of [start, end) the same style.
func (d *Document[PS, S]) SetStyle(start, end int, style S) error {
	return d.MapStyle(start, end, func(S) S { return style })
}

// ClearStyle resets [start, end) to the initial text style.
func (d *Document[PS, S]) ClearStyle(start, end int) error {
	return d.SetStyle(start, end, d.initialTextStyle)
}

// MapStyle replaces the style of every character in [start, end) with
// fn(style), as one change.
func (d *Document[PS, S]) MapStyle(start, end int, fn func(S) S) error {
	if err := d.guard(start, end); err != nil {
		return err
	}
	frag := d.subDocument(start, end)
	paras := make([]Paragraph[PS, S], len(frag.paras))
	for i, p := range frag.paras {
		spans, _ := p.spans.MapStyle(0, p.Len(), fn)
		p.spans = spans
		paras[i] = p
	}
	return d.edit(start, end, d.fragment(paras))
}

// SetStyleSpans restyles [start, end) with spans covering end-start
// characters, separators included.
func (d *Document[PS, S]) SetStyleSpans(start, end int, spans StyleSpans[S]) error {
	if err := d.guard(start, end); err != nil {
		return err
	}
	if spans.Len() != end-start {
		return fmt.Errorf("%w: range holds %d characters, spans cover %d", ErrInvalidSpanCoverage, end-start, spans.Len())
	}
	frag := d.subDocument(start, end)
	paras := make([]Paragraph[PS, S], len(frag.paras))
	off := 0
	for i, p := range frag.paras {
		p.spans = spans.sub(off, off+p.Len())
		paras[i] = p
		off += p.Len() + 1
	}
	return d.edit(start, end, d.fragment(paras))
}

// SetParagraphStyle changes the style of paragraph i.
func (d *Document[PS, S]) SetParagraphStyle(i int, style PS) error {
	if d.notifying {
		return ErrReentrantMutation
	}
	if err := d.checkParagraph(i); err != nil {
		return err
	}
	d.ensureIndex()
	start := d.index.prefix(i)
	p := d.paragraphs[i]
	return d.edit(start, start+p.Len(), d.fragment([]Paragraph[PS, S]{p.WithStyle(style)}))
}

// ClearParagraphStyle resets paragraph i to the initial paragraph style.
func (d *Document[PS, S]) ClearParagraphStyle(i int) error {
	return d.SetParagraphStyle(i, d.initialParagraphStyle)
}

// Apply replays ch on the document. The document must hold ch's removed
// content at ch's position.
func (d *Document[PS, S]) Apply(ch Change[PS, S]) error {
	if d.notifying {
		return ErrReentrantMutation
	}
	if len(ch.removed.paras) == 0 || len(ch.inserted.paras) == 0 {
		return fmt.Errorf("%w: empty fragment", ErrChangeMismatch)
	}
	end := ch.pos + ch.removed.Len()
	if err := d.checkRange(ch.pos, end); err != nil {
		return err
	}
	if !d.subDocument(ch.pos, end).Equal(ch.removed) {
		return fmt.Errorf("%w: at offset %d", ErrChangeMismatch, ch.pos)
	}
	if ch.IsIdentity() {
		return nil
	}
	d.apply(ch)
	d.history.record(ch)
	d.publish(ch)
	return nil
}

// Undo reverts the most recent undo entry. It reports false when there is
// nothing to undo or when called from inside a change notification.
func (d *Document[PS, S]) Undo() bool {
	if d.notifying {
		return false
	}
	ch, ok := d.history.popUndo()
	if !ok {
		return false
	}
	inv := ch.Invert()
	d.apply(inv)
	d.history.pushRedo(ch)
	d.publish(inv)
	return true
}

// Redo reapplies the most recently undone entry.
func (d *Document[PS, S]) Redo() bool {
	if d.notifying {
		return false
	}
	ch, ok := d.history.popRedo()
	if !ok {
		return false
	}
	d.apply(ch)
	d.history.restore(ch)
	d.publish(ch)
	return true
}
