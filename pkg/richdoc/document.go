package richdoc

import (
	"fmt"
	"slices"
	"strings"
)

// Document is an editable list of paragraphs. It always holds at least one
// paragraph. The zero value is not usable; create documents with New or
// FromParagraphs.
type Document[PS, S comparable] struct {
	paragraphs []Paragraph[PS, S]
	length     int
	index      offsetIndex

	initialParagraphStyle PS
	initialTextStyle      S

	history   *UndoManager[PS, S]
	observers []*observer[PS, S]
	notifying bool

	last    Change[PS, S]
	hasLast bool
}

type observer[PS, S comparable] struct {
	fn     func(Change[PS, S])
	active bool
}

// New returns a document holding one empty paragraph.
func New[PS, S comparable](paragraphStyle PS, textStyle S, opt Options) *Document[PS, S] {
	return FromParagraphs(paragraphStyle, textStyle, opt)
}

// FromParagraphs returns a document holding paragraphs, or one empty
// paragraph with paragraphStyle when the list is empty. History starts empty.
func FromParagraphs[PS, S comparable](paragraphStyle PS, textStyle S, opt Options, paragraphs ...Paragraph[PS, S]) *Document[PS, S] {
	d := &Document[PS, S]{
		initialParagraphStyle: paragraphStyle,
		initialTextStyle:      textStyle,
		history:               newUndoManager[PS, S](opt.normalized()),
	}
	if len(paragraphs) == 0 {
		d.paragraphs = []Paragraph[PS, S]{EmptyParagraph[PS, S](paragraphStyle)}
		return d
	}
	d.paragraphs = slices.Clone(paragraphs)
	d.length = len(d.paragraphs) - 1
	for _, p := range d.paragraphs {
		d.length += p.Len()
	}
	return d
}

// Len reports the document length in code points, separators included.
func (d *Document[PS, S]) Len() int { return d.length }

func (d *Document[PS, S]) ParagraphCount() int { return len(d.paragraphs) }

func (d *Document[PS, S]) InitialParagraphStyle() PS { return d.initialParagraphStyle }

func (d *Document[PS, S]) InitialTextStyle() S { return d.initialTextStyle }

// History exposes the document's undo manager.
func (d *Document[PS, S]) History() *UndoManager[PS, S] { return d.history }

// LastChange returns the most recent change applied to the document, if any.
func (d *Document[PS, S]) LastChange() (Change[PS, S], bool) { return d.last, d.hasLast }

func (d *Document[PS, S]) checkParagraph(i int) error {
	if i < 0 || i >= len(d.paragraphs) {
		return fmt.Errorf("%w: paragraph %d outside [0, %d)", ErrOutOfBounds, i, len(d.paragraphs))
	}
	return nil
}

func (d *Document[PS, S]) checkRange(start, end int) error {
	if start < 0 || start > end || end > d.length {
		return fmt.Errorf("%w: range [%d, %d) outside [0, %d]", ErrOutOfBounds, start, end, d.length)
	}
	return nil
}

func (d *Document[PS, S]) Paragraph(i int) (Paragraph[PS, S], error) {
	if err := d.checkParagraph(i); err != nil {
		return Paragraph[PS, S]{}, err
	}
	return d.paragraphs[i], nil
}

// Paragraphs returns a snapshot of every paragraph.
func (d *Document[PS, S]) Paragraphs() []Paragraph[PS, S] { return slices.Clone(d.paragraphs) }

func (d *Document[PS, S]) ParagraphStyle(i int) (PS, error) {
	if err := d.checkParagraph(i); err != nil {
		var zero PS
		return zero, err
	}
	return d.paragraphs[i].style, nil
}

// ParagraphStart returns the absolute offset of paragraph i's first column.
func (d *Document[PS, S]) ParagraphStart(i int) (int, error) {
	if err := d.checkParagraph(i); err != nil {
		return 0, err
	}
	d.ensureIndex()
	return d.index.prefix(i), nil
}

func (d *Document[PS, S]) ensureIndex() {
	if d.index.valid {
		return
	}
	d.index.build(func(i int) int { return d.paragraphs[i].Len() + 1 }, len(d.paragraphs))
}

// locate maps an in-range offset to a paragraph and column.
func (d *Document[PS, S]) locate(offset int) (paragraph, column int) {
	d.ensureIndex()
	paragraph = d.index.search(offset)
	return paragraph, offset - d.index.prefix(paragraph)
}

// OffsetToPosition maps an absolute offset to a paragraph index and column.
// An offset equal to a paragraph's length addresses that paragraph's end, not
// the start of the next one.
func (d *Document[PS, S]) OffsetToPosition(offset int) (paragraph, column int, err error) {
	if offset < 0 || offset > d.length {
		return 0, 0, fmt.Errorf("%w: offset %d outside [0, %d]", ErrOutOfBounds, offset, d.length)
	}
	paragraph, column = d.locate(offset)
	return paragraph, column, nil
}

// PositionToOffset maps a paragraph index and column to an absolute offset.
func (d *Document[PS, S]) PositionToOffset(paragraph, column int) (int, error) {
	if err := d.checkParagraph(paragraph); err != nil {
		return 0, err
	}
	if n := d.paragraphs[paragraph].Len(); column < 0 || column > n {
		return 0, fmt.Errorf("%w: column %d outside [0, %d]", ErrOutOfBounds, column, n)
	}
	d.ensureIndex()
	return d.index.prefix(paragraph) + column, nil
}

// Text returns the whole document as plain text.
func (d *Document[PS, S]) Text() string {
	var sb strings.Builder
	sb.Grow(d.length)
	for i, p := range d.paragraphs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for _, r := range p.text {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// GetText returns the plain text of [start, end).
func (d *Document[PS, S]) GetText(start, end int) (string, error) {
	if err := d.checkRange(start, end); err != nil {
		return "", err
	}
	return d.subDocument(start, end).Text(), nil
}

// GetStyleSpans returns spans covering [start, end). A separator takes the
// style of the last character of the paragraph it ends, or the initial text
// style when that paragraph is empty.
func (d *Document[PS, S]) GetStyleSpans(start, end int) (StyleSpans[S], error) {
	if err := d.checkRange(start, end); err != nil {
		return StyleSpans[S]{}, err
	}
	a, ca := d.locate(start)
	b, cb := d.locate(end)
	var sb StyleSpansBuilder[S]
	for i := a; i <= b; i++ {
		p := d.paragraphs[i]
		from, to := 0, p.Len()
		if i == a {
			from = ca
		}
		if i == b {
			to = cb
		}
		sb.AddSpans(p.spans.sub(from, to))
		if i < b {
			sb.Add(1, p.lastStyle(d.initialTextStyle))
		}
	}
	return sb.Build(), nil
}

// StyleAt returns the style of the character at offset. At the end of a
// paragraph it is the style of the paragraph's last character, and in an
// empty paragraph the initial text style.
func (d *Document[PS, S]) StyleAt(offset int) (S, error) {
	if offset < 0 || offset > d.length {
		var zero S
		return zero, fmt.Errorf("%w: offset %d outside [0, %d]", ErrOutOfBounds, offset, d.length)
	}
	a, ca := d.locate(offset)
	p := d.paragraphs[a]
	if ca < p.Len() {
		return p.spans.StyleAt(ca)
	}
	return p.lastStyle(d.initialTextStyle), nil
}

// InsertionStyleAt returns the style text typed at offset would naturally
// take: the style of the preceding character in the same paragraph, the
// paragraph's first character at column 0, or the initial text style in an
// empty paragraph.
func (d *Document[PS, S]) InsertionStyleAt(offset int) (S, error) {
	if offset < 0 || offset > d.length {
		var zero S
		return zero, fmt.Errorf("%w: offset %d outside [0, %d]", ErrOutOfBounds, offset, d.length)
	}
	a, ca := d.locate(offset)
	p := d.paragraphs[a]
	switch {
	case ca > 0:
		return p.spans.StyleAt(ca - 1)
	case p.Len() > 0:
		return p.spans.StyleAt(0)
	default:
		return d.initialTextStyle, nil
	}
}

// SubDocument returns the content of [start, end) as a fragment.
func (d *Document[PS, S]) SubDocument(start, end int) (Fragment[PS, S], error) {
	if err := d.checkRange(start, end); err != nil {
		return Fragment[PS, S]{}, err
	}
	return d.subDocument(start, end), nil
}

func (d *Document[PS, S]) subDocument(start, end int) Fragment[PS, S] {
	a, ca := d.locate(start)
	b, cb := d.locate(end)
	if a == b {
		return d.fragment([]Paragraph[PS, S]{d.paragraphs[a].sub(ca, cb)})
	}
	paras := make([]Paragraph[PS, S], 0, b-a+1)
	pa := d.paragraphs[a]
	paras = append(paras, pa.sub(ca, pa.Len()))
	paras = append(paras, d.paragraphs[a+1:b]...)
	paras = append(paras, d.paragraphs[b].sub(0, cb))
	return d.fragment(paras)
}

func (d *Document[PS, S]) fragment(paras []Paragraph[PS, S]) Fragment[PS, S] {
	return Fragment[PS, S]{paras: paras, fallback: d.initialTextStyle}
}

// Subscribe registers fn to receive every change after it is applied.
// Observers run synchronously in registration order. The returned func
// removes the subscription and may be called from inside fn.
func (d *Document[PS, S]) Subscribe(fn func(Change[PS, S])) (unsubscribe func()) {
	o := &observer[PS, S]{fn: fn, active: true}
	d.observers = append(d.observers, o)
	return func() {
		if !o.active {
			return
		}
		o.active = false
		d.observers = slices.DeleteFunc(slices.Clone(d.observers), func(x *observer[PS, S]) bool { return x == o })
	}
}

// edit records and publishes the change that swaps [start, end) for ins.
// The range must already be validated.
func (d *Document[PS, S]) edit(start, end int, ins Fragment[PS, S]) error {
	ch := Change[PS, S]{pos: start, removed: d.subDocument(start, end), inserted: ins}
	if ch.IsIdentity() {
		return nil
	}
	d.apply(ch)
	d.history.record(ch)
	d.publish(ch)
	return nil
}

// apply splices ch into the paragraph list. The first resulting paragraph is
// the head of the start paragraph joined to the first inserted piece; the
// last is the final inserted piece joined to the tail of the end paragraph.
// Each resulting paragraph takes the style of its inserted piece.
func (d *Document[PS, S]) apply(ch Change[PS, S]) {
	start := ch.pos
	end := start + ch.removed.Len()
	a, ca := d.locate(start)
	b, cb := d.locate(end)
	pa, pb := d.paragraphs[a], d.paragraphs[b]
	head, tail := pa.sub(0, ca), pb.sub(cb, pb.Len())

	ins := ch.inserted.paras
	m := len(ins)
	result := make([]Paragraph[PS, S], 0, m)
	if m == 1 {
		result = append(result, joinParagraphs(ins[0].style, head, ins[0], tail))
	} else {
		result = append(result, joinParagraphs(ins[0].style, head, ins[0]))
		result = append(result, ins[1:m-1]...)
		result = append(result, joinParagraphs(ins[m-1].style, ins[m-1], tail))
	}

	if m == b-a+1 {
		d.paragraphs = slices.Clone(d.paragraphs)
		for i, p := range result {
			if d.index.valid {
				d.index.add(a+i, p.Len()-d.paragraphs[a+i].Len())
			}
			d.paragraphs[a+i] = p
		}
	} else {
		out := make([]Paragraph[PS, S], 0, len(d.paragraphs)-(b-a+1)+m)
		out = append(out, d.paragraphs[:a]...)
		out = append(out, result...)
		out = append(out, d.paragraphs[b+1:]...)
		d.paragraphs = out
		d.index.invalidate()
	}
	d.length += ch.inserted.Len() - ch.removed.Len()
}

func (d *Document[PS, S]) publish(ch Change[PS, S]) {
	d.last, d.hasLast = ch, true
	if len(d.observers) == 0 {
		return
	}
	d.notifying = true
	defer func() { d.notifying = false }()
	for _, o := range slices.Clone(d.observers) {
		if o.active {
			o.fn(ch)
		}
	}
}
