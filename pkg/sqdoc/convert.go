package sqdoc

import (
	"fmt"
	"unicode/utf8"

	"sqrich/pkg/richdoc"
)

// RichDocument is the editable form of a container.
type RichDocument = richdoc.Document[ParagraphAttr, StyleAttr]

type RichParagraph = richdoc.Paragraph[ParagraphAttr, StyleAttr]

// NewRich returns an empty editable document with the container defaults as
// its initial styles.
func NewRich(opt richdoc.Options) *RichDocument {
	return richdoc.New(ParagraphAttr{}, DefaultStyleAttr(), opt)
}

// FromRich snapshots rd into a container document carrying meta. Paragraph i
// becomes text block i+1 and every style span becomes one run.
func FromRich(meta Metadata, rd *RichDocument) *Document {
	paras := rd.Paragraphs()
	doc := &Document{Metadata: meta, Blocks: make([]Block, 0, len(paras))}
	for i, p := range paras {
		spans := p.Spans()
		tb := &TextBlock{Text: p.Text(), Paragraph: p.Style(), Runs: make([]StyleRun, 0, spans.SpanCount())}
		var pos uint32
		for j := 0; j < spans.SpanCount(); j++ {
			sp := spans.Span(j)
			end := pos + uint32(sp.Length)
			tb.Runs = append(tb.Runs, StyleRun{Start: pos, End: end, Attr: sp.Style})
			pos = end
		}
		doc.Blocks = append(doc.Blocks, Block{ID: uint64(i + 1), Kind: BlockKindText, Text: tb})
	}
	return doc
}

// ToRich builds an editable document from d. Text not covered by any run
// takes DefaultStyleAttr.
func (d *Document) ToRich(opt richdoc.Options) (*RichDocument, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}
	base := DefaultStyleAttr()
	paras := make([]RichParagraph, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		tb := b.Text
		runs := append([]StyleRun(nil), tb.Runs...)
		sortRuns(runs)

		var sb richdoc.StyleSpansBuilder[StyleAttr]
		var pos uint32
		for _, r := range runs {
			if r.Start == r.End {
				continue
			}
			sb.Add(int(r.Start-pos), base)
			sb.Add(int(r.End-r.Start), r.Attr)
			pos = r.End
		}
		sb.Add(utf8.RuneCountInString(tb.Text)-int(pos), base)

		p, err := richdoc.NewParagraph(tb.Text, sb.Build(), tb.Paragraph)
		if err != nil {
			return nil, fmt.Errorf("sqdoc: block %d: %w", b.ID, err)
		}
		paras = append(paras, p)
	}
	return richdoc.FromParagraphs(ParagraphAttr{}, base, opt, paras...), nil
}
