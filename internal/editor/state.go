// Package editor drives a rich document the way a text widget would: a caret,
// an optional selection anchor and inline formatting commands.
package editor

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"sqrich/pkg/richdoc"
	"sqrich/pkg/sqdoc"
)

const (
	MinFontSizePt = 8
	MaxFontSizePt = 96
)

var palette = []uint32{
	0x202020FF,
	0x0057B8FF,
	0xA31515FF,
	0x117A37FF,
	0x7A2DB8FF,
}

type Options struct {
	// UseInitialStyle makes typed text take the document's initial text
	// style instead of the style before the caret.
	UseInitialStyle bool

	Document richdoc.Options
}

type caretPos = richdoc.Position[sqdoc.ParagraphAttr, sqdoc.StyleAttr]

// Session is an editing session over one document. Caret and anchor follow
// every change to the document, including undo and redo.
type Session struct {
	Meta sqdoc.Metadata

	doc      *sqdoc.RichDocument
	opts     Options
	caret    *caretPos
	anchor   *caretPos
	anchored bool
	pending  *sqdoc.StyleAttr
	untrack  []func()
}

// NewSession opens doc for editing. A nil doc starts an untitled document.
func NewSession(doc *sqdoc.Document, opts Options) (*Session, error) {
	if doc == nil {
		doc = sqdoc.NewDocument("", "Untitled")
	}
	var rd *sqdoc.RichDocument
	if len(doc.Blocks) == 0 {
		rd = sqdoc.NewRich(opts.Document)
	} else {
		var err error
		if rd, err = doc.ToRich(opts.Document); err != nil {
			return nil, err
		}
	}
	s := &Session{Meta: doc.Metadata, doc: rd, opts: opts}
	s.caret = rd.NewPosition(0, richdoc.CollapseToEnd)
	s.anchor = rd.NewPosition(0, richdoc.CollapseToStart)
	s.untrack = []func(){s.caret.Track(), s.anchor.Track()}
	return s, nil
}

// Close stops caret tracking. The document stays usable.
func (s *Session) Close() {
	for _, f := range s.untrack {
		f()
	}
	s.untrack = nil
}

func (s *Session) Document() *sqdoc.RichDocument { return s.doc }

// Snapshot returns the current content as a container document.
func (s *Session) Snapshot() *sqdoc.Document {
	return sqdoc.FromRich(s.Meta, s.doc)
}

func (s *Session) Caret() int { return s.caret.Offset() }

// CaretParagraph returns the caret as paragraph index and column.
func (s *Session) CaretParagraph() (paragraph, column int) {
	return s.caret.ParagraphColumn()
}

func (s *Session) ParagraphTexts() []string {
	paras := s.doc.Paragraphs()
	out := make([]string, len(paras))
	for i, p := range paras {
		out[i] = p.Text()
	}
	return out
}

// SetCaret moves the caret to offset. With extend the selection anchor stays
// where it was, otherwise the selection is dropped.
func (s *Session) SetCaret(offset int, extend bool) {
	if extend && !s.anchored {
		s.anchor.Set(s.caret.Offset())
		s.anchored = true
	} else if !extend {
		s.anchored = false
	}
	s.caret.Set(offset)
	s.pending = nil
	s.doc.History().PreventMerge()
}

func (s *Session) HasSelection() bool {
	_, _, ok := s.Selection()
	return ok
}

// Selection returns the ordered selection bounds.
func (s *Session) Selection() (start, end int, ok bool) {
	if !s.anchored {
		return 0, 0, false
	}
	a, c := s.anchor.Offset(), s.caret.Offset()
	if a == c {
		return 0, 0, false
	}
	return min(a, c), max(a, c), true
}

func (s *Session) ClearSelection() { s.anchored = false }

func (s *Session) SelectAll() {
	s.SetCaret(0, false)
	s.SetCaret(s.doc.Len(), true)
}

func (s *Session) SelectedText() string {
	start, end, ok := s.Selection()
	if !ok {
		return ""
	}
	text, _ := s.doc.GetText(start, end)
	return text
}

func (s *Session) MoveLeft(extend bool) {
	p, col := s.caret.ParagraphColumn()
	if !extend {
		if start, _, ok := s.Selection(); ok {
			s.SetCaret(start, false)
			return
		}
	}
	if col == 0 {
		if p > 0 {
			s.SetCaret(s.caret.Offset()-1, extend)
		}
		return
	}
	prev := previousGrapheme(s.paragraphText(p), col)
	s.SetCaret(s.caret.Offset()-(col-prev), extend)
}

func (s *Session) MoveRight(extend bool) {
	p, col := s.caret.ParagraphColumn()
	if !extend {
		if _, end, ok := s.Selection(); ok {
			s.SetCaret(end, false)
			return
		}
	}
	text := s.paragraphText(p)
	if col >= utf8.RuneCountInString(text) {
		if p < s.doc.ParagraphCount()-1 {
			s.SetCaret(s.caret.Offset()+1, extend)
		}
		return
	}
	next := nextGrapheme(text, col)
	s.SetCaret(s.caret.Offset()+(next-col), extend)
}

func (s *Session) MoveWordLeft(extend bool) {
	p, col := s.caret.ParagraphColumn()
	if col == 0 {
		if p > 0 {
			s.SetCaret(s.caret.Offset()-1, extend)
		}
		return
	}
	text := []rune(s.paragraphText(p))
	pos := col
	for pos > 0 && !isWordRune(text[pos-1]) {
		pos--
	}
	for pos > 0 && isWordRune(text[pos-1]) {
		pos--
	}
	s.SetCaret(s.caret.Offset()-(col-pos), extend)
}

func (s *Session) MoveWordRight(extend bool) {
	p, col := s.caret.ParagraphColumn()
	text := []rune(s.paragraphText(p))
	if col >= len(text) {
		if p < s.doc.ParagraphCount()-1 {
			s.SetCaret(s.caret.Offset()+1, extend)
		}
		return
	}
	pos := col
	for pos < len(text) && !isWordRune(text[pos]) {
		pos++
	}
	for pos < len(text) && isWordRune(text[pos]) {
		pos++
	}
	s.SetCaret(s.caret.Offset()+(pos-col), extend)
}

func (s *Session) MoveLineStart(extend bool) {
	_, col := s.caret.ParagraphColumn()
	s.SetCaret(s.caret.Offset()-col, extend)
}

func (s *Session) MoveLineEnd(extend bool) {
	p, col := s.caret.ParagraphColumn()
	n := utf8.RuneCountInString(s.paragraphText(p))
	s.SetCaret(s.caret.Offset()+(n-col), extend)
}

// InsertText types input at the caret, replacing the selection if there is
// one. Line separators split paragraphs.
func (s *Session) InsertText(input string) error {
	if input == "" {
		return nil
	}
	if !utf8.ValidString(input) {
		return fmt.Errorf("input must be valid UTF-8")
	}
	style := s.insertionStyle()
	start, end, ok := s.Selection()
	if !ok {
		start, end = s.caret.Offset(), s.caret.Offset()
	}
	if err := s.doc.Replace(start, end, input, style); err != nil {
		return err
	}
	s.anchored = false
	s.pending = nil
	return nil
}

func (s *Session) SplitParagraph() error {
	return s.InsertText("\n")
}

func (s *Session) Backspace() error {
	if ok, err := s.DeleteSelection(); ok || err != nil {
		return err
	}
	p, col := s.caret.ParagraphColumn()
	at := s.caret.Offset()
	switch {
	case at == 0:
		return nil
	case col == 0:
		return s.doc.Delete(at-1, at)
	}
	prev := previousGrapheme(s.paragraphText(p), col)
	return s.doc.Delete(at-(col-prev), at)
}

func (s *Session) DeleteForward() error {
	if ok, err := s.DeleteSelection(); ok || err != nil {
		return err
	}
	p, col := s.caret.ParagraphColumn()
	at := s.caret.Offset()
	text := s.paragraphText(p)
	if col >= utf8.RuneCountInString(text) {
		if at < s.doc.Len() {
			return s.doc.Delete(at, at+1)
		}
		return nil
	}
	next := nextGrapheme(text, col)
	return s.doc.Delete(at, at+(next-col))
}

// DeleteWordBackward removes the whitespace-delimited word before the caret.
func (s *Session) DeleteWordBackward() error {
	if ok, err := s.DeleteSelection(); ok || err != nil {
		return err
	}
	p, col := s.caret.ParagraphColumn()
	at := s.caret.Offset()
	if col == 0 {
		if at > 0 {
			return s.doc.Delete(at-1, at)
		}
		return nil
	}
	text := []rune(s.paragraphText(p))
	pos := col
	for pos > 0 && unicode.IsSpace(text[pos-1]) {
		pos--
	}
	for pos > 0 && !unicode.IsSpace(text[pos-1]) {
		pos--
	}
	return s.doc.Delete(at-(col-pos), at)
}

// DeleteSelection removes the selected text and reports whether there was
// a selection to remove.
func (s *Session) DeleteSelection() (bool, error) {
	start, end, ok := s.Selection()
	if !ok {
		s.anchored = false
		return false, nil
	}
	if err := s.doc.Delete(start, end); err != nil {
		return false, err
	}
	s.anchored = false
	return true, nil
}

func (s *Session) Undo() bool {
	s.anchored = false
	s.pending = nil
	return s.doc.Undo()
}

func (s *Session) Redo() bool {
	s.anchored = false
	s.pending = nil
	return s.doc.Redo()
}

// CurrentStyle is the style of the selection start or, without a selection,
// the style typed text would take.
func (s *Session) CurrentStyle() sqdoc.StyleAttr {
	if start, _, ok := s.Selection(); ok {
		st, _ := s.doc.StyleAt(start)
		return st
	}
	return s.insertionStyle()
}

func (s *Session) insertionStyle() sqdoc.StyleAttr {
	if s.pending != nil {
		return *s.pending
	}
	if s.opts.UseInitialStyle {
		return s.doc.InitialTextStyle()
	}
	st, _ := s.doc.InsertionStyleAt(s.caret.Offset())
	return st
}

func (s *Session) ToggleBold() error {
	return s.toggle(func(a *sqdoc.StyleAttr) *bool { return &a.Bold })
}

func (s *Session) ToggleItalic() error {
	return s.toggle(func(a *sqdoc.StyleAttr) *bool { return &a.Italic })
}

func (s *Session) ToggleUnderline() error {
	return s.toggle(func(a *sqdoc.StyleAttr) *bool { return &a.Underline })
}

func (s *Session) ToggleStrikethrough() error {
	return s.toggle(func(a *sqdoc.StyleAttr) *bool { return &a.Strikethrough })
}

func (s *Session) ToggleHighlight() error {
	return s.toggle(func(a *sqdoc.StyleAttr) *bool { return &a.Highlight })
}

func (s *Session) ToggleCode() error {
	return s.toggle(func(a *sqdoc.StyleAttr) *bool { return &a.Code })
}

// toggle sets the flag on the whole selection, or clears it when every
// selected character already has it.
func (s *Session) toggle(field func(*sqdoc.StyleAttr) *bool) error {
	start, end, ok := s.Selection()
	if !ok {
		return s.restyle(func(a sqdoc.StyleAttr) sqdoc.StyleAttr {
			*field(&a) = !*field(&a)
			return a
		})
	}
	frag, err := s.doc.SubDocument(start, end)
	if err != nil {
		return err
	}
	all := true
	for _, p := range frag.Paragraphs() {
		for _, sp := range p.Spans().Spans() {
			if !*field(&sp.Style) {
				all = false
			}
		}
	}
	return s.restyle(func(a sqdoc.StyleAttr) sqdoc.StyleAttr {
		*field(&a) = !all
		return a
	})
}

func (s *Session) SetFontSize(pt uint16) error {
	pt = max(MinFontSizePt, min(pt, MaxFontSizePt))
	return s.restyle(func(a sqdoc.StyleAttr) sqdoc.StyleAttr {
		a.FontSizePt = pt
		return a
	})
}

func (s *Session) IncreaseFontSize() error {
	return s.restyle(func(a sqdoc.StyleAttr) sqdoc.StyleAttr {
		if a.FontSizePt < MaxFontSizePt {
			a.FontSizePt++
		}
		return a
	})
}

func (s *Session) DecreaseFontSize() error {
	return s.restyle(func(a sqdoc.StyleAttr) sqdoc.StyleAttr {
		if a.FontSizePt > MinFontSizePt {
			a.FontSizePt--
		}
		return a
	})
}

func (s *Session) SetFontFamily(family sqdoc.FontFamily) error {
	if family > sqdoc.FontFamilyMonospace {
		family = sqdoc.FontFamilySans
	}
	return s.restyle(func(a sqdoc.StyleAttr) sqdoc.StyleAttr {
		a.FontFamily = family
		return a
	})
}

// SetColor sets the text color; zero restores the default color.
func (s *Session) SetColor(rgba uint32) error {
	if rgba == 0 {
		rgba = sqdoc.DefaultColorRGBA
	}
	return s.restyle(func(a sqdoc.StyleAttr) sqdoc.StyleAttr {
		a.ColorRGBA = rgba
		return a
	})
}

// CycleColor steps each character to the next palette color.
func (s *Session) CycleColor() error {
	return s.restyle(func(a sqdoc.StyleAttr) sqdoc.StyleAttr {
		idx := 0
		for i := range palette {
			if palette[i] == a.ColorRGBA {
				idx = i
				break
			}
		}
		a.ColorRGBA = palette[(idx+1)%len(palette)]
		return a
	})
}

// restyle maps the selection through fn as one change. Without a selection
// it only changes the style the next typed text takes.
func (s *Session) restyle(fn func(sqdoc.StyleAttr) sqdoc.StyleAttr) error {
	start, end, ok := s.Selection()
	if !ok {
		st := fn(s.insertionStyle())
		s.pending = &st
		return nil
	}
	return s.doc.MapStyle(start, end, fn)
}

func (s *Session) SetHeading(level uint8) error {
	level = min(level, sqdoc.MaxHeadingLevel)
	return s.restyleParagraphs(func(p sqdoc.ParagraphAttr) sqdoc.ParagraphAttr {
		p.HeadingLevel = level
		return p
	})
}

func (s *Session) SetAlignment(align sqdoc.Alignment) error {
	if align > sqdoc.AlignJustify {
		align = sqdoc.AlignLeft
	}
	return s.restyleParagraphs(func(p sqdoc.ParagraphAttr) sqdoc.ParagraphAttr {
		p.Alignment = align
		return p
	})
}

func (s *Session) SetList(kind sqdoc.ListKind) error {
	if kind > sqdoc.ListOrdered {
		kind = sqdoc.ListNone
	}
	return s.restyleParagraphs(func(p sqdoc.ParagraphAttr) sqdoc.ParagraphAttr {
		p.List = kind
		return p
	})
}

func (s *Session) ToggleQuote() error {
	p, _ := s.caret.ParagraphColumn()
	cur, err := s.doc.ParagraphStyle(p)
	if err != nil {
		return err
	}
	quote := !cur.Quote
	return s.restyleParagraphs(func(p sqdoc.ParagraphAttr) sqdoc.ParagraphAttr {
		p.Quote = quote
		return p
	})
}

// restyleParagraphs applies fn to every paragraph touched by the selection,
// or to the caret's paragraph.
func (s *Session) restyleParagraphs(fn func(sqdoc.ParagraphAttr) sqdoc.ParagraphAttr) error {
	first, _ := s.caret.ParagraphColumn()
	last := first
	if start, end, ok := s.Selection(); ok {
		var err error
		if first, _, err = s.doc.OffsetToPosition(start); err != nil {
			return err
		}
		if last, _, err = s.doc.OffsetToPosition(end); err != nil {
			return err
		}
	}
	for i := first; i <= last; i++ {
		ps, err := s.doc.ParagraphStyle(i)
		if err != nil {
			return err
		}
		if err := s.doc.SetParagraphStyle(i, fn(ps)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) paragraphText(i int) string {
	p, err := s.doc.Paragraph(i)
	if err != nil {
		return ""
	}
	return p.Text()
}

// graphemeStarts lists the code point columns where grapheme clusters of
// text begin, followed by the text length.
func graphemeStarts(text string) []int {
	cols := []int{0}
	col := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		col += len(g.Runes())
		cols = append(cols, col)
	}
	return cols
}

func previousGrapheme(text string, col int) int {
	prev := 0
	for _, c := range graphemeStarts(text) {
		if c >= col {
			break
		}
		prev = c
	}
	return prev
}

func nextGrapheme(text string, col int) int {
	cols := graphemeStarts(text)
	for _, c := range cols {
		if c > col {
			return c
		}
	}
	return cols[len(cols)-1]
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
