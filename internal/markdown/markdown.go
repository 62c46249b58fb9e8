// Package markdown imports Markdown into rich document paragraphs.
package markdown

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"sqrich/pkg/richdoc"
	"sqrich/pkg/sqdoc"
)

// LinkColorRGBA is the text color given to link labels.
const LinkColorRGBA = 0x0057B8FF

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

var headingSizes = [sqdoc.MaxHeadingLevel + 1]uint16{0, 28, 24, 20, 18, 16, 14}

// Import parses src and returns one paragraph per Markdown paragraph, heading,
// list item line or code line. Unstyled text takes base.
func Import(src []byte, base sqdoc.StyleAttr) ([]sqdoc.RichParagraph, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Strikethrough))
	root := md.Parser().Parse(text.NewReader(src))
	if root == nil {
		return nil, errors.New("markdown: parse: nil document")
	}
	im := &importer{src: src, base: base}
	if err := im.children(root, sqdoc.ParagraphAttr{}); err != nil {
		return nil, err
	}
	return im.paras, nil
}

// ImportDocument builds an editable document from src. Empty input yields a
// document with one empty paragraph.
func ImportDocument(src []byte, opt richdoc.Options) (*sqdoc.RichDocument, error) {
	paras, err := Import(src, sqdoc.DefaultStyleAttr())
	if err != nil {
		return nil, err
	}
	if len(paras) == 0 {
		return sqdoc.NewRich(opt), nil
	}
	return richdoc.FromParagraphs(sqdoc.ParagraphAttr{}, sqdoc.DefaultStyleAttr(), opt, paras...), nil
}

type importer struct {
	src   []byte
	base  sqdoc.StyleAttr
	paras []sqdoc.RichParagraph
}

func (im *importer) children(n ast.Node, attr sqdoc.ParagraphAttr) error {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := im.block(c, attr); err != nil {
			return err
		}
	}
	return nil
}

func (im *importer) block(n ast.Node, attr sqdoc.ParagraphAttr) error {
	switch n := n.(type) {
	case *ast.Heading:
		level := min(n.Level, sqdoc.MaxHeadingLevel)
		attr.HeadingLevel = uint8(level)
		st := im.base
		st.Bold = true
		st.FontSizePt = headingSizes[level]
		return im.inlineBlock(n, attr, st)
	case *ast.Paragraph, *ast.TextBlock:
		return im.inlineBlock(n, attr, im.base)
	case *ast.Blockquote:
		attr.Quote = true
		return im.children(n, attr)
	case *ast.List:
		if attr.List != sqdoc.ListNone {
			attr.IndentLevel++
		}
		attr.List = sqdoc.ListBullet
		if n.IsOrdered() {
			attr.List = sqdoc.ListOrdered
		}
		return im.children(n, attr)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		attr.CodeBlock = true
		st := im.base
		st.Code = true
		st.FontFamily = sqdoc.FontFamilyMonospace
		return im.lines(n, attr, st)
	case *ast.HTMLBlock:
		return im.lines(n, attr, im.base)
	case *ast.ThematicBreak:
		return nil
	default:
		return im.children(n, attr)
	}
}

// lines emits one paragraph per source line of a literal block.
func (im *importer) lines(n ast.Node, attr sqdoc.ParagraphAttr, st sqdoc.StyleAttr) error {
	segs := n.Lines()
	if segs == nil || segs.Len() == 0 {
		return im.emit("", richdoc.StyleSpans[sqdoc.StyleAttr]{}, attr)
	}
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		line := strings.TrimRight(string(seg.Value(im.src)), "\r\n")
		if err := im.emit(line, richdoc.SingleStyle(len([]rune(line)), st), attr); err != nil {
			return err
		}
	}
	return nil
}

func (im *importer) inlineBlock(n ast.Node, attr sqdoc.ParagraphAttr, st sqdoc.StyleAttr) error {
	w := &lineWriter{}
	im.inline(n, st, w)
	for _, l := range w.finish() {
		if err := im.emit(l.text.String(), l.spans.Build(), attr); err != nil {
			return err
		}
	}
	return nil
}

func (im *importer) inline(n ast.Node, st sqdoc.StyleAttr, w *lineWriter) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			w.write(string(c.Segment.Value(im.src)), st)
			switch {
			case c.HardLineBreak():
				w.newLine()
			case c.SoftLineBreak():
				w.space(st)
			}
		case *ast.String:
			w.write(string(c.Value), st)
		case *ast.Emphasis:
			s := st
			if c.Level >= 2 {
				s.Bold = true
			} else {
				s.Italic = true
			}
			im.inline(c, s, w)
		case *extast.Strikethrough:
			s := st
			s.Strikethrough = true
			im.inline(c, s, w)
		case *ast.CodeSpan:
			s := st
			s.Code = true
			s.FontFamily = sqdoc.FontFamilyMonospace
			im.inline(c, s, w)
		case *ast.Link:
			im.inline(c, linkStyle(st), w)
		case *ast.AutoLink:
			w.write(string(c.Label(im.src)), linkStyle(st))
		case *ast.RawHTML:
			for i := 0; i < c.Segments.Len(); i++ {
				seg := c.Segments.At(i)
				w.write(string(seg.Value(im.src)), st)
			}
		default:
			im.inline(c, st, w)
		}
	}
}

func linkStyle(st sqdoc.StyleAttr) sqdoc.StyleAttr {
	st.Underline = true
	st.ColorRGBA = LinkColorRGBA
	return st
}

func (im *importer) emit(line string, spans richdoc.StyleSpans[sqdoc.StyleAttr], attr sqdoc.ParagraphAttr) error {
	p, err := richdoc.NewParagraph(line, spans, attr)
	if err != nil {
		return fmt.Errorf("markdown: paragraph %d: %w", len(im.paras), err)
	}
	im.paras = append(im.paras, p)
	return nil
}

type textLine struct {
	text  strings.Builder
	spans richdoc.StyleSpansBuilder[sqdoc.StyleAttr]
}

// lineWriter collects styled inline text, starting a new line at each hard
// break.
type lineWriter struct {
	lines []*textLine

	// soft break waiting for more text on the same line
	pendingSpace *sqdoc.StyleAttr
}

func (w *lineWriter) current() *textLine {
	if len(w.lines) == 0 {
		w.newLine()
	}
	return w.lines[len(w.lines)-1]
}

func (w *lineWriter) newLine() {
	w.pendingSpace = nil
	w.lines = append(w.lines, &textLine{})
}

func (w *lineWriter) space(st sqdoc.StyleAttr) {
	w.pendingSpace = &st
}

func (w *lineWriter) write(s string, st sqdoc.StyleAttr) {
	s = lineBreaks.Replace(s)
	if s == "" {
		return
	}
	l := w.current()
	if sp := w.pendingSpace; sp != nil {
		w.pendingSpace = nil
		l.text.WriteByte(' ')
		l.spans.Add(1, *sp)
	}
	l.text.WriteString(s)
	l.spans.Add(len([]rune(s)), st)
}

// finish drops a trailing empty line left by a final hard break.
func (w *lineWriter) finish() []*textLine {
	w.current()
	if n := len(w.lines); n > 1 && w.lines[n-1].text.Len() == 0 {
		return w.lines[:n-1]
	}
	return w.lines
}
