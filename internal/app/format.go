package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"sqrich/internal/editor"
	"sqrich/pkg/sqdoc"
)

var (
	fontNames  = []string{"sans", "serif", "mono"}
	alignNames = []string{"left", "center", "right", "justify"}
	listNames  = []string{"none", "bullet", "ordered"}
)

func lookupName(kind, name string, names []string) (int, error) {
	for i, n := range names {
		if strings.EqualFold(n, name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown %s %q (want one of %s)", ErrUsage, kind, name, strings.Join(names, ", "))
}

func nameOf(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return strconv.Itoa(i)
	}
	return names[i]
}

// parseColor accepts RRGGBB or RRGGBBAA with an optional leading '#'.
func parseColor(s string) (uint32, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 && len(s) != 8 {
		return 0, fmt.Errorf("%w: color %q must be RRGGBB or RRGGBBAA", ErrUsage, s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: color %q: %v", ErrUsage, s, err)
	}
	if len(s) == 6 {
		v = v<<8 | 0xFF
	}
	return uint32(v), nil
}

type styleFlags struct {
	bold, italic, underline, strike, highlight, code bool

	size    uint16
	color   string
	font    string
	heading uint8
	align   string
	list    string
}

func (f *styleFlags) register(fs *pflag.FlagSet) {
	fs.BoolVar(&f.bold, "bold", false, "set or clear bold")
	fs.BoolVar(&f.italic, "italic", false, "set or clear italic")
	fs.BoolVar(&f.underline, "underline", false, "set or clear underline")
	fs.BoolVar(&f.strike, "strike", false, "set or clear strikethrough")
	fs.BoolVar(&f.highlight, "highlight", false, "set or clear highlight")
	fs.BoolVar(&f.code, "code", false, "set or clear inline code")
	fs.Uint16Var(&f.size, "size", 0, "font size in points")
	fs.StringVar(&f.color, "color", "", "text color as RRGGBB or RRGGBBAA")
	fs.StringVar(&f.font, "font", "", "font family: sans, serif or mono")
	fs.Uint8Var(&f.heading, "heading", 0, "heading level of the paragraphs, 0 for body text")
	fs.StringVar(&f.align, "align", "", "paragraph alignment: left, center, right or justify")
	fs.StringVar(&f.list, "list", "", "paragraph list kind: none, bullet or ordered")
}

// charChange builds the character restyle for the flags that were set, or
// nil when none were.
func (f *styleFlags) charChange(fs *pflag.FlagSet) (func(sqdoc.StyleAttr) sqdoc.StyleAttr, error) {
	var edits []func(*sqdoc.StyleAttr)
	flag := func(name string, v bool, field func(*sqdoc.StyleAttr) *bool) {
		if fs.Changed(name) {
			edits = append(edits, func(st *sqdoc.StyleAttr) { *field(st) = v })
		}
	}
	flag("bold", f.bold, func(st *sqdoc.StyleAttr) *bool { return &st.Bold })
	flag("italic", f.italic, func(st *sqdoc.StyleAttr) *bool { return &st.Italic })
	flag("underline", f.underline, func(st *sqdoc.StyleAttr) *bool { return &st.Underline })
	flag("strike", f.strike, func(st *sqdoc.StyleAttr) *bool { return &st.Strikethrough })
	flag("highlight", f.highlight, func(st *sqdoc.StyleAttr) *bool { return &st.Highlight })
	flag("code", f.code, func(st *sqdoc.StyleAttr) *bool { return &st.Code })

	if fs.Changed("size") {
		size := min(max(f.size, editor.MinFontSizePt), editor.MaxFontSizePt)
		edits = append(edits, func(st *sqdoc.StyleAttr) { st.FontSizePt = size })
	}
	if fs.Changed("color") {
		rgba, err := parseColor(f.color)
		if err != nil {
			return nil, err
		}
		edits = append(edits, func(st *sqdoc.StyleAttr) { st.ColorRGBA = rgba })
	}
	if fs.Changed("font") {
		i, err := lookupName("font", f.font, fontNames)
		if err != nil {
			return nil, err
		}
		edits = append(edits, func(st *sqdoc.StyleAttr) { st.FontFamily = sqdoc.FontFamily(i) })
	}
	if len(edits) == 0 {
		return nil, nil
	}
	return func(st sqdoc.StyleAttr) sqdoc.StyleAttr {
		for _, e := range edits {
			e(&st)
		}
		return st
	}, nil
}

// applyParagraph applies the paragraph flags that were set to the paragraphs
// of the session's selection.
func (f *styleFlags) applyParagraph(fs *pflag.FlagSet, s *editor.Session) error {
	if fs.Changed("heading") {
		if err := s.SetHeading(f.heading); err != nil {
			return err
		}
	}
	if fs.Changed("align") {
		i, err := lookupName("alignment", f.align, alignNames)
		if err != nil {
			return err
		}
		if err := s.SetAlignment(sqdoc.Alignment(i)); err != nil {
			return err
		}
	}
	if fs.Changed("list") {
		i, err := lookupName("list kind", f.list, listNames)
		if err != nil {
			return err
		}
		if err := s.SetList(sqdoc.ListKind(i)); err != nil {
			return err
		}
	}
	return nil
}

func formatStyleAttr(st sqdoc.StyleAttr) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %dpt #%08X", nameOf(fontNames, int(st.FontFamily)), st.FontSizePt, st.ColorRGBA)
	for _, fl := range []struct {
		on   bool
		name string
	}{
		{st.Bold, "bold"},
		{st.Italic, "italic"},
		{st.Underline, "underline"},
		{st.Strikethrough, "strike"},
		{st.Highlight, "highlight"},
		{st.Code, "code"},
	} {
		if fl.on {
			b.WriteByte(' ')
			b.WriteString(fl.name)
		}
	}
	return b.String()
}

func formatParagraphAttr(p sqdoc.ParagraphAttr) string {
	var parts []string
	if p.HeadingLevel > 0 {
		parts = append(parts, fmt.Sprintf("h%d", p.HeadingLevel))
	}
	parts = append(parts, nameOf(alignNames, int(p.Alignment)))
	if p.List != sqdoc.ListNone {
		parts = append(parts, nameOf(listNames, int(p.List)))
	}
	if p.IndentLevel > 0 {
		parts = append(parts, fmt.Sprintf("indent=%d", p.IndentLevel))
	}
	if p.Quote {
		parts = append(parts, "quote")
	}
	if p.CodeBlock {
		parts = append(parts, "code")
	}
	return strings.Join(parts, " ")
}
