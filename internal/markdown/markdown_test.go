package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqrich/pkg/richdoc"
	"sqrich/pkg/sqdoc"
)

func texts(paras []sqdoc.RichParagraph) []string {
	out := make([]string, len(paras))
	for i, p := range paras {
		out[i] = strings.TrimSpace(p.Text())
	}
	return out
}

func styleAt(t *testing.T, p sqdoc.RichParagraph, col int) sqdoc.StyleAttr {
	t.Helper()
	st, err := p.StyleAt(col)
	require.NoError(t, err)
	return st
}

func TestImportHeadingAndInlineStyles(t *testing.T) {
	src := "# Title\n\nHello **bold** and *it* ~~gone~~ `x`\n"
	paras, err := Import([]byte(src), sqdoc.DefaultStyleAttr())
	require.NoError(t, err)
	require.Equal(t, []string{"Title", "Hello bold and it gone x"}, texts(paras))

	title := paras[0]
	assert.Equal(t, uint8(1), title.Style().HeadingLevel)
	assert.True(t, styleAt(t, title, 0).Bold)
	assert.Equal(t, uint16(28), styleAt(t, title, 0).FontSizePt)

	body := paras[1]
	assert.Equal(t, sqdoc.ParagraphAttr{}, body.Style())
	assert.Equal(t, sqdoc.DefaultStyleAttr(), styleAt(t, body, 0))
	assert.True(t, styleAt(t, body, 6).Bold)
	assert.False(t, styleAt(t, body, 10).Bold)
	assert.True(t, styleAt(t, body, 15).Italic)
	assert.True(t, styleAt(t, body, 18).Strikethrough)

	code := styleAt(t, body, 23)
	assert.True(t, code.Code)
	assert.Equal(t, sqdoc.FontFamilyMonospace, code.FontFamily)
}

func TestImportLists(t *testing.T) {
	src := "- a\n- b\n  1. c\n"
	paras, err := Import([]byte(src), sqdoc.DefaultStyleAttr())
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, texts(paras))

	assert.Equal(t, sqdoc.ListBullet, paras[0].Style().List)
	assert.Equal(t, sqdoc.ListBullet, paras[1].Style().List)
	assert.Equal(t, uint8(0), paras[1].Style().IndentLevel)
	assert.Equal(t, sqdoc.ListOrdered, paras[2].Style().List)
	assert.Equal(t, uint8(1), paras[2].Style().IndentLevel)
}

func TestImportQuoteAndCode(t *testing.T) {
	src := "> quoted\n\n```\nline1\nline2\n```\n"
	paras, err := Import([]byte(src), sqdoc.DefaultStyleAttr())
	require.NoError(t, err)
	require.Equal(t, []string{"quoted", "line1", "line2"}, texts(paras))

	assert.True(t, paras[0].Style().Quote)
	for _, p := range paras[1:] {
		assert.True(t, p.Style().CodeBlock)
		assert.True(t, styleAt(t, p, 0).Code)
	}
}

func TestImportLineBreaks(t *testing.T) {
	paras, err := Import([]byte("one\ntwo\n"), sqdoc.DefaultStyleAttr())
	require.NoError(t, err)
	require.Equal(t, []string{"one two"}, texts(paras))

	paras, err = Import([]byte("one\\\ntwo\n"), sqdoc.DefaultStyleAttr())
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two"}, texts(paras))
}

func TestImportLinks(t *testing.T) {
	paras, err := Import([]byte("see [site](http://example.com) now\n"), sqdoc.DefaultStyleAttr())
	require.NoError(t, err)
	require.Len(t, paras, 1)
	require.Equal(t, "see site now", paras[0].Text())

	link := styleAt(t, paras[0], 4)
	assert.True(t, link.Underline)
	assert.Equal(t, uint32(LinkColorRGBA), link.ColorRGBA)
	assert.False(t, styleAt(t, paras[0], 0).Underline)
}

func TestImportDocument(t *testing.T) {
	d, err := ImportDocument(nil, richdoc.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, 1, d.ParagraphCount())

	d, err = ImportDocument([]byte("a\n\nb\n"), richdoc.Options{})
	require.NoError(t, err)
	assert.Equal(t, "a\nb", d.Text())
	assert.False(t, d.History().CanUndo())

	require.NoError(t, d.Insert(1, "!", sqdoc.DefaultStyleAttr()))
	assert.Equal(t, "a!\nb", d.Text())
}
