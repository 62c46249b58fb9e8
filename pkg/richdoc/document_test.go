package richdoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type testDoc = Document[string, string]

func newTestDoc(t *testing.T) *testDoc {
	t.Helper()
	return New[string, string]("body", "plain", Options{MergePolicy: MergeNever})
}

func paragraphTexts(d *testDoc) []string {
	out := make([]string, d.ParagraphCount())
	for i, p := range d.Paragraphs() {
		out[i] = p.Text()
	}
	return out
}

func paragraphStyles(d *testDoc) []string {
	out := make([]string, d.ParagraphCount())
	for i, p := range d.Paragraphs() {
		out[i] = p.Style()
	}
	return out
}

func spansOf(t *testing.T, d *testDoc, i int) []StyleSpan[string] {
	t.Helper()
	p, err := d.Paragraph(i)
	require.NoError(t, err)
	return p.Spans().Spans()
}

// checkInvariants asserts the structural invariants every document must keep.
func checkInvariants(t *testing.T, d *testDoc) {
	t.Helper()
	require.GreaterOrEqual(t, d.ParagraphCount(), 1)
	total := d.ParagraphCount() - 1
	for i, p := range d.Paragraphs() {
		require.NotContains(t, p.Text(), "\n")
		require.Equal(t, p.Len(), p.Spans().Len(), "paragraph %d coverage", i)
		requireCanonical(t, p.Spans())
		start, err := d.ParagraphStart(i)
		require.NoError(t, err)
		require.Equal(t, sumLens(d, i)+i, start, "paragraph %d start", i)
		total += p.Len()
	}
	require.Equal(t, total, d.Len())
	require.Equal(t, d.Len(), len([]rune(d.Text())))
	text, err := d.GetText(0, d.Len())
	require.NoError(t, err)
	require.Equal(t, d.Text(), text)
}

func sumLens(d *testDoc, n int) int {
	sum := 0
	for _, p := range d.Paragraphs()[:n] {
		sum += p.Len()
	}
	return sum
}

func TestNewDocumentHasOneEmptyParagraph(t *testing.T) {
	d := newTestDoc(t)
	require.Equal(t, 1, d.ParagraphCount())
	require.Equal(t, 0, d.Len())
	require.Equal(t, "", d.Text())
	require.Equal(t, []string{"body"}, paragraphStyles(d))
	_, ok := d.LastChange()
	require.False(t, ok)
}

func TestScenarioInsertRestyleUndo(t *testing.T) {
	d := newTestDoc(t)

	require.NoError(t, d.Insert(0, "Hello\nWorld", "A"))
	require.Equal(t, []string{"Hello", "World"}, paragraphTexts(d))
	require.Equal(t, []StyleSpan[string]{{5, "A"}}, spansOf(t, d, 0))
	require.Equal(t, []StyleSpan[string]{{5, "A"}}, spansOf(t, d, 1))

	require.NoError(t, d.SetStyle(2, 8, "B"))
	require.Equal(t, []StyleSpan[string]{{2, "A"}, {3, "B"}}, spansOf(t, d, 0))
	require.Equal(t, []StyleSpan[string]{{2, "B"}, {3, "A"}}, spansOf(t, d, 1))

	require.True(t, d.Undo())
	require.Equal(t, []StyleSpan[string]{{5, "A"}}, spansOf(t, d, 0))
	require.Equal(t, []StyleSpan[string]{{5, "A"}}, spansOf(t, d, 1))

	require.True(t, d.Undo())
	require.Equal(t, []string{""}, paragraphTexts(d))
	require.Equal(t, []string{"body"}, paragraphStyles(d))
	require.False(t, d.Undo())
	checkInvariants(t, d)
}

func TestInsertNormalizesLineSeparatorsAndInheritsHostStyle(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.SetParagraphStyle(0, "quote"))
	require.NoError(t, d.Insert(0, "a\r\nb\rc\nd", "plain"))
	require.Equal(t, []string{"a", "b", "c", "d"}, paragraphTexts(d))
	require.Equal(t, []string{"quote", "quote", "quote", "quote"}, paragraphStyles(d))
	require.Equal(t, "a\nb\nc\nd", d.Text())
	checkInvariants(t, d)
}

func TestInsertSplitsHostParagraph(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "abcdef", "x"))
	require.NoError(t, d.Insert(3, "1\n2", "y"))
	require.Equal(t, []string{"abc1", "2def"}, paragraphTexts(d))
	require.Equal(t, []StyleSpan[string]{{3, "x"}, {1, "y"}}, spansOf(t, d, 0))
	require.Equal(t, []StyleSpan[string]{{1, "y"}, {3, "x"}}, spansOf(t, d, 1))
	checkInvariants(t, d)
}

func TestInsertWithParagraphStyles(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "head", "plain"))
	require.NoError(t, d.InsertWithParagraphStyles(4, "\nitem one\nitem two", "plain", []string{"bullet", "bullet"}))
	require.Equal(t, []string{"head", "item one", "item two"}, paragraphTexts(d))
	require.Equal(t, []string{"body", "bullet", "bullet"}, paragraphStyles(d))

	err := d.InsertWithParagraphStyles(0, "a\nb", "plain", nil)
	require.ErrorIs(t, err, ErrInvalidSpanCoverage)
	require.Equal(t, []string{"head", "item one", "item two"}, paragraphTexts(d))
}

func TestInsertStyled(t *testing.T) {
	d := newTestDoc(t)
	spans := mustSpans(t, StyleSpan[string]{2, "b"}, StyleSpan[string]{1, "sep"}, StyleSpan[string]{2, "i"})
	require.NoError(t, d.InsertStyled(0, "ab\ncd", spans))
	require.Equal(t, []string{"ab", "cd"}, paragraphTexts(d))
	require.Equal(t, []StyleSpan[string]{{2, "b"}}, spansOf(t, d, 0))
	require.Equal(t, []StyleSpan[string]{{2, "i"}}, spansOf(t, d, 1))

	err := d.InsertStyled(0, "xyz", SingleStyle(2, "b"))
	require.ErrorIs(t, err, ErrInvalidSpanCoverage)
	require.Equal(t, "ab\ncd", d.Text())
}

func TestInsertStyledCRLFDropsCarriageReturn(t *testing.T) {
	d := newTestDoc(t)
	spans := mustSpans(t, StyleSpan[string]{1, "a"}, StyleSpan[string]{2, "sep"}, StyleSpan[string]{1, "b"})
	require.NoError(t, d.InsertStyled(0, "x\r\ny", spans))
	require.Equal(t, []string{"x", "y"}, paragraphTexts(d))
	require.Equal(t, []StyleSpan[string]{{1, "b"}}, spansOf(t, d, 1))
}

func TestInsertParagraphs(t *testing.T) {
	mk := func(text, style string) Paragraph[string, string] {
		p, err := PlainParagraph(text, "plain", style)
		require.NoError(t, err)
		return p
	}

	t.Run("middle of host keeps host style", func(t *testing.T) {
		d := newTestDoc(t)
		require.NoError(t, d.Insert(0, "abcd", "plain"))
		require.NoError(t, d.InsertParagraphs(2, []Paragraph[string, string]{mk("X", "h1"), mk("Y", "h2")}))
		require.Equal(t, []string{"abX", "Ycd"}, paragraphTexts(d))
		require.Equal(t, []string{"body", "h2"}, paragraphStyles(d))
		checkInvariants(t, d)
	})

	t.Run("column zero takes first paragraph style", func(t *testing.T) {
		d := newTestDoc(t)
		require.NoError(t, d.Insert(0, "abcd", "plain"))
		require.NoError(t, d.InsertParagraphs(0, []Paragraph[string, string]{mk("T", "title"), mk("", "body")}))
		require.Equal(t, []string{"T", "abcd"}, paragraphTexts(d))
		require.Equal(t, []string{"title", "body"}, paragraphStyles(d))

		require.True(t, d.Undo())
		require.Equal(t, []string{"abcd"}, paragraphTexts(d))
		require.Equal(t, []string{"body"}, paragraphStyles(d))
	})

	t.Run("empty list is a no-op insert", func(t *testing.T) {
		d := newTestDoc(t)
		require.NoError(t, d.InsertParagraphs(0, nil))
		_, ok := d.LastChange()
		require.False(t, ok)
	})
}

func TestDeleteAcrossParagraphsKeepsStartStyle(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.InsertWithParagraphStyles(0, "one\ntwo\nthree", "plain", []string{"h1", "h2"}))
	require.NoError(t, d.SetParagraphStyle(0, "quote"))

	require.NoError(t, d.Delete(2, 9))
	require.Equal(t, []string{"onhree"}, paragraphTexts(d))
	require.Equal(t, []string{"quote"}, paragraphStyles(d))
	checkInvariants(t, d)

	require.True(t, d.Undo())
	require.Equal(t, []string{"one", "two", "three"}, paragraphTexts(d))
	require.Equal(t, []string{"quote", "h1", "h2"}, paragraphStyles(d))
}

func TestReplaceIsOneChange(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "hello world", "plain"))
	var changes []Change[string, string]
	d.Subscribe(func(ch Change[string, string]) { changes = append(changes, ch) })

	require.NoError(t, d.Replace(0, 5, "goodbye\ncruel", "bold"))
	require.Equal(t, []string{"goodbye", "cruel world"}, paragraphTexts(d))
	require.Len(t, changes, 1)
	require.Equal(t, KindReplace, changes[0].Kind())
	require.Equal(t, "hello", changes[0].RemovedText())
	require.Equal(t, "goodbye\ncruel", changes[0].InsertedText())
}

func TestReplaceParagraphsEmptyDeletes(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "abc", "plain"))
	require.NoError(t, d.ReplaceParagraphs(1, 2, nil))
	require.Equal(t, "ac", d.Text())
}

func TestGetStyleSpansSeparators(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "ab\n\ncd", "x"))
	require.NoError(t, d.SetStyle(1, 2, "y"))

	spans, err := d.GetStyleSpans(0, d.Len())
	require.NoError(t, err)
	// "a" x, "b" y, sep after "b" y, sep after empty paragraph plain, "cd" x.
	require.Equal(t, []StyleSpan[string]{{1, "x"}, {2, "y"}, {1, "plain"}, {2, "x"}}, spans.Spans())
	require.Equal(t, d.Len(), spans.Len())

	spans, err = d.GetStyleSpans(2, 4)
	require.NoError(t, err)
	require.Equal(t, []StyleSpan[string]{{1, "y"}, {1, "plain"}}, spans.Spans())

	_, err = d.GetStyleSpans(3, 2)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestSetStyleSpansCountsSeparators(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "ab\ncd", "x"))
	spans := mustSpans(t, StyleSpan[string]{1, "p"}, StyleSpan[string]{2, "q"}, StyleSpan[string]{2, "r"})
	require.NoError(t, d.SetStyleSpans(0, 5, spans))
	require.Equal(t, []StyleSpan[string]{{1, "p"}, {1, "q"}}, spansOf(t, d, 0))
	require.Equal(t, []StyleSpan[string]{{2, "r"}}, spansOf(t, d, 1))

	err := d.SetStyleSpans(0, 4, spans)
	require.ErrorIs(t, err, ErrInvalidSpanCoverage)
}

func TestClearStyleAndParagraphStyle(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "abc", "bold"))
	require.NoError(t, d.SetParagraphStyle(0, "h1"))
	require.NoError(t, d.ClearStyle(1, 3))
	require.NoError(t, d.ClearParagraphStyle(0))
	require.Equal(t, []StyleSpan[string]{{1, "bold"}, {2, "plain"}}, spansOf(t, d, 0))
	require.Equal(t, []string{"body"}, paragraphStyles(d))
}

func TestStyleAtAndInsertionStyleAt(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "ab\n", "x"))
	require.NoError(t, d.SetStyle(1, 2, "y"))

	tests := []struct {
		offset       int
		at, inserted string
	}{
		{0, "x", "x"},
		{1, "y", "x"},
		{2, "y", "y"},
		{3, "plain", "plain"},
	}
	for _, tc := range tests {
		got, err := d.StyleAt(tc.offset)
		require.NoError(t, err)
		require.Equal(t, tc.at, got, "StyleAt(%d)", tc.offset)
		got, err = d.InsertionStyleAt(tc.offset)
		require.NoError(t, err)
		require.Equal(t, tc.inserted, got, "InsertionStyleAt(%d)", tc.offset)
	}
	_, err := d.StyleAt(4)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestOffsetMapping(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "abc\n\nde", "x"))

	tests := []struct{ offset, paragraph, column int }{
		{0, 0, 0},
		{3, 0, 3},
		{4, 1, 0},
		{5, 2, 0},
		{7, 2, 2},
	}
	for _, tc := range tests {
		p, c, err := d.OffsetToPosition(tc.offset)
		require.NoError(t, err)
		require.Equal(t, [2]int{tc.paragraph, tc.column}, [2]int{p, c}, "offset %d", tc.offset)
		off, err := d.PositionToOffset(tc.paragraph, tc.column)
		require.NoError(t, err)
		require.Equal(t, tc.offset, off)
	}

	_, _, err := d.OffsetToPosition(8)
	require.ErrorIs(t, err, ErrOutOfBounds)
	_, err = d.PositionToOffset(0, 4)
	require.ErrorIs(t, err, ErrOutOfBounds)
	_, err = d.PositionToOffset(3, 0)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestOutOfBoundsLeavesDocumentUnchanged(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "abc", "x"))
	before := d.Paragraphs()

	require.ErrorIs(t, d.Insert(4, "z", "x"), ErrOutOfBounds)
	require.ErrorIs(t, d.Insert(-1, "z", "x"), ErrOutOfBounds)
	require.ErrorIs(t, d.Delete(2, 1), ErrOutOfBounds)
	require.ErrorIs(t, d.SetStyle(0, 9, "y"), ErrOutOfBounds)
	require.ErrorIs(t, d.SetParagraphStyle(1, "h1"), ErrOutOfBounds)
	_, err := d.GetText(0, 4)
	require.ErrorIs(t, err, ErrOutOfBounds)

	requireSameParagraphs(t, before, d.Paragraphs())
	require.Equal(t, 1, d.History().UndoLen())
}

func requireSameParagraphs(t *testing.T, want, got []Paragraph[string, string]) {
	t.Helper()
	require.Equal(t, len(want), len(got), "paragraph count")
	for i := range want {
		require.True(t, want[i].Equal(got[i]), "paragraph %d: want %v, got %v", i, want[i], got[i])
	}
}

func TestNoOpMutationsProduceNoChange(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "abc", "x"))
	notified := 0
	d.Subscribe(func(Change[string, string]) { notified++ })

	require.NoError(t, d.Insert(1, "", "y"))
	require.NoError(t, d.Delete(2, 2))
	require.NoError(t, d.SetStyle(0, 3, "x"))
	require.NoError(t, d.SetParagraphStyle(0, "body"))
	require.NoError(t, d.Replace(0, 1, "a", "x"))

	require.Zero(t, notified)
	require.Equal(t, 1, d.History().UndoLen())
}

func TestParagraphStyleOnEmptyParagraphIsUndoable(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "a\n\nb", "x"))
	require.NoError(t, d.SetParagraphStyle(1, "h2"))

	ch, ok := d.LastChange()
	require.True(t, ok)
	require.Equal(t, KindParagraphStyle, ch.Kind())
	require.Equal(t, []string{"body"}, ch.RemovedParagraphStyles())
	require.Equal(t, []string{"h2"}, ch.InsertedParagraphStyles())
	require.Equal(t, 2, ch.Position())

	require.True(t, d.Undo())
	require.Equal(t, []string{"body", "body", "body"}, paragraphStyles(d))
	require.True(t, d.Redo())
	require.Equal(t, []string{"body", "h2", "body"}, paragraphStyles(d))
}

func TestApplyReplaysChangeOnCopy(t *testing.T) {
	src := newTestDoc(t)
	require.NoError(t, src.Insert(0, "shared text", "x"))
	dst := FromParagraphs("body", "plain", Options{}, src.Paragraphs()...)

	var recorded []Change[string, string]
	src.Subscribe(func(ch Change[string, string]) { recorded = append(recorded, ch) })
	require.NoError(t, src.Replace(0, 6, "common\nand", "y"))
	require.NoError(t, src.SetParagraphStyle(1, "h1"))

	for _, ch := range recorded {
		require.NoError(t, dst.Apply(ch))
	}
	requireSameParagraphs(t, src.Paragraphs(), dst.Paragraphs())
	require.Equal(t, len(recorded), dst.History().UndoLen())

	err := dst.Apply(recorded[0])
	require.ErrorIs(t, err, ErrChangeMismatch)
	require.ErrorIs(t, dst.Apply(Change[string, string]{}), ErrChangeMismatch)
}

func TestSubDocument(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.InsertWithParagraphStyles(0, "abc\ndef", "x", []string{"h1"}))
	frag, err := d.SubDocument(1, 6)
	require.NoError(t, err)
	require.Equal(t, "bc\nde", frag.Text())
	require.Equal(t, 5, frag.Len())
	require.Equal(t, []string{"body", "h1"}, frag.ParagraphStyles())
}

func TestObserversRunInOrderAndCanUnsubscribe(t *testing.T) {
	d := newTestDoc(t)
	var order []string
	var unsubscribeB func()
	d.Subscribe(func(Change[string, string]) { order = append(order, "a") })
	unsubscribeB = d.Subscribe(func(Change[string, string]) {
		order = append(order, "b")
		unsubscribeB()
	})
	d.Subscribe(func(Change[string, string]) { order = append(order, "c") })

	require.NoError(t, d.Insert(0, "1", "x"))
	require.NoError(t, d.Insert(1, "2", "x"))
	require.Equal(t, []string{"a", "b", "c", "a", "c"}, order)
}

func TestReentrantMutationIsRejected(t *testing.T) {
	d := newTestDoc(t)
	var innerErr error
	var innerUndo bool
	d.Subscribe(func(Change[string, string]) {
		innerErr = d.Insert(0, "nested", "x")
		innerUndo = d.Undo()
	})
	require.NoError(t, d.Insert(0, "outer", "x"))
	require.ErrorIs(t, innerErr, ErrReentrantMutation)
	require.False(t, innerUndo)
	require.Equal(t, "outer", d.Text())

	// Notification state is reset afterwards.
	require.NoError(t, d.Insert(5, "!", "x"))
	require.Equal(t, "outer!", d.Text())
}

func TestLargeDocumentOffsets(t *testing.T) {
	d := newTestDoc(t)
	lines := make([]string, 500)
	for i := range lines {
		lines[i] = strings.Repeat("x", i%7)
	}
	require.NoError(t, d.Insert(0, strings.Join(lines, "\n"), "x"))
	require.Equal(t, 500, d.ParagraphCount())

	// Single-paragraph edits keep the cached index in sync.
	for i := 0; i < 500; i += 37 {
		start, err := d.ParagraphStart(i)
		require.NoError(t, err)
		require.NoError(t, d.Insert(start, "yy", "x"))
	}
	checkInvariants(t, d)
	offset := 0
	for i, p := range d.Paragraphs() {
		got, err := d.PositionToOffset(i, 0)
		require.NoError(t, err)
		require.Equal(t, offset, got)
		offset += p.Len() + 1
	}
}

func TestEditsDoNotWriteIntoPreviousParagraphSlice(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "ab\ncd", "plain"))
	held := d.paragraphs

	require.NoError(t, d.Insert(1, "x", "bold"))
	require.NoError(t, d.SetParagraphStyle(1, "quote"))

	require.Equal(t, "ab", held[0].Text())
	require.Equal(t, "body", held[1].Style())
	require.Equal(t, []string{"axb", "cd"}, paragraphTexts(d))
}
