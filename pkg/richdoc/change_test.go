package richdoc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func lastChange(t *testing.T, d *testDoc) Change[string, string] {
	t.Helper()
	ch, ok := d.LastChange()
	require.True(t, ok)
	return ch
}

func TestAdjustOffsetAfterInsert(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "0123456789", "x"))
	require.NoError(t, d.Insert(4, "abc", "x"))
	ch := lastChange(t, d)

	for offset := 0; offset <= 10; offset++ {
		want := offset
		if offset >= 4 {
			want = offset + 3
		}
		require.Equal(t, want, ch.AdjustOffset(offset), "offset %d", offset)
	}
}

func TestAdjustOffsetInsideRemovedRange(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "0123456789", "x"))
	require.NoError(t, d.Replace(2, 6, "ab", "x"))
	ch := lastChange(t, d)

	tests := []struct {
		offset int
		bias   Bias
		want   int
	}{
		{1, CollapseToStart, 1},
		{2, CollapseToStart, 2},
		{2, CollapseToEnd, 4},
		{4, CollapseToStart, 2},
		{4, CollapseToEnd, 4},
		{6, CollapseToStart, 4},
		{9, CollapseToEnd, 7},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, ch.AdjustOffsetBias(tc.offset, tc.bias), "offset %d bias %d", tc.offset, tc.bias)
	}
}

func TestAdjustOffsetIgnoresStyleOnlyChanges(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "abc\ndef", "x"))
	require.NoError(t, d.SetStyle(1, 6, "y"))
	restyle := lastChange(t, d)
	require.Equal(t, KindRestyle, restyle.Kind())

	require.NoError(t, d.SetParagraphStyle(1, "h1"))
	para := lastChange(t, d)
	require.Equal(t, KindParagraphStyle, para.Kind())

	for offset := 0; offset <= d.Len(); offset++ {
		require.Equal(t, offset, restyle.AdjustOffsetBias(offset, CollapseToEnd))
		require.Equal(t, offset, para.AdjustOffsetBias(offset, CollapseToEnd))
	}
}

func TestChangeKinds(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "abc", "x"))
	require.Equal(t, KindInsert, lastChange(t, d).Kind())
	require.NoError(t, d.Delete(0, 1))
	require.Equal(t, KindDelete, lastChange(t, d).Kind())
	require.NoError(t, d.Replace(0, 1, "q", "x"))
	require.Equal(t, KindReplace, lastChange(t, d).Kind())
	require.Equal(t, "replace", KindReplace.String())
}

func TestInvertRestoresDocument(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.InsertWithParagraphStyles(0, "one\ntwo", "x", []string{"h1"}))
	before := d.Paragraphs()

	require.NoError(t, d.Replace(2, 5, "Z\nY\nX", "y"))
	ch := lastChange(t, d)
	require.Equal(t, "e\nt", ch.RemovedText())
	require.Equal(t, []string{"body", "h1"}, ch.RemovedParagraphStyles())

	inv := ch.Invert()
	require.Equal(t, ch.InsertedText(), inv.RemovedText())
	require.NoError(t, d.Apply(inv))
	requireSameParagraphs(t, before, d.Paragraphs())
}

func TestChangeStyleSpans(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "ab\n\ncd", "x"))
	require.NoError(t, d.Delete(1, 5))
	ch := lastChange(t, d)
	require.Equal(t, "b\n\nc", ch.RemovedText())
	// The separator after an empty piece takes the initial text style.
	require.Equal(t, []StyleSpan[string]{{2, "x"}, {1, "plain"}, {1, "x"}}, ch.RemovedStyleSpans().Spans())
	require.Equal(t, 0, ch.InsertedStyleSpans().Len())
}
