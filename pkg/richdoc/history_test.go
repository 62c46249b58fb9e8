package richdoc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func typeText(t *testing.T, d *testDoc, offset int, text string) {
	t.Helper()
	for i, r := range []rune(text) {
		require.NoError(t, d.Insert(offset+i, string(r), "x"))
	}
}

func TestMergeAdjacentCoalescesTyping(t *testing.T) {
	d := New[string, string]("body", "plain", Options{MergePolicy: MergeAdjacent})
	typeText(t, d, 0, "hello")
	require.Equal(t, 1, d.History().UndoLen())

	ch := d.History().undo[0].change
	require.Equal(t, "hello", ch.InsertedText())

	require.True(t, d.Undo())
	require.Equal(t, "", d.Text())
	require.True(t, d.Redo())
	require.Equal(t, "hello", d.Text())
}

func TestMergeNeverKeepsEveryEdit(t *testing.T) {
	d := newTestDoc(t)
	typeText(t, d, 0, "abc")
	require.Equal(t, 3, d.History().UndoLen())
	require.True(t, d.Undo())
	require.Equal(t, "ab", d.Text())
}

func TestMergeWithinUsesClock(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	d := New[string, string]("body", "plain", Options{MergePolicy: MergeWithin(time.Second), Clock: clock.Now})

	typeText(t, d, 0, "ab")
	clock.advance(500 * time.Millisecond)
	typeText(t, d, 2, "c")
	require.Equal(t, 1, d.History().UndoLen())

	clock.advance(2 * time.Second)
	typeText(t, d, 3, "d")
	require.Equal(t, 2, d.History().UndoLen())

	require.True(t, d.Undo())
	require.Equal(t, "abc", d.Text())
}

func TestNonAdjacentEditsDoNotMerge(t *testing.T) {
	d := New[string, string]("body", "plain", Options{MergePolicy: MergeAdjacent})
	typeText(t, d, 0, "abc")
	require.NoError(t, d.Insert(0, "z", "x"))
	require.Equal(t, 2, d.History().UndoLen())

	// Multi-paragraph edits never merge.
	require.NoError(t, d.Insert(4, "\n", "x"))
	require.NoError(t, d.Insert(5, "q", "x"))
	require.Equal(t, 4, d.History().UndoLen())
}

func TestBackspaceAndForwardDeleteRunsMerge(t *testing.T) {
	d := New[string, string]("body", "plain", Options{MergePolicy: MergeAdjacent})
	require.NoError(t, d.Insert(0, "abcdefgh", "x"))
	d.History().PreventMerge()

	// Backspace from the end.
	require.NoError(t, d.Delete(7, 8))
	require.NoError(t, d.Delete(6, 7))
	require.NoError(t, d.Delete(5, 6))
	require.Equal(t, 2, d.History().UndoLen())
	require.Equal(t, "fgh", d.History().undo[1].change.RemovedText())

	d.History().PreventMerge()
	// Forward delete at the start.
	require.NoError(t, d.Delete(0, 1))
	require.NoError(t, d.Delete(0, 1))
	require.Equal(t, 3, d.History().UndoLen())
	require.Equal(t, "ab", d.History().undo[2].change.RemovedText())
	require.Equal(t, "cde", d.Text())

	require.True(t, d.Undo())
	require.Equal(t, "abcde", d.Text())
	require.True(t, d.Undo())
	require.Equal(t, "abcdefgh", d.Text())
}

func TestPreventMergeStartsNewEntry(t *testing.T) {
	d := New[string, string]("body", "plain", Options{MergePolicy: MergeAdjacent})
	typeText(t, d, 0, "ab")
	d.History().PreventMerge()
	typeText(t, d, 2, "cd")
	require.Equal(t, 2, d.History().UndoLen())
}

func TestUndoClosesMergeWindow(t *testing.T) {
	d := New[string, string]("body", "plain", Options{MergePolicy: MergeAdjacent})
	typeText(t, d, 0, "ab")
	d.History().PreventMerge()
	typeText(t, d, 2, "cd")
	require.True(t, d.Undo())
	typeText(t, d, 2, "x")
	require.Equal(t, 2, d.History().UndoLen())
	require.Equal(t, "abx", d.Text())
}

func TestNewEditClearsRedo(t *testing.T) {
	d := newTestDoc(t)
	typeText(t, d, 0, "ab")
	require.True(t, d.Undo())
	require.True(t, d.History().CanRedo())
	require.NoError(t, d.Insert(1, "z", "x"))
	require.False(t, d.History().CanRedo())
	require.False(t, d.Redo())
}

func TestHistoryLimitEvictsOldest(t *testing.T) {
	d := New[string, string]("body", "plain", Options{HistoryLimit: 3, MergePolicy: MergeNever})
	typeText(t, d, 0, "abcde")
	require.Equal(t, 3, d.History().UndoLen())
	for d.Undo() {
	}
	require.Equal(t, "ab", d.Text())
	require.Equal(t, 3, d.History().RedoLen())
}

func TestDefaultHistoryLimit(t *testing.T) {
	d := New[string, string]("body", "plain", Options{})
	require.Equal(t, DefaultHistoryLimit, d.History().Limit())
}

func TestHistoryDisabled(t *testing.T) {
	d := New[string, string]("body", "plain", Options{HistoryLimit: -1})
	typeText(t, d, 0, "ab")
	require.False(t, d.History().CanUndo())
	require.False(t, d.Undo())
}

func TestClearForgetsHistory(t *testing.T) {
	d := newTestDoc(t)
	typeText(t, d, 0, "ab")
	require.True(t, d.Undo())
	d.History().Clear()
	require.False(t, d.History().CanUndo())
	require.False(t, d.History().CanRedo())
	require.Equal(t, "a", d.Text())
}

func TestUndoNotifiesObservers(t *testing.T) {
	d := newTestDoc(t)
	require.NoError(t, d.Insert(0, "abc", "x"))
	var got []Change[string, string]
	d.Subscribe(func(ch Change[string, string]) { got = append(got, ch) })

	require.True(t, d.Undo())
	require.True(t, d.Redo())
	require.Len(t, got, 2)
	require.Equal(t, KindDelete, got[0].Kind())
	require.Equal(t, "abc", got[0].RemovedText())
	require.Equal(t, KindInsert, got[1].Kind())
	require.Equal(t, "abc", got[1].InsertedText())
}
