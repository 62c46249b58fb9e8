package richdoc

import "time"

// EditSummary describes one edit to a MergePolicy.
type EditSummary struct {
	Kind           ChangeKind
	Position       int
	RemovedLen     int
	InsertedLen    int
	MultiParagraph bool
	Time           time.Time
}

// MergePolicy reports whether next may be folded into the undo entry whose
// most recent edit is prev. It is consulted only for pairs that can be merged
// structurally (continued typing, a backspace run, a forward-delete run).
type MergePolicy func(prev, next EditSummary) bool

// MergeNever keeps every edit as its own undo entry.
func MergeNever(prev, next EditSummary) bool { return false }

// MergeAdjacent merges every structurally mergeable pair.
func MergeAdjacent(prev, next EditSummary) bool { return true }

// MergeWithin merges structurally mergeable pairs that happen at most window
// apart.
func MergeWithin(window time.Duration) MergePolicy {
	return func(prev, next EditSummary) bool {
		d := next.Time.Sub(prev.Time)
		return d >= 0 && d <= window
	}
}

type historyEntry[PS, S comparable] struct {
	change Change[PS, S]
	last   EditSummary
}

// UndoManager keeps the undo and redo stacks of one Document.
type UndoManager[PS, S comparable] struct {
	undo      []historyEntry[PS, S]
	redo      []Change[PS, S]
	limit     int
	policy    MergePolicy
	clock     func() time.Time
	mergeOpen bool
}

func newUndoManager[PS, S comparable](opt Options) *UndoManager[PS, S] {
	return &UndoManager[PS, S]{limit: opt.HistoryLimit, policy: opt.MergePolicy, clock: opt.Clock}
}

func (m *UndoManager[PS, S]) CanUndo() bool { return len(m.undo) > 0 }

func (m *UndoManager[PS, S]) CanRedo() bool { return len(m.redo) > 0 }

func (m *UndoManager[PS, S]) UndoLen() int { return len(m.undo) }

func (m *UndoManager[PS, S]) RedoLen() int { return len(m.redo) }

// Limit returns the undo stack capacity; negative means history is off.
func (m *UndoManager[PS, S]) Limit() int { return m.limit }

// PreventMerge makes the next edit start a new undo entry.
func (m *UndoManager[PS, S]) PreventMerge() { m.mergeOpen = false }

// Clear forgets both stacks.
func (m *UndoManager[PS, S]) Clear() {
	m.undo = nil
	m.redo = nil
	m.mergeOpen = false
}

// record stores a fresh edit and drops the redo stack.
func (m *UndoManager[PS, S]) record(ch Change[PS, S]) {
	m.redo = nil
	if m.limit < 0 {
		return
	}
	sum := summarize(ch, m.clock())
	if m.mergeOpen && len(m.undo) > 0 {
		top := &m.undo[len(m.undo)-1]
		if m.policy(top.last, sum) {
			if merged, ok := top.change.merge(ch); ok {
				top.change = merged
				top.last = sum
				return
			}
		}
	}
	m.pushUndo(historyEntry[PS, S]{change: ch, last: sum})
	m.mergeOpen = true
}

func (m *UndoManager[PS, S]) pushUndo(e historyEntry[PS, S]) {
	m.undo = append(m.undo, e)
	if m.limit > 0 && len(m.undo) > m.limit {
		n := copy(m.undo, m.undo[len(m.undo)-m.limit:])
		clear(m.undo[n:])
		m.undo = m.undo[:n]
	}
}

func (m *UndoManager[PS, S]) popUndo() (Change[PS, S], bool) {
	if len(m.undo) == 0 {
		return Change[PS, S]{}, false
	}
	e := m.undo[len(m.undo)-1]
	m.undo[len(m.undo)-1] = historyEntry[PS, S]{}
	m.undo = m.undo[:len(m.undo)-1]
	m.mergeOpen = false
	return e.change, true
}

func (m *UndoManager[PS, S]) popRedo() (Change[PS, S], bool) {
	if len(m.redo) == 0 {
		return Change[PS, S]{}, false
	}
	ch := m.redo[len(m.redo)-1]
	m.redo[len(m.redo)-1] = Change[PS, S]{}
	m.redo = m.redo[:len(m.redo)-1]
	m.mergeOpen = false
	return ch, true
}

func (m *UndoManager[PS, S]) pushRedo(ch Change[PS, S]) {
	m.redo = append(m.redo, ch)
}

// restore puts a redone change back on the undo stack without merging.
func (m *UndoManager[PS, S]) restore(ch Change[PS, S]) {
	m.pushUndo(historyEntry[PS, S]{change: ch, last: summarize(ch, m.clock())})
	m.mergeOpen = false
}

func summarize[PS, S comparable](ch Change[PS, S], at time.Time) EditSummary {
	return EditSummary{
		Kind:           ch.Kind(),
		Position:       ch.pos,
		RemovedLen:     ch.removed.Len(),
		InsertedLen:    ch.inserted.Len(),
		MultiParagraph: !ch.singleParagraph(),
		Time:           at,
	}
}
