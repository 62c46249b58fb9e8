package richdoc

import "time"

const (
	// DefaultHistoryLimit bounds the undo stack when Options.HistoryLimit is 0.
	DefaultHistoryLimit = 1000

	// DefaultMergeWindow is the window used by the default merge policy.
	DefaultMergeWindow = time.Second
)

// Options configures a Document.
type Options struct {
	// HistoryLimit caps the undo stack; the oldest entries are evicted first.
	// Zero means DefaultHistoryLimit and a negative value disables history.
	HistoryLimit int

	// MergePolicy decides whether a new edit is folded into the previous undo
	// entry. Nil means MergeWithin(DefaultMergeWindow).
	MergePolicy MergePolicy

	// Clock supplies timestamps for history entries. Nil means time.Now.
	Clock func() time.Time
}

func (o Options) normalized() Options {
	if o.HistoryLimit == 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	if o.MergePolicy == nil {
		o.MergePolicy = MergeWithin(DefaultMergeWindow)
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}
