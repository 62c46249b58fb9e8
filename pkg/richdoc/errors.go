package richdoc

import "errors"

var (
	// ErrOutOfBounds is returned for offsets outside [0, Len()] and for ranges
	// with start > end.
	ErrOutOfBounds = errors.New("richdoc: out of bounds")

	// ErrInvalidSpanCoverage is returned when style spans (or a paragraph style
	// list) do not exactly cover the content they are paired with.
	ErrInvalidSpanCoverage = errors.New("richdoc: style spans do not cover text")

	// ErrSeparatorInParagraph is returned when paragraph text handed to a
	// paragraph constructor contains a line separator.
	ErrSeparatorInParagraph = errors.New("richdoc: paragraph text contains a line separator")

	// ErrReentrantMutation is returned when a mutation is attempted from inside
	// a change notification of the same document.
	ErrReentrantMutation = errors.New("richdoc: mutation during change notification")

	// ErrChangeMismatch is returned by Apply when the document does not hold
	// the change's removed content at the change position.
	ErrChangeMismatch = errors.New("richdoc: change does not match document")
)
