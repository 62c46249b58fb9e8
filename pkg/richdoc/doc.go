// Package richdoc implements an in-memory rich-text document: an ordered list
// of paragraphs, each holding plain text, canonical character style spans and
// one paragraph style.
//
// Offsets count Unicode code points. Paragraphs are joined by a virtual
// separator ('\n') that occupies exactly one offset between two paragraphs and
// never appears inside a paragraph's text.
//
// Every mutation produces one invertible Change that is pushed to the
// document's UndoManager and delivered synchronously to subscribers. Paragraph
// and StyleSpans values are immutable, so a reader holding an older snapshot
// keeps seeing consistent data after the document moves on.
//
// A Document is not safe for concurrent use. Callers that share one across
// goroutines must serialize every call themselves.
package richdoc
