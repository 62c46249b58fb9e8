package sqdoc

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validate checks doc against the container's structural rules.
func Validate(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if !utf8.ValidString(doc.Metadata.Author) || !utf8.ValidString(doc.Metadata.Title) {
		return fmt.Errorf("%w: metadata fields must be valid UTF-8", ErrInvalidDocument)
	}
	if !isValidFontFamily(doc.Metadata.PreferredFontFamily) {
		return fmt.Errorf("%w: metadata preferred font family is invalid", ErrInvalidDocument)
	}

	seenIDs := map[uint64]struct{}{}
	for i := range doc.Blocks {
		b := &doc.Blocks[i]
		if b.ID == metaBlockID || b.ID >= reservedBlockIDs {
			return fmt.Errorf("%w: block[%d] id is reserved", ErrInvalidDocument, i)
		}
		if _, ok := seenIDs[b.ID]; ok {
			return fmt.Errorf("%w: duplicate block id %d", ErrInvalidDocument, b.ID)
		}
		seenIDs[b.ID] = struct{}{}

		if b.Kind != BlockKindText {
			return fmt.Errorf("%w: unsupported block kind %d for save", ErrInvalidDocument, b.Kind)
		}
		if b.Text == nil {
			return fmt.Errorf("%w: text block %d missing payload", ErrInvalidDocument, b.ID)
		}
		if !utf8.ValidString(b.Text.Text) {
			return fmt.Errorf("%w: text block %d is not valid UTF-8", ErrInvalidDocument, b.ID)
		}
		if strings.ContainsAny(b.Text.Text, "\r\n") {
			return fmt.Errorf("%w: text block %d contains a line separator", ErrInvalidDocument, b.ID)
		}
		if err := validateRuns(b.Text); err != nil {
			return fmt.Errorf("%w: block %d: %v", ErrInvalidDocument, b.ID, err)
		}
		if err := validateParagraph(b.Text.Paragraph); err != nil {
			return fmt.Errorf("%w: block %d: %v", ErrInvalidDocument, b.ID, err)
		}
	}
	return nil
}

func validateRuns(tb *TextBlock) error {
	txtLen := uint32(utf8.RuneCountInString(tb.Text))
	runs := append([]StyleRun(nil), tb.Runs...)
	sortRuns(runs)

	var lastEnd uint32
	for i, r := range runs {
		if r.Start > r.End {
			return fmt.Errorf("invalid run range %d..%d", r.Start, r.End)
		}
		// An empty paragraph may carry one zero-length run at 0.
		if r.Start == r.End && !(txtLen == 0 && r.Start == 0) {
			return fmt.Errorf("invalid zero-length run %d..%d", r.Start, r.End)
		}
		if r.End > txtLen {
			return fmt.Errorf("run range %d..%d outside text length %d", r.Start, r.End, txtLen)
		}
		if i > 0 && r.Start < lastEnd {
			return fmt.Errorf("overlapping style runs around offset %d", r.Start)
		}
		if r.Attr.FontSizePt == 0 {
			return errors.New("font size must be non-zero")
		}
		if !isValidFontFamily(r.Attr.FontFamily) {
			return errors.New("font family is invalid")
		}
		lastEnd = r.End
	}
	return nil
}

func validateParagraph(p ParagraphAttr) error {
	if p.Alignment > AlignJustify {
		return fmt.Errorf("invalid alignment %d", p.Alignment)
	}
	if p.HeadingLevel > MaxHeadingLevel {
		return fmt.Errorf("heading level %d above %d", p.HeadingLevel, MaxHeadingLevel)
	}
	if p.List > ListOrdered {
		return fmt.Errorf("invalid list kind %d", p.List)
	}
	return nil
}
