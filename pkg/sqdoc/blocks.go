package sqdoc

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

const (
	styleEntSize = 8 + 4 + 4 + 1 + 1 + 2 + 4
	paraEntSize  = 8 + 1 + 1 + 1 + 1 + 1

	styleBold      = 1 << 0
	styleItalic    = 1 << 1
	styleUnderline = 1 << 2
	styleHighlight = 1 << 3
	styleStrike    = 1 << 4
	styleCode      = 1 << 5

	paraQuote     = 1 << 0
	paraCodeBlock = 1 << 1
)

type FormattingDirectiveEntry struct {
	BlockID uint64
	Start   uint32
	End     uint32
	Attr    StyleAttr
}

type ParagraphDirectiveEntry struct {
	BlockID uint64
	Attr    ParagraphAttr
}

func collectFormatting(doc *Document) []FormattingDirectiveEntry {
	out := make([]FormattingDirectiveEntry, 0)
	for _, b := range doc.Blocks {
		if b.Kind != BlockKindText || b.Text == nil {
			continue
		}
		for _, r := range b.Text.Runs {
			out = append(out, FormattingDirectiveEntry{BlockID: b.ID, Start: r.Start, End: r.End, Attr: r.Attr})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BlockID != out[j].BlockID {
			return out[i].BlockID < out[j].BlockID
		}
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// collectParagraphs lists the blocks whose paragraph style is not the zero
// value.
func collectParagraphs(doc *Document) []ParagraphDirectiveEntry {
	var out []ParagraphDirectiveEntry
	for _, b := range doc.Blocks {
		if b.Text == nil || b.Text.Paragraph == (ParagraphAttr{}) {
			continue
		}
		out = append(out, ParagraphDirectiveEntry{BlockID: b.ID, Attr: b.Text.Paragraph})
	}
	return out
}

func encodeFormattingDirective(entries []FormattingDirectiveEntry) []byte {
	out := make([]byte, 0, 4+len(entries)*styleEntSize)
	out = appendU32(out, uint32(len(entries)))
	for _, e := range entries {
		out = appendU64(out, e.BlockID)
		out = appendU32(out, e.Start)
		out = appendU32(out, e.End)
		out = append(out, styleFlags(e.Attr), byte(normalizeFontFamily(e.Attr.FontFamily)))
		out = appendU16(out, e.Attr.FontSizePt)
		out = appendU32(out, e.Attr.ColorRGBA)
	}
	return out
}

func styleFlags(a StyleAttr) byte {
	var flags byte
	for _, f := range []struct {
		on  bool
		bit byte
	}{
		{a.Bold, styleBold},
		{a.Italic, styleItalic},
		{a.Underline, styleUnderline},
		{a.Highlight, styleHighlight},
		{a.Strikethrough, styleStrike},
		{a.Code, styleCode},
	} {
		if f.on {
			flags |= f.bit
		}
	}
	return flags
}

func decodeFormattingDirective(b []byte) ([]FormattingDirectiveEntry, error) {
	count, b, err := readCount(b, styleEntSize, "formatting directive")
	if err != nil {
		return nil, err
	}
	out := make([]FormattingDirectiveEntry, 0, count)
	for i := 0; i < count; i++ {
		e := b[i*styleEntSize : (i+1)*styleEntSize]
		flags := e[16]
		out = append(out, FormattingDirectiveEntry{
			BlockID: binary.LittleEndian.Uint64(e[0:8]),
			Start:   binary.LittleEndian.Uint32(e[8:12]),
			End:     binary.LittleEndian.Uint32(e[12:16]),
			Attr: StyleAttr{
				Bold:          flags&styleBold != 0,
				Italic:        flags&styleItalic != 0,
				Underline:     flags&styleUnderline != 0,
				Highlight:     flags&styleHighlight != 0,
				Strikethrough: flags&styleStrike != 0,
				Code:          flags&styleCode != 0,
				FontFamily:    normalizeFontFamily(FontFamily(e[17])),
				FontSizePt:    binary.LittleEndian.Uint16(e[18:20]),
				ColorRGBA:     binary.LittleEndian.Uint32(e[20:24]),
			},
		})
	}
	return out, nil
}

func encodeParagraphDirective(entries []ParagraphDirectiveEntry) []byte {
	out := make([]byte, 0, 4+len(entries)*paraEntSize)
	out = appendU32(out, uint32(len(entries)))
	for _, e := range entries {
		out = appendU64(out, e.BlockID)
		var flags byte
		if e.Attr.Quote {
			flags |= paraQuote
		}
		if e.Attr.CodeBlock {
			flags |= paraCodeBlock
		}
		out = append(out, byte(e.Attr.Alignment), e.Attr.HeadingLevel, e.Attr.IndentLevel, byte(e.Attr.List), flags)
	}
	return out
}

func decodeParagraphDirective(b []byte) ([]ParagraphDirectiveEntry, error) {
	count, b, err := readCount(b, paraEntSize, "paragraph directive")
	if err != nil {
		return nil, err
	}
	out := make([]ParagraphDirectiveEntry, 0, count)
	for i := 0; i < count; i++ {
		e := b[i*paraEntSize : (i+1)*paraEntSize]
		out = append(out, ParagraphDirectiveEntry{
			BlockID: binary.LittleEndian.Uint64(e[0:8]),
			Attr: ParagraphAttr{
				Alignment:    Alignment(e[8]),
				HeadingLevel: e[9],
				IndentLevel:  e[10],
				List:         ListKind(e[11]),
				Quote:        e[12]&paraQuote != 0,
				CodeBlock:    e[12]&paraCodeBlock != 0,
			},
		})
	}
	return out, nil
}

// readCount reads a u32 entry count and checks the rest of b holds exactly
// that many fixed-size entries.
func readCount(b []byte, entrySize int, what string) (int, []byte, error) {
	if len(b) < 4 {
		return 0, nil, fmt.Errorf("%w: %s header", ErrMalformedBlock, what)
	}
	count := int(binary.LittleEndian.Uint32(b[:4]))
	b = b[4:]
	if len(b) != count*entrySize {
		return 0, nil, fmt.Errorf("%w: %s holds %d bytes for %d entries", ErrMalformedBlock, what, len(b), count)
	}
	return count, b, nil
}

func encodeMetadata(m Metadata) []byte {
	out := make([]byte, 0, 64)
	out = append(out, m.DocumentID[:]...)
	out = appendString(out, m.Author)
	out = appendString(out, m.Title)
	out = appendI64(out, m.CreatedUnix)
	out = appendI64(out, m.ModifiedUnix)
	out = appendU16(out, m.ParagraphGap)
	out = append(out, byte(normalizeFontFamily(m.PreferredFontFamily)))
	return out
}

func decodeMetadata(b []byte) (Metadata, error) {
	var m Metadata
	var ok bool
	if len(b) < len(m.DocumentID) {
		return m, fmt.Errorf("%w: metadata document id", ErrMalformedBlock)
	}
	id, err := uuid.FromBytes(b[:len(m.DocumentID)])
	if err != nil {
		return m, fmt.Errorf("%w: metadata document id: %v", ErrMalformedBlock, err)
	}
	m.DocumentID = id
	b = b[len(m.DocumentID):]
	if m.Author, b, ok = readString(b); !ok {
		return m, fmt.Errorf("%w: metadata author", ErrMalformedBlock)
	}
	if m.Title, b, ok = readString(b); !ok {
		return m, fmt.Errorf("%w: metadata title", ErrMalformedBlock)
	}
	if len(b) < 16+2+1 {
		return m, fmt.Errorf("%w: metadata settings", ErrMalformedBlock)
	}
	m.CreatedUnix = int64(binary.LittleEndian.Uint64(b[:8]))
	m.ModifiedUnix = int64(binary.LittleEndian.Uint64(b[8:16]))
	m.ParagraphGap = binary.LittleEndian.Uint16(b[16:18])
	m.PreferredFontFamily = normalizeFontFamily(FontFamily(b[18]))
	return m, nil
}

func encodeTextBlock(tb *TextBlock) []byte {
	return appendString(make([]byte, 0, len(tb.Text)+4), tb.Text)
}

func decodeTextBlock(b []byte) (*TextBlock, error) {
	text, rest, ok := readString(b)
	if !ok || len(rest) != 0 {
		return nil, fmt.Errorf("%w: text payload", ErrMalformedBlock)
	}
	return &TextBlock{Text: text}, nil
}

func appendString(dst []byte, s string) []byte {
	dst = appendU32(dst, uint32(len(s)))
	return append(dst, s...)
}

func readString(src []byte) (string, []byte, bool) {
	if len(src) < 4 {
		return "", nil, false
	}
	ln := int(binary.LittleEndian.Uint32(src[:4]))
	src = src[4:]
	if len(src) < ln {
		return "", nil, false
	}
	return string(src[:ln]), src[ln:], true
}

func appendU16(dst []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(dst, v)
}

func appendU32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

func appendU64(dst []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, v)
}

func appendI64(dst []byte, v int64) []byte {
	return appendU64(dst, uint64(v))
}

func isValidFontFamily(f FontFamily) bool {
	return f == FontFamilySans || f == FontFamilySerif || f == FontFamilyMonospace
}

func normalizeFontFamily(f FontFamily) FontFamily {
	if !isValidFontFamily(f) {
		return FontFamilySans
	}
	return f
}
