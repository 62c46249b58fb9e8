// Package sqdoc reads and writes .sqdoc containers: a random-access table of
// contents over a metadata block, a formatting directive block, a paragraph
// directive block and one text block per paragraph, optionally wrapped in a
// compressed and encrypted envelope. Offsets inside a paragraph count Unicode
// code points.
package sqdoc

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type BlockKind uint8

const (
	BlockKindMetadata  BlockKind = 0
	BlockKindText      BlockKind = 1
	BlockKindMedia     BlockKind = 2
	BlockKindStyle     BlockKind = 3
	BlockKindScript    BlockKind = 4
	BlockKindParagraph BlockKind = 5
)

func (k BlockKind) String() string {
	switch k {
	case BlockKindMetadata:
		return "metadata"
	case BlockKindText:
		return "text"
	case BlockKindMedia:
		return "media"
	case BlockKindStyle:
		return "style"
	case BlockKindScript:
		return "script"
	case BlockKindParagraph:
		return "paragraph"
	default:
		return "unknown"
	}
}

type FontFamily uint8

const (
	FontFamilySans FontFamily = iota
	FontFamilySerif
	FontFamilyMonospace
)

type Alignment uint8

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
	AlignJustify
)

type ListKind uint8

const (
	ListNone ListKind = iota
	ListBullet
	ListOrdered
)

const MaxHeadingLevel = 6

type Document struct {
	Metadata Metadata
	Blocks   []Block
}

type Metadata struct {
	DocumentID          uuid.UUID
	Author              string
	Title               string
	CreatedUnix         int64
	ModifiedUnix        int64
	ParagraphGap        uint16
	PreferredFontFamily FontFamily
}

// Block is one entry of the container. Only text blocks are stored; every
// text block is one paragraph.
type Block struct {
	ID   uint64
	Kind BlockKind
	Text *TextBlock
}

type TextBlock struct {
	Text      string
	Runs      []StyleRun
	Paragraph ParagraphAttr
}

// StyleRun styles code points [Start, End) of a text block.
type StyleRun struct {
	Start uint32
	End   uint32
	Attr  StyleAttr
}

// StyleAttr is the character style. It is comparable so it can serve as a
// richdoc style type directly.
type StyleAttr struct {
	Bold          bool
	Italic        bool
	Underline     bool
	Strikethrough bool
	Highlight     bool
	Code          bool
	FontFamily    FontFamily
	FontSizePt    uint16
	ColorRGBA     uint32
}

// ParagraphAttr is the paragraph style.
type ParagraphAttr struct {
	Alignment    Alignment
	HeadingLevel uint8
	IndentLevel  uint8
	List         ListKind
	Quote        bool
	CodeBlock    bool
}

var (
	ErrInvalidMagic      = errors.New("sqdoc: invalid magic")
	ErrUnsupportedVer    = errors.New("sqdoc: unsupported version")
	ErrMissingRandomFlag = errors.New("sqdoc: random-access flag required")
	ErrInvalidTOC        = errors.New("sqdoc: invalid toc")
	ErrInvalidBlockRange = errors.New("sqdoc: invalid block range")
	ErrOverlappingBlocks = errors.New("sqdoc: overlapping block ranges")
	ErrChecksum          = errors.New("sqdoc: checksum mismatch")
	ErrMalformedBlock    = errors.New("sqdoc: malformed block")
	ErrInvalidDocument   = errors.New("sqdoc: invalid document")
	ErrPasswordRequired  = errors.New("sqdoc: password required")
	ErrInvalidPassword   = errors.New("sqdoc: invalid password")
	ErrInvalidSecureFile = errors.New("sqdoc: invalid secure file")
)

const (
	DefaultFontSizePt = 14
	DefaultColorRGBA  = 0x202020FF
)

// DefaultStyleAttr is the style of unstyled text.
func DefaultStyleAttr() StyleAttr {
	return StyleAttr{FontFamily: FontFamilySans, FontSizePt: DefaultFontSizePt, ColorRGBA: DefaultColorRGBA}
}

// NewDocument returns an empty document with a fresh DocumentID.
func NewDocument(author, title string) *Document {
	now := time.Now().Unix()
	return &Document{Metadata: Metadata{
		DocumentID:          uuid.New(),
		Author:              author,
		Title:               title,
		CreatedUnix:         now,
		ModifiedUnix:        now,
		ParagraphGap:        8,
		PreferredFontFamily: FontFamilySans,
	}}
}

func CloneDocument(doc *Document) *Document {
	if doc == nil {
		return nil
	}
	out := &Document{Metadata: doc.Metadata, Blocks: make([]Block, len(doc.Blocks))}
	for i, b := range doc.Blocks {
		out.Blocks[i] = Block{ID: b.ID, Kind: b.Kind}
		if b.Text != nil {
			out.Blocks[i].Text = &TextBlock{
				Text:      b.Text.Text,
				Runs:      append([]StyleRun(nil), b.Text.Runs...),
				Paragraph: b.Text.Paragraph,
			}
		}
	}
	return out
}

// AppendText adds a paragraph block with a single run of attr and returns its
// ID.
func (d *Document) AppendText(text string, attr StyleAttr, para ParagraphAttr) uint64 {
	id := d.nextBlockID()
	tb := &TextBlock{Text: text, Paragraph: para}
	if n := uint32(len([]rune(text))); n > 0 {
		tb.Runs = []StyleRun{{Start: 0, End: n, Attr: attr}}
	}
	d.Blocks = append(d.Blocks, Block{ID: id, Kind: BlockKindText, Text: tb})
	return id
}

func (d *Document) nextBlockID() uint64 {
	var maxID uint64
	for _, b := range d.Blocks {
		if b.ID > maxID && b.ID < reservedBlockIDs {
			maxID = b.ID
		}
	}
	return maxID + 1
}
