package sqdoc

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"sort"
)

const (
	MagicString      = "SQRICH:PARAGRAPHS+SPANS"
	VersionV1        = uint16(1)
	FlagRandomAccess = uint16(1 << 0)
	FlagRuneOffsets  = uint16(1 << 1)

	magicSize  = 23
	headerSize = magicSize + 2 + 2 + 8 + 4
	tocEntSize = 8 + 1 + 8 + 4 + 4

	metaBlockID = uint64(0)
	fmtBlockID  = ^uint64(0)
	paraBlockID = ^uint64(0) - 1

	// IDs at or above this value are reserved for directive blocks.
	reservedBlockIDs = paraBlockID
)

// magicSize must track MagicString.
var _ = [1]struct{}{}[len(MagicString)-magicSize]

type LayoutSegment struct {
	Name    string
	Kind    BlockKind
	BlockID uint64
	Offset  uint64
	Length  uint32
}

type LayoutInfo struct {
	HeaderLength uint32
	IndexOffset  uint64
	IndexLength  uint32
	FileSize     uint64
	Segments     []LayoutSegment
}

// fileHeader follows the magic string at the start of every container.
type fileHeader struct {
	Version   uint16
	Flags     uint16
	TOCOffset uint64
	TOCCount  uint32
}

func (h fileHeader) appendTo(dst []byte) []byte {
	dst = append(dst, MagicString...)
	dst = binary.LittleEndian.AppendUint16(dst, h.Version)
	dst = binary.LittleEndian.AppendUint16(dst, h.Flags)
	dst = binary.LittleEndian.AppendUint64(dst, h.TOCOffset)
	return binary.LittleEndian.AppendUint32(dst, h.TOCCount)
}

func parseFileHeader(b []byte) (fileHeader, error) {
	if len(b) < headerSize || string(b[:magicSize]) != MagicString {
		return fileHeader{}, ErrInvalidMagic
	}
	le := binary.LittleEndian
	f := b[magicSize:headerSize]
	return fileHeader{
		Version:   le.Uint16(f[0:]),
		Flags:     le.Uint16(f[2:]),
		TOCOffset: le.Uint64(f[4:]),
		TOCCount:  le.Uint32(f[12:]),
	}, nil
}

// check rejects headers this reader cannot serve.
func (h fileHeader) check(fileLen int) error {
	switch {
	case h.Version != VersionV1:
		return fmt.Errorf("%w: %d", ErrUnsupportedVer, h.Version)
	case h.Flags&FlagRandomAccess == 0:
		return ErrMissingRandomFlag
	case h.Flags&FlagRuneOffsets == 0:
		return fmt.Errorf("%w: byte-offset style runs", ErrUnsupportedVer)
	case h.TOCOffset > uint64(fileLen), h.tocEnd() > uint64(fileLen):
		return ErrInvalidTOC
	}
	return nil
}

func (h fileHeader) tocEnd() uint64 {
	return h.TOCOffset + uint64(h.TOCCount)*tocEntSize
}

// tocEntry locates one payload. Entries are tocEntSize bytes: id, kind,
// offset, length, CRC32.
type tocEntry struct {
	ID     uint64
	Kind   BlockKind
	Offset uint64
	Length uint32
	CRC32  uint32
}

func (e tocEntry) appendTo(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, e.ID)
	dst = append(dst, byte(e.Kind))
	dst = binary.LittleEndian.AppendUint64(dst, e.Offset)
	dst = binary.LittleEndian.AppendUint32(dst, e.Length)
	return binary.LittleEndian.AppendUint32(dst, e.CRC32)
}

func parseTOCEntry(b []byte) tocEntry {
	le := binary.LittleEndian
	return tocEntry{
		ID:     le.Uint64(b[0:]),
		Kind:   BlockKind(b[8]),
		Offset: le.Uint64(b[9:]),
		Length: le.Uint32(b[17:]),
		CRC32:  le.Uint32(b[21:]),
	}
}

func (e tocEntry) end() uint64 { return e.Offset + uint64(e.Length) }

type encodeResult struct {
	Blob      []byte
	Entries   []tocEntry
	TOCOffset uint64
	TOCLength uint32
}

// InspectLayout reports where every segment of doc lands in its encoding.
func InspectLayout(doc *Document) (*LayoutInfo, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	res := encodeContainer(doc)

	segments := []LayoutSegment{{
		Name:    "Header",
		Kind:    BlockKindMetadata,
		BlockID: metaBlockID,
		Offset:  0,
		Length:  headerSize,
	}, {
		Name:    "Index",
		Kind:    BlockKindStyle,
		BlockID: fmtBlockID,
		Offset:  res.TOCOffset,
		Length:  res.TOCLength,
	}}
	for _, e := range res.Entries {
		segments = append(segments, LayoutSegment{
			Name:    segmentName(e.Kind),
			Kind:    e.Kind,
			BlockID: e.ID,
			Offset:  e.Offset,
			Length:  e.Length,
		})
	}
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Offset < segments[j].Offset })

	return &LayoutInfo{
		HeaderLength: headerSize,
		IndexOffset:  res.TOCOffset,
		IndexLength:  res.TOCLength,
		FileSize:     uint64(len(res.Blob)),
		Segments:     segments,
	}, nil
}

func segmentName(k BlockKind) string {
	switch k {
	case BlockKindMetadata:
		return "Metadata"
	case BlockKindStyle:
		return "Formatting Directive"
	case BlockKindParagraph:
		return "Paragraph Directive"
	case BlockKindText:
		return "Data Block"
	default:
		return "Block"
	}
}

// encodeContainer lays out header, TOC and payloads. doc must be valid.
func encodeContainer(doc *Document) *encodeResult {
	payloads := [][]byte{
		encodeMetadata(doc.Metadata),
		encodeFormattingDirective(collectFormatting(doc)),
		encodeParagraphDirective(collectParagraphs(doc)),
	}
	entries := []tocEntry{
		{ID: metaBlockID, Kind: BlockKindMetadata},
		{ID: fmtBlockID, Kind: BlockKindStyle},
		{ID: paraBlockID, Kind: BlockKindParagraph},
	}
	for _, b := range doc.Blocks {
		payloads = append(payloads, encodeTextBlock(b.Text))
		entries = append(entries, tocEntry{ID: b.ID, Kind: b.Kind})
	}

	h := fileHeader{
		Version:   VersionV1,
		Flags:     FlagRandomAccess | FlagRuneOffsets,
		TOCOffset: headerSize,
		TOCCount:  uint32(len(entries)),
	}
	next := h.tocEnd()
	size := int(next)
	for i, p := range payloads {
		entries[i].Offset = next
		entries[i].Length = uint32(len(p))
		entries[i].CRC32 = crc32.ChecksumIEEE(p)
		next += uint64(len(p))
		size += len(p)
	}

	out := h.appendTo(make([]byte, 0, size))
	for _, e := range entries {
		out = e.appendTo(out)
	}
	for _, p := range payloads {
		out = append(out, p...)
	}
	return &encodeResult{
		Blob:      out,
		Entries:   entries,
		TOCOffset: h.TOCOffset,
		TOCLength: h.TOCCount * tocEntSize,
	}
}

func decodeContainer(blob []byte) (*Document, error) {
	h, err := parseFileHeader(blob)
	if err != nil {
		return nil, err
	}
	if err := h.check(len(blob)); err != nil {
		return nil, err
	}
	entries := make([]tocEntry, h.TOCCount)
	for i := range entries {
		at := int(h.TOCOffset) + i*tocEntSize
		entries[i] = parseTOCEntry(blob[at : at+tocEntSize])
	}
	if err := validateEntryRanges(entries, int(h.tocEnd()), len(blob)); err != nil {
		return nil, err
	}

	var (
		doc    = &Document{}
		byID   = map[uint64]*TextBlock{}
		styles []FormattingDirectiveEntry
		paras  []ParagraphDirectiveEntry
	)
	for _, e := range entries {
		payload := blob[e.Offset:e.end()]
		if crc32.ChecksumIEEE(payload) != e.CRC32 {
			return nil, fmt.Errorf("%w: block %d", ErrChecksum, e.ID)
		}
		switch e.Kind {
		case BlockKindMetadata:
			doc.Metadata, err = decodeMetadata(payload)
		case BlockKindStyle:
			styles, err = decodeFormattingDirective(payload)
		case BlockKindParagraph:
			paras, err = decodeParagraphDirective(payload)
		case BlockKindText:
			var tb *TextBlock
			if tb, err = decodeTextBlock(payload); err == nil {
				byID[e.ID] = tb
				doc.Blocks = append(doc.Blocks, Block{ID: e.ID, Kind: BlockKindText, Text: tb})
			}
		default:
			// unknown kinds are skipped
		}
		if err != nil {
			return nil, err
		}
	}

	for _, d := range styles {
		if tb := byID[d.BlockID]; tb != nil {
			tb.Runs = append(tb.Runs, StyleRun{Start: d.Start, End: d.End, Attr: d.Attr})
		}
	}
	for _, p := range paras {
		if tb := byID[p.BlockID]; tb != nil {
			tb.Paragraph = p.Attr
		}
	}
	for _, tb := range byID {
		sortRuns(tb.Runs)
	}
	return doc, nil
}

// validateEntryRanges checks that every payload lies after the TOC, inside
// the file, and that no two payloads overlap.
func validateEntryRanges(entries []tocEntry, dataStart, fileLen int) error {
	type span struct{ start, end uint64 }
	ranges := make([]span, 0, len(entries))
	for _, e := range entries {
		if e.Offset < uint64(dataStart) || e.Offset > uint64(fileLen) || e.end() > uint64(fileLen) {
			return ErrInvalidBlockRange
		}
		ranges = append(ranges, span{e.Offset, e.end()})
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })
	for i := 1; i < len(ranges); i++ {
		if ranges[i].start < ranges[i-1].end {
			return ErrOverlappingBlocks
		}
	}
	return nil
}

func sortRuns(runs []StyleRun) {
	sort.Slice(runs, func(a, b int) bool {
		if runs[a].Start == runs[b].Start {
			return runs[a].End < runs[b].End
		}
		return runs[a].Start < runs[b].Start
	})
}
