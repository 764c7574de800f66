package lspconv

import (
	"strings"

	"go.lsp.dev/protocol"
)

// OffsetToPosition converts a byte offset into text to an LSP Position,
// whose Character field counts UTF-16 code units within the line, per the
// LSP specification.
func OffsetToPosition(text string, offset int) protocol.Position {
	if offset > len(text) {
		offset = len(text)
	}
	line := uint32(0)
	lineStart := 0
	for i := 0; i < offset; i++ {
		if text[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	return protocol.Position{
		Line:      line,
		Character: uint32(utf16Len(text[lineStart:offset])),
	}
}

// PositionToOffset converts an LSP Position (UTF-16 code units within its
// line) to a byte offset into text.
func PositionToOffset(text string, pos protocol.Position) int {
	lineStart := lineStartOffset(text, int(pos.Line))
	if lineStart < 0 {
		return len(text)
	}
	lineEnd := strings.IndexByte(text[lineStart:], '\n')
	var line string
	if lineEnd < 0 {
		line = text[lineStart:]
	} else {
		line = text[lineStart : lineStart+lineEnd]
	}
	return lineStart + utf16OffsetToByte(line, int(pos.Character))
}

// RangeToOffsets converts an LSP Range to a [start,end) byte-offset pair.
func RangeToOffsets(text string, r protocol.Range) (start, end int) {
	return PositionToOffset(text, r.Start), PositionToOffset(text, r.End)
}

// OffsetsToRange converts a [start,end) byte-offset pair to an LSP Range.
func OffsetsToRange(text string, start, end int) protocol.Range {
	return protocol.Range{
		Start: OffsetToPosition(text, start),
		End:   OffsetToPosition(text, end),
	}
}

func lineStartOffset(text string, line int) int {
	if line == 0 {
		return 0
	}
	n := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			n++
			if n == line {
				return i + 1
			}
		}
	}
	return -1
}

func utf16Width(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Width(r)
	}
	return n
}

// utf16OffsetToByte walks line counting UTF-16 code units until units have
// been consumed, returning the corresponding byte offset.
func utf16OffsetToByte(line string, units int) int {
	consumed := 0
	for i, r := range line {
		if consumed >= units {
			return i
		}
		consumed += utf16Width(r)
	}
	return len(line)
}
