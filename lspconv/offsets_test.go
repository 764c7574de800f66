package lspconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.lsp.dev/protocol"
)

func TestOffsetToPosition(t *testing.T) {
	text := "class A\n{\n    int x;\n}\n"
	pos := OffsetToPosition(text, 0)
	assert.Equal(t, protocol.Position{Line: 0, Character: 0}, pos)

	// offset of 'x' on line 2 (0-indexed)
	offset := len("class A\n{\n    int ")
	pos = OffsetToPosition(text, offset)
	assert.Equal(t, uint32(2), pos.Line)
	assert.Equal(t, uint32(8), pos.Character)
}

func TestPositionToOffsetRoundTrip(t *testing.T) {
	text := "namespace N\n{\n    class C {}\n}\n"
	for _, offset := range []int{0, 5, 12, 20, len(text)} {
		pos := OffsetToPosition(text, offset)
		got := PositionToOffset(text, pos)
		assert.Equal(t, offset, got)
	}
}

func TestOffsetToPositionSurrogatePair(t *testing.T) {
	// U+1F600 (grinning face) encodes as a UTF-16 surrogate pair (2 units)
	// but a single 4-byte UTF-8 rune.
	text := "x = \U0001F600;"
	before := len("x = ")
	after := before + len("\U0001F600")
	posBefore := OffsetToPosition(text, before)
	posAfter := OffsetToPosition(text, after)
	assert.Equal(t, uint32(2), posAfter.Character-posBefore.Character)
}

func TestRangeOffsetsRoundTrip(t *testing.T) {
	text := "a\nbb\nccc\n"
	r := OffsetsToRange(text, 3, 5)
	start, end := RangeToOffsets(text, r)
	assert.Equal(t, 3, start)
	assert.Equal(t, 5, end)
}
