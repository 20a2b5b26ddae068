package tiffcp

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCpStripToTile(t *testing.T) {
	in := []byte{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
	}
	out := make([]byte, 6)
	// Copy the two leftmost columns of the first three rows.
	cpStripToTile(out, in, 3, 2, 0, 2)
	assert.Equal(t, []byte{1, 2, 5, 6, 9, 10}, out)

	tile := make([]byte, 8)
	cpStripToTile(tile, []byte{1, 2, 3, 4, 5, 6}, 2, 3, 1, 0)
	assert.Equal(t, []byte{1, 2, 3, 0, 4, 5, 6, 0}, tile)
}

func TestPlaneSplitting(t *testing.T) {
	rgb := []byte{
		'r', 'g', 'b', 'R', 'G', 'B',
		'x', 'y', 'z', 'X', 'Y', 'Z',
	}

	green := make([]byte, 4)
	cpContigBufToSeparateBuf(green, rgb[1:], 2, 2, 0, 0, 3, 1)
	assert.Equal(t, []byte("gGyY"), green)

	// 16-bit samples, one padding byte per output row.
	wide := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	plane := make([]byte, 6)
	cpContigBufToSeparateBuf(plane, wide[2:], 2, 1, 1, 0, 2, 2)
	assert.Equal(t, []byte{3, 4, 0, 7, 8, 0}, plane)

	merged := make([]byte, len(rgb))
	for s, p := range []string{"rRxX", "gGyY", "bBzZ"} {
		cpSeparateBufToContigBuf(merged[s:], []byte(p), 2, 2, 0, 0, 3, 1)
	}
	assert.Equal(t, rgb, merged)
}

func TestLineSubtract(t *testing.T) {
	assert.Nil(t, lineSubtractFn(1))
	assert.Nil(t, lineSubtractFn(4))
	assert.Nil(t, lineSubtractFn(12))

	image8 := []byte{10, 20, 30, 40}
	lineSubtractFn(8)(image8, []byte{5, 25, 30, 1}, 3)
	assert.Equal(t, []byte{5, 0, 0, 40}, image8, "the sample after n is kept")

	image16 := make([]byte, 4)
	bias16 := make([]byte, 4)
	binary.LittleEndian.PutUint16(image16, 1000)
	binary.LittleEndian.PutUint16(image16[2:], 3)
	binary.LittleEndian.PutUint16(bias16, 999)
	binary.LittleEndian.PutUint16(bias16[2:], 300)
	lineSubtractFn(16)(image16, bias16, 2)
	assert.EqualValues(t, 1, binary.LittleEndian.Uint16(image16))
	assert.EqualValues(t, 0, binary.LittleEndian.Uint16(image16[2:]))

	image32 := make([]byte, 4)
	bias32 := make([]byte, 4)
	binary.LittleEndian.PutUint32(image32, 1<<30)
	binary.LittleEndian.PutUint32(bias32, 1<<20)
	lineSubtractFn(32)(image32, bias32, 1)
	assert.EqualValues(t, 1<<30-1<<20, binary.LittleEndian.Uint32(image32))
}
