package tiff

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/image/tiff/lzw"
)

func TestPackBits(t *testing.T) {
	var tests = []struct {
		name    string
		data    []byte
		rowSize int
	}{
		{"empty", []byte{}, 0},
		{"literal", []byte{1, 2, 3, 4, 5}, 0},
		{"run", bytes.Repeat([]byte{7}, 300), 0},
		{"mixed", []byte{1, 1, 1, 2, 3, 4, 4, 5, 5, 5, 5, 6}, 0},
		{"rows", bytes.Repeat([]byte{9, 9, 9, 9, 1, 2}, 20), 6},
		{"long literal", randomBytes(1000, 1), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed := packBits(tt.data, tt.rowSize)
			unpacked, err := unpackBits(bytes.NewReader(packed))
			assert.NoError(t, err)
			assert.Equal(t, tt.data, append([]byte{}, unpacked...))
		})
	}

	// Runs never cross rows.
	packed := packBits(bytes.Repeat([]byte{3}, 8), 4)
	assert.Equal(t, []byte{0xFD, 3, 0xFD, 3}, packed)
}

func TestLZW(t *testing.T) {
	var tests = []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"single", []byte{42}},
		{"text", []byte("TOBEORNOTTOBEORTOBEORNOT#")},
		{"constant", bytes.Repeat([]byte{0xAA}, 100000)},
		// Random data fills the code table several times.
		{"random", randomBytes(200000, 2)},
		{"gradient", gradient(64 * 1024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := lzwEncode(tt.data)
			r := lzw.NewReader(bytes.NewReader(encoded), lzw.MSB, 8)
			decoded, err := io.ReadAll(r)
			r.Close()
			assert.NoError(t, err)
			assert.Equal(t, tt.data, append([]byte{}, decoded...))
		})
	}
}

func TestChunkCodecs(t *testing.T) {
	data := append(gradient(2048), randomBytes(2048, 3)...)
	for _, compression := range []uint16{
		CompressionNone,
		CompressionPackBits,
		CompressionLZW,
		CompressionAdobeDeflate,
		CompressionDeflate,
		CompressionZSTD,
	} {
		t.Run(CompressionName(compression), func(t *testing.T) {
			d := newDirectory(binary.LittleEndian)
			for _, f := range []Field{
				NewLong(TagImageWidth, 64),
				NewLong(TagImageLength, 64),
				NewShort(TagBitsPerSample, 8),
				NewShort(TagCompression, compression),
			} {
				assert.NoError(t, d.setField(f))
			}

			encoded, err := d.compress(data)
			assert.NoError(t, err)
			if compression != CompressionNone {
				assert.Less(t, len(encoded), len(data))
			}
			decoded, err := d.decompress(encoded, len(data))
			assert.NoError(t, err)
			assert.Equal(t, data, decoded)
		})
	}
}

func TestPredictor(t *testing.T) {
	for _, bps := range []uint16{8, 16, 32} {
		d := newDirectory(binary.LittleEndian)
		assert.NoError(t, d.setField(NewLong(TagImageWidth, 5)))
		assert.NoError(t, d.setField(NewLong(TagImageLength, 3)))
		assert.NoError(t, d.setField(NewShort(TagBitsPerSample, bps, bps, bps)))
		assert.NoError(t, d.setField(NewShort(TagSamplesPerPixel, 3)))
		assert.NoError(t, d.setField(NewShort(TagPredictor, PredictorHorizontal)))

		data := randomBytes(d.scanlineSize()*3, int64(bps))
		buf := append([]byte{}, data...)
		assert.NoError(t, d.applyPredictor(buf))
		assert.NotEqual(t, data, buf)
		assert.NoError(t, d.undoPredictor(buf))
		assert.Equal(t, data, buf, "%d bits", bps)
	}

	d := newDirectory(binary.LittleEndian)
	assert.NoError(t, d.setField(NewLong(TagImageWidth, 5)))
	assert.NoError(t, d.setField(NewShort(TagBitsPerSample, 4)))
	assert.NoError(t, d.setField(NewShort(TagPredictor, PredictorHorizontal)))
	assert.IsType(t, UnsupportedError(""), d.applyPredictor(make([]byte, 3)))
}

func TestSwab(t *testing.T) {
	d := newDirectory(binary.BigEndian)
	assert.NoError(t, d.setField(NewShort(TagBitsPerSample, 16)))
	buf := []byte{1, 2, 3, 4}
	d.swab(buf, binary.BigEndian)
	assert.Equal(t, []byte{2, 1, 4, 3}, buf)
	d.swab(buf, binary.LittleEndian)
	assert.Equal(t, []byte{2, 1, 4, 3}, buf)
}

func randomBytes(n int, seed int64) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

func gradient(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i / 256)
	}
	return b
}
