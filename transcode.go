package tiffcp

import (
	"encoding/binary"
)

// cpStripToTile copies rows of cols bytes from in to out, skipping outskew
// bytes of out and inskew bytes of in after each row.
func cpStripToTile(out, in []byte, rows, cols, outskew, inskew int) {
	var o, i int
	for ; rows > 0; rows-- {
		copy(out[o:o+cols], in[i:i+cols])
		o += cols + outskew
		i += cols + inskew
	}
}

// cpContigBufToSeparateBuf extracts one sample of each of cols pixels per row
// from interleaved data. in starts at the wanted sample of the first pixel.
func cpContigBufToSeparateBuf(out, in []byte, rows, cols, outskew, inskew, spp, bytesPerSample int) {
	var o, i int
	for ; rows > 0; rows-- {
		for j := 0; j < cols; j++ {
			copy(out[o:o+bytesPerSample], in[i:i+bytesPerSample])
			o += bytesPerSample
			i += spp * bytesPerSample
		}
		o += outskew
		i += inskew
	}
}

// cpSeparateBufToContigBuf spreads one plane of cols samples per row into
// interleaved data. out starts at the wanted sample of the first pixel.
func cpSeparateBufToContigBuf(out, in []byte, rows, cols, outskew, inskew, spp, bytesPerSample int) {
	var o, i int
	for ; rows > 0; rows-- {
		for j := 0; j < cols; j++ {
			copy(out[o:o+bytesPerSample], in[i:i+bytesPerSample])
			o += spp * bytesPerSample
			i += bytesPerSample
		}
		o += outskew
		i += inskew
	}
}

//------------------------//
// Bias subtraction       //
//------------------------//

type unsigned interface {
	~uint8 | ~uint16 | ~uint32
}

// A sampleCodec reads and writes fixed-width samples of decoded buffers,
// which are always little-endian.
type sampleCodec[T unsigned] struct {
	size int
	get  func([]byte) T
	put  func([]byte, T)
}

// subtract replaces each of the n samples of image by image - bias,
// saturating at zero.
func (c sampleCodec[T]) subtract(image, bias []byte, n int) {
	for i, off := 0, 0; i < n; i, off = i+1, off+c.size {
		v, b := c.get(image[off:]), c.get(bias[off:])
		if v > b {
			c.put(image[off:], v-b)
		} else {
			c.put(image[off:], 0)
		}
	}
}

var (
	samples8 = sampleCodec[uint8]{
		size: 1,
		get:  func(b []byte) uint8 { return b[0] },
		put:  func(b []byte, v uint8) { b[0] = v },
	}
	samples16 = sampleCodec[uint16]{size: 2, get: binary.LittleEndian.Uint16, put: binary.LittleEndian.PutUint16}
	samples32 = sampleCodec[uint32]{size: 4, get: binary.LittleEndian.Uint32, put: binary.LittleEndian.PutUint32}
)

type subtractFunc func(image, bias []byte, n int)

// lineSubtractFn returns the bias subtraction of samples of the given depth,
// or nil when the depth is not supported.
func lineSubtractFn(bits uint16) subtractFunc {
	switch bits {
	case 8:
		return samples8.subtract
	case 16:
		return samples16.subtract
	case 32:
		return samples32.subtract
	}
	return nil
}
