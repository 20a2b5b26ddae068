package tiff

// TIFF LZW codes are written MSB first, with widths from 9 to 12 bits. Unlike
// GIF, the code width grows one code early (page 61 of TIFF 6.0). Decoding
// is done by golang.org/x/image/tiff/lzw.
const (
	lzwClear    = 256
	lzwEOI      = 257
	lzwMinWidth = 9
	lzwMaxWidth = 12
	lzwMaxCode  = 1<<lzwMaxWidth - 1
)

type lzwEncoder struct {
	out   []byte
	bits  uint32
	nBits uint

	width    uint
	hi       uint32 // Last assigned code.
	overflow uint32
	table    map[uint32]uint32 // prefix code<<8 | byte -> code
}

// lzwEncode compresses src with the TIFF flavor of LZW.
func lzwEncode(src []byte) []byte {
	e := &lzwEncoder{out: make([]byte, 0, len(src)/2+16)}
	e.reset()
	e.write(lzwClear)
	if len(src) == 0 {
		e.write(lzwEOI)
		return e.flush()
	}

	code := uint32(src[0])
	for _, b := range src[1:] {
		key := code<<8 | uint32(b)
		if c, ok := e.table[key]; ok {
			code = c
			continue
		}
		e.write(code)
		code = uint32(b)
		if e.incHi() {
			continue
		}
		e.table[key] = e.hi
	}
	e.write(code)
	e.incHi()
	e.write(lzwEOI)
	return e.flush()
}

func (e *lzwEncoder) reset() {
	e.width = lzwMinWidth
	e.hi = lzwEOI
	e.overflow = 1 << lzwMinWidth
	e.table = make(map[uint32]uint32, lzwMaxCode)
}

// incHi accounts for the code implied by the last emitted one. It returns true
// when the table is full and has been cleared.
func (e *lzwEncoder) incHi() bool {
	e.hi++
	if e.hi+1 == e.overflow && e.width < lzwMaxWidth {
		e.width++
		e.overflow <<= 1
	}
	if e.hi == lzwMaxCode-1 {
		e.write(lzwClear)
		e.reset()
		return true
	}
	return false
}

func (e *lzwEncoder) write(code uint32) {
	e.bits |= code << (32 - e.width - e.nBits)
	e.nBits += e.width
	for e.nBits >= 8 {
		e.out = append(e.out, byte(e.bits>>24))
		e.bits <<= 8
		e.nBits -= 8
	}
}

func (e *lzwEncoder) flush() []byte {
	if e.nBits > 0 {
		e.out = append(e.out, byte(e.bits>>24))
	}
	return e.out
}
