package tiff

import (
	"bufio"
	"io"
)

type byteReader interface {
	io.Reader
	io.ByteReader
}

// unpackBits decodes the PackBits-compressed data in src and returns the
// uncompressed data.
//
// The PackBits compression format is described in section 9 (p. 42)
// of TIFF 6.0.
func unpackBits(r io.Reader) ([]byte, error) {
	var n int
	buf := make([]byte, 128)
	dst := make([]byte, 0, 1024)
	br, ok := r.(byteReader)
	if !ok {
		br = bufio.NewReader(r)
	}

	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				return dst, nil
			}
			return nil, err
		}
		code := int(int8(b))
		switch {
		case code >= 0:
			n, err = io.ReadFull(br, buf[:code+1])
			if err != nil {
				return nil, err
			}
			dst = append(dst, buf[:n]...)
		case code == -128:
			// No-op.
		default:
			if b, err = br.ReadByte(); err != nil {
				return nil, err
			}
			for j := 0; j < 1-code; j++ {
				buf[j] = b
			}
			dst = append(dst, buf[:1-code]...)
		}
	}
}

// packBits encodes src with PackBits, one row of rowSize bytes at a time:
// runs never cross a row boundary.
func packBits(src []byte, rowSize int) []byte {
	if rowSize <= 0 {
		rowSize = len(src)
	}
	dst := make([]byte, 0, len(src)+len(src)/128+1)
	for start := 0; start < len(src); start += rowSize {
		row := src[start:minInt(start+rowSize, len(src))]
		dst = packRow(dst, row)
	}
	return dst
}

func packRow(dst, row []byte) []byte {
	for i := 0; i < len(row); {
		// Measure the run starting at i.
		run := 1
		for i+run < len(row) && run < 128 && row[i+run] == row[i] {
			run++
		}
		if run >= 2 {
			dst = append(dst, byte(int8(1-run)), row[i])
			i += run
			continue
		}

		// Literal sequence up to the next run of at least 2 bytes.
		j := i + 1
		for j < len(row) && j-i < 128 {
			if j+1 < len(row) && row[j] == row[j+1] {
				break
			}
			j++
		}
		dst = append(dst, byte(j-i-1))
		dst = append(dst, row[i:j]...)
		i = j
	}
	return dst
}
