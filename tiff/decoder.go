package tiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"golang.org/x/image/tiff/lzw"
)

// decompress decodes one strip or tile. The result is padded or truncated to n bytes.
func (d *directory) decompress(raw []byte, n int) (buf []byte, err error) {
	switch c := d.compression(); c {
	// According to TIFF 6.0, Compression does not have a default value,
	// but some tools interpret a missing Compression value as none so we do
	// the same.
	case CompressionNone, 0:
		buf = append([]byte(nil), raw...)
	case CompressionLZW:
		r := lzw.NewReader(bytes.NewReader(raw), lzw.MSB, 8)
		buf, err = io.ReadAll(r)
		r.Close()
	case CompressionAdobeDeflate, CompressionDeflate:
		var r io.ReadCloser
		r, err = zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, errors.Wrap(err, "deflate")
		}
		buf, err = io.ReadAll(r)
		r.Close()
	case CompressionZSTD:
		var dec *zstd.Decoder
		dec, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
		if err != nil {
			return nil, errors.Wrap(err, "zstd")
		}
		buf, err = dec.DecodeAll(raw, make([]byte, 0, n))
		dec.Close()
	case CompressionPackBits:
		buf, err = unpackBits(bytes.NewReader(raw))
	default:
		return nil, UnsupportedError(fmt.Sprintf("decoding of compression %s", CompressionName(c)))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode %s data", CompressionName(d.compression()))
	}

	if len(buf) < n {
		return nil, FormatError(fmt.Sprintf("not enough image data: got %d bytes, expected %d", len(buf), n))
	}
	buf = buf[:n]

	d.swab(buf, d.order)
	return buf, d.undoPredictor(buf)
}

// compress encodes one strip or tile of decoded data.
func (d *directory) compress(data []byte) ([]byte, error) {
	buf := append([]byte(nil), data...)
	if err := d.applyPredictor(buf); err != nil {
		return nil, err
	}
	d.swab(buf, d.order)

	switch c := d.compression(); c {
	case CompressionNone:
		return buf, nil
	case CompressionPackBits:
		return packBits(buf, d.rowSize()), nil
	case CompressionLZW:
		return lzwEncode(buf), nil
	case CompressionAdobeDeflate, CompressionDeflate:
		level := int(int16(d.uintDefaulted(TagZipQuality)))
		if level > zlib.BestCompression {
			level = zlib.BestCompression
		}
		if level < 0 {
			level = zlib.DefaultCompression
		}
		var out bytes.Buffer
		w, err := zlib.NewWriterLevel(&out, level)
		if err != nil {
			return nil, errors.Wrap(err, "deflate")
		}
		if _, err = w.Write(buf); err != nil {
			return nil, errors.Wrap(err, "deflate")
		}
		if err = w.Close(); err != nil {
			return nil, errors.Wrap(err, "deflate")
		}
		return out.Bytes(), nil
	case CompressionZSTD:
		level := zstd.EncoderLevelFromZstd(int(d.uintDefaulted(TagZstdLevel)))
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithEncoderLevel(level))
		if err != nil {
			return nil, errors.Wrap(err, "zstd")
		}
		defer enc.Close()
		return enc.EncodeAll(buf, make([]byte, 0, len(buf)/2)), nil
	default:
		return nil, UnsupportedError(fmt.Sprintf("encoding of compression %s", CompressionName(c)))
	}
}

// rowSize is the byte length of one row of a strip or tile.
func (d *directory) rowSize() int {
	if d.isTiled() {
		return d.tileRowSize()
	}
	return d.scanlineSize()
}

// bytesPerSample returns the sample width for byte-aligned depths above 8 bits, 0 otherwise.
func (d *directory) bytesPerSample() int {
	bps := d.bitsPerSample()
	if bps <= 8 || bps%8 != 0 {
		return 0
	}
	return int(bps / 8)
}

// swab converts multi-byte samples between the file order and the little-endian
// order of decoded buffers. It is its own inverse.
func (d *directory) swab(buf []byte, order binary.ByteOrder) {
	n := d.bytesPerSample()
	if n == 0 || order == binary.LittleEndian {
		return
	}
	for i := 0; i+n <= len(buf); i += n {
		for a, b := i, i+n-1; a < b; a, b = a+1, b-1 {
			buf[a], buf[b] = buf[b], buf[a]
		}
	}
}

// undoPredictor accumulates horizontal differences in a decoded chunk.
// See page 64-65 of TIFF 6.0.
func (d *directory) undoPredictor(buf []byte) error {
	return d.predict(buf, false)
}

// applyPredictor replaces samples with their horizontal differences.
func (d *directory) applyPredictor(buf []byte) error {
	return d.predict(buf, true)
}

func (d *directory) predict(buf []byte, encode bool) error {
	switch p := uint16(d.uintDefaulted(TagPredictor)); p {
	case PredictorNone:
		return nil
	case PredictorHorizontal:
	default:
		return UnsupportedError(fmt.Sprintf("predictor %d", p))
	}

	bps := d.bitsPerSample()
	if bps != 8 && bps != 16 && bps != 32 {
		return UnsupportedError(fmt.Sprintf("horizontal predictor with %d bits per sample", bps))
	}
	size := int(bps / 8)
	stride := int(d.samplesPerChunk()) * size
	rowSize := d.rowSize()
	if rowSize == 0 {
		return nil
	}

	for start := 0; start+rowSize <= len(buf); start += rowSize {
		row := buf[start : start+rowSize]
		if encode {
			for i := len(row) - size; i >= stride; i -= size {
				putSample(row[i:], size, sample(row[i:], size)-sample(row[i-stride:], size))
			}
		} else {
			for i := stride; i+size <= len(row); i += size {
				putSample(row[i:], size, sample(row[i:], size)+sample(row[i-stride:], size))
			}
		}
	}
	return nil
}

func sample(p []byte, size int) uint32 {
	switch size {
	case 1:
		return uint32(p[0])
	case 2:
		return uint32(binary.LittleEndian.Uint16(p))
	default:
		return binary.LittleEndian.Uint32(p)
	}
}

func putSample(p []byte, size int, v uint32) {
	switch size {
	case 1:
		p[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(p, uint16(v))
	default:
		binary.LittleEndian.PutUint32(p, v)
	}
}
