package tiff

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// The TIFF format allows to choose the order of the different elements freely.
// The basic structure of a file written by this package is:
//
//   1. Header (8 bytes).
//   2. For each directory:
//      a. Image data (strips or tiles, in index order).
//      b. Image File Directory (IFD).
//      c. "Pointer area" for larger entries in the IFD.

// Encode writes all the directories holding an image to w.
func (f *File) Encode(w io.Writer) error {
	if err := f.dir().flush(); err != nil {
		return errors.Wrap(err, f.name)
	}

	order := f.byteOrder
	var header [8]byte
	if order == binary.BigEndian {
		copy(header[:4], beHeader)
	} else {
		copy(header[:4], leHeader)
	}

	n := f.NumberOfDirectories()
	if n == 0 {
		return errors.Errorf("%s: nothing to write", f.name)
	}

	var out bytes.Buffer
	pos := uint32(len(header))
	order.PutUint32(header[4:], 0)
	out.Write(header[:])

	nextPtr := 4 // Offset in out of the pointer to patch with the next IFD position.
	for i := 0; i < n; i++ {
		chunk, ifdPos, next, err := f.dirs[i].encode(order, pos)
		if err != nil {
			return errors.Wrapf(err, "%s: directory %d", f.name, i)
		}
		order.PutUint32(out.Bytes()[nextPtr:], ifdPos)
		nextPtr = int(pos) + next
		out.Write(chunk)
		if uint64(pos)+uint64(len(chunk)) > math.MaxUint32 {
			return errors.Errorf("%s: file exceeds 4 GiB, BigTIFF is not supported", f.name)
		}
		pos += uint32(len(chunk))
	}

	_, err := w.Write(out.Bytes())
	return errors.Wrap(err, f.name)
}

// encode serializes the directory placed at file offset base. It returns the
// bytes, the file offset of the IFD and the offset within the returned bytes
// of the next-IFD pointer.
func (d *directory) encode(order binary.ByteOrder, base uint32) ([]byte, uint32, int, error) {
	if err := d.checkTiling(); err != nil {
		return nil, 0, 0, err
	}
	if err := d.flush(); err != nil {
		return nil, 0, 0, err
	}

	// 1. Image data.
	var buf bytes.Buffer
	n := d.numberOfChunks()
	offsets := make([]uint32, n)
	counts := make([]uint32, n)
	for i := 0; i < n; i++ {
		raw, err := d.rawChunk(i)
		if err != nil {
			// Chunks never written are stored empty.
			raw = nil
		}
		offsets[i] = base + uint32(buf.Len())
		counts[i] = uint32(len(raw))
		buf.Write(raw)
		if buf.Len()%2 == 1 {
			buf.WriteByte(0) // Word alignment.
		}
	}

	// 2. IFD entries, in ascending tag order (page 15).
	fields := make([]Field, 0, len(d.fields)+2)
	for _, t := range d.tags() {
		if t > math.MaxUint16 {
			continue // Codec pseudo-tag.
		}
		fields = append(fields, d.fields[t])
	}
	offTag, countTag := TagStripOffsets, TagStripByteCounts
	if d.isTiled() {
		offTag, countTag = TagTileOffsets, TagTileByteCounts
	}
	fields = insertSorted(fields, NewLong(offTag, offsets...))
	fields = insertSorted(fields, NewLong(countTag, counts...))

	ifdPos := base + uint32(buf.Len())
	pstart := ifdPos + 2 + uint32(ifdLen*len(fields)) + 4
	var parea bytes.Buffer // "Pointer area" containing IFD entry data longer than 4 bytes.
	var entry [ifdLen]byte

	binary.Write(&buf, order, uint16(len(fields)))
	for _, field := range fields {
		order.PutUint16(entry[0:2], uint16(field.Tag))
		order.PutUint16(entry[2:4], uint16(field.Type))
		order.PutUint32(entry[4:8], uint32(len(field.Val)))
		data := field.marshal(order)
		if len(data) <= 4 {
			copy(entry[8:12], make([]byte, 4))
			copy(entry[8:12], data)
		} else {
			order.PutUint32(entry[8:12], pstart+uint32(parea.Len()))
			parea.Write(data)
			if parea.Len()%2 == 1 {
				parea.WriteByte(0)
			}
		}
		buf.Write(entry[:])
	}
	// The IFD ends with the offset of the next IFD in the file,
	// or zero if it is the last one (page 14).
	next := buf.Len()
	binary.Write(&buf, order, uint32(0))
	buf.Write(parea.Bytes())

	return buf.Bytes(), ifdPos, next, nil
}

func insertSorted(fields []Field, f Field) []Field {
	i := 0
	for i < len(fields) && fields[i].Tag < f.Tag {
		i++
	}
	fields = append(fields, Field{})
	copy(fields[i+1:], fields[i:])
	fields[i] = f
	return fields
}

// marshal encodes the values of the field with the given byte order.
func (f Field) marshal(order binary.ByteOrder) []byte {
	size := int(f.Type.Size())
	p := make([]byte, size*len(f.Val))
	for i, v := range f.Val {
		q := p[i*size:]
		switch f.Type {
		case TypeByte, TypeASCII, TypeSByte, TypeUndefined:
			q[0] = byte(v)
		case TypeShort, TypeSShort:
			order.PutUint16(q, uint16(v))
		case TypeLong, TypeSLong, TypeFloat:
			order.PutUint32(q, uint32(v))
		case TypeRational, TypeSRational:
			order.PutUint32(q, uint32(uint64(v)&0xFFFFFFFF))
			order.PutUint32(q[4:], uint32(uint64(v)>>32))
		case TypeDouble:
			order.PutUint64(q, uint64(v))
		}
	}
	return p
}
