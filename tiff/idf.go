package tiff

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

//------------------------//
// Header parser          //
//------------------------//

const (
	maxChunkSize   = 10 << 20 // 10M
	maxDirectories = 1 << 16
)

type idf struct {
	r         io.ReaderAt
	byteOrder binary.ByteOrder
	tree      []*directory
	warnings  *multierror.Error
}

func newIDF(r io.ReaderAt) (d *idf, err error) {
	d = &idf{r: r}

	p := make([]byte, 8)
	if err = readFullAt(d.r, p, 0); err != nil {
		return nil, errors.Wrap(err, "could not read header")
	}
	switch string(p[0:4]) {
	case leHeader:
		d.byteOrder = binary.LittleEndian
	case beHeader:
		d.byteOrder = binary.BigEndian
	default:
		return nil, FormatError("malformed header")
	}

	visited := make(map[int64]bool)
	ifdOffset := int64(d.byteOrder.Uint32(p[4:8]))
	for ifdOffset != 0 {
		if visited[ifdOffset] || len(d.tree) >= maxDirectories {
			return nil, FormatError(fmt.Sprintf("IFD loop at offset %d", ifdOffset))
		}
		visited[ifdOffset] = true

		if ifdOffset, err = d.appendAndParseIDF(ifdOffset); err != nil {
			return nil, errors.Wrapf(err, "directory %d", len(d.tree)-1)
		}
	}
	if len(d.tree) == 0 {
		return nil, FormatError("no image directory")
	}

	return d, nil
}

// appendAndParseIDF parses the IFD at ifdOffset and returns the offset of the next one.
func (d *idf) appendAndParseIDF(ifdOffset int64) (int64, error) {
	dir := newDirectory(d.byteOrder)
	dir.r = d.r
	d.tree = append(d.tree, dir)
	p := make([]byte, 4)

	// The first two bytes contain the number of entries (12 bytes each).
	if err := readFullAt(d.r, p[0:2], ifdOffset); err != nil {
		return 0, err
	}
	numItems := int(d.byteOrder.Uint16(p[0:2]))

	// All IFD entries are read in one chunk.
	entries := make([]byte, ifdLen*numItems)
	if err := readFullAt(d.r, entries, ifdOffset+2); err != nil {
		return 0, err
	}

	for i := 0; i < len(entries); i += ifdLen {
		if err := d.parseIFD(dir, entries[i:i+ifdLen]); err != nil {
			if _, ok := errors.Cause(err).(UnsupportedError); !ok {
				return 0, err
			}
			d.warnings = multierror.Append(d.warnings, err)
		}
	}

	if err := dir.checkTiling(); err != nil {
		return 0, err
	}
	dir.offsets = dir.fields[TagStripOffsets].Val
	dir.counts = dir.fields[TagStripByteCounts].Val
	if dir.isTiled() {
		dir.offsets = dir.fields[TagTileOffsets].Val
		dir.counts = dir.fields[TagTileByteCounts].Val
	}
	// Offsets are regenerated by the writer.
	for _, t := range []uint32{TagStripOffsets, TagStripByteCounts, TagTileOffsets, TagTileByteCounts} {
		delete(dir.fields, t)
	}
	if n := dir.numberOfChunks(); len(dir.offsets) < n || len(dir.counts) < n {
		return 0, FormatError("inconsistent header")
	}

	// The IFD ends with the offset of the next IFD in the file,
	// or zero if it is the last one (page 14).
	if err := readFullAt(d.r, p, ifdOffset+2+int64(len(entries))); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, nil
		}
		return 0, err
	}
	return int64(d.byteOrder.Uint32(p)), nil
}

// parseIFD decodes the IFD entry in p and stows it in dir.
func (d *idf) parseIFD(dir *directory, p []byte) error {
	tid := uint32(d.byteOrder.Uint16(p[0:2])) // TagID
	val, dt, err := d.ifdValues(p)
	if err != nil {
		return errors.Wrapf(err, "tag %s", tagname(tid))
	}
	dir.fields[tid] = Field{
		Tag:  tid,
		Type: dt,
		Val:  val,
	}
	return nil
}

// ifdValues decodes the values of the IFD entry in p and returns them with their datatype.
func (d *idf) ifdValues(p []byte) (u []uint, dt DataType, err error) {
	var raw []byte
	dt = DataType(d.byteOrder.Uint16(p[2:4]))
	count := d.byteOrder.Uint32(p[4:8])
	if dt.Size() == 0 {
		return nil, dt, UnsupportedError(fmt.Sprintf("data type %d", dt))
	}
	datalen := uint64(dt.Size()) * uint64(count)
	if datalen > 4 {
		// The IFD contains a pointer to the real value.
		raw, err = safeReadAt(d.r, datalen, int64(d.byteOrder.Uint32(p[8:12])))
	} else {
		raw = p[8 : 8+datalen]
	}
	if err != nil {
		return nil, dt, err
	}

	u = make([]uint, count)
	switch dt {
	case TypeByte, TypeASCII, TypeSByte, TypeUndefined:
		for i := uint32(0); i < count; i++ {
			u[i] = uint(raw[i])
		}
	case TypeShort, TypeSShort:
		for i := uint32(0); i < count; i++ {
			u[i] = uint(d.byteOrder.Uint16(raw[2*i : 2*(i+1)]))
		}
	case TypeLong, TypeSLong, TypeFloat:
		for i := uint32(0); i < count; i++ {
			u[i] = uint(d.byteOrder.Uint32(raw[4*i : 4*(i+1)]))
		}
	case TypeRational, TypeSRational:
		for i := uint32(0); i < count; i++ {
			num := uint64(d.byteOrder.Uint32(raw[8*i : 8*i+4]))
			denom := uint64(d.byteOrder.Uint32(raw[8*i+4 : 8*(i+1)]))
			u[i] = uint(num | denom<<32)
		}
	case TypeDouble:
		for i := uint32(0); i < count; i++ {
			u[i] = uint(d.byteOrder.Uint64(raw[8*i : 8*(i+1)]))
		}
	}
	return u, dt, nil
}

// safeReadAt reads n bytes at off without allocating the entire slice ahead of
// time when n is large (>maxChunkSize), so that a corrupted length fails on
// the read instead of on the allocation.
func safeReadAt(r io.ReaderAt, n uint64, off int64) ([]byte, error) {
	if int64(n) < 0 || n != uint64(int(n)) {
		// n is too large to fit in int, so we can't allocate
		// a buffer large enough. Treat this as a read failure.
		return nil, io.ErrUnexpectedEOF
	}

	if n < maxChunkSize {
		buf := make([]byte, n)
		if n == 0 {
			// io.SectionReader can return EOF for n == 0,
			// but for our purposes that is a success.
			return buf, nil
		}
		return buf, readFullAt(r, buf, off)
	}

	var buf []byte
	buf1 := make([]byte, maxChunkSize)
	for n > 0 {
		next := n
		if next > maxChunkSize {
			next = maxChunkSize
		}
		if err := readFullAt(r, buf1[:next], off); err != nil {
			return nil, err
		}
		buf = append(buf, buf1[:next]...)
		n -= next
		off += int64(next)
	}
	return buf, nil
}

// readFullAt reads len(p) bytes at off. A full read ending on io.EOF is a success.
func readFullAt(r io.ReaderAt, p []byte, off int64) error {
	n, err := r.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
