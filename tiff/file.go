package tiff

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// A File is a TIFF file: an ordered list of image directories and a cursor on
// the current one. All field and pixel operations act on the current directory.
//
// Decoded pixel buffers hold multi-byte samples in little-endian order
// whatever the byte order of the file.
type File struct {
	name      string
	byteOrder binary.ByteOrder
	closer    io.Closer
	warnings  error

	dirs []*directory
	cur  int
}

// New returns an empty in-memory file ready to be written.
func New(name string) *File {
	return NewWithByteOrder(name, binary.LittleEndian)
}

// NewWithByteOrder returns an empty in-memory file written with the given byte order.
func NewWithByteOrder(name string, order binary.ByteOrder) *File {
	return &File{
		name:      name,
		byteOrder: order,
		dirs:      []*directory{newDirectory(order)},
	}
}

// Decode parses the directories of the TIFF file read from r.
// Strips and tiles are read lazily from r.
func Decode(name string, r io.ReaderAt) (*File, error) {
	idf, err := newIDF(r)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	f := &File{
		name:      name,
		byteOrder: idf.byteOrder,
		dirs:      idf.tree,
	}
	if idf.warnings != nil {
		f.warnings = idf.warnings.ErrorOrNil()
	}
	return f, nil
}

// Open opens and decodes the TIFF file at path. The file must be closed after use.
func Open(path string) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open image")
	}
	f, err := Decode(path, fd)
	if err != nil {
		fd.Close()
		return nil, err
	}
	f.closer = fd
	return f, nil
}

// Close releases the underlying file, if any.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// Warnings returns the non-fatal problems met while decoding, or nil.
func (f *File) Warnings() error {
	return f.warnings
}

// FileName returns the name of the file, for diagnostics.
func (f *File) FileName() string {
	return f.name
}

// ByteOrder returns the byte order of the file.
func (f *File) ByteOrder() binary.ByteOrder {
	return f.byteOrder
}

// CurrentDirectory returns the index of the current directory.
func (f *File) CurrentDirectory() int {
	return f.cur
}

// NumberOfDirectories returns the number of directories holding an image.
func (f *File) NumberOfDirectories() int {
	n := len(f.dirs)
	if last := f.dirs[n-1]; len(last.fields) == 0 {
		n--
	}
	return n
}

// SetDirectory makes the n-th directory current and rewinds its read state.
func (f *File) SetDirectory(n int) error {
	if n < 0 || n >= len(f.dirs) {
		return errors.Errorf("%s: directory %d out of range [0, %d)", f.name, n, len(f.dirs))
	}
	f.cur = n
	f.dirs[n].rewind()
	return nil
}

// WriteDirectory flushes the pending scanlines of the current directory and
// starts a new empty one.
func (f *File) WriteDirectory() error {
	d := f.dir()
	if err := d.flush(); err != nil {
		return errors.Wrapf(err, "%s: directory %d", f.name, f.cur)
	}
	f.dirs = append(f.dirs, newDirectory(f.byteOrder))
	f.cur = len(f.dirs) - 1
	return nil
}

func (f *File) dir() *directory {
	return f.dirs[f.cur]
}

//------------------------//
// Fields                 //
//------------------------//

// Field returns the field with the given tag of the current directory.
// An absent field is not an error.
func (f *File) Field(tag uint32) (Field, bool) {
	return f.dir().field(tag)
}

// FieldDefaulted returns the field with the given tag, or its default value when absent.
// It reports false when the field is absent and has no default.
func (f *File) FieldDefaulted(tag uint32) (Field, bool) {
	return f.dir().fieldDefaulted(tag)
}

// SetField stores a copy of field in the current directory.
func (f *File) SetField(field Field) error {
	return errors.Wrapf(f.dir().setField(field), "%s: directory %d", f.name, f.cur)
}

// Fields returns a copy of all the fields of the current directory, sorted by tag.
func (f *File) Fields() []Field {
	d := f.dir()
	fields := make([]Field, 0, len(d.fields))
	for _, t := range d.tags() {
		fields = append(fields, d.fields[t].Clone())
	}
	return fields
}

//------------------------//
// Geometry               //
//------------------------//

// IsTiled reports whether the current image is organized in tiles.
func (f *File) IsTiled() bool { return f.dir().isTiled() }

// ScanlineSize returns the size in bytes of one row of one plane.
func (f *File) ScanlineSize() int { return f.dir().scanlineSize() }

// RasterScanlineSize returns the size in bytes of one row of all the samples of a pixel.
func (f *File) RasterScanlineSize() int { return f.dir().rasterScanlineSize() }

// TileRowSize returns the size in bytes of one row of a tile.
func (f *File) TileRowSize() int { return f.dir().tileRowSize() }

// TileSize returns the size in bytes of a decoded tile.
func (f *File) TileSize() int { return f.dir().tileSize() }

// StripSize returns the size in bytes of a full decoded strip.
func (f *File) StripSize() int { return f.dir().stripSize() }

// VStripSize returns the size in bytes of a strip of nrows rows.
func (f *File) VStripSize(nrows uint32) int { return f.dir().vStripSize(nrows) }

// NumberOfStrips returns the number of strips of the image, all planes included.
func (f *File) NumberOfStrips() int { return f.dir().numberOfStrips() }

// NumberOfTiles returns the number of tiles of the image, all planes included.
func (f *File) NumberOfTiles() int { return f.dir().numberOfTiles() }

// ComputeTile returns the index of the tile holding pixel (x, y) of the given sample.
func (f *File) ComputeTile(x, y uint32, sample uint16) int {
	return f.dir().computeTile(x, y, sample)
}

// DefaultStripSize returns request when positive, or a rows-per-strip value
// giving strips of about 8 KiB.
func (f *File) DefaultStripSize(request uint32) uint32 {
	return f.dir().defaultStripSize(request)
}

// DefaultTileSize fills unset tile dimensions with 256 and rounds them up to multiples of 16.
func (f *File) DefaultTileSize(tw, tl uint32) (uint32, uint32) {
	return defaultTileSize(tw, tl)
}

//------------------------//
// Pixel I/O              //
//------------------------//

// ReadScanline decodes row of the given plane into buf.
func (f *File) ReadScanline(buf []byte, row uint32, sample uint16) error {
	d := f.dir()
	if d.isTiled() {
		return errors.Errorf("%s: can not read scanlines from a tiled image", f.name)
	}
	if row >= d.length() {
		return errors.Errorf("%s: row %d out of range, max %d", f.name, row, d.length())
	}
	if d.planarConfig() == PlanarConfigSeparate && sample >= d.samplesPerPixel() {
		return errors.Errorf("%s: sample %d out of range, max %d", f.name, sample, d.samplesPerPixel())
	}
	if d.planarConfig() != PlanarConfigSeparate {
		sample = 0
	}

	rps := d.rowsPerStrip()
	strip := int(sample)*int(d.stripsPerPlane()) + int(row/rps)
	data, err := d.decoded(strip)
	if err != nil {
		return errors.Wrapf(err, "%s: strip %d", f.name, strip)
	}

	scanline := d.scanlineSize()
	off := int(row%rps) * scanline
	copy(buf, data[off:off+scanline])
	return nil
}

// ReadEncodedStrip decodes strip into buf and returns the number of bytes copied.
func (f *File) ReadEncodedStrip(strip int, buf []byte) (int, error) {
	d := f.dir()
	if d.isTiled() {
		return 0, errors.Errorf("%s: can not read strips from a tiled image", f.name)
	}
	if strip < 0 || strip >= d.numberOfStrips() {
		return 0, errors.Errorf("%s: strip %d out of range, max %d", f.name, strip, d.numberOfStrips())
	}
	data, err := d.decoded(strip)
	if err != nil {
		return 0, errors.Wrapf(err, "%s: strip %d", f.name, strip)
	}
	return copy(buf, data), nil
}

// ReadTile decodes the tile holding pixel (x, y) of the given sample into buf
// and returns the number of bytes copied.
func (f *File) ReadTile(buf []byte, x, y uint32, sample uint16) (int, error) {
	d := f.dir()
	if !d.isTiled() {
		return 0, errors.Errorf("%s: can not read tiles from a striped image", f.name)
	}
	if err := d.checkTile(x, y, sample); err != nil {
		return 0, errors.Wrap(err, f.name)
	}
	tile := d.computeTile(x, y, sample)
	data, err := d.decoded(tile)
	if err != nil {
		return 0, errors.Wrapf(err, "%s: tile %d", f.name, tile)
	}
	return copy(buf, data), nil
}

// WriteScanline encodes row of the given plane. Rows are gathered until their
// strip is complete.
func (f *File) WriteScanline(buf []byte, row uint32, sample uint16) error {
	d := f.dir()
	if d.isTiled() {
		return errors.Errorf("%s: can not write scanlines to a tiled image", f.name)
	}
	if row >= d.length() {
		return errors.Errorf("%s: row %d out of range, max %d", f.name, row, d.length())
	}
	if d.planarConfig() == PlanarConfigSeparate && sample >= d.samplesPerPixel() {
		return errors.Errorf("%s: sample %d out of range, max %d", f.name, sample, d.samplesPerPixel())
	}
	if d.planarConfig() != PlanarConfigSeparate {
		sample = 0
	}
	scanline := d.scanlineSize()
	if len(buf) < scanline {
		return errors.Errorf("%s: scanline buffer of %d bytes, need %d", f.name, len(buf), scanline)
	}

	rps := d.rowsPerStrip()
	strip := int(sample)*int(d.stripsPerPlane()) + int(row/rps)
	if strip != d.pendingStrip {
		if err := d.flush(); err != nil {
			return errors.Wrap(err, f.name)
		}
		d.pendingStrip = strip
		d.pending = make([]byte, d.chunkSize(strip))
	}
	off := int(row%rps) * scanline
	copy(d.pending[off:off+scanline], buf)

	if row == d.length()-1 || (row+1)%rps == 0 {
		return errors.Wrap(d.flush(), f.name)
	}
	return nil
}

// WriteEncodedStrip encodes buf as strip.
func (f *File) WriteEncodedStrip(strip int, buf []byte) error {
	d := f.dir()
	if d.isTiled() {
		return errors.Errorf("%s: can not write strips to a tiled image", f.name)
	}
	if strip < 0 || strip >= d.numberOfStrips() {
		return errors.Errorf("%s: strip %d out of range, max %d", f.name, strip, d.numberOfStrips())
	}
	return errors.Wrapf(d.writeChunk(strip, buf), "%s: strip %d", f.name, strip)
}

// WriteTile encodes buf as the tile holding pixel (x, y) of the given sample.
func (f *File) WriteTile(buf []byte, x, y uint32, sample uint16) error {
	d := f.dir()
	if !d.isTiled() {
		return errors.Errorf("%s: can not write tiles to a striped image", f.name)
	}
	if err := d.checkTile(x, y, sample); err != nil {
		return errors.Wrap(err, f.name)
	}
	tile := d.computeTile(x, y, sample)
	return errors.Wrapf(d.writeChunk(tile, buf), "%s: tile %d", f.name, tile)
}

//------------------------//
// Chunk storage          //
//------------------------//

// rawChunk returns the encoded bytes of the strip or tile at index.
func (d *directory) rawChunk(index int) ([]byte, error) {
	if index < len(d.chunks) && d.chunks[index] != nil {
		return d.chunks[index], nil
	}
	if d.r == nil || index >= len(d.offsets) || index >= len(d.counts) {
		return nil, FormatError(fmt.Sprintf("chunk %d has no data", index))
	}
	return safeReadAt(d.r, uint64(d.counts[index]), int64(d.offsets[index]))
}

// decoded returns the decoded strip or tile at index, from the cache when possible.
func (d *directory) decoded(index int) ([]byte, error) {
	if index == d.cacheIndex {
		return d.cache, nil
	}
	if index == d.pendingStrip {
		return d.pending, nil
	}
	raw, err := d.rawChunk(index)
	if err != nil {
		return nil, err
	}
	buf, err := d.decompress(raw, d.chunkSize(index))
	if err != nil {
		return nil, err
	}
	d.cacheIndex, d.cache = index, buf
	return buf, nil
}

func (d *directory) writeChunk(index int, buf []byte) error {
	if d.chunks == nil {
		n := d.numberOfChunks()
		if n == 0 {
			return FormatError("image has no strip or tile, check its dimensions")
		}
		d.chunks = make([][]byte, n)
	}
	if index < 0 || index >= len(d.chunks) {
		return InternalError(fmt.Sprintf("chunk %d out of range", index))
	}

	size := d.chunkSize(index)
	data := make([]byte, size)
	copy(data, buf)
	raw, err := d.compress(data)
	if err != nil {
		return err
	}
	d.chunks[index] = raw
	if index == d.cacheIndex {
		d.rewind()
	}
	return nil
}

// flush encodes the strip assembled by scanline writes.
func (d *directory) flush() error {
	if d.pendingStrip < 0 {
		return nil
	}
	strip, data := d.pendingStrip, d.pending
	d.pendingStrip, d.pending = -1, nil
	return errors.Wrapf(d.writeChunk(strip, data), "strip %d", strip)
}
