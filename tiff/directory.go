package tiff

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/pkg/errors"
)

// A directory holds the fields and the encoded strips or tiles of one image.
type directory struct {
	order  binary.ByteOrder
	fields map[uint32]Field

	// Encoded chunks written through this package, indexed by strip or tile.
	chunks [][]byte
	// Source of the chunks of a decoded file.
	r       io.ReaderAt
	offsets []uint
	counts  []uint

	// Last decoded chunk, used by scanline reads.
	cacheIndex int
	cache      []byte

	// Strip being assembled by scanline writes.
	pendingStrip int
	pending      []byte
}

func newDirectory(order binary.ByteOrder) *directory {
	return &directory{
		order:        order,
		fields:       make(map[uint32]Field),
		cacheIndex:   -1,
		pendingStrip: -1,
	}
}

// rewind drops the decoded-chunk cache.
func (d *directory) rewind() {
	d.cacheIndex = -1
	d.cache = nil
}

func (d *directory) written() bool {
	return d.chunks != nil
}

// defaults are the values libtiff reports for absent fields.
var defaults = map[uint32]Field{
	TagSubfileType:        NewLong(TagSubfileType, 0),
	TagBitsPerSample:      NewShort(TagBitsPerSample, 1),
	TagCompression:        NewShort(TagCompression, CompressionNone),
	TagThreshholding:      NewShort(TagThreshholding, 1),
	TagFillOrder:          NewShort(TagFillOrder, FillOrderMSB2LSB),
	TagOrientation:        NewShort(TagOrientation, OrientationTopLeft),
	TagSamplesPerPixel:    NewShort(TagSamplesPerPixel, 1),
	TagRowsPerStrip:       NewLong(TagRowsPerStrip, RowsPerStripUnbounded),
	TagPlanarConfig:       NewShort(TagPlanarConfig, PlanarConfigContig),
	TagResolutionUnit:     NewShort(TagResolutionUnit, resPerInch),
	TagPredictor:          NewShort(TagPredictor, PredictorNone),
	TagInkSet:             NewShort(TagInkSet, 1),
	TagSampleFormat:       NewShort(TagSampleFormat, 1),
	TagYCbCrSubsampling:   NewShort(TagYCbCrSubsampling, 2, 2),
	TagYCbCrPositioning:   NewShort(TagYCbCrPositioning, 1),
	TagExtraSamples:       NewShort(TagExtraSamples),
	TagJPEGQuality:        NewShort(TagJPEGQuality, 75),
	TagJPEGColorMode:      NewShort(TagJPEGColorMode, JPEGColorModeRaw),
	TagZipQuality:         NewShort(TagZipQuality, 6),
	TagZstdLevel:          NewShort(TagZstdLevel, 9),
	TagDeflateSubCodec:    NewShort(TagDeflateSubCodec, 0),
	TagLercMaxZError:      NewDouble(TagLercMaxZError, 0),
	TagLercAddCompression: NewShort(TagLercAddCompression, LercAddCompressionNone),
}

func (d *directory) field(tag uint32) (Field, bool) {
	f, ok := d.fields[tag]
	return f, ok
}

func (d *directory) fieldDefaulted(tag uint32) (Field, bool) {
	if f, ok := d.fields[tag]; ok {
		return f, true
	}
	f, ok := defaults[tag]
	return f, ok
}

func (d *directory) uintDefaulted(tag uint32) uint {
	f, _ := d.fieldDefaulted(tag)
	return f.FirstVal()
}

// A pseudoTag describes a codec option: the compressions accepting it and its valid range.
type pseudoTag struct {
	compressions []uint16
	min, max     float64
}

var pseudoTags = map[uint32]pseudoTag{
	TagJPEGQuality:        {[]uint16{CompressionJPEG}, 1, 100},
	TagJPEGColorMode:      {[]uint16{CompressionJPEG}, JPEGColorModeRaw, JPEGColorModeRGB},
	TagZipQuality:         {[]uint16{CompressionAdobeDeflate, CompressionDeflate, CompressionLERC}, -1, 12},
	TagLZMAPreset:         {[]uint16{CompressionLZMA}, 0, 9},
	TagZstdLevel:          {[]uint16{CompressionZSTD, CompressionLERC}, 1, 22},
	TagLercAddCompression: {[]uint16{CompressionLERC}, LercAddCompressionNone, LercAddCompressionZstd},
	TagLercMaxZError:      {[]uint16{CompressionLERC}, 0, math.MaxFloat64},
	TagWebpLevel:          {[]uint16{CompressionWEBP}, 1, 100},
	TagWebpLossless:       {[]uint16{CompressionWEBP}, 0, 1},
	TagDeflateSubCodec:    {[]uint16{CompressionAdobeDeflate, CompressionDeflate}, 0, 1},
}

// layoutTags cannot change once image data has been written.
var layoutTags = map[uint32]bool{
	TagImageWidth:      true,
	TagImageLength:     true,
	TagBitsPerSample:   true,
	TagSamplesPerPixel: true,
	TagCompression:     true,
	TagPlanarConfig:    true,
	TagRowsPerStrip:    true,
	TagTileWidth:       true,
	TagTileLength:      true,
	TagPredictor:       true,
}

func (d *directory) setField(f Field) error {
	if f.Type.Size() == 0 {
		return UnsupportedError(fmt.Sprintf("data type %d for tag %s", f.Type, tagname(f.Tag)))
	}
	if d.written() && layoutTags[f.Tag] {
		return FormatError(fmt.Sprintf("cannot modify %s after image data has been written", tagname(f.Tag)))
	}
	if pt, ok := pseudoTags[f.Tag]; ok {
		c := uint16(d.uintDefaulted(TagCompression))
		supported := false
		for _, s := range pt.compressions {
			supported = supported || s == c
		}
		if !supported {
			return UnsupportedError(fmt.Sprintf("%s with compression %s", tagname(f.Tag), CompressionName(c)))
		}
		if v := f.AsFloat(0); f.Count() != 1 || v < pt.min || v > pt.max {
			return FormatError(fmt.Sprintf("%s value %v out of range [%v, %v]", tagname(f.Tag), v, pt.min, pt.max))
		}
	} else if f.Tag > math.MaxUint16 {
		return UnsupportedError(fmt.Sprintf("unknown pseudo-tag %d", f.Tag))
	}

	switch f.Tag {
	case TagStripOffsets, TagStripByteCounts, TagTileOffsets, TagTileByteCounts:
		return FormatError(fmt.Sprintf("%s is computed by the writer", tagname(f.Tag)))
	case TagPlanarConfig:
		if v := uint16(f.FirstVal()); v != PlanarConfigContig && v != PlanarConfigSeparate {
			return FormatError(fmt.Sprintf("invalid PlanarConfiguration %d", v))
		}
	case TagPredictor:
		if v := uint16(f.FirstVal()); v < PredictorNone || v > PredictorFloatingPoint {
			return FormatError(fmt.Sprintf("invalid Predictor %d", v))
		}
	case TagFillOrder:
		if v := uint16(f.FirstVal()); v != FillOrderMSB2LSB && v != FillOrderLSB2MSB {
			return FormatError(fmt.Sprintf("invalid FillOrder %d", v))
		}
	case TagOrientation:
		if v := uint16(f.FirstVal()); v < OrientationTopLeft || v > OrientationLeftBot {
			return FormatError(fmt.Sprintf("invalid Orientation %d", v))
		}
	case TagTileWidth, TagTileLength:
		if v := f.FirstVal(); v == 0 || v%16 != 0 {
			return FormatError(fmt.Sprintf("%s %d is not a positive multiple of 16", tagname(f.Tag), v))
		}
	case TagRowsPerStrip, TagCompression, TagSamplesPerPixel:
		if f.FirstVal() == 0 {
			return FormatError(fmt.Sprintf("invalid %s 0", tagname(f.Tag)))
		}
	}

	d.fields[f.Tag] = f.Clone()
	return nil
}

// tags returns the sorted tag ids of the directory.
func (d *directory) tags() []uint32 {
	tags := make([]uint32, 0, len(d.fields))
	for t := range d.fields {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

//------------------------//
// Geometry               //
//------------------------//

func (d *directory) width() uint32 { return uint32(d.uintDefaulted(TagImageWidth)) }
func (d *directory) length() uint32 { return uint32(d.uintDefaulted(TagImageLength)) }
func (d *directory) bitsPerSample() uint16 { return uint16(d.uintDefaulted(TagBitsPerSample)) }
func (d *directory) samplesPerPixel() uint16 {
	return uint16(d.uintDefaulted(TagSamplesPerPixel))
}
func (d *directory) planarConfig() uint16 { return uint16(d.uintDefaulted(TagPlanarConfig)) }
func (d *directory) compression() uint16 { return uint16(d.uintDefaulted(TagCompression)) }

func (d *directory) rowsPerStrip() uint32 {
	rps := uint32(d.uintDefaulted(TagRowsPerStrip))
	if rps == 0 {
		rps = RowsPerStripUnbounded
	}
	return rps
}

func (d *directory) isTiled() bool {
	_, ok := d.fields[TagTileWidth]
	return ok
}

// checkTiling rejects a directory carrying only one of the tile dimensions,
// or a null one.
func (d *directory) checkTiling() error {
	_, hasWidth := d.fields[TagTileWidth]
	_, hasLength := d.fields[TagTileLength]
	if !hasWidth && !hasLength {
		return nil
	}
	if !hasWidth || !hasLength || d.tileWidth() == 0 || d.tileLength() == 0 {
		return FormatError("tiled image without both TileWidth and TileLength")
	}
	return nil
}

func (d *directory) separate() bool {
	return d.planarConfig() == PlanarConfigSeparate && d.samplesPerPixel() > 1
}

// samplesPerChunk is the number of interleaved samples of one strip or tile row.
func (d *directory) samplesPerChunk() uint64 {
	if d.planarConfig() == PlanarConfigSeparate {
		return 1
	}
	return uint64(d.samplesPerPixel())
}

func (d *directory) scanlineSize() int {
	return bytesFor(uint64(d.width())*d.samplesPerChunk(), uint64(d.bitsPerSample()))
}

func (d *directory) rasterScanlineSize() int {
	return bytesFor(uint64(d.width())*uint64(d.samplesPerPixel()), uint64(d.bitsPerSample()))
}

func (d *directory) tileWidth() uint32 { return uint32(d.uintDefaulted(TagTileWidth)) }
func (d *directory) tileLength() uint32 { return uint32(d.uintDefaulted(TagTileLength)) }

func (d *directory) tileRowSize() int {
	if !d.isTiled() {
		return 0
	}
	return bytesFor(uint64(d.tileWidth())*d.samplesPerChunk(), uint64(d.bitsPerSample()))
}

func (d *directory) tileSize() int {
	return multiply(uint64(d.tileRowSize()), uint64(d.tileLength()))
}

func (d *directory) vStripSize(nrows uint32) int {
	return multiply(uint64(nrows), uint64(d.scanlineSize()))
}

func (d *directory) stripSize() int {
	rps := d.rowsPerStrip()
	if l := d.length(); rps > l {
		rps = l
	}
	return d.vStripSize(rps)
}

func (d *directory) stripsPerPlane() uint32 {
	return howMany(d.length(), d.rowsPerStrip())
}

func (d *directory) planes() uint32 {
	if d.planarConfig() == PlanarConfigSeparate {
		return uint32(d.samplesPerPixel())
	}
	return 1
}

func (d *directory) numberOfStrips() int {
	return int(d.stripsPerPlane()) * int(d.planes())
}

func (d *directory) tilesAcross() uint32 { return howMany(d.width(), d.tileWidth()) }
func (d *directory) tilesDown() uint32 { return howMany(d.length(), d.tileLength()) }

func (d *directory) numberOfTiles() int {
	return int(d.tilesAcross()) * int(d.tilesDown()) * int(d.planes())
}

func (d *directory) numberOfChunks() int {
	if d.isTiled() {
		return d.numberOfTiles()
	}
	return d.numberOfStrips()
}

func (d *directory) computeTile(x, y uint32, sample uint16) int {
	across, down := d.tilesAcross(), d.tilesDown()
	tile := int(y/d.tileLength())*int(across) + int(x/d.tileWidth())
	if d.planarConfig() == PlanarConfigSeparate {
		tile += int(sample) * int(across) * int(down)
	}
	return tile
}

func (d *directory) checkTile(x, y uint32, sample uint16) error {
	if err := d.checkTiling(); err != nil {
		return err
	}
	if x >= d.width() || y >= d.length() {
		return errors.Errorf("tile coordinates (%d, %d) out of range", x, y)
	}
	if d.planarConfig() == PlanarConfigSeparate && sample >= d.samplesPerPixel() {
		return errors.Errorf("sample %d out of range", sample)
	}
	return nil
}

// chunkSize returns the decoded size of the strip or tile at index.
func (d *directory) chunkSize(index int) int {
	if d.isTiled() {
		return d.tileSize()
	}
	strip := uint32(index) % d.stripsPerPlane()
	rps := d.rowsPerStrip()
	row := uint64(strip) * uint64(rps)
	nrows := uint64(d.length()) - row
	if nrows > uint64(rps) {
		nrows = uint64(rps)
	}
	return d.vStripSize(uint32(nrows))
}

func (d *directory) defaultStripSize(request uint32) uint32 {
	if request < 1 {
		scanline := d.scanlineSize()
		if scanline == 0 {
			return 1
		}
		request = uint32(stripSizeDefault / scanline)
		if request == 0 {
			request = 1
		}
	}
	return request
}

func defaultTileSize(tw, tl uint32) (uint32, uint32) {
	if tw < 1 {
		tw = tileSizeDefault
	}
	if tl < 1 {
		tl = tileSizeDefault
	}
	if tw&0xf != 0 {
		tw = (tw + 15) &^ 0xf
	}
	if tl&0xf != 0 {
		tl = (tl + 15) &^ 0xf
	}
	return tw, tl
}
