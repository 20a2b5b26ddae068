// Package tiffcp copies TIFF images between directories while converting their
// storage layout: strips or tiles, contiguous or separate planes, compression.
//
// Resources:
// https://www.awaresystems.be/imaging/tiff.html
// https://libtiff.gitlab.io/libtiff/tools/tiffcp.html
package tiffcp

import (
	"io"
	"log"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/mdouchement/tiffcp/tiff"
	"github.com/pkg/errors"
)

// A Directory is the current image directory of an open TIFF file.
// *tiff.File implements it.
type Directory interface {
	FileName() string
	CurrentDirectory() int
	SetDirectory(n int) error

	Field(tag uint32) (tiff.Field, bool)
	FieldDefaulted(tag uint32) (tiff.Field, bool)
	SetField(f tiff.Field) error

	IsTiled() bool
	ScanlineSize() int
	RasterScanlineSize() int
	TileRowSize() int
	TileSize() int
	StripSize() int
	VStripSize(nrows uint32) int
	NumberOfStrips() int
	DefaultStripSize(request uint32) uint32
	DefaultTileSize(tw, tl uint32) (uint32, uint32)

	ReadScanline(buf []byte, row uint32, sample uint16) error
	ReadEncodedStrip(strip int, buf []byte) (int, error)
	ReadTile(buf []byte, x, y uint32, sample uint16) (int, error)
	WriteScanline(buf []byte, row uint32, sample uint16) error
	WriteEncodedStrip(strip int, buf []byte) error
	WriteTile(buf []byte, x, y uint32, sample uint16) error
}

// A Copier copies image directories with a fixed configuration.
// It numbers the pages it copies, so one Copier is used per output file.
type Copier struct {
	cfg     Config
	pageNum int
}

// New returns a Copier using cfg.
func New(cfg Config) *Copier {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	c := &Copier{cfg: cfg}
	if cfg.SingleInput {
		c.pageNum = -1
	}
	return c
}

// copier holds the state of the copy of one directory.
type copier struct {
	Config

	// Output layout resolved from the configuration and the source image.
	outConfig    uint16
	rowsPerStrip uint32
	tileWidth    uint32
	tileLength   uint32
}

// CopyDirectory copies the fields and the pixels of the current directory of
// in to the current directory of out.
func (c *Copier) CopyDirectory(in, out Directory) error {
	cp := &copier{Config: c.cfg}
	if err := cp.copyDirectory(in, out, &c.pageNum); err != nil {
		return errors.Wrapf(err, "%s,%d", in.FileName(), in.CurrentDirectory())
	}
	return nil
}

func (c *copier) copyDirectory(in, out Directory, pageNum *int) error {
	var (
		bitsPerSample   uint16 = 1
		samplesPerPixel uint16 = 1
		width, length   uint32
		warnings        *multierror.Error
	)

	if f, ok := in.Field(tiff.TagImageWidth); ok {
		width = f.Long(0)
		if err := out.SetField(tiff.NewLong(tiff.TagImageWidth, width)); err != nil {
			return err
		}
	}
	if f, ok := in.Field(tiff.TagImageLength); ok {
		length = f.Long(0)
		if err := out.SetField(tiff.NewLong(tiff.TagImageLength, length)); err != nil {
			return err
		}
	}
	if f, ok := in.Field(tiff.TagBitsPerSample); ok {
		bitsPerSample = f.Short(0)
		if err := out.SetField(tiff.NewShort(tiff.TagBitsPerSample, f.Shorts()...)); err != nil {
			return err
		}
	}
	if f, ok := in.Field(tiff.TagSamplesPerPixel); ok {
		samplesPerPixel = f.Short(0)
		if err := out.SetField(tiff.NewShort(tiff.TagSamplesPerPixel, samplesPerPixel)); err != nil {
			return err
		}
	}

	compression := c.Compression
	if compression != 0 {
		if err := out.SetField(tiff.NewShort(tiff.TagCompression, compression)); err != nil {
			return err
		}
	} else if f, ok := in.Field(tiff.TagCompression); ok {
		compression = f.Short(0)
		if err := out.SetField(tiff.NewShort(tiff.TagCompression, compression)); err != nil {
			return err
		}
	}

	inputCompression := defaultedShort(in, tiff.TagCompression, tiff.CompressionNone)
	inputPhotometric := defaultedShort(in, tiff.TagPhotometric, tiff.PhotometricMinIsBlack)
	if inputCompression == tiff.CompressionJPEG {
		// Force conversion to RGB.
		if err := in.SetField(tiff.NewShort(tiff.TagJPEGColorMode, tiff.JPEGColorModeRGB)); err != nil {
			return err
		}
	} else if inputPhotometric == tiff.PhotometricYCbCr {
		// Otherwise, can't handle subsampled input.
		f, _ := in.FieldDefaulted(tiff.TagYCbCrSubsampling)
		if f.Short(0) != 1 || f.Short(1) != 1 {
			return GeometryError("can't copy/convert subsampled YCbCr image")
		}
	}

	var photometric tiff.Field
	switch {
	case compression == tiff.CompressionJPEG:
		p := inputPhotometric
		if p == tiff.PhotometricRGB && c.JPEGColorMode == tiff.JPEGColorModeRGB {
			p = tiff.PhotometricYCbCr
		}
		photometric = tiff.NewShort(tiff.TagPhotometric, p)
	case compression == tiff.CompressionSGILog || compression == tiff.CompressionSGILog24:
		p := tiff.PhotometricLogLuv
		if samplesPerPixel == 1 {
			p = tiff.PhotometricLogL
		}
		photometric = tiff.NewShort(tiff.TagPhotometric, p)
	case inputCompression == tiff.CompressionJPEG && samplesPerPixel == 3:
		// RGB conversion was forced above hence the output will be of the same type.
		photometric = tiff.NewShort(tiff.TagPhotometric, tiff.PhotometricRGB)
	default:
		warnings = multierror.Append(warnings, cpTag(in, out, tiff.TagPhotometric, 1, tiff.TypeShort))
	}
	if photometric.Count() != 0 {
		if err := out.SetField(photometric); err != nil {
			return err
		}
	}

	if c.FillOrder != 0 {
		if err := out.SetField(tiff.NewShort(tiff.TagFillOrder, c.FillOrder)); err != nil {
			return err
		}
	} else {
		warnings = multierror.Append(warnings, cpTag(in, out, tiff.TagFillOrder, 1, tiff.TypeShort))
	}

	orientation := c.orientation(in)
	if err := out.SetField(tiff.NewShort(tiff.TagOrientation, orientation)); err != nil {
		return err
	}

	if err := c.setupLayout(in, out, length); err != nil {
		return err
	}

	if c.PlanarConfig != 0 {
		c.outConfig = c.PlanarConfig
		if err := out.SetField(tiff.NewShort(tiff.TagPlanarConfig, c.outConfig)); err != nil {
			return err
		}
	} else {
		c.outConfig = defaultedShort(in, tiff.TagPlanarConfig, tiff.PlanarConfigContig)
		if _, ok := in.Field(tiff.TagPlanarConfig); ok {
			if err := out.SetField(tiff.NewShort(tiff.TagPlanarConfig, c.outConfig)); err != nil {
				return err
			}
		}
	}

	if samplesPerPixel <= 4 {
		warnings = multierror.Append(warnings, cpTag(in, out, tiff.TagTransferFunction, 4, tiff.TypeShort))
	}
	warnings = multierror.Append(warnings, cpTag(in, out, tiff.TagColorMap, 4, tiff.TypeShort))

	if err := c.setupCodec(in, out, compression, &warnings); err != nil {
		return err
	}

	if f, ok := in.Field(tiff.TagICCProfile); ok {
		warnings = multierror.Append(warnings, out.SetField(f))
	}
	warnings = multierror.Append(warnings, copyInks(in, out))
	warnings = multierror.Append(warnings, c.pageNumber(in, out, pageNum))
	warnings = multierror.Append(warnings, propagateTags(in, out))

	if err := warnings.ErrorOrNil(); err != nil {
		for _, w := range warnings.Errors {
			c.Logger.Printf("%s: warning: %v", in.FileName(), w)
		}
	}

	cf, err := c.pickCopyFunc(in, out, bitsPerSample, samplesPerPixel)
	if err != nil {
		return err
	}
	return cf(c, in, out, length, width, samplesPerPixel)
}

func defaultedShort(d Directory, tag uint32, def uint16) uint16 {
	if f, ok := d.FieldDefaulted(tag); ok && f.Count() > 0 {
		return f.Short(0)
	}
	return def
}

// orientation normalizes the source orientation to top-left or bottom-left.
func (c *copier) orientation(in Directory) uint16 {
	orientation := defaultedShort(in, tiff.TagOrientation, tiff.OrientationTopLeft)
	switch orientation {
	case tiff.OrientationBotRight, tiff.OrientationRightBot:
		c.Logger.Printf("%s: warning: using bottom-left orientation", in.FileName())
		return tiff.OrientationBotLeft
	case tiff.OrientationLeftBot, tiff.OrientationBotLeft:
		return orientation
	case tiff.OrientationLeftTop, tiff.OrientationTopLeft:
		return orientation
	default:
		c.Logger.Printf("%s: warning: using top-left orientation", in.FileName())
		return tiff.OrientationTopLeft
	}
}

// setupLayout chooses tiles or strips for the output image according to the
// configuration and the structure of the input image.
func (c *copier) setupLayout(in, out Directory, length uint32) error {
	outTiled := in.IsTiled()
	switch c.Tiling {
	case TilingStrips:
		outTiled = false
	case TilingTiles:
		outTiled = true
	}

	if outTiled {
		// Use either the configured size, the value from the input image
		// or the library default.
		tw, tl := c.TileWidth, c.TileLength
		if f, ok := in.Field(tiff.TagTileWidth); ok && tw == 0 {
			tw = f.Long(0)
		}
		if f, ok := in.Field(tiff.TagTileLength); ok && tl == 0 {
			tl = f.Long(0)
		}
		c.tileWidth, c.tileLength = out.DefaultTileSize(tw, tl)
		if err := out.SetField(tiff.NewLong(tiff.TagTileWidth, c.tileWidth)); err != nil {
			return err
		}
		return out.SetField(tiff.NewLong(tiff.TagTileLength, c.tileLength))
	}

	rps := c.RowsPerStrip
	switch rps {
	case 0:
		if f, ok := in.Field(tiff.TagRowsPerStrip); ok && f.Long(0) != 0 {
			rps = f.Long(0)
		} else {
			rps = out.DefaultStripSize(0)
		}
		if rps > length && rps != WholeImage {
			rps = length
		}
	case WholeImage:
		rps = length
	}
	if rps == 0 {
		rps = out.DefaultStripSize(0)
	}
	c.rowsPerStrip = rps
	return out.SetField(tiff.NewLong(tiff.TagRowsPerStrip, rps))
}

// setupCodec forwards the codec parameters of the output compression.
func (c *copier) setupCodec(in, out Directory, compression uint16, warnings **multierror.Error) error {
	switch compression {
	case tiff.CompressionJPEG:
		if err := out.SetField(tiff.NewShort(tiff.TagJPEGQuality, uint16(c.Quality))); err != nil {
			return err
		}
		return out.SetField(tiff.NewShort(tiff.TagJPEGColorMode, uint16(c.JPEGColorMode)))
	case tiff.CompressionJBIG:
		*warnings = multierror.Append(*warnings,
			cpTag(in, out, tiff.TagFaxRecvParams, 1, tiff.TypeLong),
			cpTag(in, out, tiff.TagFaxRecvTime, 1, tiff.TypeLong),
			cpTag(in, out, tiff.TagFaxSubAddress, 1, tiff.TypeASCII),
			cpTag(in, out, tiff.TagFaxDCS, 1, tiff.TypeASCII),
		)
	case tiff.CompressionLERC:
		if c.MaxZError > 0 {
			if err := out.SetField(tiff.NewDouble(tiff.TagLercMaxZError, c.MaxZError)); err != nil {
				return err
			}
		}
		if c.SubCodec != Unset {
			if err := out.SetField(tiff.NewShort(tiff.TagLercAddCompression, uint16(c.SubCodec))); err != nil {
				return err
			}
		}
		if c.Preset != Unset {
			switch c.SubCodec {
			case tiff.LercAddCompressionDeflate:
				return out.SetField(tiff.NewShort(tiff.TagZipQuality, uint16(c.Preset)))
			case tiff.LercAddCompressionZstd:
				return out.SetField(tiff.NewShort(tiff.TagZstdLevel, uint16(c.Preset)))
			}
		}
	case tiff.CompressionLZW, tiff.CompressionAdobeDeflate, tiff.CompressionDeflate,
		tiff.CompressionLZMA, tiff.CompressionZSTD, tiff.CompressionWEBP:
		if compression != tiff.CompressionWEBP {
			if c.Predictor != 0 {
				if err := out.SetField(tiff.NewShort(tiff.TagPredictor, c.Predictor)); err != nil {
					return err
				}
			} else if f, ok := in.Field(tiff.TagPredictor); ok {
				if err := out.SetField(f); err != nil {
					return err
				}
			}
		}
		deflate := compression == tiff.CompressionAdobeDeflate || compression == tiff.CompressionDeflate
		if deflate && c.SubCodec != Unset {
			if err := out.SetField(tiff.NewShort(tiff.TagDeflateSubCodec, uint16(c.SubCodec))); err != nil {
				return err
			}
		}
		if c.Preset == Unset {
			return nil
		}
		switch {
		case deflate:
			return out.SetField(tiff.NewShort(tiff.TagZipQuality, uint16(c.Preset)))
		case compression == tiff.CompressionLZMA:
			return out.SetField(tiff.NewShort(tiff.TagLZMAPreset, uint16(c.Preset)))
		case compression == tiff.CompressionZSTD:
			return out.SetField(tiff.NewShort(tiff.TagZstdLevel, uint16(c.Preset)))
		case compression == tiff.CompressionWEBP && c.Preset == 100:
			return out.SetField(tiff.NewShort(tiff.TagWebpLossless, 1))
		case compression == tiff.CompressionWEBP:
			return out.SetField(tiff.NewShort(tiff.TagWebpLevel, uint16(c.Preset)))
		}
	case tiff.CompressionCCITTFax3, tiff.CompressionCCITTFax4:
		if compression == tiff.CompressionCCITTFax3 {
			if c.Group3Options != Unset {
				if err := out.SetField(tiff.NewLong(tiff.TagGroup3Options, uint32(c.Group3Options))); err != nil {
					return err
				}
			} else {
				*warnings = multierror.Append(*warnings, cpTag(in, out, tiff.TagGroup3Options, 1, tiff.TypeLong))
			}
		} else {
			*warnings = multierror.Append(*warnings, cpTag(in, out, tiff.TagGroup4Options, 1, tiff.TypeLong))
		}
		*warnings = multierror.Append(*warnings,
			cpTag(in, out, tiff.TagBadFaxLines, 1, tiff.TypeLong),
			cpTag(in, out, tiff.TagCleanFaxData, 1, tiff.TypeShort),
			cpTag(in, out, tiff.TagConsecutiveBadFaxLines, 1, tiff.TypeLong),
			cpTag(in, out, tiff.TagFaxRecvParams, 1, tiff.TypeLong),
			cpTag(in, out, tiff.TagFaxRecvTime, 1, tiff.TypeLong),
			cpTag(in, out, tiff.TagFaxSubAddress, 1, tiff.TypeASCII),
		)
	}
	return nil
}

// copyInks copies the number of inks and as many ink names.
func copyInks(in, out Directory) error {
	ninks, ok := in.Field(tiff.TagNumberOfInks)
	if !ok {
		return nil
	}
	if err := out.SetField(tiff.NewShort(tiff.TagNumberOfInks, ninks.Short(0))); err != nil {
		return err
	}
	names, ok := in.Field(tiff.TagInkNames)
	if !ok {
		return nil
	}
	inks := names.Strings()
	if n := int(ninks.Short(0)); len(inks) > n {
		inks = inks[:n]
	}
	return out.SetField(tiff.NewASCII(tiff.TagInkNames, strings.Join(inks, "\x00")))
}

// pageNumber numbers the output page. A negative *pageNum means there is only
// one input file whose page numbers are kept.
func (c *copier) pageNumber(in, out Directory, pageNum *int) error {
	f, ok := in.Field(tiff.TagPageNumber)
	if !c.PageInSequence && !ok {
		return nil
	}
	if *pageNum < 0 {
		if !ok {
			return nil
		}
		return out.SetField(tiff.NewShort(tiff.TagPageNumber, f.Short(0), f.Short(1)))
	}
	n := *pageNum
	*pageNum++
	return out.SetField(tiff.NewShort(tiff.TagPageNumber, uint16(n), 0))
}
