package tiff

import (
	"fmt"
	"math/big"
	"math/bits"
)

// A FormatError reports that the input is not a valid TIFF image.
type FormatError string

func (e FormatError) Error() string {
	return fmt.Sprintf("tiff: invalid format: %s", string(e))
}

// An UnsupportedError reports that the input uses a valid but
// unimplemented feature.
type UnsupportedError string

func (e UnsupportedError) Error() string {
	return fmt.Sprintf("tiff: unsupported feature: %s", string(e))
}

// An InternalError reports that an internal error was encountered.
type InternalError string

func (e InternalError) Error() string {
	return fmt.Sprintf("tiff: internal error: %s", string(e))
}

// minInt returns the smaller of x or y.
func minInt(a, b int) int {
	if a <= b {
		return a
	}
	return b
}

// multiply returns a*b, or 0 when the product does not fit in an int.
func multiply(a, b uint64) int {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 || lo > uint64(maxInt) {
		return 0
	}
	return int(lo)
}

const maxInt = int(^uint(0) >> 1)

// howMany returns the number of blocks of size n needed to hold x.
func howMany(x, n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return uint32((uint64(x) + uint64(n) - 1) / uint64(n))
}

// bytesFor returns the number of bytes holding n samples of b bits.
func bytesFor(n, b uint64) int {
	nbits := multiply(n, b)
	if nbits == 0 {
		return 0
	}
	return (nbits + 7) / 8
}

var tagnames = map[uint32]string{
	TagSubfileType:            "SubfileType",
	TagImageWidth:             "ImageWidth",
	TagImageLength:            "ImageLength",
	TagBitsPerSample:          "BitsPerSample",
	TagCompression:            "Compression",
	TagPhotometric:            "PhotometricInterpretation",
	TagThreshholding:          "Threshholding",
	TagFillOrder:              "FillOrder",
	TagDocumentName:           "DocumentName",
	TagImageDescription:       "ImageDescription",
	TagMake:                   "Make",
	TagModel:                  "Model",
	TagStripOffsets:           "StripOffsets",
	TagOrientation:            "Orientation",
	TagSamplesPerPixel:        "SamplesPerPixel",
	TagRowsPerStrip:           "RowsPerStrip",
	TagStripByteCounts:        "StripByteCounts",
	TagMinSampleValue:         "MinSampleValue",
	TagMaxSampleValue:         "MaxSampleValue",
	TagXResolution:            "XResolution",
	TagYResolution:            "YResolution",
	TagPlanarConfig:           "PlanarConfiguration",
	TagPageName:               "PageName",
	TagXPosition:              "XPosition",
	TagYPosition:              "YPosition",
	TagGroup3Options:          "Group3Options",
	TagGroup4Options:          "Group4Options",
	TagResolutionUnit:         "ResolutionUnit",
	TagPageNumber:             "PageNumber",
	TagTransferFunction:       "TransferFunction",
	TagSoftware:               "Software",
	TagDateTime:               "DateTime",
	TagArtist:                 "Artist",
	TagHostComputer:           "HostComputer",
	TagPredictor:              "Predictor",
	TagWhitePoint:             "WhitePoint",
	TagPrimaryChromaticities:  "PrimaryChromaticities",
	TagColorMap:               "ColorMap",
	TagHalftoneHints:          "HalftoneHints",
	TagTileWidth:              "TileWidth",
	TagTileLength:             "TileLength",
	TagTileOffsets:            "TileOffsets",
	TagTileByteCounts:         "TileByteCounts",
	TagBadFaxLines:            "BadFaxLines",
	TagCleanFaxData:           "CleanFaxData",
	TagConsecutiveBadFaxLines: "ConsecutiveBadFaxLines",
	TagInkSet:                 "InkSet",
	TagInkNames:               "InkNames",
	TagNumberOfInks:           "NumberOfInks",
	TagDotRange:               "DotRange",
	TagTargetPrinter:          "TargetPrinter",
	TagExtraSamples:           "ExtraSamples",
	TagSampleFormat:           "SampleFormat",
	TagSMinSampleValue:        "SMinSampleValue",
	TagSMaxSampleValue:        "SMaxSampleValue",
	TagYCbCrCoefficients:      "YCbCrCoefficients",
	TagYCbCrSubsampling:       "YCbCrSubsampling",
	TagYCbCrPositioning:       "YCbCrPositioning",
	TagReferenceBlackWhite:    "ReferenceBlackWhite",
	TagICCProfile:             "ICCProfile",
	TagFaxRecvParams:          "FaxRecvParams",
	TagFaxSubAddress:          "FaxSubAddress",
	TagFaxRecvTime:            "FaxRecvTime",
	TagFaxDCS:                 "FaxDCS",
	TagStoNits:                "StoNits",
	TagJPEGQuality:            "JPEGQuality",
	TagJPEGColorMode:          "JPEGColorMode",
	TagZipQuality:             "ZipQuality",
	TagLZMAPreset:             "LZMAPreset",
	TagZstdLevel:              "ZstdLevel",
	TagLercAddCompression:     "LercAdditionalCompression",
	TagLercMaxZError:          "LercMaxZError",
	TagWebpLevel:              "WebpLevel",
	TagWebpLossless:           "WebpLossless",
	TagDeflateSubCodec:        "DeflateSubCodec",
}

func tagname(t uint32) string {
	if name, ok := tagnames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", t)
}

// CompressionName returns the common name of a compression scheme.
func CompressionName(c uint16) string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionCCITT:
		return "CCITT"
	case CompressionCCITTFax3:
		return "Group 3 Fax"
	case CompressionCCITTFax4:
		return "Group 4 Fax"
	case CompressionLZW:
		return "LZW"
	case CompressionOJPEG:
		return "Old JPEG"
	case CompressionJPEG:
		return "JPEG"
	case CompressionAdobeDeflate:
		return "Deflate (zlib compression)"
	case CompressionPackBits:
		return "PackBits"
	case CompressionDeflate:
		return "Old Deflate"
	case CompressionJBIG:
		return "JBIG"
	case CompressionSGILog:
		return "SGI Log Luminance RLE"
	case CompressionSGILog24:
		return "SGI Log 24-bits packed"
	case CompressionLERC:
		return "LERC"
	case CompressionLZMA:
		return "LZMA2"
	case CompressionZSTD:
		return "ZSTD"
	case CompressionWEBP:
		return "WEBP"
	default:
		return fmt.Sprintf("%d", c)
	}
}

func valuename(f Field) string {
	var v interface{}
	switch f.Tag {
	case TagPhotometric:
		switch uint16(f.FirstVal()) {
		case PhotometricMinIsWhite:
			v = "WhiteIsZero"
		case PhotometricMinIsBlack:
			v = "BlackIsZero"
		case PhotometricRGB:
			v = "RGB"
		case PhotometricPalette:
			v = "Paletted"
		case PhotometricMask:
			v = "TransMask"
		case PhotometricSeparated:
			v = "CMYK"
		case PhotometricYCbCr:
			v = "YCbCr"
		case PhotometricCIELab:
			v = "CIE-Lab"
		case PhotometricLogL:
			v = "LogL (GrayScale)"
		case PhotometricLogLuv:
			v = "SGI LogLuv (Color)"
		default:
			v = f.FirstVal()
		}
	case TagCompression:
		v = CompressionName(uint16(f.FirstVal()))
	case TagStripOffsets, TagTileOffsets:
		v = fmt.Sprintf("contains %d offset entries", len(f.Val))
	case TagStripByteCounts, TagTileByteCounts:
		v = fmt.Sprintf("contains %d byte-count entries", len(f.Val))
	case TagPlanarConfig:
		switch uint16(f.FirstVal()) {
		case PlanarConfigContig:
			v = "Contiguous (aka RGBRGBRGBRGB)"
		case PlanarConfigSeparate:
			v = "Separate (aka RRRRGGGGBBBB)"
		default:
			v = f.FirstVal()
		}
	case TagICCProfile:
		v = fmt.Sprintf("<%d bytes>", len(f.Val))
	default:
		v = formatDatatype(f)
	}
	return fmt.Sprintf("%v", v)
}

func formatDatatype(f Field) interface{} {
	switch f.Type {
	case TypeASCII:
		return f.Strings()
	case TypeRational:
		sl := make([]*big.Rat, 0, len(f.Val))
		for i := range f.Val {
			sl = append(sl, f.Rational(i))
		}
		return sl
	case TypeSRational:
		sl := make([]*big.Rat, 0, len(f.Val))
		for i := range f.Val {
			sl = append(sl, f.SRational(i))
		}
		return sl
	case TypeDouble, TypeFloat:
		return f.Floats()
	default:
		return f.Val
	}
}
