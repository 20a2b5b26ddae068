package tiff

// A tiff image file contains one or more images. The metadata
// of each image is contained in an Image File Directory (IFD),
// which contains entries of 12 bytes each and is described
// on page 14-16 of TIFF 6.0. An IFD entry consists of
//
//  - a tag, which describes the signification of the entry,
//  - the data type and length of the entry,
//  - the data itself or a pointer to it if it is more than 4 bytes.
//
// The presence of a length means that each IFD is effectively an array.

const (
	leHeader = "II\x2A\x00" // Header for little-endian files.
	beHeader = "MM\x00\x2A" // Header for big-endian files.

	ifdLen = 12 // Length of an IFD entry in bytes.
)

// DataType is the type of the values held by a field (p. 14-16 of TIFF 6.0).
type DataType uint16

// Data types.
const (
	TypeByte      DataType = 1
	TypeASCII     DataType = 2
	TypeShort     DataType = 3
	TypeLong      DataType = 4
	TypeRational  DataType = 5
	TypeSByte     DataType = 6
	TypeUndefined DataType = 7
	TypeSShort    DataType = 8
	TypeSLong     DataType = 9
	TypeSRational DataType = 10
	TypeFloat     DataType = 11
	TypeDouble    DataType = 12
)

// The length of one instance of each data type in bytes.
var lengths = [...]uint32{0, 1, 1, 2, 4, 8, 1, 1, 2, 4, 8, 4, 8}

// Size returns the length in bytes of one value of type t, or 0 for an unknown type.
func (t DataType) Size() uint32 {
	if int(t) >= len(lengths) {
		return 0
	}
	return lengths[t]
}

// Tags (see p. 28-41 of TIFF 6.0 and its supplements).
const (
	TagSubfileType            uint32 = 254
	TagImageWidth             uint32 = 256
	TagImageLength            uint32 = 257
	TagBitsPerSample          uint32 = 258
	TagCompression            uint32 = 259
	TagPhotometric            uint32 = 262
	TagThreshholding          uint32 = 263
	TagFillOrder              uint32 = 266
	TagDocumentName           uint32 = 269
	TagImageDescription       uint32 = 270
	TagMake                   uint32 = 271
	TagModel                  uint32 = 272
	TagStripOffsets           uint32 = 273
	TagOrientation            uint32 = 274
	TagSamplesPerPixel        uint32 = 277
	TagRowsPerStrip           uint32 = 278
	TagStripByteCounts        uint32 = 279
	TagMinSampleValue         uint32 = 280
	TagMaxSampleValue         uint32 = 281
	TagXResolution            uint32 = 282
	TagYResolution            uint32 = 283
	TagPlanarConfig           uint32 = 284
	TagPageName               uint32 = 285
	TagXPosition              uint32 = 286
	TagYPosition              uint32 = 287
	TagGroup3Options          uint32 = 292
	TagGroup4Options          uint32 = 293
	TagResolutionUnit         uint32 = 296
	TagPageNumber             uint32 = 297
	TagTransferFunction       uint32 = 301
	TagSoftware               uint32 = 305
	TagDateTime               uint32 = 306
	TagArtist                 uint32 = 315
	TagHostComputer           uint32 = 316
	TagPredictor              uint32 = 317
	TagWhitePoint             uint32 = 318
	TagPrimaryChromaticities  uint32 = 319
	TagColorMap               uint32 = 320
	TagHalftoneHints          uint32 = 321
	TagTileWidth              uint32 = 322
	TagTileLength             uint32 = 323
	TagTileOffsets            uint32 = 324
	TagTileByteCounts         uint32 = 325
	TagBadFaxLines            uint32 = 326
	TagCleanFaxData           uint32 = 327
	TagConsecutiveBadFaxLines uint32 = 328
	TagInkSet                 uint32 = 332
	TagInkNames               uint32 = 333
	TagNumberOfInks           uint32 = 334
	TagDotRange               uint32 = 336
	TagTargetPrinter          uint32 = 337
	TagExtraSamples           uint32 = 338
	TagSampleFormat           uint32 = 339
	TagSMinSampleValue        uint32 = 340
	TagSMaxSampleValue        uint32 = 341
	TagYCbCrCoefficients      uint32 = 529
	TagYCbCrSubsampling       uint32 = 530
	TagYCbCrPositioning       uint32 = 531
	TagReferenceBlackWhite    uint32 = 532
	TagICCProfile             uint32 = 34675
	TagFaxRecvParams          uint32 = 34908
	TagFaxSubAddress          uint32 = 34909
	TagFaxRecvTime            uint32 = 34910
	TagFaxDCS                 uint32 = 34911
	TagStoNits                uint32 = 37439
)

// Codec pseudo-tags. They configure the codec of a directory and are never
// written to the file.
const (
	TagJPEGQuality        uint32 = 65537
	TagJPEGColorMode      uint32 = 65538
	TagZipQuality         uint32 = 65557
	TagLZMAPreset         uint32 = 65562
	TagZstdLevel          uint32 = 65564
	TagLercAddCompression uint32 = 65566
	TagLercMaxZError      uint32 = 65567
	TagWebpLevel          uint32 = 65568
	TagWebpLossless       uint32 = 65569
	TagDeflateSubCodec    uint32 = 65570
)

// Compression types (defined in various places in TIFF 6.0 and its supplements).
const (
	CompressionNone         uint16 = 1
	CompressionCCITT        uint16 = 2
	CompressionCCITTFax3    uint16 = 3 // Group 3 Fax.
	CompressionCCITTFax4    uint16 = 4 // Group 4 Fax.
	CompressionLZW          uint16 = 5
	CompressionOJPEG        uint16 = 6 // Superseded by CompressionJPEG.
	CompressionJPEG         uint16 = 7
	CompressionAdobeDeflate uint16 = 8 // zlib compression.
	CompressionPackBits     uint16 = 32773
	CompressionDeflate      uint16 = 32946 // Superseded by CompressionAdobeDeflate.
	CompressionJBIG         uint16 = 34661
	CompressionSGILog       uint16 = 34676
	CompressionSGILog24     uint16 = 34677
	CompressionLERC         uint16 = 34887
	CompressionLZMA         uint16 = 34925
	CompressionZSTD         uint16 = 50000
	CompressionWEBP         uint16 = 50001
)

// Photometric interpretation values (see p. 37 of TIFF 6.0).
const (
	PhotometricMinIsWhite uint16 = 0
	PhotometricMinIsBlack uint16 = 1
	PhotometricRGB        uint16 = 2
	PhotometricPalette    uint16 = 3
	PhotometricMask       uint16 = 4 // transparency mask
	PhotometricSeparated  uint16 = 5 // CMYK
	PhotometricYCbCr      uint16 = 6
	PhotometricCIELab     uint16 = 8

	PhotometricLogL   uint16 = 32844 // GrayScale - CIE Log2(L)
	PhotometricLogLuv uint16 = 32845 // Color - CIE Log2(L) (u',v')
)

// Values for the TagPlanarConfig tag.
const (
	PlanarConfigContig   uint16 = 1 // aka RGBRGBRGB
	PlanarConfigSeparate uint16 = 2 // aka RRRGGGBBB
)

// Values for the TagPredictor tag (page 64-65 of TIFF 6.0).
const (
	PredictorNone          uint16 = 1
	PredictorHorizontal    uint16 = 2
	PredictorFloatingPoint uint16 = 3 // Floating point horizontal differencing, a third TIFF supplement from Adobe
)

// Values for the TagFillOrder tag.
const (
	FillOrderMSB2LSB uint16 = 1
	FillOrderLSB2MSB uint16 = 2
)

// Values for the TagOrientation tag.
const (
	OrientationTopLeft  uint16 = 1
	OrientationTopRight uint16 = 2
	OrientationBotRight uint16 = 3
	OrientationBotLeft  uint16 = 4
	OrientationLeftTop  uint16 = 5
	OrientationRightTop uint16 = 6
	OrientationRightBot uint16 = 7
	OrientationLeftBot  uint16 = 8
)

// Values for the TagJPEGColorMode pseudo-tag.
const (
	JPEGColorModeRaw = 0
	JPEGColorModeRGB = 1
)

// Values for the TagLercAddCompression pseudo-tag.
const (
	LercAddCompressionNone    = 0
	LercAddCompressionDeflate = 1
	LercAddCompressionZstd    = 2
)

// Values for the TagResolutionUnit tag (page 18).
const (
	resNone    = 1
	resPerInch = 2 // Dots per inch.
	resPerCM   = 3 // Dots per centimeter.
)

const (
	// RowsPerStripUnbounded is the RowsPerStrip default: the whole image in one strip.
	RowsPerStripUnbounded = ^uint32(0)

	stripSizeDefault = 8192 // Target strip size in bytes for DefaultStripSize.
	tileSizeDefault  = 256
)
