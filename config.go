package tiffcp

import (
	"log"
	"os"

	"github.com/mdouchement/tiffcp/tiff"
)

// DefaultMaxMalloc is the default allocation ceiling of a single buffer.
const DefaultMaxMalloc = 256 << 20

// Unset marks an integer option that is copied from the source image or left to the codec.
const Unset = -1

// WholeImage as RowsPerStrip writes the image as a single strip.
const WholeImage = tiff.RowsPerStripUnbounded

// Tiling selects the storage mode of the output image.
type Tiling int

const (
	// TilingAuto keeps the storage mode of the source image.
	TilingAuto Tiling = iota
	// TilingStrips writes strips.
	TilingStrips
	// TilingTiles writes tiles.
	TilingTiles
)

// A Logger receives the warnings of a copy.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Config holds the options of a copy. Zero values of the geometry and
// compression fields mean "same as the source image".
type Config struct {
	Tiling       Tiling
	TileWidth    uint32
	TileLength   uint32
	RowsPerStrip uint32 // 0 copies the source value, WholeImage writes one strip.

	Compression   uint16 // 0 copies the source compression.
	Predictor     uint16 // 0 copies the source predictor.
	Preset        int    // Deflate/ZSTD/LZMA/WEBP level, or Unset.
	SubCodec      int    // Deflate or LERC sub-codec, or Unset.
	Quality       int    // JPEG quality.
	JPEGColorMode int
	MaxZError     float64 // LERC maximum Z error, ignored when not positive.
	Group3Options int64   // or Unset.

	PlanarConfig uint16 // 0 copies the source planar configuration.
	FillOrder    uint16 // 0 copies the source fill order.

	// IgnoreReadErrors skips unreadable scanlines, strips and tiles instead of aborting.
	IgnoreReadErrors bool
	// MaxMalloc is the allocation ceiling of a single buffer, 0 for no limit.
	MaxMalloc int64

	// Bias is subtracted from each copied image when set.
	Bias Directory

	// PageInSequence numbers the output pages 0, 1, 2...
	PageInSequence bool
	// SingleInput keeps the source page numbers, there is only one input file.
	SingleInput bool

	Logger Logger
}

// DefaultConfig returns the configuration of a plain copy.
func DefaultConfig() Config {
	return Config{
		Preset:        Unset,
		SubCodec:      Unset,
		Quality:       75,
		JPEGColorMode: tiff.JPEGColorModeRGB,
		Group3Options: Unset,
		MaxMalloc:     DefaultMaxMalloc,
		Logger:        log.New(os.Stderr, "tiffcp: ", 0),
	}
}
