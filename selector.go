package tiffcp

import (
	"fmt"

	"github.com/mdouchement/tiffcp/tiff"
)

// A layoutKey describes a conversion: source and destination planar
// configurations and tiling, and whether chunks can be copied one by one
// because the destination chunk geometry matches the source one.
type layoutKey struct {
	inConfig, outConfig uint16
	inTiled, outTiled   bool
	byChunk             bool
}

const (
	contig   = tiff.PlanarConfigContig
	separate = tiff.PlanarConfigSeparate
)

var copyFuncs = map[layoutKey]copyFunc{}

func register(inConfig, outConfig uint16, inTiled, outTiled bool, fn copyFunc) {
	for _, byChunk := range []bool{false, true} {
		copyFuncs[layoutKey{inConfig, outConfig, inTiled, outTiled, byChunk}] = fn
	}
}

func init() {
	// Strips -> Tiles
	register(contig, contig, false, true, cpContigStrips2ContigTiles)
	register(contig, separate, false, true, cpContigStrips2SeparateTiles)
	register(separate, contig, false, true, cpSeparateStrips2ContigTiles)
	register(separate, separate, false, true, cpSeparateStrips2SeparateTiles)
	// Tiles -> Tiles
	register(contig, contig, true, true, cpContigTiles2ContigTiles)
	register(contig, separate, true, true, cpContigTiles2SeparateTiles)
	register(separate, contig, true, true, cpSeparateTiles2ContigTiles)
	register(separate, separate, true, true, cpSeparateTiles2SeparateTiles)
	// Tiles -> Strips
	register(contig, contig, true, false, cpContigTiles2ContigStrips)
	register(contig, separate, true, false, cpContigTiles2SeparateStrips)
	register(separate, contig, true, false, cpSeparateTiles2ContigStrips)
	register(separate, separate, true, false, cpSeparateTiles2SeparateStrips)
	// Strips -> Strips
	register(contig, separate, false, false, cpContig2SeparateByRow)
	register(separate, contig, false, false, cpSeparate2ContigByRow)
	register(separate, separate, false, false, cpSeparate2SeparateByRow)
	copyFuncs[layoutKey{contig, contig, false, false, false}] = cpContig2ContigByRow
	copyFuncs[layoutKey{contig, contig, false, false, true}] = cpDecodedStrips
}

// pickCopyFunc selects the copyFunc converting the layout of in to the one
// already set up on out.
func (c *copier) pickCopyFunc(in, out Directory, bitsPerSample, samplesPerPixel uint16) (copyFunc, error) {
	inConfig := defaultedShort(in, tiff.TagPlanarConfig, contig)
	if inConfig != c.outConfig && bitsPerSample != 8 && samplesPerPixel > 1 {
		return nil, UnsupportedError(fmt.Sprintf("%s: can't handle different planar configuration w/ bits/sample != 8",
			in.FileName()))
	}

	w, _ := in.Field(tiff.TagImageWidth)
	l, _ := in.Field(tiff.TagImageLength)
	inTiled, outTiled := in.IsTiled(), out.IsTiled()
	if tw, tl := tileSize(in); inTiled && (tw == 0 || tl == 0) {
		return nil, GeometryError(fmt.Sprintf("%s: tiled image with a %dx%d tile size", in.FileName(), tw, tl))
	}

	var byChunk bool
	switch {
	case !inTiled && !outTiled:
		irps := tiff.RowsPerStripUnbounded
		if f, ok := in.Field(tiff.TagRowsPerStrip); ok {
			irps = f.Long(0)
		}
		// A bias forces decoded copying for the image subtraction.
		byChunk = c.Bias == nil && c.rowsPerStrip == irps
	case c.Bias != nil:
		return nil, UnsupportedError(fmt.Sprintf("%s: can't handle tiled configuration w/ bias image", in.FileName()))
	case outTiled:
		tw, tl := w.Long(0), l.Long(0)
		if f, ok := in.Field(tiff.TagTileWidth); ok {
			tw = f.Long(0)
		}
		if f, ok := in.Field(tiff.TagTileLength); ok {
			tl = f.Long(0)
		}
		byChunk = tw == c.tileWidth && tl == c.tileLength
	default:
		tw, tl := tileSize(in)
		byChunk = tw == w.Long(0) && tl == c.rowsPerStrip
	}

	key := layoutKey{
		inConfig:  inConfig,
		outConfig: c.outConfig,
		inTiled:   inTiled,
		outTiled:  outTiled,
		byChunk:   byChunk,
	}
	if c.Bias != nil {
		if key != (layoutKey{contig, contig, false, false, false}) {
			return nil, UnsupportedError(fmt.Sprintf("%s: can't bias a %s image", in.FileName(), key))
		}
		return cpBiasedContig2Contig, nil
	}

	fn, ok := copyFuncs[key]
	if !ok {
		return nil, UnsupportedError(fmt.Sprintf("%s: don't know how to copy/convert image", in.FileName()))
	}
	return fn, nil
}

func (k layoutKey) String() string {
	name := func(config uint16, tiled bool) string {
		s := "contig"
		if config == separate {
			s = "separate"
		}
		if tiled {
			return s + " tiles"
		}
		return s + " strips"
	}
	return fmt.Sprintf("%s to %s", name(k.inConfig, k.inTiled), name(k.outConfig, k.outTiled))
}
