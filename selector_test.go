package tiffcp

import (
	"reflect"
	"testing"

	"github.com/mdouchement/tiffcp/tiff"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// planarOverride reports a planar configuration the tiff package refuses to store.
type planarOverride struct {
	*tiff.File
	config uint16
}

func (p planarOverride) FieldDefaulted(tag uint32) (tiff.Field, bool) {
	if tag == tiff.TagPlanarConfig {
		return tiff.NewShort(tag, p.config), true
	}
	return p.File.FieldDefaulted(tag)
}

func funcName(fn copyFunc) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

func TestCopyFuncsTable(t *testing.T) {
	// 2 planar configurations and 2 storage modes for each side, both chunk modes.
	assert.Len(t, copyFuncs, 32)
	for _, inTiled := range []bool{false, true} {
		for _, outTiled := range []bool{false, true} {
			for _, in := range []uint16{contig, separate} {
				for _, out := range []uint16{contig, separate} {
					key := layoutKey{in, out, inTiled, outTiled, false}
					byChunk := key
					byChunk.byChunk = true
					if key == (layoutKey{contig, contig, false, false, false}) {
						assert.NotEqual(t, funcName(copyFuncs[key]), funcName(copyFuncs[byChunk]))
						continue
					}
					assert.Equal(t, funcName(copyFuncs[key]), funcName(copyFuncs[byChunk]), key.String())
				}
			}
		}
	}
	assert.Equal(t, funcName(cpDecodedStrips), funcName(copyFuncs[layoutKey{contig, contig, false, false, true}]))
	assert.Equal(t, funcName(cpSeparate2ContigByRow), funcName(copyFuncs[layoutKey{separate, contig, false, false, true}]))
	assert.Equal(t, "separate tiles to contig strips", layoutKey{separate, contig, true, false, false}.String())
}

func TestPickCopyFunc(t *testing.T) {
	p := newPicture(20, 10, 3, 8)

	t.Run("unknown planar configuration", func(t *testing.T) {
		in := planarOverride{File: newSource(t, "in.tif", p, contigStrips, tiff.CompressionNone), config: 3}
		c := &copier{Config: DefaultConfig(), outConfig: 3, rowsPerStrip: 3}
		_, err := c.pickCopyFunc(in, tiff.New("out.tif"), 8, 3)
		var unsupported UnsupportedError
		require.True(t, errors.As(err, &unsupported), "got %v", err)
		assert.Contains(t, err.Error(), "don't know how")
	})

	t.Run("planar mismatch", func(t *testing.T) {
		in := newSource(t, "in.tif", p, contigStrips, tiff.CompressionNone)
		c := &copier{Config: DefaultConfig(), outConfig: separate, rowsPerStrip: 3}

		fn, err := c.pickCopyFunc(in, tiff.New("out.tif"), 8, 3)
		require.NoError(t, err)
		assert.Equal(t, funcName(cpContig2SeparateByRow), funcName(fn))

		_, err = c.pickCopyFunc(in, tiff.New("out.tif"), 16, 3)
		var unsupported UnsupportedError
		assert.True(t, errors.As(err, &unsupported), "got %v", err)

		fn, err = c.pickCopyFunc(in, tiff.New("out.tif"), 16, 1)
		require.NoError(t, err)
		assert.Equal(t, funcName(cpContig2SeparateByRow), funcName(fn))
	})

	t.Run("bias", func(t *testing.T) {
		in := newSource(t, "in.tif", newPicture(20, 10, 1, 8), contigStrips, tiff.CompressionNone)
		cfg := DefaultConfig()
		cfg.Bias = in
		c := &copier{Config: cfg, outConfig: contig, rowsPerStrip: 3}

		fn, err := c.pickCopyFunc(in, tiff.New("out.tif"), 8, 1)
		require.NoError(t, err)
		assert.Equal(t, funcName(cpBiasedContig2Contig), funcName(fn), "same strips are decoded for the subtraction")
	})

	t.Run("tile width without tile length", func(t *testing.T) {
		in := tiff.New("in.tif")
		require.NoError(t, in.SetField(tiff.NewLong(tiff.TagImageWidth, 32)))
		require.NoError(t, in.SetField(tiff.NewLong(tiff.TagImageLength, 32)))
		require.NoError(t, in.SetField(tiff.NewShort(tiff.TagBitsPerSample, 8)))
		require.NoError(t, in.SetField(tiff.NewLong(tiff.TagTileWidth, 16)))

		c := &copier{Config: DefaultConfig(), outConfig: contig, rowsPerStrip: 32}
		_, err := c.pickCopyFunc(in, tiff.New("out.tif"), 8, 1)
		var geometry GeometryError
		require.True(t, errors.As(err, &geometry), "got %v", err)

		cfg := DefaultConfig()
		cfg.Tiling = TilingStrips
		assert.NotPanics(t, func() {
			err = New(cfg).CopyDirectory(in, tiff.New("out.tif"))
		})
		assert.True(t, errors.As(err, &geometry), "got %v", err)
	})
}
