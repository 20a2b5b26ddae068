package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/mdouchement/tiffcp"
	"github.com/mdouchement/tiffcp/tiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompression(t *testing.T) {
	tests := []struct {
		value string
		check func(t *testing.T, cfg tiffcp.Config)
	}{
		{"none", func(t *testing.T, cfg tiffcp.Config) {
			assert.Equal(t, tiff.CompressionNone, cfg.Compression)
		}},
		{"lzw:2", func(t *testing.T, cfg tiffcp.Config) {
			assert.Equal(t, tiff.CompressionLZW, cfg.Compression)
			assert.Equal(t, tiff.PredictorHorizontal, cfg.Predictor)
		}},
		{"zip:3:p9", func(t *testing.T, cfg tiffcp.Config) {
			assert.Equal(t, tiff.CompressionAdobeDeflate, cfg.Compression)
			assert.Equal(t, tiff.PredictorFloatingPoint, cfg.Predictor)
			assert.Equal(t, 9, cfg.Preset)
		}},
		{"zstd:p19", func(t *testing.T, cfg tiffcp.Config) {
			assert.Equal(t, tiff.CompressionZSTD, cfg.Compression)
			assert.Equal(t, 19, cfg.Preset)
		}},
		{"webp:p100", func(t *testing.T, cfg tiffcp.Config) {
			assert.Equal(t, tiff.CompressionWEBP, cfg.Compression)
			assert.Equal(t, 100, cfg.Preset)
		}},
		{"lerc:e0.25:z:p12", func(t *testing.T, cfg tiffcp.Config) {
			assert.Equal(t, tiff.CompressionLERC, cfg.Compression)
			assert.Equal(t, 0.25, cfg.MaxZError)
			assert.Equal(t, tiff.LercAddCompressionZstd, cfg.SubCodec)
			assert.Equal(t, 12, cfg.Preset)
		}},
		{"lerc:s1", func(t *testing.T, cfg tiffcp.Config) {
			assert.Equal(t, tiff.LercAddCompressionDeflate, cfg.SubCodec)
		}},
		{"jpeg:90:r", func(t *testing.T, cfg tiffcp.Config) {
			assert.Equal(t, tiff.CompressionJPEG, cfg.Compression)
			assert.Equal(t, 90, cfg.Quality)
			assert.Equal(t, tiff.JPEGColorModeRaw, cfg.JPEGColorMode)
		}},
		{"jpeg", func(t *testing.T, cfg tiffcp.Config) {
			assert.Equal(t, 75, cfg.Quality)
			assert.Equal(t, tiff.JPEGColorModeRGB, cfg.JPEGColorMode)
		}},
		{"g3", func(t *testing.T, cfg tiffcp.Config) {
			assert.Equal(t, tiff.CompressionCCITTFax3, cfg.Compression)
			assert.EqualValues(t, tiffcp.Unset, cfg.Group3Options)
		}},
		{"g3:2d:fill", func(t *testing.T, cfg tiffcp.Config) {
			assert.EqualValues(t, group3Opt2DEncoding|group3OptFillBits, cfg.Group3Options)
		}},
		{"g3:2d:1d", func(t *testing.T, cfg tiffcp.Config) {
			assert.EqualValues(t, 0, cfg.Group3Options)
		}},
		{"g4", func(t *testing.T, cfg tiffcp.Config) {
			assert.Equal(t, tiff.CompressionCCITTFax4, cfg.Compression)
		}},
		{"sgilog", func(t *testing.T, cfg tiffcp.Config) {
			assert.Equal(t, tiff.CompressionSGILog, cfg.Compression)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cfg := tiffcp.DefaultConfig()
			require.NoError(t, parseCompression(tt.value, &cfg))
			tt.check(t, cfg)
		})
	}

	for _, value := range []string{"gzip", "zip:x", "zip:pp", "jpeg:q", "g3:3d", "lzw:-1"} {
		t.Run(value, func(t *testing.T) {
			cfg := tiffcp.DefaultConfig()
			assert.Error(t, parseCompression(value, &cfg))
		})
	}
}

func TestSplitInput(t *testing.T) {
	name, dirs, err := splitInput("scan.tif,2,0")
	require.NoError(t, err)
	assert.Equal(t, "scan.tif", name)
	assert.Equal(t, []int{2, 0}, dirs)

	name, dirs, err = splitInput("scan.tif")
	require.NoError(t, err)
	assert.Equal(t, "scan.tif", name)
	assert.Empty(t, dirs)

	_, _, err = splitInput("scan.tif,one")
	assert.Error(t, err)
	_, _, err = splitInput("scan.tif,-1")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	gray := writeFixture(t, filepath.Join(dir, "gray.tif"), 2, 1)
	color := writeFixture(t, filepath.Join(dir, "color.tif"), 1, 3)
	out := filepath.Join(dir, "out.tif")

	t.Run("tiles", func(t *testing.T) {
		require.NoError(t, run([]string{"-c", "zip:p9", "-w", "32", "-l", "16", gray + ",1", out}))
		f := open(t, out)
		assert.Equal(t, 1, f.NumberOfDirectories())
		assert.True(t, f.IsTiled())
		tw, _ := f.Field(tiff.TagTileWidth)
		tl, _ := f.Field(tiff.TagTileLength)
		assert.EqualValues(t, 32, tw.Long(0))
		assert.EqualValues(t, 16, tl.Long(0))
		compression, _ := f.Field(tiff.TagCompression)
		assert.Equal(t, tiff.CompressionAdobeDeflate, compression.Short(0))
	})

	t.Run("append", func(t *testing.T) {
		require.NoError(t, run([]string{"-a", "-s", "-r", "-1", "-x", gray, color, out}))
		f := open(t, out)
		require.Equal(t, 4, f.NumberOfDirectories())
		for i, page := range []uint16{0, 1, 2} {
			require.NoError(t, f.SetDirectory(i+1))
			assert.False(t, f.IsTiled())
			rps, _ := f.Field(tiff.TagRowsPerStrip)
			assert.EqualValues(t, 24, rps.Long(0))
			pn, _ := f.Field(tiff.TagPageNumber)
			assert.Equal(t, []uint16{page, 0}, pn.Shorts())
		}
	})

	t.Run("big-endian separate", func(t *testing.T) {
		require.NoError(t, run([]string{"-B", "-p", "separate", "-c", "lzw:2", color, out}))
		f := open(t, out)
		assert.Equal(t, binary.BigEndian, f.ByteOrder())
		config, _ := f.Field(tiff.TagPlanarConfig)
		assert.Equal(t, tiff.PlanarConfigSeparate, config.Short(0))

		row := make([]byte, f.ScanlineSize())
		require.NoError(t, f.ReadScanline(row, 5, 2))
		for x := range row {
			assert.Equal(t, byte(x+5+2), row[x])
		}
	})

	t.Run("bias", func(t *testing.T) {
		dark := writeFixture(t, filepath.Join(dir, "dark.tif"), 1, 1)
		require.NoError(t, run([]string{"-b", dark, gray + ",0", out}))
		f := open(t, out)
		row := make([]byte, f.ScanlineSize())
		for y := uint32(0); y < 24; y++ {
			require.NoError(t, f.ReadScanline(row, y, 0))
			assert.Equal(t, make([]byte, len(row)), row)
		}

		assert.Error(t, run([]string{"-b", color, gray, out}), "bias images are monochrome")
	})

	t.Run("errors", func(t *testing.T) {
		assert.Error(t, run([]string{out}))
		assert.Error(t, run([]string{"-c", "gzip", gray, out}))
		assert.Error(t, run([]string{"-p", "planar", gray, out}))
		assert.Error(t, run([]string{"-f", "lsb", gray, out}))
		assert.Error(t, run([]string{gray + ",7", out}))
		assert.Error(t, run([]string{filepath.Join(dir, "missing.tif"), out}))
		assert.Error(t, run([]string{"-m", "0", "-c", "lzma", gray, out}), "LZMA is not encoded")
	})
}

// writeFixture writes a 40x24 8-bit image whose sample s of pixel (x, y) is x+y+s.
func writeFixture(t *testing.T, path string, pages int, spp uint16) string {
	f := tiff.New(path)
	for p := 0; p < pages; p++ {
		bps := make([]uint16, spp)
		for i := range bps {
			bps[i] = 8
		}
		photometric := tiff.PhotometricMinIsBlack
		if spp == 3 {
			photometric = tiff.PhotometricRGB
		}
		for _, field := range []tiff.Field{
			tiff.NewLong(tiff.TagImageWidth, 40),
			tiff.NewLong(tiff.TagImageLength, 24),
			tiff.NewShort(tiff.TagBitsPerSample, bps...),
			tiff.NewShort(tiff.TagSamplesPerPixel, spp),
			tiff.NewShort(tiff.TagPhotometric, photometric),
			tiff.NewShort(tiff.TagCompression, tiff.CompressionNone),
			tiff.NewLong(tiff.TagRowsPerStrip, 8),
		} {
			require.NoError(t, f.SetField(field))
		}
		row := make([]byte, f.ScanlineSize())
		for y := 0; y < 24; y++ {
			for x := 0; x < 40; x++ {
				for s := 0; s < int(spp); s++ {
					row[x*int(spp)+s] = byte(x + y + s)
				}
			}
			require.NoError(t, f.WriteScanline(row, uint32(y), 0))
		}
		require.NoError(t, f.WriteDirectory())
	}
	require.NoError(t, writeOutput(f, path))
	return path
}

func open(t *testing.T, path string) *tiff.File {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	f, err := tiff.Decode(path, bytes.NewReader(data))
	require.NoError(t, err)
	return f
}
