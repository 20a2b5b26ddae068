package tiffcp

import (
	"bytes"
	"log"
	"testing"

	"github.com/mdouchement/tiffcp/tiff"
	"github.com/stretchr/testify/require"
)

// A picture is a test image held as a contiguous raster.
type picture struct {
	w, h     uint32
	spp, bps uint16
	data     []byte
}

func newPicture(w, h uint32, spp, bps uint16) picture {
	p := picture{w: w, h: h, spp: spp, bps: bps}
	p.data = make([]byte, p.rowSize()*int(h))
	for i := range p.data {
		p.data[i] = byte(i*31 + i/7 + 1)
	}
	return p
}

func (p picture) rowSize() int {
	return (int(p.w)*int(p.spp)*int(p.bps) + 7) / 8
}

func (p picture) sampleSize() int {
	return int(p.bps) / 8
}

// pixelSize returns the byte size of a pixel of the plane s, or of all samples when s < 0.
func (p picture) pixelSize(s int) int {
	if s < 0 {
		return int(p.spp) * p.sampleSize()
	}
	return p.sampleSize()
}

// region extracts the tw×tl rectangle at (x0, y0) of the plane s, or of all
// the samples when s < 0. Pixels out of the image are zero.
func (p picture) region(x0, y0, tw, tl uint32, s int) []byte {
	px := p.pixelSize(s)
	buf := make([]byte, int(tw)*int(tl)*px)
	for r := uint32(0); r < tl && y0+r < p.h; r++ {
		for c := uint32(0); c < tw && x0+c < p.w; c++ {
			src := int(y0+r)*p.rowSize() + int(x0+c)*int(p.spp)*p.sampleSize()
			if s > 0 {
				src += s * p.sampleSize()
			}
			dst := (int(r)*int(tw) + int(c)) * px
			copy(buf[dst:dst+px], p.data[src:src+px])
		}
	}
	return buf
}

// place is the inverse of region.
func (p picture) place(buf []byte, x0, y0, tw, tl uint32, s int) {
	px := p.pixelSize(s)
	for r := uint32(0); r < tl && y0+r < p.h; r++ {
		for c := uint32(0); c < tw && x0+c < p.w; c++ {
			dst := int(y0+r)*p.rowSize() + int(x0+c)*int(p.spp)*p.sampleSize()
			if s > 0 {
				dst += s * p.sampleSize()
			}
			src := (int(r)*int(tw) + int(c)) * px
			copy(p.data[dst:dst+px], buf[src:src+px])
		}
	}
}

type layout struct {
	config uint16
	tiled  bool
	tw, tl uint32
	rps    uint32
}

var (
	contigStrips   = layout{config: tiff.PlanarConfigContig, rps: 3}
	separateStrips = layout{config: tiff.PlanarConfigSeparate, rps: 4}
	contigTiles    = layout{config: tiff.PlanarConfigContig, tiled: true, tw: 16, tl: 16}
	separateTiles  = layout{config: tiff.PlanarConfigSeparate, tiled: true, tw: 16, tl: 32}
)

func (l layout) String() string {
	s := "contig"
	if l.config == tiff.PlanarConfigSeparate {
		s = "separate"
	}
	if l.tiled {
		return s + "-tiles"
	}
	return s + "-strips"
}

func (l layout) planes(spp uint16) int {
	if l.config == tiff.PlanarConfigSeparate {
		return int(spp)
	}
	return 1
}

// sample returns the plane index used by region for the plane s.
func (l layout) sample(s int) int {
	if l.config == tiff.PlanarConfigSeparate {
		return s
	}
	return -1
}

func newSource(t testing.TB, name string, p picture, l layout, compression uint16, fields ...tiff.Field) *tiff.File {
	f := tiff.New(name)
	bps := make([]uint16, p.spp)
	for i := range bps {
		bps[i] = p.bps
	}
	photometric := tiff.PhotometricMinIsBlack
	if p.spp >= 3 {
		photometric = tiff.PhotometricRGB
	}
	all := []tiff.Field{
		tiff.NewLong(tiff.TagImageWidth, p.w),
		tiff.NewLong(tiff.TagImageLength, p.h),
		tiff.NewShort(tiff.TagBitsPerSample, bps...),
		tiff.NewShort(tiff.TagSamplesPerPixel, p.spp),
		tiff.NewShort(tiff.TagPhotometric, photometric),
		tiff.NewShort(tiff.TagPlanarConfig, l.config),
		tiff.NewShort(tiff.TagCompression, compression),
	}
	if l.tiled {
		all = append(all, tiff.NewLong(tiff.TagTileWidth, l.tw), tiff.NewLong(tiff.TagTileLength, l.tl))
	} else if l.rps != 0 {
		all = append(all, tiff.NewLong(tiff.TagRowsPerStrip, l.rps))
	}
	for _, field := range append(all, fields...) {
		require.NoError(t, f.SetField(field), field.Name())
	}

	writePicture(t, f, p, l)
	require.NoError(t, f.WriteDirectory())
	return reencode(t, f)
}

func writePicture(t testing.TB, f *tiff.File, p picture, l layout) {
	if p.bps%8 != 0 {
		require.False(t, l.tiled || l.config == tiff.PlanarConfigSeparate, "sub-byte samples are only written as contiguous strips")
		for row := uint32(0); row < p.h; row++ {
			off := int(row) * p.rowSize()
			require.NoError(t, f.WriteScanline(p.data[off:off+p.rowSize()], row, 0))
		}
		return
	}

	for s := 0; s < l.planes(p.spp); s++ {
		if l.tiled {
			for y := uint32(0); y < p.h; y += l.tl {
				for x := uint32(0); x < p.w; x += l.tw {
					require.NoError(t, f.WriteTile(p.region(x, y, l.tw, l.tl, l.sample(s)), x, y, uint16(s)))
				}
			}
			continue
		}
		for row := uint32(0); row < p.h; row++ {
			require.NoError(t, f.WriteScanline(p.region(0, row, p.w, 1, l.sample(s)), row, uint16(s)))
		}
	}
}

// readPicture reads the current image of f back into a contiguous raster.
func readPicture(t testing.TB, f *tiff.File) picture {
	width, _ := f.Field(tiff.TagImageWidth)
	length, _ := f.Field(tiff.TagImageLength)
	bps, _ := f.FieldDefaulted(tiff.TagBitsPerSample)
	spp, _ := f.FieldDefaulted(tiff.TagSamplesPerPixel)
	config, _ := f.FieldDefaulted(tiff.TagPlanarConfig)

	p := picture{w: width.Long(0), h: length.Long(0), spp: spp.Short(0), bps: bps.Short(0)}
	p.data = make([]byte, p.rowSize()*int(p.h))
	l := layout{config: config.Short(0), tiled: f.IsTiled()}
	if l.tiled {
		tw, _ := f.Field(tiff.TagTileWidth)
		tl, _ := f.Field(tiff.TagTileLength)
		l.tw, l.tl = tw.Long(0), tl.Long(0)
	}

	if p.bps%8 != 0 {
		require.False(t, l.tiled || (l.config == tiff.PlanarConfigSeparate && p.spp > 1))
		for row := uint32(0); row < p.h; row++ {
			off := int(row) * p.rowSize()
			require.NoError(t, f.ReadScanline(p.data[off:off+p.rowSize()], row, 0))
		}
		return p
	}

	for s := 0; s < l.planes(p.spp); s++ {
		if l.tiled {
			buf := make([]byte, f.TileSize())
			for y := uint32(0); y < p.h; y += l.tl {
				for x := uint32(0); x < p.w; x += l.tw {
					_, err := f.ReadTile(buf, x, y, uint16(s))
					require.NoError(t, err)
					p.place(buf, x, y, l.tw, l.tl, l.sample(s))
				}
			}
			continue
		}
		buf := make([]byte, f.ScanlineSize())
		for row := uint32(0); row < p.h; row++ {
			require.NoError(t, f.ReadScanline(buf, row, uint16(s)))
			p.place(buf, 0, row, p.w, 1, l.sample(s))
		}
	}
	return p
}

func reencode(t testing.TB, f *tiff.File) *tiff.File {
	var buf bytes.Buffer
	require.NoError(t, f.Encode(&buf))
	decoded, err := tiff.Decode(f.FileName(), bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	return decoded
}

// testConfig returns the default configuration logging into logs.
func testConfig(logs *bytes.Buffer) Config {
	cfg := DefaultConfig()
	cfg.Logger = log.New(logs, "", 0)
	return cfg
}

// copyPicture copies the current image of src with cfg and returns the
// decoded result.
func copyPicture(t testing.TB, src *tiff.File, cfg Config) (*tiff.File, error) {
	out := tiff.New("out.tif")
	if err := New(cfg).CopyDirectory(src, out); err != nil {
		return nil, err
	}
	require.NoError(t, out.WriteDirectory())
	return reencode(t, out), nil
}
