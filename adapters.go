package tiffcp

import (
	"fmt"

	"github.com/mdouchement/tiffcp/tiff"
	"github.com/pkg/errors"
)

// A readFunc fills buf with the whole image of in as contiguous raster scanlines.
type readFunc func(c *copier, in Directory, buf []byte, length, width uint32, spp uint16) error

// A writeFunc writes the contiguous raster held by buf to out.
type writeFunc func(c *copier, out Directory, buf []byte, length, width uint32, spp uint16) error

var (
	cpContigStrips2ContigTiles     = cpImage(readContigStripsIntoBuffer, writeBufferToContigTiles)
	cpContigStrips2SeparateTiles   = cpImage(readContigStripsIntoBuffer, writeBufferToSeparateTiles)
	cpSeparateStrips2ContigTiles   = cpImage(readSeparateStripsIntoBuffer, writeBufferToContigTiles)
	cpSeparateStrips2SeparateTiles = cpImage(readSeparateStripsIntoBuffer, writeBufferToSeparateTiles)
	cpContigTiles2ContigTiles      = cpImage(readContigTilesIntoBuffer, writeBufferToContigTiles)
	cpContigTiles2SeparateTiles    = cpImage(readContigTilesIntoBuffer, writeBufferToSeparateTiles)
	cpSeparateTiles2ContigTiles    = cpImage(readSeparateTilesIntoBuffer, writeBufferToContigTiles)
	cpSeparateTiles2SeparateTiles  = cpImage(readSeparateTilesIntoBuffer, writeBufferToSeparateTiles)
	cpContigTiles2ContigStrips     = cpImage(readContigTilesIntoBuffer, writeBufferToContigStrips)
	cpContigTiles2SeparateStrips   = cpImage(readContigTilesIntoBuffer, writeBufferToSeparateStrips)
	cpSeparateTiles2ContigStrips   = cpImage(readSeparateTilesIntoBuffer, writeBufferToContigStrips)
	cpSeparateTiles2SeparateStrips = cpImage(readSeparateTilesIntoBuffer, writeBufferToSeparateStrips)
)

// cpImage returns a copyFunc reading the whole image in memory then writing it.
func cpImage(read readFunc, write writeFunc) copyFunc {
	return func(c *copier, in, out Directory, length, width uint32, spp uint16) error {
		scanline := int64(in.RasterScanlineSize())
		size := scanline * int64(length)
		if scanline == 0 || length == 0 || size/int64(length) != scanline {
			return GeometryError(fmt.Sprintf("no space for a %dx%d image buffer", width, length))
		}
		buf, err := c.alloc(size)
		if err != nil {
			return errors.Wrap(err, "can't allocate space for image buffer")
		}
		if err := read(c, in, buf, length, width, spp); err != nil {
			return err
		}
		return write(c, out, buf, length, width, spp)
	}
}

// bytesPerSample returns the byte size of the samples of d, failing when
// interleaved samples are not byte aligned.
func bytesPerSample(d Directory, spp uint16) (int, error) {
	bps, _ := d.FieldDefaulted(tiff.TagBitsPerSample)
	bits := bps.Short(0)
	if bits%8 != 0 && spp > 1 {
		return 0, UnsupportedError(fmt.Sprintf("%s: can't interleave %d bits per sample", d.FileName(), bits))
	}
	if bits < 8 {
		return 1, nil
	}
	return int(bits / 8), nil
}

func tileSize(d Directory) (tw, tl uint32) {
	w, _ := d.Field(tiff.TagTileWidth)
	l, _ := d.Field(tiff.TagTileLength)
	return w.Long(0), l.Long(0)
}

//------------------------//
// Readers                //
//------------------------//

func readContigStripsIntoBuffer(c *copier, in Directory, buf []byte, length, width uint32, spp uint16) error {
	scanline := in.ScanlineSize()
	for row, off := uint32(0), 0; row < length; row, off = row+1, off+scanline {
		if err := in.ReadScanline(buf[off:off+scanline], row, 0); c.readFailed(in, err) {
			return errors.Wrapf(err, "can't read scanline %d", row)
		}
	}
	return nil
}

func readSeparateStripsIntoBuffer(c *copier, in Directory, buf []byte, length, width uint32, spp uint16) error {
	if spp == 1 {
		return readContigStripsIntoBuffer(c, in, buf, length, width, spp)
	}
	bps8, err := bytesPerSample(in, spp)
	if err != nil {
		return err
	}
	scanline, err := c.alloc(int64(in.ScanlineSize()))
	if err != nil {
		return err
	}

	imagew := in.RasterScanlineSize()
	for row, bufp := uint32(0), 0; row < length; row, bufp = row+1, bufp+imagew {
		for s := uint16(0); s < spp; s++ {
			if err := in.ReadScanline(scanline, row, s); c.readFailed(in, err) {
				return errors.Wrapf(err, "can't read scanline %d of sample %d", row, s)
			}
			off := bufp + int(s)*bps8
			cpSeparateBufToContigBuf(buf[off:], scanline, 1, int(width), 0, 0, int(spp), bps8)
		}
	}
	return nil
}

func readContigTilesIntoBuffer(c *copier, in Directory, buf []byte, length, width uint32, spp uint16) error {
	tilebuf, err := c.alloc(int64(in.TileSize()))
	if err != nil {
		return err
	}
	imagew := in.ScanlineSize()
	tilew := in.TileRowSize()
	tw, tl := tileSize(in)

	bufp := 0
	for row := uint32(0); row < length; row += tl {
		nrow := tl
		if uint64(row)+uint64(tl) > uint64(length) {
			nrow = length - row
		}
		colb := 0
		for col := uint32(0); col < width && colb < imagew; col += tw {
			if _, err := in.ReadTile(tilebuf, col, row, 0); c.readFailed(in, err) {
				return errors.Wrapf(err, "can't read tile at %d %d", col, row)
			}
			if colb+tilew > imagew {
				// Tile is clipped horizontally.
				cols := imagew - colb
				cpStripToTile(buf[bufp+colb:], tilebuf, int(nrow), cols, imagew-cols, tilew-cols)
			} else {
				cpStripToTile(buf[bufp+colb:], tilebuf, int(nrow), tilew, imagew-tilew, 0)
			}
			colb += tilew
		}
		bufp += imagew * int(nrow)
	}
	return nil
}

func readSeparateTilesIntoBuffer(c *copier, in Directory, buf []byte, length, width uint32, spp uint16) error {
	if spp == 1 {
		return readContigTilesIntoBuffer(c, in, buf, length, width, spp)
	}
	bps8, err := bytesPerSample(in, spp)
	if err != nil {
		return err
	}
	tilebuf, err := c.alloc(int64(in.TileSize()))
	if err != nil {
		return err
	}
	imagew := in.RasterScanlineSize()
	tilew := in.TileRowSize()
	tw, tl := tileSize(in)
	pixel := int(spp) * bps8

	bufp := 0
	for row := uint32(0); row < length; row += tl {
		nrow := tl
		if uint64(row)+uint64(tl) > uint64(length) {
			nrow = length - row
		}
		colb := 0
		for col := uint32(0); col < width; col += tw {
			for s := uint16(0); s < spp; s++ {
				if _, err := in.ReadTile(tilebuf, col, row, s); c.readFailed(in, err) {
					return errors.Wrapf(err, "can't read tile at %d %d of sample %d", col, row, s)
				}
				off := bufp + colb + int(s)*bps8
				if colb+tilew*int(spp) > imagew {
					// Tile is clipped horizontally.
					cols := (imagew - colb) / pixel
					cpSeparateBufToContigBuf(buf[off:], tilebuf, int(nrow), cols,
						imagew-cols*pixel, tilew-cols*bps8, int(spp), bps8)
				} else {
					cpSeparateBufToContigBuf(buf[off:], tilebuf, int(nrow), int(tw),
						imagew-int(tw)*pixel, 0, int(spp), bps8)
				}
			}
			colb += tilew * int(spp)
		}
		bufp += imagew * int(nrow)
	}
	return nil
}

//------------------------//
// Writers                //
//------------------------//

func writeBufferToContigStrips(c *copier, out Directory, buf []byte, length, width uint32, spp uint16) error {
	rps := c.rowsPerStrip
	off, strip := 0, 0
	for row := uint32(0); row < length; row += rps {
		nrows := rps
		if uint64(row)+uint64(rps) > uint64(length) {
			nrows = length - row
		}
		size := out.VStripSize(nrows)
		if err := out.WriteEncodedStrip(strip, buf[off:off+size]); err != nil {
			return errors.Wrapf(err, "can't write strip %d", strip)
		}
		strip++
		off += size
		if uint64(row)+uint64(rps) >= uint64(length) {
			break
		}
	}
	return nil
}

func writeBufferToSeparateStrips(c *copier, out Directory, buf []byte, length, width uint32, spp uint16) error {
	if spp == 1 {
		return writeBufferToContigStrips(c, out, buf, length, width, spp)
	}
	bps8, err := bytesPerSample(out, spp)
	if err != nil {
		return err
	}
	obuf, err := c.alloc(int64(out.StripSize()))
	if err != nil {
		return err
	}

	rowsize := out.RasterScanlineSize()
	rps := c.rowsPerStrip
	strip := 0
	for s := uint16(0); s < spp; s++ {
		for row := uint32(0); row < length; row += rps {
			nrows := rps
			if uint64(row)+uint64(rps) > uint64(length) {
				nrows = length - row
			}
			size := out.VStripSize(nrows)
			off := int(row)*rowsize + int(s)*bps8
			cpContigBufToSeparateBuf(obuf, buf[off:], int(nrows), int(width), 0, 0, int(spp), bps8)
			if err := out.WriteEncodedStrip(strip, obuf[:size]); err != nil {
				return errors.Wrapf(err, "can't write strip %d", strip)
			}
			strip++
			if uint64(row)+uint64(rps) >= uint64(length) {
				break
			}
		}
	}
	return nil
}

func writeBufferToContigTiles(c *copier, out Directory, buf []byte, length, width uint32, spp uint16) error {
	obuf, err := c.alloc(int64(out.TileSize()))
	if err != nil {
		return err
	}
	imagew := out.ScanlineSize()
	tilew := out.TileRowSize()
	tw, tl := c.tileWidth, c.tileLength

	bufp := 0
	for row := uint32(0); row < length; row += tl {
		nrow := tl
		if uint64(row)+uint64(tl) > uint64(length) {
			nrow = length - row
			clear(obuf)
		}
		colb := 0
		for col := uint32(0); col < width && colb < imagew; col += tw {
			if colb+tilew > imagew {
				// Tile is clipped horizontally.
				cols := imagew - colb
				clear(obuf)
				cpStripToTile(obuf, buf[bufp+colb:], int(nrow), cols, tilew-cols, imagew-cols)
			} else {
				cpStripToTile(obuf, buf[bufp+colb:], int(nrow), tilew, 0, imagew-tilew)
			}
			if err := out.WriteTile(obuf, col, row, 0); err != nil {
				return errors.Wrapf(err, "can't write tile at %d %d", col, row)
			}
			colb += tilew
		}
		bufp += imagew * int(nrow)
	}
	return nil
}

func writeBufferToSeparateTiles(c *copier, out Directory, buf []byte, length, width uint32, spp uint16) error {
	if spp == 1 {
		return writeBufferToContigTiles(c, out, buf, length, width, spp)
	}
	bps8, err := bytesPerSample(out, spp)
	if err != nil {
		return err
	}
	obuf, err := c.alloc(int64(out.TileSize()))
	if err != nil {
		return err
	}
	imagew := out.RasterScanlineSize()
	tilew := out.TileRowSize()
	tw, tl := c.tileWidth, c.tileLength
	pixel := int(spp) * bps8

	bufp := 0
	for row := uint32(0); row < length; row += tl {
		nrow := tl
		if uint64(row)+uint64(tl) > uint64(length) {
			nrow = length - row
			clear(obuf)
		}
		colb := 0
		for col := uint32(0); col < width; col += tw {
			for s := uint16(0); s < spp; s++ {
				off := bufp + colb + int(s)*bps8
				if colb+tilew*int(spp) > imagew {
					// Tile is clipped horizontally.
					cols := (imagew - colb) / pixel
					clear(obuf)
					cpContigBufToSeparateBuf(obuf, buf[off:], int(nrow), cols,
						tilew-cols*bps8, imagew-cols*pixel, int(spp), bps8)
				} else {
					cpContigBufToSeparateBuf(obuf, buf[off:], int(nrow), int(tw),
						0, imagew-int(tw)*pixel, int(spp), bps8)
				}
				if err := out.WriteTile(obuf, col, row, s); err != nil {
					return errors.Wrapf(err, "can't write tile at %d %d of sample %d", col, row, s)
				}
			}
			colb += tilew * int(spp)
		}
		bufp += imagew * int(nrow)
	}
	return nil
}
