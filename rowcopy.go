package tiffcp

import (
	"fmt"

	"github.com/mdouchement/tiffcp/tiff"
	"github.com/pkg/errors"
)

// A copyFunc copies the pixels of in to out, both having the given geometry.
type copyFunc func(c *copier, in, out Directory, length, width uint32, spp uint16) error

// alloc returns a zeroed buffer of size bytes unless it exceeds the allocation ceiling.
func (c *copier) alloc(size int64) ([]byte, error) {
	if size < 0 || (c.MaxMalloc != 0 && size > c.MaxMalloc) {
		return nil, MemoryLimitError{Size: size, Limit: c.MaxMalloc}
	}
	return make([]byte, size), nil
}

// readFailed reports whether a read error aborts the copy. Ignored errors are logged.
func (c *copier) readFailed(in Directory, err error) bool {
	if err == nil {
		return false
	}
	if c.IgnoreReadErrors {
		c.Logger.Printf("%s: warning: %v", in.FileName(), err)
		return false
	}
	return true
}

func cpContig2ContigByRow(c *copier, in, out Directory, length, width uint32, spp uint16) error {
	buf, err := c.alloc(int64(in.ScanlineSize()))
	if err != nil {
		return err
	}
	for row := uint32(0); row < length; row++ {
		if err := in.ReadScanline(buf, row, 0); c.readFailed(in, err) {
			return errors.Wrapf(err, "can't read scanline %d", row)
		}
		if err := out.WriteScanline(buf, row, 0); err != nil {
			return errors.Wrapf(err, "can't write scanline %d", row)
		}
	}
	return nil
}

// cpBiasedContig2Contig subtracts the bias image from each scanline of a
// single-sample image. The bias directory is rewound afterwards so that it can
// serve the next image.
func cpBiasedContig2Contig(c *copier, in, out Directory, length, width uint32, spp uint16) (err error) {
	bias := c.Bias
	if spp != 1 {
		return UnsupportedError(fmt.Sprintf("can't bias %s,%d as it has %d samples per pixel",
			in.FileName(), in.CurrentDirectory(), spp))
	}
	biasDir := bias.CurrentDirectory()
	defer func() {
		if rerr := bias.SetDirectory(biasDir); rerr != nil && err == nil {
			err = errors.Wrapf(rerr, "can't rewind bias image %s to directory %d", bias.FileName(), biasDir)
		}
	}()

	biasWidth, _ := bias.FieldDefaulted(tiff.TagImageWidth)
	biasLength, _ := bias.FieldDefaulted(tiff.TagImageLength)
	biasBits, _ := bias.FieldDefaulted(tiff.TagBitsPerSample)
	bits, _ := in.FieldDefaulted(tiff.TagBitsPerSample)
	if biasWidth.Long(0) != width || biasLength.Long(0) != length || biasBits.Short(0) != bits.Short(0) {
		return GeometryError(fmt.Sprintf("bias image %s,%d is not the same size as %s,%d",
			bias.FileName(), bias.CurrentDirectory(), in.FileName(), in.CurrentDirectory()))
	}

	subtractLine := lineSubtractFn(bits.Short(0))
	if subtractLine == nil {
		return UnsupportedError(fmt.Sprintf("can't bias %s,%d as it has %d bits per sample",
			in.FileName(), in.CurrentDirectory(), bits.Short(0)))
	}

	buf, err := c.alloc(int64(in.ScanlineSize()))
	if err != nil {
		return err
	}
	biasBuf, err := c.alloc(int64(bias.ScanlineSize()))
	if err != nil {
		return err
	}
	for row := uint32(0); row < length; row++ {
		if err := in.ReadScanline(buf, row, 0); c.readFailed(in, err) {
			return errors.Wrapf(err, "can't read scanline %d", row)
		}
		if err := bias.ReadScanline(biasBuf, row, 0); c.readFailed(bias, err) {
			return errors.Wrapf(err, "can't read biased scanline %d", row)
		}
		subtractLine(buf, biasBuf, int(width))
		if err := out.WriteScanline(buf, row, 0); err != nil {
			return errors.Wrapf(err, "can't write scanline %d", row)
		}
	}
	return nil
}

// cpDecodedStrips copies strip by strip when both images share their strip layout.
func cpDecodedStrips(c *copier, in, out Directory, length, width uint32, spp uint16) error {
	stripSize := in.StripSize()
	buf, err := c.alloc(int64(stripSize))
	if err != nil {
		return err
	}

	rps := c.rowsPerStrip
	perPlane := int((uint64(length) + uint64(rps) - 1) / uint64(rps))
	ns := in.NumberOfStrips()
	for s := 0; s < ns; s++ {
		row := uint32(s%perPlane) * rps
		cc := stripSize
		if uint64(row)+uint64(rps) > uint64(length) {
			cc = in.VStripSize(length - row)
		}
		if _, err := in.ReadEncodedStrip(s, buf[:cc]); c.readFailed(in, err) {
			return errors.Wrapf(err, "can't read strip %d", s)
		}
		if err := out.WriteEncodedStrip(s, buf[:cc]); err != nil {
			return errors.Wrapf(err, "can't write strip %d", s)
		}
	}
	return nil
}

func cpSeparate2SeparateByRow(c *copier, in, out Directory, length, width uint32, spp uint16) error {
	buf, err := c.alloc(int64(in.ScanlineSize()))
	if err != nil {
		return err
	}
	for s := uint16(0); s < spp; s++ {
		for row := uint32(0); row < length; row++ {
			if err := in.ReadScanline(buf, row, s); c.readFailed(in, err) {
				return errors.Wrapf(err, "can't read scanline %d of sample %d", row, s)
			}
			if err := out.WriteScanline(buf, row, s); err != nil {
				return errors.Wrapf(err, "can't write scanline %d of sample %d", row, s)
			}
		}
	}
	return nil
}

// cpContig2SeparateByRow splits interleaved scanlines into planes.
func cpContig2SeparateByRow(c *copier, in, out Directory, length, width uint32, spp uint16) error {
	if spp == 1 {
		return cpSeparate2SeparateByRow(c, in, out, length, width, spp)
	}
	bps, err := bytesPerSample(in, spp)
	if err != nil {
		return err
	}
	inbuf, err := c.alloc(int64(in.ScanlineSize()))
	if err != nil {
		return err
	}
	outbuf, err := c.alloc(int64(out.ScanlineSize()))
	if err != nil {
		return err
	}
	for s := uint16(0); s < spp; s++ {
		for row := uint32(0); row < length; row++ {
			if err := in.ReadScanline(inbuf, row, 0); c.readFailed(in, err) {
				return errors.Wrapf(err, "can't read scanline %d", row)
			}
			cpContigBufToSeparateBuf(outbuf, inbuf[int(s)*bps:], 1, int(width), 0, 0, int(spp), bps)
			if err := out.WriteScanline(outbuf, row, s); err != nil {
				return errors.Wrapf(err, "can't write scanline %d of sample %d", row, s)
			}
		}
	}
	return nil
}

// cpSeparate2ContigByRow interleaves planes into scanlines.
func cpSeparate2ContigByRow(c *copier, in, out Directory, length, width uint32, spp uint16) error {
	if spp == 1 {
		return cpSeparate2SeparateByRow(c, in, out, length, width, spp)
	}
	bps, err := bytesPerSample(in, spp)
	if err != nil {
		return err
	}
	inbuf, err := c.alloc(int64(in.ScanlineSize()))
	if err != nil {
		return err
	}
	outbuf, err := c.alloc(int64(out.ScanlineSize()))
	if err != nil {
		return err
	}
	for row := uint32(0); row < length; row++ {
		for s := uint16(0); s < spp; s++ {
			if err := in.ReadScanline(inbuf, row, s); c.readFailed(in, err) {
				return errors.Wrapf(err, "can't read scanline %d of sample %d", row, s)
			}
			cpSeparateBufToContigBuf(outbuf[int(s)*bps:], inbuf, 1, int(width), 0, 0, int(spp), bps)
		}
		if err := out.WriteScanline(outbuf, row, 0); err != nil {
			return errors.Wrapf(err, "can't write scanline %d", row)
		}
	}
	return nil
}
