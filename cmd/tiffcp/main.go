// Command tiffcp copies, concatenates and converts TIFF images.
//
//	tiffcp [options] input.tif[,dir...] ... output.tif
package main

import (
	"bytes"
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mdouchement/tiffcp"
	"github.com/mdouchement/tiffcp/tiff"
	"github.com/pkg/errors"
)

const usage = `usage: tiffcp [options] input... output
where options are:
 -a              append to output instead of overwriting
 -b file[,dir]   bias (dark) monochrome image to be subtracted from all others
 -c none         write uncompressed data
 -c packbits     compress output with packbits encoding
 -c lzw[:opts]   compress output with Lempel-Ziv & Welch encoding
 -c zip[:opts]   compress output with deflate encoding
 -c zstd[:opts]  compress output with ZSTD encoding
 -c lzma[:opts]  compress output with LZMA2 encoding
 -c webp[:opts]  compress output with WEBP encoding
 -c lerc[:opts]  compress output with LERC encoding
 -c jpeg[:opts]  compress output with JPEG encoding
 -c jbig         compress output with ISO JBIG encoding
 -c g3[:opts]    compress output with CCITT Group 3 encoding
 -c g4           compress output with CCITT Group 4 encoding
 -c sgilog       compress output with SGILOG encoding
 -f lsb2msb      force lsb-to-msb FillOrder for output
 -f msb2lsb      force msb-to-lsb FillOrder for output
 -i              ignore read errors
 -l #            set tile length (implies -t)
 -m #            set the memory allocation limit in MiB, 0 to disable
 -p contig       pack samples contiguously (e.g. RGBRGB...)
 -p separate     store samples separately (e.g. RRR...GGG...BBB...)
 -r #            make each strip have no more than # rows, -1 for one strip
 -s              write output in strips
 -t              write output in tiles
 -w #            set tile width (implies -t)
 -x              force the merged tiff pages in sequence
 -B              write big-endian instead of little-endian
 -L              write little-endian (default)

LZW, Deflate (ZIP), LZMA2, ZSTD, WEBP and LERC options:
 #               set predictor value
 p#              set compression level (preset), 100 for lossless WEBP
 e#              set the LERC maximum error
 s#              set the sub-codec (LERC: 0 none, 1 deflate, 2 zstd)
 d               use deflate as LERC sub-codec
 z               use zstd as LERC sub-codec
For example, -c lzw:2 to get LZW-encoded data with horizontal differencing,
-c zip:3:p9 for Deflate encoding with maximum compression level and floating
point predictor.

JPEG options:
 #               set compression quality level (0-100, default 75)
 r               output color image as RGB rather than YCbCr

Group 3 options:
 1d              use default CCITT Group 3 1D-encoding
 2d              use optional CCITT Group 3 2D-encoding
 fill            byte-align EOL codes
`

// Group 3 option bits.
const (
	group3Opt2DEncoding = 0x1
	group3OptFillBits   = 0x4
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "tiffcp:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := tiffcp.DefaultConfig()

	fs := flag.NewFlagSet("tiffcp", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	var (
		appendOut    = fs.Bool("a", false, "")
		biasArg      = fs.String("b", "", "")
		compression  = fs.String("c", "", "")
		fillOrder    = fs.String("f", "", "")
		ignore       = fs.Bool("i", false, "")
		tileLength   = fs.Uint("l", 0, "")
		maxMalloc    = fs.Int64("m", tiffcp.DefaultMaxMalloc>>20, "")
		planar       = fs.String("p", "", "")
		rowsPerStrip = fs.Int64("r", 0, "")
		strips       = fs.Bool("s", false, "")
		tiles        = fs.Bool("t", false, "")
		tileWidth    = fs.Uint("w", 0, "")
		inSequence   = fs.Bool("x", false, "")
		bigEndian    = fs.Bool("B", false, "")
		_            = fs.Bool("L", true, "")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		fs.Usage()
		return errors.New("missing input or output file")
	}

	if *compression != "" {
		if err := parseCompression(*compression, &cfg); err != nil {
			fs.Usage()
			return err
		}
	}
	switch *fillOrder {
	case "":
	case "lsb2msb":
		cfg.FillOrder = tiff.FillOrderLSB2MSB
	case "msb2lsb":
		cfg.FillOrder = tiff.FillOrderMSB2LSB
	default:
		return errors.Errorf("unknown fill order %q", *fillOrder)
	}
	switch *planar {
	case "":
	case "contig":
		cfg.PlanarConfig = tiff.PlanarConfigContig
	case "separate":
		cfg.PlanarConfig = tiff.PlanarConfigSeparate
	default:
		return errors.Errorf("unknown planar configuration %q", *planar)
	}

	cfg.TileWidth, cfg.TileLength = uint32(*tileWidth), uint32(*tileLength)
	if *tiles || cfg.TileWidth != 0 || cfg.TileLength != 0 {
		cfg.Tiling = tiffcp.TilingTiles
	}
	if *strips {
		cfg.Tiling = tiffcp.TilingStrips
	}
	if *rowsPerStrip < 0 {
		cfg.RowsPerStrip = tiffcp.WholeImage
	} else {
		cfg.RowsPerStrip = uint32(*rowsPerStrip)
	}
	cfg.IgnoreReadErrors = *ignore
	cfg.MaxMalloc = *maxMalloc << 20
	cfg.PageInSequence = *inSequence

	inputs, output := fs.Args()[:fs.NArg()-1], fs.Arg(fs.NArg()-1)
	cfg.SingleInput = len(inputs) == 1

	if *biasArg != "" {
		bias, err := openBias(*biasArg)
		if err != nil {
			return err
		}
		defer bias.Close()
		cfg.Bias = bias
	}

	order := binary.ByteOrder(binary.LittleEndian)
	if *bigEndian {
		order = binary.BigEndian
	}
	out, err := openOutput(output, order, *appendOut)
	if err != nil {
		return err
	}

	c := tiffcp.New(cfg)
	for _, input := range inputs {
		if err := copyInput(c, input, out, cfg.Logger); err != nil {
			return err
		}
	}
	return writeOutput(out, output)
}

// openOutput returns the file receiving the copies. When appending, the
// directories of the existing file are kept.
func openOutput(name string, order binary.ByteOrder, appendOut bool) (*tiff.File, error) {
	if !appendOut {
		return tiff.NewWithByteOrder(name, order), nil
	}
	data, err := os.ReadFile(name)
	if os.IsNotExist(err) {
		return tiff.NewWithByteOrder(name, order), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not read output")
	}
	out, err := tiff.Decode(name, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := out.SetDirectory(out.NumberOfDirectories() - 1); err != nil {
		return nil, err
	}
	return out, out.WriteDirectory()
}

func writeOutput(out *tiff.File, name string) error {
	fd, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "could not create output")
	}
	if err := out.Encode(fd); err != nil {
		fd.Close()
		return err
	}
	return errors.Wrap(fd.Close(), name)
}

// splitInput splits an input argument "file[,dir...]".
func splitInput(arg string) (string, []int, error) {
	parts := strings.Split(arg, ",")
	var dirs []int
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return "", nil, errors.Errorf("%s: invalid directory number %q", parts[0], p)
		}
		dirs = append(dirs, n)
	}
	return parts[0], dirs, nil
}

func openBias(arg string) (*tiff.File, error) {
	name, dirs, err := splitInput(arg)
	if err != nil {
		return nil, err
	}
	bias, err := tiff.Open(name)
	if err != nil {
		return nil, err
	}
	if len(dirs) > 0 {
		if err := bias.SetDirectory(dirs[0]); err != nil {
			bias.Close()
			return nil, err
		}
	}
	if bias.IsTiled() {
		bias.Close()
		return nil, errors.Errorf("%s: bias image must be organized in strips", name)
	}
	if spp, _ := bias.FieldDefaulted(tiff.TagSamplesPerPixel); spp.Short(0) != 1 {
		bias.Close()
		return nil, errors.Errorf("%s: bias image must be monochrome", name)
	}
	return bias, nil
}

// copyInput copies the selected directories of input, all of them by default.
func copyInput(c *tiffcp.Copier, input string, out *tiff.File, logger tiffcp.Logger) error {
	name, dirs, err := splitInput(input)
	if err != nil {
		return err
	}
	in, err := tiff.Open(name)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := in.Warnings(); err != nil {
		logger.Printf("%s: warning: %v", name, err)
	}

	if len(dirs) == 0 {
		for n := 0; n < in.NumberOfDirectories(); n++ {
			dirs = append(dirs, n)
		}
	}
	for _, n := range dirs {
		if err := in.SetDirectory(n); err != nil {
			return err
		}
		if err := c.CopyDirectory(in, out); err != nil {
			return err
		}
		if err := out.WriteDirectory(); err != nil {
			return err
		}
	}
	return nil
}
