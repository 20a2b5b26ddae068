package main

import (
	"strconv"
	"strings"

	"github.com/mdouchement/tiffcp"
	"github.com/mdouchement/tiffcp/tiff"
	"github.com/pkg/errors"
)

// parseCompression applies a -c option value, "scheme[:opt...]", to cfg.
func parseCompression(value string, cfg *tiffcp.Config) error {
	scheme, opts, _ := strings.Cut(value, ":")
	var options []string
	if opts != "" {
		options = strings.Split(opts, ":")
	}

	switch scheme {
	case "none":
		cfg.Compression = tiff.CompressionNone
	case "packbits":
		cfg.Compression = tiff.CompressionPackBits
	case "jpeg":
		cfg.Compression = tiff.CompressionJPEG
		return parseJPEGOptions(options, cfg)
	case "g3":
		cfg.Compression = tiff.CompressionCCITTFax3
		return parseG3Options(options, cfg)
	case "g4":
		cfg.Compression = tiff.CompressionCCITTFax4
	case "lzw":
		cfg.Compression = tiff.CompressionLZW
		return parseCodecOptions(options, cfg)
	case "zip":
		cfg.Compression = tiff.CompressionAdobeDeflate
		return parseCodecOptions(options, cfg)
	case "lerc":
		cfg.Compression = tiff.CompressionLERC
		return parseCodecOptions(options, cfg)
	case "lzma":
		cfg.Compression = tiff.CompressionLZMA
		return parseCodecOptions(options, cfg)
	case "zstd":
		cfg.Compression = tiff.CompressionZSTD
		return parseCodecOptions(options, cfg)
	case "webp":
		cfg.Compression = tiff.CompressionWEBP
		return parseCodecOptions(options, cfg)
	case "jbig":
		cfg.Compression = tiff.CompressionJBIG
	case "sgilog":
		cfg.Compression = tiff.CompressionSGILog
	default:
		return errors.Errorf("unknown compression scheme %q", scheme)
	}
	return nil
}

func parseJPEGOptions(options []string, cfg *tiffcp.Config) error {
	for _, opt := range options {
		switch {
		case opt == "r":
			cfg.JPEGColorMode = tiff.JPEGColorModeRaw
		case opt != "" && opt[0] >= '0' && opt[0] <= '9':
			quality, err := strconv.Atoi(opt)
			if err != nil {
				return errors.Wrapf(err, "invalid JPEG quality %q", opt)
			}
			cfg.Quality = quality
		default:
			return errors.Errorf("unknown JPEG option %q", opt)
		}
	}
	return nil
}

func parseG3Options(options []string, cfg *tiffcp.Config) error {
	if len(options) > 0 && cfg.Group3Options == tiffcp.Unset {
		cfg.Group3Options = 0
	}
	for _, opt := range options {
		switch opt {
		case "1d":
			cfg.Group3Options &^= group3Opt2DEncoding
		case "2d":
			cfg.Group3Options |= group3Opt2DEncoding
		case "fill":
			cfg.Group3Options |= group3OptFillBits
		default:
			return errors.Errorf("unknown Group 3 option %q", opt)
		}
	}
	return nil
}

// parseCodecOptions parses the options shared by LZW, Deflate, LZMA, ZSTD, WEBP and LERC.
func parseCodecOptions(options []string, cfg *tiffcp.Config) error {
	for _, opt := range options {
		if opt == "" {
			return errors.New("empty compression option")
		}
		var err error
		switch c := opt[0]; {
		case c >= '0' && c <= '9':
			var predictor uint64
			predictor, err = strconv.ParseUint(opt, 10, 16)
			cfg.Predictor = uint16(predictor)
		case c == 'p':
			cfg.Preset, err = strconv.Atoi(opt[1:])
		case c == 'e':
			cfg.MaxZError, err = strconv.ParseFloat(opt[1:], 64)
		case c == 's':
			cfg.SubCodec, err = strconv.Atoi(opt[1:])
		case c == 'd' && len(opt) == 1:
			cfg.SubCodec = tiff.LercAddCompressionDeflate
		case c == 'z' && len(opt) == 1:
			cfg.SubCodec = tiff.LercAddCompressionZstd
		default:
			return errors.Errorf("unknown compression option %q", opt)
		}
		if err != nil {
			return errors.Wrapf(err, "invalid compression option %q", opt)
		}
	}
	return nil
}
