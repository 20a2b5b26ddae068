package tiffcp

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/mdouchement/tiffcp/tiff"
)

// variableCount marks a field copied with all its values.
const variableCount = -1

// propagated lists the fields copied verbatim from the source image, with the
// number of values and the type they are written with.
var propagated = []struct {
	tag   uint32
	count int
	typ   tiff.DataType
}{
	{tiff.TagSubfileType, 1, tiff.TypeLong},
	{tiff.TagThreshholding, 1, tiff.TypeShort},
	{tiff.TagDocumentName, 1, tiff.TypeASCII},
	{tiff.TagImageDescription, 1, tiff.TypeASCII},
	{tiff.TagMake, 1, tiff.TypeASCII},
	{tiff.TagModel, 1, tiff.TypeASCII},
	{tiff.TagMinSampleValue, 1, tiff.TypeShort},
	{tiff.TagMaxSampleValue, 1, tiff.TypeShort},
	{tiff.TagXResolution, 1, tiff.TypeRational},
	{tiff.TagYResolution, 1, tiff.TypeRational},
	{tiff.TagPageName, 1, tiff.TypeASCII},
	{tiff.TagXPosition, 1, tiff.TypeRational},
	{tiff.TagYPosition, 1, tiff.TypeRational},
	{tiff.TagResolutionUnit, 1, tiff.TypeShort},
	{tiff.TagSoftware, 1, tiff.TypeASCII},
	{tiff.TagDateTime, 1, tiff.TypeASCII},
	{tiff.TagArtist, 1, tiff.TypeASCII},
	{tiff.TagHostComputer, 1, tiff.TypeASCII},
	{tiff.TagWhitePoint, variableCount, tiff.TypeRational},
	{tiff.TagPrimaryChromaticities, variableCount, tiff.TypeRational},
	{tiff.TagHalftoneHints, 2, tiff.TypeShort},
	{tiff.TagInkSet, 1, tiff.TypeShort},
	{tiff.TagDotRange, 2, tiff.TypeShort},
	{tiff.TagTargetPrinter, 1, tiff.TypeASCII},
	{tiff.TagSampleFormat, 1, tiff.TypeShort},
	{tiff.TagYCbCrCoefficients, variableCount, tiff.TypeRational},
	{tiff.TagYCbCrSubsampling, 2, tiff.TypeShort},
	{tiff.TagYCbCrPositioning, 1, tiff.TypeShort},
	{tiff.TagReferenceBlackWhite, variableCount, tiff.TypeRational},
	{tiff.TagExtraSamples, variableCount, tiff.TypeShort},
	{tiff.TagSMinSampleValue, 1, tiff.TypeDouble},
	{tiff.TagSMaxSampleValue, 1, tiff.TypeDouble},
	{tiff.TagStoNits, 1, tiff.TypeDouble},
}

// propagateTags copies the fields of the propagated table present in the source.
// The returned error aggregates the fields that could not be copied.
func propagateTags(in, out Directory) error {
	var result *multierror.Error
	for _, p := range propagated {
		result = multierror.Append(result, cpTag(in, out, p.tag, p.count, p.typ))
	}
	return result.ErrorOrNil()
}

// cpTag copies the field tag from in to out when it is present, converting its
// values to typ. A count of 4 SHORT values copies per-sample tables
// (transfer function, color map) in full.
func cpTag(in, out Directory, tag uint32, count int, typ tiff.DataType) error {
	f, ok := in.Field(tag)
	if !ok || f.Count() == 0 {
		return nil
	}

	var field tiff.Field
	switch typ {
	case tiff.TypeShort:
		field = tiff.NewShort(tag, f.Shorts()...)
		if count == 1 || count == 2 {
			field = field.Head(count)
		}
	case tiff.TypeLong:
		field = tiff.NewLong(tag, f.Long(0))
	case tiff.TypeRational:
		if f.Type == tiff.TypeRational {
			field = f
		} else {
			field = tiff.NewRational(tag, f.Floats()...)
		}
		if count == 1 {
			field = field.Head(1)
		}
	case tiff.TypeASCII:
		field = tiff.NewASCII(tag, f.ASCII())
	case tiff.TypeDouble:
		field = tiff.NewDouble(tag, f.AsFloat(0))
	default:
		return UnsupportedError(fmt.Sprintf("%s: data type %d of field %d", in.FileName(), typ, tag))
	}
	return out.SetField(field)
}
