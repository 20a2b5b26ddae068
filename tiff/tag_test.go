package tiff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldValues(t *testing.T) {
	f := NewRational(TagXResolution, 72, 0.5, 300.25)
	assert.Equal(t, "72/1", f.Rational(0).String())
	assert.Equal(t, []float64{72, 0.5, 300.25}, f.Floats())
	assert.Equal(t, 1, f.Head(1).Count())
	assert.Equal(t, 3, f.Count())

	d := NewDouble(TagStoNits, math.Pi)
	assert.Equal(t, math.Pi, d.Double(0))
	assert.Equal(t, math.Pi, d.AsFloat(0))

	s := NewShort(TagBitsPerSample, 8, 8, 8)
	assert.Equal(t, []uint16{8, 8, 8}, s.Shorts())
	assert.Equal(t, uint16(0), s.Short(3))
	assert.Equal(t, uint32(8), s.Long(0))

	inks := NewASCII(TagInkNames, "cyan\x00magenta\x00yellow")
	assert.Equal(t, "cyan", inks.ASCII())
	assert.Equal(t, []string{"cyan", "magenta", "yellow"}, inks.Strings())
	assert.Equal(t, byte(0), inks.Bytes()[inks.Count()-1])

	neg := Field{Tag: TagSMinSampleValue, Type: TypeSShort, Val: []uint{0xFFFE}}
	assert.Equal(t, float64(-2), neg.AsFloat(0))

	clone := s.Clone()
	clone.Val[0] = 16
	assert.Equal(t, uint16(8), s.Short(0))
}

func TestFieldString(t *testing.T) {
	assert.Equal(t, "Compression: LZW", NewShort(TagCompression, CompressionLZW).String())
	assert.Equal(t, "Artist: [me]", NewASCII(TagArtist, "me").String())
	assert.Equal(t, "PlanarConfiguration: Separate (aka RRRRGGGGBBBB)",
		NewShort(TagPlanarConfig, PlanarConfigSeparate).String())
	assert.Equal(t, "Unknown(60000)", Field{Tag: 60000}.Name())
}

func TestToRational(t *testing.T) {
	var tests = []struct {
		v          float64
		num, denom uint32
	}{
		{0, 0, 1},
		{1, 1, 1},
		{72, 72, 1},
		{0.25, 25, 100},
		{2.5, 25, 10},
	}
	for _, tt := range tests {
		num, denom := toRational(tt.v)
		assert.Equal(t, tt.num, num, "%v", tt.v)
		assert.Equal(t, tt.denom, denom, "%v", tt.v)
	}
	num, denom := toRational(1.0 / 3)
	assert.InDelta(t, 1.0/3, float64(num)/float64(denom), 1e-9)
}
