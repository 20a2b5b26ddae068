package tiff

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// A Field is one typed entry of a directory.
//
// Val holds one element per value: integers as is, RATIONAL/SRATIONAL packed as
// numerator | denominator<<32, FLOAT and DOUBLE as their IEEE 754 bits and
// BYTE/ASCII/UNDEFINED as one byte per element.
type Field struct {
	Tag  uint32
	Type DataType
	Val  []uint
}

// NewShort returns a SHORT field.
func NewShort(tag uint32, v ...uint16) Field {
	f := Field{Tag: tag, Type: TypeShort, Val: make([]uint, len(v))}
	for i := range v {
		f.Val[i] = uint(v[i])
	}
	return f
}

// NewLong returns a LONG field.
func NewLong(tag uint32, v ...uint32) Field {
	f := Field{Tag: tag, Type: TypeLong, Val: make([]uint, len(v))}
	for i := range v {
		f.Val[i] = uint(v[i])
	}
	return f
}

// NewRational returns a RATIONAL field approximating the given values.
func NewRational(tag uint32, v ...float64) Field {
	f := Field{Tag: tag, Type: TypeRational, Val: make([]uint, len(v))}
	for i := range v {
		num, denom := toRational(v[i])
		f.Val[i] = uint(num) | uint(denom)<<32
	}
	return f
}

// NewDouble returns a DOUBLE field.
func NewDouble(tag uint32, v ...float64) Field {
	f := Field{Tag: tag, Type: TypeDouble, Val: make([]uint, len(v))}
	for i := range v {
		f.Val[i] = uint(math.Float64bits(v[i]))
	}
	return f
}

// NewASCII returns a NUL-terminated ASCII field.
func NewASCII(tag uint32, s string) Field {
	if !strings.HasSuffix(s, "\x00") {
		s += "\x00"
	}
	f := NewByte(tag, []byte(s))
	f.Type = TypeASCII
	return f
}

// NewByte returns a BYTE field.
func NewByte(tag uint32, b []byte) Field {
	f := Field{Tag: tag, Type: TypeByte, Val: make([]uint, len(b))}
	for i := range b {
		f.Val[i] = uint(b[i])
	}
	return f
}

// NewUndefined returns an UNDEFINED field (opaque bytes, e.g. an ICC profile).
func NewUndefined(tag uint32, b []byte) Field {
	f := NewByte(tag, b)
	f.Type = TypeUndefined
	return f
}

// toRational finds a small exact fraction for v when there is one.
func toRational(v float64) (uint32, uint32) {
	if v <= 0 || math.IsNaN(v) {
		return 0, 1
	}
	if v >= math.MaxUint32 {
		return math.MaxUint32, 1
	}
	for denom := float64(1); denom <= 1e6; denom *= 10 {
		num := v * denom
		if num > math.MaxUint32 {
			break
		}
		if math.Abs(num-math.Round(num)) < 1e-9 {
			return uint32(math.Round(num)), uint32(denom)
		}
	}
	if v < 1 {
		return uint32(v * math.MaxUint32), math.MaxUint32
	}
	return math.MaxUint32, uint32(math.MaxUint32 / v)
}

// Count returns the number of values of the field.
func (f Field) Count() int {
	return len(f.Val)
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	f.Val = append([]uint(nil), f.Val...)
	return f
}

// Head returns a copy of the field restricted to its first n values.
func (f Field) Head(n int) Field {
	if n > len(f.Val) {
		n = len(f.Val)
	}
	f.Val = append([]uint(nil), f.Val[:n]...)
	return f
}

// FirstVal returns the first value of the field,
// or 0 if the field is empty.
func (f Field) FirstVal() uint {
	if len(f.Val) == 0 {
		return 0
	}
	return f.Val[0]
}

// Short returns the value at index as an uint16, or 0 if out of range.
func (f Field) Short(index int) uint16 {
	if len(f.Val) <= index {
		return 0
	}
	return uint16(f.Val[index])
}

// Shorts returns all the values as uint16.
func (f Field) Shorts() []uint16 {
	s := make([]uint16, len(f.Val))
	for i := range f.Val {
		s[i] = uint16(f.Val[i])
	}
	return s
}

// Long returns the value at index as an uint32, or 0 if out of range.
func (f Field) Long(index int) uint32 {
	if len(f.Val) <= index {
		return 0
	}
	return uint32(f.Val[index])
}

// Rational returns the unsigned rational at index,
// or 0 if out of range.
func (f Field) Rational(index int) *big.Rat {
	if len(f.Val) <= index {
		return new(big.Rat)
	}
	u64 := uint64(f.Val[index])
	num := int64(u64 & 0xFFFFFFFF)
	denom := int64(u64 >> 32)
	if denom == 0 {
		return new(big.Rat)
	}
	return big.NewRat(num, denom)
}

// SRational returns the signed rational at index,
// or 0 if out of range.
func (f Field) SRational(index int) *big.Rat {
	if len(f.Val) <= index {
		return new(big.Rat)
	}
	u64 := uint64(f.Val[index])
	num := int32(u64 & 0xFFFFFFFF)
	denom := int32(u64 >> 32)
	if denom == 0 {
		return new(big.Rat)
	}
	return big.NewRat(int64(num), int64(denom))
}

// Double returns the float64 at index of a DOUBLE field,
// or 0 if out of range.
func (f Field) Double(index int) float64 {
	if len(f.Val) <= index {
		return 0
	}
	return math.Float64frombits(uint64(f.Val[index]))
}

// AsFloat returns the converted float64 at index whatever the field type,
// or 0 if out of range.
func (f Field) AsFloat(index int) float64 {
	if len(f.Val) <= index {
		return 0
	}
	switch f.Type {
	case TypeRational:
		v, _ := f.Rational(index).Float64()
		return v
	case TypeSRational:
		v, _ := f.SRational(index).Float64()
		return v
	case TypeDouble:
		return f.Double(index)
	case TypeFloat:
		return float64(math.Float32frombits(uint32(f.Val[index])))
	case TypeSByte:
		return float64(int8(f.Val[index]))
	case TypeSShort:
		return float64(int16(f.Val[index]))
	case TypeSLong:
		return float64(int32(f.Val[index]))
	default:
		return float64(f.Val[index])
	}
}

// Floats returns all the values converted to float64.
func (f Field) Floats() []float64 {
	v := make([]float64, len(f.Val))
	for i := range v {
		v[i] = f.AsFloat(i)
	}
	return v
}

// Bytes returns the values of a BYTE, ASCII or UNDEFINED field as a byte slice.
func (f Field) Bytes() []byte {
	b := make([]byte, len(f.Val))
	for i := range f.Val {
		b[i] = byte(f.Val[i])
	}
	return b
}

// ASCII returns the first string of an ASCII field.
func (f Field) ASCII() string {
	s := string(f.Bytes())
	if i := strings.IndexByte(s, 0); i >= 0 {
		return s[:i]
	}
	return s
}

// Strings returns all the NUL-separated strings of an ASCII field.
func (f Field) Strings() []string {
	s := strings.TrimSuffix(string(f.Bytes()), "\x00")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\x00")
}

// Name returns the common name of the field.
func (f Field) Name() string {
	return tagname(f.Tag)
}

// PrettyPrintedValue returns the formatted value.
func (f Field) PrettyPrintedValue() string {
	return valuename(f)
}

// String implements Stringer.
func (f Field) String() string {
	return fmt.Sprintf("%s: %s", f.Name(), f.PrettyPrintedValue())
}
