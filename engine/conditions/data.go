package conditions

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/nathoo/questlogic/types"
)

// Data is a typed operand buffer. Ints are signed 32-bit, floats IEEE-754
// single precision, both little-endian; strings are NUL-terminated bytes.
// The buffer only ever grows.
type Data struct {
	Type types.DataType
	buf  []byte
}

// NewData returns a buffer sized for n elements of type t.
func NewData(t types.DataType, n int) Data {
	d := Data{Type: t}
	if n > 0 {
		d.Alloc(n)
	}
	return d
}

// width returns the element width in bytes; strings are byte-addressed.
func (d *Data) width() int {
	switch d.Type {
	case types.DataInt, types.DataFloat:
		return 4
	}
	return 1
}

// Alloc makes room for n elements (n characters plus the NUL for strings).
// It is a no-op when the buffer is already large enough.
func (d *Data) Alloc(n int) {
	size := n * d.width()
	if d.Type == types.DataString {
		size = n + 1
	}
	if len(d.buf) < size {
		grown := make([]byte, size)
		copy(grown, d.buf)
		d.buf = grown
	}
}

// Size returns the buffer size in bytes.
func (d *Data) Size() int { return len(d.buf) }

// Len returns the element count: ints/floats held, or string length.
func (d *Data) Len() int {
	if d.Type == types.DataString {
		return len(d.String())
	}
	return len(d.buf) / d.width()
}

// PutInt stores v at element i, growing the buffer if needed.
func (d *Data) PutInt(v int32, i int) {
	if i < 0 {
		return
	}
	d.Alloc(i + 1)
	binary.LittleEndian.PutUint32(d.buf[i*4:], uint32(v))
}

// Int returns element i, or 0 when out of range.
func (d *Data) Int(i int) int32 {
	if i < 0 || (i+1)*4 > len(d.buf) {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(d.buf[i*4:]))
}

// PutFloat stores v at element i, growing the buffer if needed.
func (d *Data) PutFloat(v float32, i int) {
	if i < 0 {
		return
	}
	d.Alloc(i + 1)
	binary.LittleEndian.PutUint32(d.buf[i*4:], math.Float32bits(v))
}

// Float returns element i, or 0 when out of range.
func (d *Data) Float(i int) float32 {
	if i < 0 || (i+1)*4 > len(d.buf) {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(d.buf[i*4:]))
}

// PutString stores s followed by a NUL.
func (d *Data) PutString(s string) {
	d.Alloc(len(s))
	copy(d.buf, s)
	d.buf[len(s)] = 0
}

// String returns the bytes up to the first NUL.
func (d *Data) String() string {
	if i := bytes.IndexByte(d.buf, 0); i >= 0 {
		return string(d.buf[:i])
	}
	return string(d.buf)
}

// Ints returns every int element.
func (d *Data) Ints() []int32 {
	out := make([]int32, d.Len())
	for i := range out {
		out[i] = d.Int(i)
	}
	return out
}

// Floats returns every float element.
func (d *Data) Floats() []float32 {
	out := make([]float32, d.Len())
	for i := range out {
		out[i] = d.Float(i)
	}
	return out
}
