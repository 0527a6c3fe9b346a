// Package stream implements the little-endian binary reader and writer used
// by every save_data/load_data pair in the runtime.
//
// Both sides keep a sticky error: after the first failure every further call
// is a no-op and Err reports the failure, so callers can encode a whole record
// and check once.
package stream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/encoding"

	"github.com/nathoo/questlogic/types"
)

var (
	// ErrShortRead is returned when the data ends before a value is complete.
	ErrShortRead = errors.New("stream: short read")
	// ErrUnsupportedVersion is returned for save versions this build cannot read.
	ErrUnsupportedVersion = errors.New("stream: unsupported save version")
)

// CheckVersion fails for versions outside [MinSaveVersion, SaveVersion].
func CheckVersion(version int) error {
	if version < types.MinSaveVersion || version > types.SaveVersion {
		return fmt.Errorf("%w: %d (supported %d..%d)",
			ErrUnsupportedVersion, version, types.MinSaveVersion, types.SaveVersion)
	}
	return nil
}

// Writer accumulates encoded values in memory.
type Writer struct {
	buf bytes.Buffer
	enc *encoding.Encoder
	err error
}

// NewWriter returns an empty writer. Strings are written as-is.
func NewWriter() *Writer {
	return &Writer{}
}

// WithEncoding makes the writer re-encode strings through e.
func (w *Writer) WithEncoding(e encoding.Encoding) *Writer {
	if e != nil {
		w.enc = e.NewEncoder()
	}
	return w
}

// Err returns the first error encountered.
func (w *Writer) Err() error { return w.err }

// Data returns the encoded bytes.
func (w *Writer) Data() []byte { return w.buf.Bytes() }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.buf.Len() }

func (w *Writer) put(v any) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *Writer) Uint8(v uint8)     { w.put(v) }
func (w *Writer) Int32(v int32)     { w.put(v) }
func (w *Writer) Uint32(v uint32)   { w.put(v) }
func (w *Writer) Int64(v int64)     { w.put(v) }
func (w *Writer) Uint64(v uint64)   { w.put(v) }
func (w *Writer) Float32(v float32) { w.put(math.Float32bits(v)) }
func (w *Writer) Float64(v float64) { w.put(math.Float64bits(v)) }

// Bool writes a single byte, 1 for true.
func (w *Writer) Bool(v bool) {
	var b byte
	if v {
		b = 1
	}
	w.put(b)
}

// Raw writes bytes without a length prefix.
func (w *Writer) Raw(b []byte) {
	if w.err != nil {
		return
	}
	w.buf.Write(b)
}

// Block writes a uint32 length followed by the bytes.
func (w *Writer) Block(b []byte) {
	w.Uint32(uint32(len(b)))
	w.Raw(b)
}

// Str writes a uint32 length that includes the terminating NUL, then the
// (re-encoded) bytes and the NUL.
func (w *Writer) Str(s string) {
	if w.err != nil {
		return
	}
	if w.enc != nil {
		enc, err := w.enc.String(s)
		if err != nil {
			w.err = fmt.Errorf("stream: encoding %q: %w", s, err)
			return
		}
		s = enc
	}
	w.Uint32(uint32(len(s) + 1))
	w.Raw([]byte(s))
	w.Raw([]byte{0})
}

// Reader decodes values from a byte slice.
type Reader struct {
	data []byte
	pos  int
	dec  *encoding.Decoder
	err  error
}

// NewReader reads from data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// WithEncoding makes the reader decode strings through e.
func (r *Reader) WithEncoding(e encoding.Encoding) *Reader {
	if e != nil {
		r.dec = e.NewDecoder()
	}
	return r
}

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Pos returns the read offset.
func (r *Reader) Pos() int { return r.pos }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.Remaining() {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortRead, n, r.pos, r.Remaining())
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Int32() int32 {
	return int32(r.Uint32())
}

func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) Int64() int64 {
	return int64(r.Uint64())
}

func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) Float32() float32 { return math.Float32frombits(r.Uint32()) }
func (r *Reader) Float64() float64 { return math.Float64frombits(r.Uint64()) }

func (r *Reader) Bool() bool {
	b := r.take(1)
	return b != nil && b[0] != 0
}

// Raw reads exactly n bytes.
func (r *Reader) Raw(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Block reads a uint32 length-prefixed byte block.
func (r *Reader) Block() []byte {
	n := r.Uint32()
	if r.err != nil {
		return nil
	}
	return r.Raw(int(n))
}

// Str reads a length-prefixed, NUL-terminated string. Anything after the
// first NUL inside the declared length is ignored.
func (r *Reader) Str() string {
	n := r.Uint32()
	if r.err != nil {
		return ""
	}
	b := r.take(int(n))
	if b == nil {
		return ""
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if r.dec == nil {
		return string(b)
	}
	s, err := r.dec.Bytes(b)
	if err != nil {
		r.err = fmt.Errorf("stream: decoding string at offset %d: %w", r.pos, err)
		return ""
	}
	return string(s)
}

// Fail records err unless an earlier error is already set.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
