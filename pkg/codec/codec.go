package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrTruncated is returned when the input ends in the middle of a value.
	ErrTruncated = errors.New("codec: unexpected end of input")

	// ErrInvalidTag is returned for a bool, option or union tag outside its range.
	ErrInvalidTag = errors.New("codec: invalid tag")

	// ErrLengthOverflow is returned when a length prefix cannot be represented
	// or exceeds the remaining input.
	ErrLengthOverflow = errors.New("codec: length overflow")

	// ErrTrailingBytes is returned by Unmarshal when input remains after decoding.
	ErrTrailingBytes = errors.New("codec: trailing bytes")
)

// Marshaler is implemented by values that can write themselves to an Encoder.
type Marshaler interface {
	MarshalCodec(e *Encoder)
}

// Unmarshaler is implemented by values that can read themselves from a Decoder.
type Unmarshaler interface {
	UnmarshalCodec(d *Decoder)
}

// SizeHinter lets a Marshaler announce the approximate encoded size.
type SizeHinter interface {
	SizeHint() int
}

// Marshal encodes v into a new byte slice.
func Marshal(v Marshaler) ([]byte, error) {
	hint := 0
	if h, ok := v.(SizeHinter); ok {
		hint = h.SizeHint()
	}
	e := NewEncoder(hint)
	v.MarshalCodec(e)
	return e.Bytes()
}

// Unmarshal decodes b into v. All of b must be consumed.
func Unmarshal(b []byte, v Unmarshaler) error {
	d := NewDecoder(b)
	v.UnmarshalCodec(d)
	return d.Finish()
}

// Encoder appends little-endian values to a buffer. The first error is
// sticky: later writes are ignored and Bytes reports it.
type Encoder struct {
	buf []byte
	err error
}

// NewEncoder returns an Encoder whose buffer starts with capacity sizeHint.
func NewEncoder(sizeHint int) *Encoder {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Encoder{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the encoded bytes or the first error hit while encoding.
func (e *Encoder) Bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.buf, nil
}

// Err returns the sticky error, if any.
func (e *Encoder) Err() error { return e.err }

// Fail records err unless an earlier error is already recorded.
func (e *Encoder) Fail(err error) {
	if e.err == nil && err != nil {
		e.err = err
	}
}

func (e *Encoder) PutUint8(v uint8) {
	if e.err != nil {
		return
	}
	e.buf = append(e.buf, v)
}

func (e *Encoder) PutUint32(v uint32) {
	if e.err != nil {
		return
	}
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) PutUint64(v uint64) {
	if e.err != nil {
		return
	}
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

func (e *Encoder) PutInt32(v int32)     { e.PutUint32(uint32(v)) }
func (e *Encoder) PutInt64(v int64)     { e.PutUint64(uint64(v)) }
func (e *Encoder) PutFloat64(v float64) { e.PutUint64(math.Float64bits(v)) }

func (e *Encoder) PutBool(v bool) {
	if v {
		e.PutUint8(1)
		return
	}
	e.PutUint8(0)
}

// PutLen writes a uint32 length prefix.
func (e *Encoder) PutLen(n int) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		e.Fail(fmt.Errorf("%w: %d", ErrLengthOverflow, n))
		return
	}
	e.PutUint32(uint32(n))
}

// PutTag writes a union or option discriminant.
func (e *Encoder) PutTag(tag uint8) { e.PutUint8(tag) }

// PutOption writes the presence tag of an optional value. The caller writes
// the value itself only when present is true.
func (e *Encoder) PutOption(present bool) { e.PutBool(present) }

func (e *Encoder) PutString(s string) {
	e.PutLen(len(s))
	if e.err != nil {
		return
	}
	e.buf = append(e.buf, s...)
}

func (e *Encoder) PutBytes(b []byte) {
	e.PutLen(len(b))
	if e.err != nil {
		return
	}
	e.buf = append(e.buf, b...)
}

// PutRaw writes b without a length prefix, for fixed-width fields.
func (e *Encoder) PutRaw(b []byte) {
	if e.err != nil {
		return
	}
	e.buf = append(e.buf, b...)
}

// Decoder reads values written by Encoder. Like Encoder, its first error is
// sticky and zero values are returned after it.
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder returns a Decoder reading from b.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

// Err returns the sticky error, if any.
func (d *Decoder) Err() error { return d.err }

// Fail records err unless an earlier error is already recorded.
func (d *Decoder) Fail(err error) {
	if d.err == nil && err != nil {
		d.err = fmt.Errorf("at offset %d: %w", d.off, err)
	}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

// Finish returns the sticky error, or ErrTrailingBytes if input is left over.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.buf) {
		return fmt.Errorf("%w: %d unread", ErrTrailingBytes, len(d.buf)-d.off)
	}
	return nil
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n > d.Remaining() {
		d.Fail(ErrTruncated)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *Decoder) Uint8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Decoder) Uint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *Decoder) Uint64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *Decoder) Int32() int32     { return int32(d.Uint32()) }
func (d *Decoder) Int64() int64     { return int64(d.Uint64()) }
func (d *Decoder) Float64() float64 { return math.Float64frombits(d.Uint64()) }

func (d *Decoder) Bool() bool {
	switch d.Uint8() {
	case 0:
		return false
	case 1:
		return true
	default:
		d.Fail(fmt.Errorf("%w: bool", ErrInvalidTag))
		return false
	}
}

// Len reads a length prefix for a sequence whose elements occupy at least
// minElem bytes each, rejecting lengths the remaining input cannot hold.
func (d *Decoder) Len(minElem int) int {
	n := d.Uint32()
	if d.err != nil {
		return 0
	}
	if minElem < 1 {
		minElem = 1
	}
	if uint64(n)*uint64(minElem) > uint64(d.Remaining()) {
		d.Fail(fmt.Errorf("%w: %d elements", ErrLengthOverflow, n))
		return 0
	}
	return int(n)
}

// Tag reads a union discriminant and checks it is below limit.
func (d *Decoder) Tag(limit uint8) uint8 {
	t := d.Uint8()
	if d.err == nil && t >= limit {
		d.Fail(fmt.Errorf("%w: %d", ErrInvalidTag, t))
		return 0
	}
	return t
}

// Option reads the presence tag of an optional value.
func (d *Decoder) Option() bool { return d.Bool() }

func (d *Decoder) Str() string {
	n := d.Len(1)
	return string(d.take(n))
}

// Bytes returns a copy of the next length-prefixed byte slice.
func (d *Decoder) Bytes() []byte {
	n := d.Len(1)
	b := d.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Raw returns the next n bytes, which were written by PutRaw. The result
// aliases the input.
func (d *Decoder) Raw(n int) []byte {
	return d.take(n)
}
