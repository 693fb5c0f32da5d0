package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID     uint64
	Name   string
	Score  float64
	Active bool
	Parent *uint64
	Tags   []string
}

func (s *sample) MarshalCodec(e *Encoder) {
	e.PutUint64(s.ID)
	e.PutString(s.Name)
	e.PutFloat64(s.Score)
	e.PutBool(s.Active)
	e.PutOption(s.Parent != nil)
	if s.Parent != nil {
		e.PutUint64(*s.Parent)
	}
	e.PutLen(len(s.Tags))
	for _, t := range s.Tags {
		e.PutString(t)
	}
}

func (s *sample) UnmarshalCodec(d *Decoder) {
	s.ID = d.Uint64()
	s.Name = d.Str()
	s.Score = d.Float64()
	s.Active = d.Bool()
	if d.Option() {
		p := d.Uint64()
		s.Parent = &p
	}
	n := d.Len(4)
	s.Tags = make([]string, 0, n)
	for i := 0; i < n; i++ {
		s.Tags = append(s.Tags, d.Str())
	}
}

func TestRoundTrip(t *testing.T) {
	parent := uint64(7)
	in := &sample{ID: 1, Name: "x", Score: math.Pi, Active: true, Parent: &parent, Tags: []string{"a", "", "bc"}}

	b, err := Marshal(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, Unmarshal(b, &out))
	assert.Equal(t, in, &out)
}

func TestLittleEndianLayout(t *testing.T) {
	e := NewEncoder(0)
	e.PutUint32(0x01020304)
	e.PutString("hi")
	e.PutBool(true)
	b, err := e.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01, 2, 0, 0, 0, 'h', 'i', 1}, b)
}

func TestDecodeErrors(t *testing.T) {
	good, err := Marshal(&sample{ID: 1, Name: "name", Tags: []string{"t"}})
	require.NoError(t, err)

	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{name: "truncated fixed field", input: good[:5], want: ErrTruncated},
		{name: "truncated string", input: good[:len(good)-1], want: ErrLengthOverflow},
		{name: "trailing bytes", input: append(append([]byte{}, good...), 0), want: ErrTrailingBytes},
		{name: "empty", input: nil, want: ErrTruncated},
		{
			name: "bad bool",
			// id, empty name, score, bool=2
			input: append(append(make([]byte, 8), 0, 0, 0, 0), append(make([]byte, 8), 2)...),
			want:  ErrInvalidTag,
		},
		{
			name: "huge sequence length",
			// id, empty name, score, inactive, no parent, len=MaxUint32
			input: append(append(append(make([]byte, 8), 0, 0, 0, 0), append(make([]byte, 8), 0, 0)...), 0xff, 0xff, 0xff, 0xff),
			want:  ErrLengthOverflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out sample
			err := Unmarshal(tt.input, &out)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTagLimit(t *testing.T) {
	d := NewDecoder([]byte{3})
	_ = d.Tag(2)
	assert.ErrorIs(t, d.Err(), ErrInvalidTag)
}

func TestEncoderFailIsSticky(t *testing.T) {
	e := NewEncoder(0)
	e.PutLen(-1)
	e.PutUint8(1)
	_, err := e.Bytes()
	assert.ErrorIs(t, err, ErrLengthOverflow)
}

func TestRawFixedWidth(t *testing.T) {
	e := NewEncoder(0)
	e.PutRaw([]byte("2021-03-04"))
	e.PutUint8(7)
	b, err := e.Bytes()
	require.NoError(t, err)
	assert.Len(t, b, 11)

	d := NewDecoder(b)
	assert.Equal(t, "2021-03-04", string(d.Raw(10)))
	assert.EqualValues(t, 7, d.Uint8())
	require.NoError(t, d.Finish())

	short := NewDecoder([]byte("2021"))
	assert.Nil(t, short.Raw(10))
	assert.ErrorIs(t, short.Err(), ErrTruncated)
}
