// Package codec implements the canonical binary encoding of stored records.
//
// All integers are fixed width and little-endian. Strings, byte slices,
// sequences and maps carry a uint32 length prefix; bools and option tags are
// a single byte (0 or 1); float64 is written as its IEEE-754 bits. Maps must
// be written in ascending key order so the same value always produces the
// same bytes.
//
// Records implement Marshaler and Unmarshaler against an Encoder/Decoder
// pair with sticky errors:
//
//	func (p *Point) MarshalCodec(e *codec.Encoder) {
//	    e.PutInt64(p.X)
//	    e.PutInt64(p.Y)
//	}
//
//	func (p *Point) UnmarshalCodec(d *codec.Decoder) {
//	    p.X = d.Int64()
//	    p.Y = d.Int64()
//	}
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package codec
