package bitfield

import "encoding/binary"

// EncodedSize is the length of an encoded mask.
const EncodedSize = 8

// EncodeBits returns the big-endian encoding of b.
func EncodeBits(b Bits) []byte {
	out := make([]byte, EncodedSize)
	binary.BigEndian.PutUint64(out, uint64(b))
	return out
}

// DecodeBits parses a mask written by EncodeBits. An empty input decodes to 0
// so that tokens issued without a mask carry no permissions.
func DecodeBits(data []byte) (Bits, error) {
	switch len(data) {
	case 0:
		return 0, nil
	case EncodedSize:
		return Bits(binary.BigEndian.Uint64(data)), nil
	default:
		return 0, ErrInvalidEncoding
	}
}
