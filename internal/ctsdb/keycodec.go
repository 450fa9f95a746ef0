package ctsdb

// KeyCodec tells a Database how to turn its comparable key type K
// into the fixed-width byte form the chunk store indexes on, and
// back. Width must match exactly: every key a KeyCodec produces must
// serialize to the same number of bytes.
type KeyCodec[K comparable] struct {
	Width  int
	Encode func(K) []byte
	Decode func([]byte) K
}

// FixedBytes224 is a KeyCodec for the 224-bit digest keys CTSDB's own
// test suite exercises.
func FixedBytes224() KeyCodec[[28]byte] {
	return KeyCodec[[28]byte]{
		Width:  28,
		Encode: func(k [28]byte) []byte { return k[:] },
		Decode: func(b []byte) [28]byte {
			var k [28]byte
			copy(k[:], b)
			return k
		},
	}
}

// FixedBytes256 is a KeyCodec for 256-bit digest keys.
func FixedBytes256() KeyCodec[[32]byte] {
	return KeyCodec[[32]byte]{
		Width:  32,
		Encode: func(k [32]byte) []byte { return k[:] },
		Decode: func(b []byte) [32]byte {
			var k [32]byte
			copy(k[:], b)
			return k
		},
	}
}
