// Package codec implements the length-prefixed binary serialization
// contract shared by the chunk store and CTSDB: multi-byte integers
// are little-endian, variable-length buffers are prefixed with an
// unsigned-varint length, and arbitrary byte blocks can be run
// through a general-purpose compressor before being written to disk.
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/golang/snappy"
)

// Record is any value the codec can round-trip: Serialize appends its
// wire form to a Writer, Deserialize reconstructs it from a Reader.
// CTSDB and the chunk store treat records as opaque beyond this
// contract.
type Record interface {
	Serialize(w *Writer)
	Deserialize(r *Reader) error
}

// Writer accumulates a little-endian, varint-prefixed byte stream.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with buf as its initial backing array.
// Passing a buffer obtained from a pool avoids an allocation per
// record.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf[:0]}
}

// Bytes returns the accumulated byte stream.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) Uint8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) Uint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) Uint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) Uint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// Varint appends v using the unsigned-varint encoding.
func (w *Writer) Varint(v uint64) {
	w.buf = AppendVarint(w.buf, v)
}

// Buffer appends a varint-prefixed length followed by b's contents.
func (w *Writer) Buffer(b []byte) {
	w.Varint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// RawBytes appends b with no length prefix. Callers that know the
// length by construction (fixed-width digests) use this to avoid the
// varint overhead.
func (w *Writer) RawBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Reader consumes a little-endian, varint-prefixed byte stream
// produced by a Writer.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential decoding.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) Uint8() (uint8, error) {
	if r.Remaining() < 1 {
		return 0, ErrShortBuffer
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) Uint16() (uint16, error) {
	if r.Remaining() < 2 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) Uint32() (uint32, error) {
	if r.Remaining() < 4 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) Uint64() (uint64, error) {
	if r.Remaining() < 8 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// Varint decodes an unsigned-varint.
func (r *Reader) Varint() (uint64, error) {
	v, n := ReadVarint(r.buf[r.pos:])
	if n == 0 {
		return 0, ErrShortBuffer
	}
	r.pos += n
	return v, nil
}

// Buffer decodes a varint-prefixed byte buffer. The returned slice
// aliases the Reader's backing array; callers that retain it past the
// Reader's lifetime must copy it.
func (r *Reader) Buffer() ([]byte, error) {
	n, err := r.Varint()
	if err != nil {
		return nil, err
	}
	if uint64(r.Remaining()) < n {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}

// RawBytes reads exactly n unprefixed bytes.
func (r *Reader) RawBytes(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Serialize returns rec's wire form.
func Serialize(rec Record) []byte {
	w := NewWriter(nil)
	rec.Serialize(w)
	return w.Bytes()
}

// Deserialize decodes data into rec.
func Deserialize(data []byte, rec Record) error {
	return rec.Deserialize(NewReader(data))
}

// Compress runs src through Snappy block compression. It never fails:
// Snappy's block format has no error path on encode.
func Compress(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	return snappy.Encode(nil, src)
}

// Uncompress reverses Compress. A malformed frame is reported as
// ErrCorruptedInput rather than the underlying snappy error so that
// callers can match on it uniformly.
func Uncompress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	dst, err := snappy.Decode(nil, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedInput, err)
	}
	return dst, nil
}
