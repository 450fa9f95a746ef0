package chunkstore

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"sort"

	"github.com/metabasenet/node/internal/codec"
	"github.com/metabasenet/node/internal/errs"
)

// magic is the fixed 4-byte constant identifying a chunk file.
var magic = [4]byte{'C', 'T', 'S', 'K'}

const (
	formatVersion   = 1
	flagCompressed  = 1 << 0
	headerSize      = 4 + 2 + 2 + 8 + 4 // magic, version, flags, bucket_id, count
	dirEntryTrailer = 4 + 4             // offset, length (key precedes these, width is store-specific)
)

// dirEntry is one (key, offset, length) row of a chunk's directory.
type dirEntry struct {
	key    []byte
	offset uint32
	length uint32
}

// buildChunk sorts entries by key (deduplicating by keeping the last
// occurrence of each key), concatenates serialized values into a
// payload, optionally compresses that payload as a whole, and
// returns the complete on-disk byte image plus its trailing crc32.
func buildChunk(bucketID uint64, entries []Entry, compress bool) ([]byte, error) {
	last := make(map[string][]byte, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		k := string(e.Key)
		if _, seen := last[k]; !seen {
			order = append(order, k)
		}
		last[k] = e.Value
	}

	sort.Strings(order)

	var rawPayload bytes.Buffer
	dir := make([]dirEntry, 0, len(order))
	for _, k := range order {
		v := last[k]
		if len(v) > 0xFFFFFFFF {
			return nil, errs.New(errs.RecordTooLarge, "serialized record exceeds 2^32-1 bytes")
		}
		dir = append(dir, dirEntry{
			key:    []byte(k),
			offset: uint32(rawPayload.Len()),
			length: uint32(len(v)),
		})
		rawPayload.Write(v)
	}

	payload := rawPayload.Bytes()
	var flags uint16
	if compress {
		payload = codec.Compress(payload)
		flags |= flagCompressed
	}

	w := codec.NewWriter(nil)
	w.RawBytes(magic[:])
	w.Uint16(formatVersion)
	w.Uint16(flags)
	w.Uint64(bucketID)
	w.Uint32(uint32(len(dir)))
	for _, d := range dir {
		w.RawBytes(d.key)
		w.Uint32(d.offset)
		w.Uint32(d.length)
	}
	w.Uint32(uint32(len(payload)))
	w.RawBytes(payload)

	sum := crc32.ChecksumIEEE(w.Bytes())
	w.Uint32(sum)

	return w.Bytes(), nil
}

// parsedChunk is a chunk file decoded into memory: the directory plus
// the (already decompressed) raw payload bytes it indexes into.
type parsedChunk struct {
	bucketID   uint64
	dir        []dirEntry
	rawPayload []byte
}

// parseChunk decodes a full chunk file image, validating magic,
// version, and crc32.
func parseChunk(data []byte, keyWidth int) (*parsedChunk, error) {
	if len(data) < 4 {
		return nil, errs.New(errs.CorruptedChunk, "chunk shorter than magic")
	}
	sum := crc32.ChecksumIEEE(data[:len(data)-4])
	gotSum := binary.LittleEndian.Uint32(data[len(data)-4:])
	if sum != gotSum {
		return nil, errs.New(errs.CorruptedChunk, "crc32 mismatch")
	}

	r := codec.NewReader(data[:len(data)-4])

	gotMagic, err := r.RawBytes(4)
	if err != nil || !bytes.Equal(gotMagic, magic[:]) {
		return nil, errs.New(errs.CorruptedChunk, "bad magic")
	}

	version, err := r.Uint16()
	if err != nil {
		return nil, errs.New(errs.CorruptedChunk, "truncated header")
	}
	if version != formatVersion {
		return nil, errs.New(errs.CorruptedChunk, "unsupported chunk version")
	}

	flags, err := r.Uint16()
	if err != nil {
		return nil, errs.New(errs.CorruptedChunk, "truncated header")
	}

	bucketID, err := r.Uint64()
	if err != nil {
		return nil, errs.New(errs.CorruptedChunk, "truncated header")
	}

	count, err := r.Uint32()
	if err != nil {
		return nil, errs.New(errs.CorruptedChunk, "truncated header")
	}

	dir := make([]dirEntry, count)
	for i := range dir {
		key, err := r.RawBytes(keyWidth)
		if err != nil {
			return nil, errs.New(errs.CorruptedChunk, "truncated directory")
		}
		offset, err := r.Uint32()
		if err != nil {
			return nil, errs.New(errs.CorruptedChunk, "truncated directory")
		}
		length, err := r.Uint32()
		if err != nil {
			return nil, errs.New(errs.CorruptedChunk, "truncated directory")
		}
		dir[i] = dirEntry{key: append([]byte(nil), key...), offset: offset, length: length}
	}

	payloadLen, err := r.Uint32()
	if err != nil {
		return nil, errs.New(errs.CorruptedChunk, "truncated payload length")
	}
	payload, err := r.RawBytes(int(payloadLen))
	if err != nil {
		return nil, errs.New(errs.CorruptedChunk, "truncated payload")
	}

	rawPayload := payload
	if flags&flagCompressed != 0 {
		rawPayload, err = codec.Uncompress(payload)
		if err != nil {
			return nil, errs.Wrap(errs.CorruptedChunk, "payload decompression failed", err)
		}
	}

	return &parsedChunk{bucketID: bucketID, dir: dir, rawPayload: rawPayload}, nil
}

// find performs a binary search over the sorted directory for key.
func (c *parsedChunk) find(key []byte) (dirEntry, bool) {
	lo, hi := 0, len(c.dir)
	for lo < hi {
		mid := (lo + hi) / 2
		switch bytes.Compare(c.dir[mid].key, key) {
		case 0:
			return c.dir[mid], true
		case -1:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return dirEntry{}, false
}

func (c *parsedChunk) value(d dirEntry) []byte {
	return c.rawPayload[d.offset : d.offset+d.length]
}
