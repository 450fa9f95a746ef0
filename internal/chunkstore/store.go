// Package chunkstore implements the on-disk, append-only chunk files
// that back one CTSDB time bucket each: a header, a sorted directory
// of (key, offset, length) triples, and a payload of concatenated
// serialized records, optionally compressed as a whole. Writes go
// through a temp-file-fsync-rename sequence so a reader never
// observes a half-written chunk.
package chunkstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/metabasenet/node/internal/errs"
)

// Entry is one (key, serialized-value) pair submitted to WriteChunk.
// Entries need not be sorted or deduplicated by the caller.
type Entry struct {
	Key   []byte
	Value []byte
}

// Store manages the chunk files for a single CTSDB database
// directory. KeyWidth must match the fixed digest width the owning
// database uses for all its keys.
type Store struct {
	dir      string
	keyWidth int
	compress bool
}

// Open returns a Store rooted at dir, creating the directory if it
// does not exist.
func Open(dir string, keyWidth int, compress bool) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.DirUnavailable, "create chunk store directory", err)
	}
	return &Store{dir: dir, keyWidth: keyWidth, compress: compress}, nil
}

func (s *Store) chunkPath(bucketID uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("bucket-%d.chk", bucketID))
}

func (s *Store) tmpPath(bucketID uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("bucket-%d.tmp", bucketID))
}

// WriteChunk atomically (re)writes the chunk file for bucketID from
// entries. Entries may be unsorted and may contain duplicate keys;
// the last occurrence of a key wins.
func (s *Store) WriteChunk(bucketID uint64, entries []Entry) error {
	image, err := buildChunk(bucketID, entries, s.compress)
	if err != nil {
		return err
	}

	tmp := s.tmpPath(bucketID)
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errs.Wrap(errs.DirUnavailable, "open chunk temp file", err)
	}

	if _, err := f.Write(image); err != nil {
		f.Close()
		os.Remove(tmp)
		return errs.Wrap(errs.FlushFailed, "write chunk temp file", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errs.Wrap(errs.FlushFailed, "fsync chunk temp file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errs.Wrap(errs.FlushFailed, "close chunk temp file", err)
	}

	if err := os.Rename(tmp, s.chunkPath(bucketID)); err != nil {
		os.Remove(tmp)
		return errs.Wrap(errs.FlushFailed, "rename chunk temp file", err)
	}
	return nil
}

// load reads and parses the chunk file for bucketID, or returns
// (nil, false, nil) if no chunk exists for that bucket.
func (s *Store) load(bucketID uint64) (*parsedChunk, bool, error) {
	data, err := os.ReadFile(s.chunkPath(bucketID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errs.Wrap(errs.DirUnavailable, "read chunk file", err)
	}
	pc, err := parseChunk(data, s.keyWidth)
	if err != nil {
		return nil, false, err
	}
	return pc, true, nil
}

// ReadChunkIndex returns every (key, value) pair in bucketID's chunk,
// in the directory's ascending key order, or (nil, false, nil) if the
// bucket has no chunk.
func (s *Store) ReadChunkIndex(bucketID uint64) ([]Entry, bool, error) {
	pc, ok, err := s.load(bucketID)
	if err != nil || !ok {
		return nil, ok, err
	}
	out := make([]Entry, len(pc.dir))
	for i, d := range pc.dir {
		out[i] = Entry{Key: d.key, Value: pc.value(d)}
	}
	return out, true, nil
}

// ReadRecord looks up key within bucketID's chunk via binary search,
// returning the serialized record bytes.
func (s *Store) ReadRecord(bucketID uint64, key []byte) ([]byte, bool, error) {
	pc, ok, err := s.load(bucketID)
	if err != nil || !ok {
		return nil, false, err
	}
	d, found := pc.find(key)
	if !found {
		return nil, false, nil
	}
	return pc.value(d), true, nil
}

// Visitor receives each (key, value) pair WalkChunk visits, in
// ascending key order. Returning cont=false stops the walk early.
type Visitor func(key, value []byte) (cont bool, err error)

// WalkChunk iterates bucketID's chunk in key order.
func (s *Store) WalkChunk(bucketID uint64, visit Visitor) error {
	pc, ok, err := s.load(bucketID)
	if err != nil || !ok {
		return err
	}
	for _, d := range pc.dir {
		cont, err := visit(d.key, pc.value(d))
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// HasChunk reports whether bucketID has an on-disk chunk file.
func (s *Store) HasChunk(bucketID uint64) bool {
	_, err := os.Stat(s.chunkPath(bucketID))
	return err == nil
}

// DeleteChunk removes bucketID's chunk file. Idempotent: deleting a
// bucket with no chunk is not an error.
func (s *Store) DeleteChunk(bucketID uint64) error {
	err := os.Remove(s.chunkPath(bucketID))
	if err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.DirUnavailable, "delete chunk file", err)
	}
	return nil
}

// ListBuckets returns the bucket IDs with an on-disk chunk, in
// ascending order.
func (s *Store) ListBuckets() ([]uint64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errs.Wrap(errs.DirUnavailable, "list chunk store directory", err)
	}
	var buckets []uint64
	for _, e := range entries {
		id, ok := parseBucketFileName(e.Name(), ".chk")
		if ok {
			buckets = append(buckets, id)
		}
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })
	return buckets, nil
}

// CleanStaleTemp deletes every leftover bucket-*.tmp file, left
// behind by a process that died between temp-file creation and
// rename. Called once from CTSDB's Initialize.
func (s *Store) CleanStaleTemp() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return errs.Wrap(errs.DirUnavailable, "scan chunk store directory", err)
	}
	for _, e := range entries {
		if _, ok := parseBucketFileName(e.Name(), ".tmp"); ok {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
				return errs.Wrap(errs.DirUnavailable, "remove stale temp file", err)
			}
		}
	}
	return nil
}

func parseBucketFileName(name, ext string) (uint64, bool) {
	if !strings.HasPrefix(name, "bucket-") || !strings.HasSuffix(name, ext) {
		return 0, false
	}
	idStr := strings.TrimSuffix(strings.TrimPrefix(name, "bucket-"), ext)
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
