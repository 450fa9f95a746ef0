// Package ctsdb implements the content-addressed time-series store:
// a time-bucketed map of (key -> record) pairs, backed by an
// in-memory write buffer and on-disk chunks managed by chunkstore.
// A single Database instance is single-writer/many-reader: Update
// and Flush serialize against each other and against readers, while
// Retrieve and WalkThrough may run concurrently with one another.
package ctsdb

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/metabasenet/node/internal/chunkstore"
	"github.com/metabasenet/node/internal/codec"
	"github.com/metabasenet/node/internal/errs"
)

const defaultBucketWidth int64 = 3600

type lifecycleState int

const (
	stateClosed lifecycleState = iota
	stateOpen
)

// Options configures a Database. BucketWidth defaults to 3600 seconds
// when zero. NewRecord must return a fresh, zero-valued *R-like
// record that Deserialize can populate.
type Options[K comparable, R codec.Record] struct {
	BucketWidth int64
	Compress    bool
	KeyCodec    KeyCodec[K]
	NewRecord   func() R
	Logger      zerolog.Logger
}

// Database is a time-bucketed, chunk-backed key/record store.
type Database[K comparable, R codec.Record] struct {
	opts Options[K, R]

	mu    sync.RWMutex
	state lifecycleState

	path     string
	lockFile *os.File
	store    *chunkstore.Store

	// buffer maps bucket -> key -> serialized record bytes.
	buffer map[uint64]map[K][]byte
}

// New constructs a Database in the Closed state. Call Initialize to
// open it against a directory before using any other operation.
func New[K comparable, R codec.Record](opts Options[K, R]) *Database[K, R] {
	if opts.BucketWidth <= 0 {
		opts.BucketWidth = defaultBucketWidth
	}
	return &Database[K, R]{opts: opts, state: stateClosed}
}

func (d *Database[K, R]) bucketOf(t int64) uint64 {
	w := d.opts.BucketWidth
	if t >= 0 {
		return uint64(t / w)
	}
	// floor division for negative timestamps
	q := t / w
	if t%w != 0 {
		q--
	}
	return uint64(q)
}

// Initialize creates path if missing, acquires its exclusive lock,
// opens the chunk store, and discards any stale .tmp files left by a
// crash mid-Flush.
func (d *Database[K, R]) Initialize(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == stateOpen {
		return errs.New(errs.AlreadyOpen, "database already initialized")
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return errs.Wrap(errs.DirUnavailable, "create database directory", err)
	}

	lockFile, err := acquireLock(filepath.Join(path, ".lock"))
	if err != nil {
		return err
	}

	store, err := chunkstore.Open(path, d.opts.KeyCodec.Width, d.opts.Compress)
	if err != nil {
		releaseLock(lockFile)
		return err
	}

	if err := store.CleanStaleTemp(); err != nil {
		releaseLock(lockFile)
		return err
	}

	d.path = path
	d.lockFile = lockFile
	d.store = store
	d.buffer = make(map[uint64]map[K][]byte)
	d.state = stateOpen
	return nil
}

// Deinitialize releases the lock and forgets the open store. It does
// not flush; any unflushed writes are discarded.
func (d *Database[K, R]) Deinitialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != stateOpen {
		return errs.New(errs.NotOpen, "database is not open")
	}

	err := releaseLock(d.lockFile)
	d.lockFile = nil
	d.store = nil
	d.buffer = nil
	d.state = stateClosed
	if err != nil {
		return errs.Wrap(errs.DirUnavailable, "release database lock", err)
	}
	return nil
}

// Update buffers r under the bucket derived from t and k. The most
// recent Update for a given (bucket, key) wins.
func (d *Database[K, R]) Update(t int64, k K, r R) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != stateOpen {
		return errs.New(errs.NotOpen, "database is not open")
	}

	bucket := d.bucketOf(t)
	bucketBuf, ok := d.buffer[bucket]
	if !ok {
		bucketBuf = make(map[K][]byte)
		d.buffer[bucket] = bucketBuf
	}
	bucketBuf[k] = codec.Serialize(r)
	return nil
}

// Retrieve consults the write buffer first, then the on-disk chunk
// for the bucket derived from t. It reports false iff no record
// exists for (bucket, k).
func (d *Database[K, R]) Retrieve(t int64, k K) (R, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var zero R
	if d.state != stateOpen {
		return zero, false, errs.New(errs.NotOpen, "database is not open")
	}

	bucket := d.bucketOf(t)
	if bucketBuf, ok := d.buffer[bucket]; ok {
		if data, ok := bucketBuf[k]; ok {
			return d.decode(data)
		}
	}

	keyBytes := d.opts.KeyCodec.Encode(k)
	data, found, err := d.store.ReadRecord(bucket, keyBytes)
	if err != nil {
		if kind, ok := errs.KindOf(err); ok && kind == errs.CorruptedChunk {
			d.opts.Logger.Warn().Uint64("bucket", bucket).Err(err).Msg("ctsdb: corrupted chunk, treating bucket as absent")
			return zero, false, nil
		}
		return zero, false, err
	}
	if !found {
		return zero, false, nil
	}
	return d.decode(data)
}

func (d *Database[K, R]) decode(data []byte) (R, bool, error) {
	rec := d.opts.NewRecord()
	if err := codec.Deserialize(data, rec); err != nil {
		var zero R
		return zero, false, err
	}
	return rec, true, nil
}

// WalkVisitor receives each (key, record) pair WalkThrough visits, in
// ascending (bucket, key) order. Returning cont=false stops the walk.
type WalkVisitor[K comparable, R codec.Record] func(k K, r R) (cont bool, err error)

// WalkThrough visits every distinct key in [tLo, tHi]'s buckets, in
// ascending bucket then key order, with buffered values overriding
// on-disk values for the same key.
func (d *Database[K, R]) WalkThrough(tLo, tHi int64, visit WalkVisitor[K, R]) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.state != stateOpen {
		return errs.New(errs.NotOpen, "database is not open")
	}

	lo, hi := d.bucketOf(tLo), d.bucketOf(tHi)
	for bucket := lo; bucket <= hi; bucket++ {
		merged := make(map[string][]byte)

		diskEntries, ok, err := d.store.ReadChunkIndex(bucket)
		if err != nil {
			if kind, isKind := errs.KindOf(err); isKind && kind == errs.CorruptedChunk {
				d.opts.Logger.Warn().Uint64("bucket", bucket).Err(err).Msg("ctsdb: corrupted chunk during walk, skipping")
			} else {
				return err
			}
		} else if ok {
			for _, e := range diskEntries {
				merged[string(e.Key)] = e.Value
			}
		}

		if bucketBuf, ok := d.buffer[bucket]; ok {
			for k, v := range bucketBuf {
				merged[string(d.opts.KeyCodec.Encode(k))] = v
			}
		}

		keys := make([]string, 0, len(merged))
		for kb := range merged {
			keys = append(keys, kb)
		}
		sort.Strings(keys)

		for _, kb := range keys {
			k := d.opts.KeyCodec.Decode([]byte(kb))
			rec, _, err := d.decode(merged[kb])
			if err != nil {
				return err
			}
			cont, err := visit(k, rec)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}

		if bucket == hi {
			break // avoid uint64 overflow on bucket++ when hi == max uint64
		}
	}
	return nil
}

// Flush materializes every buffered bucket into an immutable chunk,
// in ascending bucket order. A failure on bucket B leaves earlier
// buckets flushed and B (and later buckets) still buffered.
func (d *Database[K, R]) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != stateOpen {
		return errs.New(errs.NotOpen, "database is not open")
	}

	buckets := make([]uint64, 0, len(d.buffer))
	for b := range d.buffer {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })

	for _, bucket := range buckets {
		merged := make(map[string][]byte)

		diskEntries, ok, err := d.store.ReadChunkIndex(bucket)
		if err != nil {
			if kind, isKind := errs.KindOf(err); isKind && kind == errs.CorruptedChunk {
				d.opts.Logger.Warn().Uint64("bucket", bucket).Err(err).Msg("ctsdb: corrupted chunk on flush, replacing")
			} else {
				return errs.FlushFailure(bucket, err)
			}
		} else if ok {
			for _, e := range diskEntries {
				merged[string(e.Key)] = e.Value
			}
		}

		for k, v := range d.buffer[bucket] {
			merged[string(d.opts.KeyCodec.Encode(k))] = v
		}

		entries := make([]chunkstore.Entry, 0, len(merged))
		for kb, v := range merged {
			entries = append(entries, chunkstore.Entry{Key: []byte(kb), Value: v})
		}

		if err := d.store.WriteChunk(bucket, entries); err != nil {
			return errs.FlushFailure(bucket, err)
		}
		delete(d.buffer, bucket)
	}
	return nil
}

// RemoveAll drops every on-disk chunk and clears the write buffer.
func (d *Database[K, R]) RemoveAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != stateOpen {
		return errs.New(errs.NotOpen, "database is not open")
	}

	buckets, err := d.store.ListBuckets()
	if err != nil {
		return err
	}
	for _, b := range buckets {
		if err := d.store.DeleteChunk(b); err != nil {
			return err
		}
	}
	d.buffer = make(map[uint64]map[K][]byte)
	return nil
}
