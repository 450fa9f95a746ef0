package modules

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/metabasenet/node/internal/codec"
	"github.com/metabasenet/node/internal/ctsdb"
)

// BlockIndexEntry is the BLOCKCHAIN module's CTSDB record: block
// metadata keyed by block hash, bucketed by block time. No
// validation or chain-selection rules are implemented (consensus is
// a non-goal here).
type BlockIndexEntry struct {
	Height     int64
	ParentHash [32]byte
}

func (e *BlockIndexEntry) Serialize(w *codec.Writer) {
	w.Uint64(uint64(e.Height))
	w.RawBytes(e.ParentHash[:])
}

func (e *BlockIndexEntry) Deserialize(r *codec.Reader) error {
	h, err := r.Uint64()
	if err != nil {
		return err
	}
	e.Height = int64(h)
	parent, err := r.RawBytes(32)
	if err != nil {
		return err
	}
	copy(e.ParentHash[:], parent)
	return nil
}

// StatEntry is the DATASTAT module's CTSDB record: a rolling count of
// observed blocks and transactions for the bucket it lives in.
type StatEntry struct {
	BlockCount int64
	TxCount    int64
}

func (e *StatEntry) Serialize(w *codec.Writer) {
	w.Uint64(uint64(e.BlockCount))
	w.Uint64(uint64(e.TxCount))
}

func (e *StatEntry) Deserialize(r *codec.Reader) error {
	b, err := r.Uint64()
	if err != nil {
		return err
	}
	tx, err := r.Uint64()
	if err != nil {
		return err
	}
	e.BlockCount = int64(b)
	e.TxCount = int64(tx)
	return nil
}

// CheckpointEntry is the RECOVERY module's CTSDB record: the chain
// height and block hash known-good as of the checkpoint's time.
type CheckpointEntry struct {
	Height int64
	Hash   [32]byte
}

func (e *CheckpointEntry) Serialize(w *codec.Writer) {
	w.Uint64(uint64(e.Height))
	w.RawBytes(e.Hash[:])
}

func (e *CheckpointEntry) Deserialize(r *codec.Reader) error {
	h, err := r.Uint64()
	if err != nil {
		return err
	}
	e.Height = int64(h)
	hash, err := r.RawBytes(32)
	if err != nil {
		return err
	}
	copy(e.Hash[:], hash)
	return nil
}

// StorageModule is a lifecycle wrapper around a single CTSDB
// database: Initialize opens it at <data-path>/<name>, Halt flushes
// buffered writes, Deinitialize closes it. BLOCKCHAIN, DATASTAT, and
// RECOVERY are each one instantiation of this type over their own
// key/record pair.
type StorageModule[K comparable, R codec.Record] struct {
	name     string
	dataPath string
	db       *ctsdb.Database[K, R]
	logger   zerolog.Logger
}

// NewStorageModule constructs a storage-backed module named name,
// whose database lives under <dataPath>/<name>.
func NewStorageModule[K comparable, R codec.Record](name, dataPath string, opts ctsdb.Options[K, R]) *StorageModule[K, R] {
	return &StorageModule[K, R]{
		name:     name,
		dataPath: dataPath,
		db:       ctsdb.New(opts),
		logger:   opts.Logger,
	}
}

func (m *StorageModule[K, R]) Name() string { return m.name }

func (m *StorageModule[K, R]) Initialize(ctx context.Context) error {
	return m.db.Initialize(filepath.Join(m.dataPath, m.name))
}

func (m *StorageModule[K, R]) Run(ctx context.Context) error {
	m.logger.Debug().Str("module", m.name).Msg("storage module running")
	return nil
}

func (m *StorageModule[K, R]) Halt(ctx context.Context) error {
	return m.db.Flush()
}

func (m *StorageModule[K, R]) Deinitialize(ctx context.Context) error {
	return m.db.Deinitialize()
}

// Database exposes the underlying CTSDB handle to callers that
// resolved this module via container.GetCapability.
func (m *StorageModule[K, R]) Database() *ctsdb.Database[K, R] {
	return m.db
}

// Purge drops every persisted record from the module's database. It
// requires Initialize to have opened the database first.
func (m *StorageModule[K, R]) Purge() error {
	return m.db.RemoveAll()
}

// Purgeable is satisfied by every storage-backed module. PURGE mode
// resolves each attached module by name and, if it implements
// Purgeable, removes its database.
type Purgeable interface {
	Purge() error
}

// BlockchainModule, DataStatModule, and RecoveryModule name the
// concrete instantiations the mode registry's BLOCKCHAIN, DATASTAT,
// and RECOVERY kinds construct.
type (
	BlockchainModule = StorageModule[[32]byte, *BlockIndexEntry]
	DataStatModule   = StorageModule[[28]byte, *StatEntry]
	RecoveryModule   = StorageModule[[32]byte, *CheckpointEntry]
)

// NewBlockchainModule, NewDataStatModule, and NewRecoveryModule build
// their respective storage module with the node's bucket-width and
// compression settings.
func NewBlockchainModule(dataPath string, bucketWidth int64, compress bool, logger zerolog.Logger) *BlockchainModule {
	return NewStorageModule("blockchain", dataPath, ctsdb.Options[[32]byte, *BlockIndexEntry]{
		BucketWidth: bucketWidth,
		Compress:    compress,
		KeyCodec:    ctsdb.FixedBytes256(),
		NewRecord:   func() *BlockIndexEntry { return &BlockIndexEntry{} },
		Logger:      logger,
	})
}

func NewDataStatModule(dataPath string, bucketWidth int64, compress bool, logger zerolog.Logger) *DataStatModule {
	return NewStorageModule("datastat", dataPath, ctsdb.Options[[28]byte, *StatEntry]{
		BucketWidth: bucketWidth,
		Compress:    compress,
		KeyCodec:    ctsdb.FixedBytes224(),
		NewRecord:   func() *StatEntry { return &StatEntry{} },
		Logger:      logger,
	})
}

func NewRecoveryModule(dataPath string, bucketWidth int64, compress bool, logger zerolog.Logger) *RecoveryModule {
	return NewStorageModule("recovery", dataPath, ctsdb.Options[[32]byte, *CheckpointEntry]{
		BucketWidth: bucketWidth,
		Compress:    compress,
		KeyCodec:    ctsdb.FixedBytes256(),
		NewRecord:   func() *CheckpointEntry { return &CheckpointEntry{} },
		Logger:      logger,
	})
}
