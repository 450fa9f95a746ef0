package modules

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/metabasenet/node/internal/codec"
	"github.com/metabasenet/node/internal/ctsdb"
)

// PendingEntry is the TXPOOL module's CTSDB record: the raw payload
// of a transaction accepted into the pool. No validation rules are
// implemented.
type PendingEntry struct {
	Payload []byte
}

func (e *PendingEntry) Serialize(w *codec.Writer) {
	w.Buffer(e.Payload)
}

func (e *PendingEntry) Deserialize(r *codec.Reader) error {
	buf, err := r.Buffer()
	if err != nil {
		return err
	}
	e.Payload = buf
	return nil
}

// TxPoolModule holds an in-memory table of submitted-but-not-yet-
// accepted entries and, once accepted, persists them keyed by
// (arrival_time, hash) in a CTSDB database.
type TxPoolModule struct {
	name     string
	dataPath string

	mu      sync.Mutex
	pending map[[32]byte][]byte

	accepted *ctsdb.Database[[32]byte, *PendingEntry]
	logger   zerolog.Logger
}

// NewTxPoolModule constructs the TXPOOL module; its accepted-entry
// database lives under <dataPath>/txpool.
func NewTxPoolModule(dataPath string, bucketWidth int64, compress bool, logger zerolog.Logger) *TxPoolModule {
	return &TxPoolModule{
		name:     "txpool",
		dataPath: dataPath,
		pending:  make(map[[32]byte][]byte),
		accepted: ctsdb.New(ctsdb.Options[[32]byte, *PendingEntry]{
			BucketWidth: bucketWidth,
			Compress:    compress,
			KeyCodec:    ctsdb.FixedBytes256(),
			NewRecord:   func() *PendingEntry { return &PendingEntry{} },
			Logger:      logger,
		}),
		logger: logger,
	}
}

func (m *TxPoolModule) Name() string { return m.name }

func (m *TxPoolModule) Initialize(ctx context.Context) error {
	return m.accepted.Initialize(filepath.Join(m.dataPath, m.name))
}

func (m *TxPoolModule) Run(ctx context.Context) error {
	m.logger.Debug().Str("module", m.name).Msg("txpool running")
	return nil
}

func (m *TxPoolModule) Halt(ctx context.Context) error {
	return m.accepted.Flush()
}

func (m *TxPoolModule) Deinitialize(ctx context.Context) error {
	return m.accepted.Deinitialize()
}

// Submit adds payload to the pending table under hash, not yet
// persisted.
func (m *TxPoolModule) Submit(hash [32]byte, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[hash] = payload
}

// Accept moves hash from the pending table into the CTSDB-backed
// accepted store, bucketed by arrivalTime.
func (m *TxPoolModule) Accept(arrivalTime int64, hash [32]byte) error {
	m.mu.Lock()
	payload, ok := m.pending[hash]
	if ok {
		delete(m.pending, hash)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("txpool: hash %x is not pending", hash)
	}
	return m.accepted.Update(arrivalTime, hash, &PendingEntry{Payload: payload})
}

// Pending reports the number of entries submitted but not yet
// accepted.
func (m *TxPoolModule) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Database exposes the accepted-entry CTSDB handle.
func (m *TxPoolModule) Database() *ctsdb.Database[[32]byte, *PendingEntry] {
	return m.accepted
}
