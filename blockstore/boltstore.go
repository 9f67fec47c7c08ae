package blockstore

import (
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/akumuli/ingestd/logger"
	"github.com/akumuli/ingestd/pkg/limiter"
)

var blocksBucket = []byte("blocks")

// BoltStore is a Store backed by a single bbolt database file. Blocks are
// keyed by their content address, so Append is naturally idempotent:
// writing the same bytes twice touches the database once.
type BoltStore struct {
	path       string
	db         *bbolt.DB
	logger     *zap.Logger
	writeLimit int // bytes/sec, 0 disables throttling
	writeBurst int
}

// NewBoltStore returns a BoltStore that will open the database file at
// path. Each Append throttles the write of its own block to writeLimit
// bytes per second with bursts of up to writeBurst bytes; the limiter
// starts full on every call, so the rate is not bounded across
// consecutive Appends. A writeLimit of zero disables throttling.
func NewBoltStore(path string, writeLimit, writeBurst int) *BoltStore {
	return &BoltStore{
		path:       path,
		logger:     zap.NewNop(),
		writeLimit: writeLimit,
		writeBurst: writeBurst,
	}
}

// WithLogger attaches a logger to the store.
func (s *BoltStore) WithLogger(log *zap.Logger) { s.logger = log }

// Open creates the database file if it doesn't exist and opens it
// otherwise.
func (s *BoltStore) Open() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create blockstore directory: %w", err)
	}

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("open blockstore %s: %w", s.path, err)
	}
	s.db = db

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(blocksBucket)
		return err
	}); err != nil {
		db.Close()
		return fmt.Errorf("init blockstore buckets: %w", err)
	}

	s.logger.Info("blockstore opened", zap.String("path", s.path))
	return nil
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append writes block and returns its content address.
func (s *BoltStore) Append(block []byte) (Addr, error) {
	addr := sumAddr(block)

	log, logEnd := logger.NewOperation(s.logger, "block append", "blockstore_append", zap.Uint64("addr", uint64(addr)))
	defer logEnd()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(blocksBucket)

		key := addrKey(addr)
		if b.Get(key) != nil {
			return nil // already stored under this address.
		}

		w := limiter.NewWriter(nopWriteCloser{ioutil.Discard}, s.writeLimit, s.writeBurst)
		defer w.Close()
		if _, err := w.Write(block); err != nil {
			return fmt.Errorf("throttle block write: %w", err)
		}

		return b.Put(key, block)
	})
	if err != nil {
		log.Error("append failed", zap.Error(err))
		return 0, err
	}
	return addr, nil
}

// Read returns the block stored at addr.
func (s *BoltStore) Read(addr Addr) ([]byte, error) {
	var block []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(blocksBucket)
		v := b.Get(addrKey(addr))
		if v == nil {
			return ErrNotFound
		}
		block = make([]byte, len(v))
		copy(block, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

func sumAddr(block []byte) Addr {
	return Addr(xxhash.Sum64(block))
}

func addrKey(addr Addr) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(addr))
	return buf
}

type nopWriteCloser struct {
	w interface {
		Write([]byte) (int, error)
	}
}

func (n nopWriteCloser) Write(p []byte) (int, error) { return n.w.Write(p) }
func (n nopWriteCloser) Close() error                { return nil }
