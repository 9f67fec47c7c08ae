package metastore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/akumuli/ingestd/blockstore"
	"github.com/akumuli/ingestd/logger"
)

var (
	namesBucket  = []byte("names")
	rescueBucket = []byte("rescue")
)

// BoltStore is a Store backed by a bbolt database file with two buckets:
// names (id -> canonical name) and rescue (id -> JSON-encoded []Addr).
type BoltStore struct {
	path   string
	db     *bbolt.DB
	logger *zap.Logger
}

// NewBoltStore returns a BoltStore that will open the database file at
// path.
func NewBoltStore(path string) *BoltStore {
	return &BoltStore{path: path, logger: zap.NewNop()}
}

// WithLogger attaches a logger to the store.
func (s *BoltStore) WithLogger(log *zap.Logger) { s.logger = log }

// Open creates the database file if it doesn't exist and opens it
// otherwise.
func (s *BoltStore) Open() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create metastore directory: %w", err)
	}

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("open metastore %s: %w", s.path, err)
	}
	s.db = db

	if err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(namesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(rescueBucket)
		return err
	}); err != nil {
		db.Close()
		return fmt.Errorf("init metastore buckets: %w", err)
	}

	s.logger.Info("metastore opened", zap.String("path", s.path))
	return nil
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertNewNames appends newly registered (name, id) pairs to the durable
// catalog.
func (s *BoltStore) InsertNewNames(names []NameRecord) error {
	if len(names) == 0 {
		return nil
	}

	log, logEnd := logger.NewOperation(s.logger, "insert new names", "metastore_insert_names", zap.Int("count", len(names)))
	defer logEnd()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(namesBucket)
		for _, n := range names {
			if err := b.Put(idKey(n.ID), n.Name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("insert new names failed", zap.Error(err))
	}
	return err
}

// UpsertRescuePoints replaces the durable rescue-point set for each id
// present in points.
func (s *BoltStore) UpsertRescuePoints(points map[uint64][]blockstore.Addr) error {
	if len(points) == 0 {
		return nil
	}

	log, logEnd := logger.NewOperation(s.logger, "upsert rescue points", "metastore_upsert_rescue", zap.Int("count", len(points)))
	defer logEnd()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(rescueBucket)
		for id, addrs := range points {
			v, err := json.Marshal(addrs)
			if err != nil {
				return fmt.Errorf("marshal rescue points for id %d: %w", id, err)
			}
			if err := b.Put(idKey(id), v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("upsert rescue points failed", zap.Error(err))
	}
	return err
}

// Load returns every durably recorded name and rescue point.
func (s *BoltStore) Load() ([]NameRecord, map[uint64][]blockstore.Addr, error) {
	var names []NameRecord
	points := make(map[uint64][]blockstore.Addr)

	err := s.db.View(func(tx *bbolt.Tx) error {
		nb := tx.Bucket(namesBucket)
		if err := nb.ForEach(func(k, v []byte) error {
			names = append(names, NameRecord{ID: keyID(k), Name: append([]byte(nil), v...)})
			return nil
		}); err != nil {
			return err
		}

		rb := tx.Bucket(rescueBucket)
		return rb.ForEach(func(k, v []byte) error {
			var addrs []blockstore.Addr
			if err := json.Unmarshal(v, &addrs); err != nil {
				return fmt.Errorf("unmarshal rescue points for key %x: %w", k, err)
			}
			points[keyID(k)] = addrs
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return names, points, nil
}

func idKey(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}

func keyID(k []byte) uint64 {
	return binary.BigEndian.Uint64(k)
}
