package kvbolt

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/cryptofolio/cryptofolio-daemon/internal/core/ports"
)

var rootBucket = []byte("store")

type boltKVStore struct {
	db *bbolt.DB
}

// NewKVStore opens (or creates) a bbolt-backed store at datadir/filename.
func NewKVStore(datadir, filename string) (ports.KVStore, error) {
	if _, err := os.Stat(datadir); os.IsNotExist(err) {
		os.Mkdir(datadir, os.ModeDir|0755)
	}

	db, err := bbolt.Open(
		filepath.Join(datadir, filename), 0600,
		&bbolt.Options{Timeout: 5 * time.Second},
	)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	}); err != nil {
		return nil, err
	}

	return &boltKVStore{db: db}, nil
}

func (s *boltKVStore) Get(key string) ([]byte, error) {
	var value []byte
	if err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(rootBucket).Get([]byte(key))
		if v == nil {
			return ports.ErrKeyNotFound
		}
		value = make([]byte, len(v))
		copy(value, v)
		return nil
	}); err != nil {
		return nil, err
	}
	return value, nil
}

func (s *boltKVStore) Put(key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(rootBucket).Put([]byte(key), value)
	})
}

func (s *boltKVStore) Delete(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(rootBucket).Delete([]byte(key))
	})
}

func (s *boltKVStore) Close() error {
	return s.db.Close()
}
