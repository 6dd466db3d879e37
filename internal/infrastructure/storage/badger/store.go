package kvbadger

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"

	"github.com/cryptofolio/cryptofolio-daemon/internal/core/ports"
)

type badgerKVStore struct {
	db *badger.DB
}

// NewKVStore opens (or creates) the badger store on disk and returns it
// wrapped in the KVStore interface. An empty dir opens an in-memory store.
func NewKVStore(dbDir string, logger badger.Logger) (ports.KVStore, error) {
	db, err := createDb(dbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening main db: %w", err)
	}
	return &badgerKVStore{db: db}, nil
}

func (s *badgerKVStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, ports.ErrKeyNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *badgerKVStore) Put(key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (s *badgerKVStore) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (s *badgerKVStore) Close() error {
	return s.db.Close()
}

func createDb(dbDir string, logger badger.Logger) (*badger.DB, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(30 * time.Minute)

		go func() {
			for {
				<-ticker.C
				if err := db.RunValueLogGC(0.5); err != nil &&
					err != badger.ErrNoRewrite {
					log.Error(err)
				}
			}
		}()
	}

	return db, nil
}
