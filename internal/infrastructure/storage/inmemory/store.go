package kvinmemory

import (
	"sync"

	"github.com/cryptofolio/cryptofolio-daemon/internal/core/ports"
)

type inMemoryKVStore struct {
	lock sync.RWMutex
	data map[string][]byte
}

// NewKVStore returns a map-backed KVStore, used in tests and for throwaway
// sessions.
func NewKVStore() ports.KVStore {
	return &inMemoryKVStore{data: map[string][]byte{}}
}

func (s *inMemoryKVStore) Get(key string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, ports.ErrKeyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *inMemoryKVStore) Put(key string, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	return nil
}

func (s *inMemoryKVStore) Delete(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.data, key)
	return nil
}

func (s *inMemoryKVStore) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data = map[string][]byte{}
	return nil
}
