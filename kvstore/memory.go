package kvstore

import (
	"context"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps values in process memory. It is the backend used by tests and
// by short-lived CLI invocations that must not touch disk.
type MemoryStore struct {
	values map[string][]byte
	lock   sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
	}
}

func (ms *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	value, ok := ms.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (ms *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ms.lock.Lock()
	defer ms.lock.Unlock()

	// Copy so callers can't mutate stored state
	ms.values[key] = append([]byte(nil), value...)
	return nil
}

func (ms *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ms.lock.Lock()
	defer ms.lock.Unlock()

	delete(ms.values, key)
	return nil
}
