package redisclient

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type localSlotLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewLocalLocker returns an in-process Locker for tests and single-node
// runs. Unlike the Redis locker it blocks instead of failing fast, so
// concurrent callers serialize on the slot.
func NewLocalLocker() Locker {
	return &localSlotLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *localSlotLocker) WithSlotLock(ctx context.Context, slotID uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[slotID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[slotID] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	return fn(ctx)
}
