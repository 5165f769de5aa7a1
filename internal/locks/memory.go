package locks

import (
	"context"
	"sync"
)

// MemoryManager implements Manager with an in-process mutex per key. It is
// the default when no Redis URL is configured and is only safe for a single
// instance.
type MemoryManager struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{} // capacity 1; holding the token means holding the lock
	refs int
}

// NewMemoryManager creates an in-process lock manager
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		locks: make(map[string]*keyLock),
	}
}

func (m *MemoryManager) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	kl, ok := m.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[key] = kl
	}
	kl.refs++
	m.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
		return func() {
			<-kl.ch
			m.put(key, kl)
		}, nil
	case <-ctx.Done():
		m.put(key, kl)
		return nil, ctx.Err()
	}
}

// put drops a reference and frees the per-key state once nobody holds or
// waits on it, so the map does not grow with every job ever locked.
func (m *MemoryManager) put(key string, kl *keyLock) {
	m.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()
}
