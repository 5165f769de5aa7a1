package locks

import "context"

// Manager hands out per-key advisory locks. Acquire blocks until the lock is
// held or the context is done, and returns a release function. The lock for
// key X serializes every application attempt for that (user, job) pair.
type Manager interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
