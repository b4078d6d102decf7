package posts

import "sync/atomic"

// SyncLock lets at most one sync run at a time without blocking callers.
type SyncLock struct {
	state atomic.Int32 // 0 = idle, 1 = syncing
}

// TryAcquire takes the lock if no sync is running
func (l *SyncLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release frees the lock. Only the holder may call it.
func (l *SyncLock) Release() {
	l.state.Store(0)
}

// Held reports whether a sync is in progress
func (l *SyncLock) Held() bool {
	return l.state.Load() == 1
}
