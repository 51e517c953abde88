package store

import (
	"sync"
)

const subscriberBuffer = 16

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore provides thread-safe storage of a single [Snapshot] with a
// publish-subscribe mechanism for real-time updates.
//
// Subscribers receive updates via buffered channels. Updates are sent
// non-blocking; if a subscriber's buffer is full, the update is dropped for
// that subscriber to prevent blocking the entire system. Every snapshot is
// complete, so a dropped update is superseded by the next one.
type MemoryStore struct {
	mu          sync.RWMutex
	snapshot    Snapshot
	subscribers map[chan Snapshot]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] implementation.
//
// The store is immediately ready for use. No cleanup is required when done.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Update applies fn to the stored snapshot and notifies all subscribers.
//
// fn runs under the store's write lock and must not call back into the store.
// Subscribers are notified before the lock is released, so they receive
// snapshots in the order updates were applied.
func (m *MemoryStore) Update(fn func(s *Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn(&m.snapshot)
	m.notifySubscribers(m.snapshot)
}

// Get returns the current snapshot.
func (m *MemoryStore) Get() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// After calling Unsubscribe, the channel will be closed and no further
// updates will be sent. Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	// find and delete the channel (need to convert to the right type)
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the snapshot to all active subscribers.
//
// This is non-blocking: if a subscriber's channel buffer is full, the message
// is dropped for that subscriber rather than blocking the update path.
func (m *MemoryStore) notifySubscribers(snap Snapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- snap:
		default:
			// subscriber is slow, drop the message
		}
	}
}
