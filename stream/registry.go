// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import "sync"

// Subscriber is a live delivery target for broadcast lines.
// Implementations live with their transports: the websocket
// subscriber in the daemon, test doubles in _test files.
//
// Send delivers one formatted line and returns an error when delivery
// fails. Send must be safe to call from the Broadcaster's delivery
// goroutines; implementations that share a connection with other
// writers (ping tickers) serialize internally.
type Subscriber interface {
	// ID returns a process-unique identifier, stable for the
	// subscriber's lifetime. The Registry matches on it for removal
	// and the logs carry it for correlation.
	ID() uint64

	// Send delivers one line. A returned error marks this delivery
	// failed; it has no effect on the subscriber's registration.
	Send(line string) error
}

// Registry is the set of currently connected subscribers. Connection
// lifecycle handlers add and remove entries; the Broadcaster takes
// snapshots for fan-out. All methods are safe for concurrent use.
//
// A Registry is constructed in main and injected into everything that
// needs it; there is no package-level instance.
type Registry struct {
	mu          sync.RWMutex
	subscribers []Subscriber
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a subscriber for future broadcasts. Adding a
// subscriber whose ID is already present is a programmer error; the
// registry does not check for it because IDs come from a process-wide
// atomic counter.
func (r *Registry) Add(subscriber Subscriber) {
	r.mu.Lock()
	r.subscribers = append(r.subscribers, subscriber)
	r.mu.Unlock()
}

// Remove deregisters the subscriber with the same ID. Removing a
// subscriber that is not registered is a no-op, so disconnect paths
// that can fire more than once stay safe.
func (r *Registry) Remove(subscriber Subscriber) {
	id := subscriber.ID()
	r.mu.Lock()
	for i, existing := range r.subscribers {
		if existing.ID() == id {
			r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
}

// Snapshot returns the current subscribers as a new slice. The
// Broadcaster iterates the snapshot while connection handlers keep
// mutating the live set; entries added after the snapshot see only
// subsequent lines.
func (r *Registry) Snapshot() []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make([]Subscriber, len(r.subscribers))
	copy(snapshot, r.subscribers)
	return snapshot
}

// Len returns the number of registered subscribers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}
