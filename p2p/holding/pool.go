// Package holding implements the expiring holding pool used by the protocol
// layer to stage partially processed or unverified data (orphans, relay
// caches, unverified queues) until it is relayed, validated or dropped.
//
// Every operation, including the read-only accessors, is guarded by the pool's
// lock. The pool owns no goroutines; expired entries are only reclaimed when
// the caller invokes Clean.
package holding

import (
	"cmp"
	"math"
	"slices"
	"sync"

	"github.com/tos-network/holdpool/common/mclock"
	"github.com/tos-network/holdpool/log"
)

// Pool holds objects under unique indexes, tagging each with a state code and
// the time it was last touched.
type Pool[K comparable, V any] struct {
	config  Config
	clock   mclock.Clock
	compare func(a, b K) int
	meters  *poolMeters
	log     log.Logger

	entries map[K]Entry[V]
	lock    sync.RWMutex
}

// New creates a holding pool over a naturally ordered key type.
func New[K cmp.Ordered, V any](config Config) *Pool[K, V] {
	return NewWithCompare[K, V](config, cmp.Compare[K])
}

// NewWithCompare creates a holding pool whose bulk queries walk the indexes in
// the order defined by compare.
func NewWithCompare[K comparable, V any](config Config, compare func(a, b K) int) *Pool[K, V] {
	config = config.sanitize()
	return &Pool[K, V]{
		config:  config,
		clock:   config.Clock,
		compare: compare,
		meters:  newPoolMeters(config.Name),
		log:     log.New("pool", config.Name),
		entries: make(map[K]Entry[V]),
	}
}

// Expiration returns the configured expiration window in seconds.
func (p *Pool[K, V]) Expiration() uint64 {
	return p.config.Expiration
}

// Has reports whether an entry exists for index.
func (p *Pool[K, V]) Has(index K) bool {
	p.lock.RLock()
	defer p.lock.RUnlock()

	_, ok := p.entries[index]
	return ok
}

// Get returns a copy of the object held under index.
func (p *Pool[K, V]) Get(index K) (V, bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	entry, ok := p.entries[index]
	if !ok {
		var zero V
		return zero, false
	}
	return copyOf(entry.Object), true
}

// Entry returns a copy of the full record held under index.
func (p *Pool[K, V]) Entry(index K) (Entry[V], bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	entry, ok := p.entries[index]
	if !ok {
		return Entry[V]{State: NotFound}, false
	}
	entry.Object = copyOf(entry.Object)
	return entry, true
}

// GetByState returns the objects in the given state, in index order, up to
// limit results. A limit of zero or less means no limit. The boolean reports
// whether anything matched.
func (p *Pool[K, V]) GetByState(state State, limit int) ([]V, bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	indexes := p.indexes(func(e Entry[V]) bool { return e.State == state }, limit)
	objects := make([]V, 0, len(indexes))
	for _, index := range indexes {
		objects = append(objects, copyOf(p.entries[index].Object))
	}
	return objects, len(objects) > 0
}

// Indexes returns the held indexes in order, up to limit results.
func (p *Pool[K, V]) Indexes(limit int) ([]K, bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	indexes := p.indexes(nil, limit)
	return indexes, len(indexes) > 0
}

// IndexesByState returns the indexes in the given state in order, up to limit
// results.
func (p *Pool[K, V]) IndexesByState(state State, limit int) ([]K, bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	indexes := p.indexes(func(e Entry[V]) bool { return e.State == state }, limit)
	return indexes, len(indexes) > 0
}

// indexes collects the matching indexes in key order and truncates them to
// limit. The caller must hold the lock.
func (p *Pool[K, V]) indexes(match func(Entry[V]) bool, limit int) []K {
	indexes := make([]K, 0, len(p.entries))
	for index, entry := range p.entries {
		if match == nil || match(entry) {
			indexes = append(indexes, index)
		}
	}
	slices.SortFunc(indexes, p.compare)
	if limit > 0 && len(indexes) > limit {
		indexes = indexes[:limit]
	}
	return indexes
}

// Update replaces the object of an existing entry, marking it unverified and
// stamping it with the current time. It returns false if index is absent.
func (p *Pool[K, V]) Update(index K, obj V) bool {
	return p.UpdateWith(index, obj, Unverified, p.clock.Now())
}

// UpdateWith replaces object, state and timestamp of an existing entry. It
// never creates an entry.
func (p *Pool[K, V]) UpdateWith(index K, obj V, state State, timestamp uint64) bool {
	if !p.writable(index, state) {
		return false
	}
	p.lock.Lock()
	defer p.lock.Unlock()

	if _, ok := p.entries[index]; !ok {
		return false
	}
	p.entries[index] = Entry[V]{Timestamp: timestamp, State: state, Object: copyOf(obj)}
	p.meters.update.Mark(1)
	return true
}

// Add inserts a new unverified entry stamped with the current time. It returns
// false if index is already held.
func (p *Pool[K, V]) Add(index K, obj V) bool {
	return p.AddWith(index, obj, Unverified, p.clock.Now())
}

// AddWith inserts a new entry with the given state and timestamp.
func (p *Pool[K, V]) AddWith(index K, obj V, state State, timestamp uint64) bool {
	if !p.writable(index, state) {
		return false
	}
	p.lock.Lock()
	defer p.lock.Unlock()

	if _, ok := p.entries[index]; ok {
		return false
	}
	p.entries[index] = Entry[V]{Timestamp: timestamp, State: state, Object: copyOf(obj)}
	p.meters.add.Mark(1)
	p.meters.size.Update(int64(len(p.entries)))
	return true
}

// AddState installs an entry for index with the given state and the current
// time, whether or not one exists. The object is reset to the zero value of V,
// so any previously held object is lost; use SetState to keep it.
func (p *Pool[K, V]) AddState(index K, state State) {
	if !p.writable(index, state) {
		return
	}
	now := p.clock.Now()

	p.lock.Lock()
	defer p.lock.Unlock()

	p.entries[index] = Entry[V]{Timestamp: now, State: state}
	p.meters.size.Update(int64(len(p.entries)))
}

// SetState changes the state of an existing entry and refreshes its timestamp,
// keeping the held object. Absent indexes are ignored.
func (p *Pool[K, V]) SetState(index K, state State) {
	if !p.writable(index, state) {
		return
	}
	now := p.clock.Now()

	p.lock.Lock()
	defer p.lock.Unlock()

	entry, ok := p.entries[index]
	if !ok {
		return
	}
	entry.State, entry.Timestamp = state, now
	p.entries[index] = entry
}

// SetTimestamp overwrites the timestamp of an existing entry. Absent indexes
// are ignored.
func (p *Pool[K, V]) SetTimestamp(index K, timestamp uint64) {
	p.lock.Lock()
	defer p.lock.Unlock()

	entry, ok := p.entries[index]
	if !ok {
		return
	}
	entry.Timestamp = timestamp
	p.entries[index] = entry
}

// Touch stamps an existing entry with the current time.
func (p *Pool[K, V]) Touch(index K) {
	p.SetTimestamp(index, p.clock.Now())
}

// State returns the state of the entry held under index, or NotFound.
func (p *Pool[K, V]) State(index K) State {
	p.lock.RLock()
	defer p.lock.RUnlock()

	entry, ok := p.entries[index]
	if !ok {
		return NotFound
	}
	return entry.State
}

// Remove drops the entry held under index, reporting whether one existed.
func (p *Pool[K, V]) Remove(index K) bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	if _, ok := p.entries[index]; !ok {
		return false
	}
	delete(p.entries, index)
	p.meters.remove.Mark(1)
	p.meters.size.Update(int64(len(p.entries)))
	return true
}

// Expired reports whether the entry under index has gone untouched for more
// than window seconds. Absent indexes count as expired.
func (p *Pool[K, V]) Expired(index K, window uint64) bool {
	now := p.clock.Now()

	p.lock.RLock()
	defer p.lock.RUnlock()

	entry, ok := p.entries[index]
	if !ok {
		return true
	}
	return expired(entry.Timestamp, window, now)
}

// Age returns the seconds elapsed since the entry under index was last
// touched, or 0 if it is absent or stamped in the future.
func (p *Pool[K, V]) Age(index K) uint64 {
	now := p.clock.Now()

	p.lock.RLock()
	defer p.lock.RUnlock()

	entry, ok := p.entries[index]
	if !ok || entry.Timestamp > now {
		return 0
	}
	return now - entry.Timestamp
}

// Clean removes every entry older than the configured expiration window and
// returns the number of entries it actually removed.
//
// The expired set is snapshotted under one lock acquisition and each index is
// then removed separately, so an entry refreshed between the two phases is
// still dropped. An entry removed by another caller in between is not counted,
// so the result can be smaller than the snapshot.
func (p *Pool[K, V]) Clean() int {
	now := p.clock.Now()

	p.lock.RLock()
	var stale []K
	for index, entry := range p.entries {
		if expired(entry.Timestamp, p.config.Expiration, now) {
			stale = append(stale, index)
		}
	}
	p.lock.RUnlock()

	var removed int
	for _, index := range stale {
		if p.Remove(index) {
			removed++
		}
	}
	if removed > 0 {
		p.meters.clean.Mark(int64(removed))
		p.log.Debug("Cleaned expired holding entries", "removed", removed, "window", p.config.Expiration)
	}
	return removed
}

// Count returns the number of held entries.
func (p *Pool[K, V]) Count() int {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return len(p.entries)
}

// CountState returns the number of entries in the given state.
func (p *Pool[K, V]) CountState(state State) int {
	p.lock.RLock()
	defer p.lock.RUnlock()

	var n int
	for _, entry := range p.entries {
		if entry.State == state {
			n++
		}
	}
	return n
}

// writable rejects the not-found sentinel, which must never be stored.
func (p *Pool[K, V]) writable(index K, state State) bool {
	if state == NotFound {
		p.meters.reject.Mark(1)
		p.log.Debug("Rejected reserved holding state", "index", index, "state", state)
		return false
	}
	return true
}

func expired(timestamp, window, now uint64) bool {
	if window > math.MaxUint64-timestamp {
		return false
	}
	return timestamp+window < now
}
