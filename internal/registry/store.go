// Package registry implements the in-memory counter store and its name table.
package registry

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sync"
)

// Counter is a named, monotonically increasing count with its sampled rate.
type Counter struct {
	Key           Key    `json:"-"`
	Count         uint64 `json:"count"`
	Rate          uint64 `json:"rate"`
	PreviousCount uint64 `json:"-"`
	Marked        bool   `json:"-"`

	// seq orders counters by registration.
	seq uint64
}

// Entry is a point-in-time copy of a counter together with its name.
type Entry struct {
	Name string `json:"name"`
	Counter
}

// ReclaimResult summarizes one reclamation pass.
type ReclaimResult struct {
	Evicted   []string `json:"evicted"`
	Surviving int      `json:"surviving"`
}

// Store maps keys to counters. Every method takes the store lock, so each
// operation is atomic with respect to every other one.
type Store struct {
	mu       sync.Mutex
	counters map[Key]*Counter
	names    *NameTable
	nextSeq  uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		counters: make(map[Key]*Counter),
		names:    NewNameTable(),
	}
}

// Len returns the number of live counters.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

// Exists reports whether name has a live counter. It has no side effects.
func (s *Store) Exists(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lookupLocked(name)
	return ok
}

// Get returns a copy of the counter registered under name.
func (s *Store) Get(name string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.lookupLocked(name)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return Entry{Name: name, Counter: *c}, nil
}

// Register creates a counter for name with a zero count. It returns
// ErrAlreadyExists if name is live and ErrKeyCollision if another name owns
// the same key. A rejected re-registration still marks the existing counter
// as active for the current reclamation interval.
func (s *Store) Register(name string) (Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.lookupLocked(name); ok {
		c.Marked = true
		return c.Key, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}

	key, err := s.names.Put(name)
	if err != nil {
		return key, err
	}

	s.nextSeq++
	s.counters[key] = &Counter{
		Key:    key,
		Marked: true,
		seq:    s.nextSeq,
	}
	return key, nil
}

// Increment adds one to the counter registered under name and returns the
// new count. The count never wraps: at math.MaxUint64 Increment refuses with
// ErrOverflow and leaves the counter untouched.
func (s *Store) Increment(name string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.lookupLocked(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if c.Count == math.MaxUint64 {
		return c.Count, fmt.Errorf("%w: %s", ErrOverflow, name)
	}
	c.Marked = true
	c.Count++
	return c.Count, nil
}

// Snapshot returns copies of all live counters in registration order.
func (s *Store) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Sweep removes every counter whose key is not in live, along with its name,
// and returns the evicted names.
func (s *Store) Sweep(live map[Key]struct{}) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(live)
}

// SampleRates sets each counter's rate to the increments seen since the
// previous call and returns the number of counters sampled.
func (s *Store) SampleRates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.counters {
		c.Rate = c.Count - c.PreviousCount
		c.PreviousCount = c.Count
	}
	return len(s.counters)
}

// Reclaim runs one mark-and-sweep cycle: counters marked since the last
// cycle survive and have their mark cleared, all others are evicted.
func (s *Store) Reclaim() ReclaimResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := make(map[Key]struct{}, len(s.counters))
	for key, c := range s.counters {
		if c.Marked {
			live[key] = struct{}{}
		}
	}

	evicted := s.sweepLocked(live)
	for _, c := range s.counters {
		c.Marked = false
	}
	return ReclaimResult{Evicted: evicted, Surviving: len(s.counters)}
}

func (s *Store) lookupLocked(name string) (*Counter, bool) {
	key, ok := s.names.resolve(name)
	if !ok {
		return nil, false
	}
	c, ok := s.counters[key]
	return c, ok
}

func (s *Store) snapshotLocked() []Entry {
	entries := make([]Entry, 0, len(s.counters))
	for key, c := range s.counters {
		name, _ := s.names.Lookup(key)
		entries = append(entries, Entry{Name: name, Counter: *c})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return entries
}

func (s *Store) sweepLocked(live map[Key]struct{}) []string {
	var evicted []string
	for key := range s.counters {
		if _, ok := live[key]; ok {
			continue
		}
		if name, ok := s.names.Lookup(key); ok {
			evicted = append(evicted, name)
		}
		delete(s.counters, key)
		s.names.Remove(key)
	}
	slices.Sort(evicted)
	return evicted
}

// Leader returns the first entry holding the strictly highest count. There
// is no leader while every count is zero.
func Leader(entries []Entry) (Entry, bool) {
	var (
		leader Entry
		top    uint64
		found  bool
	)
	for _, e := range entries {
		if e.Count > top {
			leader, top, found = e, e.Count, true
		}
	}
	return leader, found
}

// Rank returns a copy of entries ordered by count, highest first. Ties keep
// their input order.
func Rank(entries []Entry) []Entry {
	ranked := slices.Clone(entries)
	slices.SortStableFunc(ranked, func(a, b Entry) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return ranked
}
