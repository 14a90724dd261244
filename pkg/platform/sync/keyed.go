package sync

import (
	"sync"
)

const shardCount = 32

// KeyedMutex serializes work per key.
// Each key gets its own mutex, created on first use and dropped once no goroutine
// holds or waits on it. The key → mutex map is split across shards by a hash of
// the key so that unrelated keys rarely contend on the map itself.
type KeyedMutex struct {
	shards [shardCount]shard
}

type shard struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates a KeyedMutex ready for use.
func NewKeyedMutex() *KeyedMutex {
	m := &KeyedMutex{}
	for i := range m.shards {
		m.shards[i].locks = make(map[string]*entry)
	}
	return m
}

// Lock acquires the mutex for key, blocking until it is available.
func (m *KeyedMutex) Lock(key string) {
	s := &m.shards[m.shardFor(key)]

	s.mu.Lock()
	e, ok := s.locks[key]
	if !ok {
		e = &entry{}
		s.locks[key] = e
	}
	e.refs++
	s.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key. Unlocking a key that is not locked panics,
// the same as sync.Mutex.
func (m *KeyedMutex) Unlock(key string) {
	s := &m.shards[m.shardFor(key)]

	s.mu.Lock()
	e, ok := s.locks[key]
	if !ok {
		s.mu.Unlock()
		panic("sync: unlock of unlocked key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(s.locks, key)
	}
	s.mu.Unlock()

	e.mu.Unlock()
}

// Do runs fn while holding the mutex for key.
func (m *KeyedMutex) Do(key string, fn func() error) error {
	m.Lock(key)
	defer m.Unlock(key)
	return fn()
}

// Len reports how many keys currently have a live mutex.
func (m *KeyedMutex) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		n += len(s.locks)
		s.mu.Unlock()
	}
	return n
}

// shardFor returns the shard index for the given key.
func (m *KeyedMutex) shardFor(key string) int {
	if key == "" {
		return 0
	}
	return int(hashString(key) % shardCount)
}

// hashString is a djb2-style hash used only for shard selection.
func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}
