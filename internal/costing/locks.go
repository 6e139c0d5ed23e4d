package costing

import (
	"fmt"
	"sync"
)

// keyedMutex serializes work per aggregate key so recomputes for the same
// week or month never interleave, while unrelated keys proceed concurrently.
// The lock map only ever holds one entry per referenced week/month, so it is
// not reaped.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	m := k.get(key)
	m.Lock()
	return m.Unlock
}

var aggLocks = newKeyedMutex()

func weekKey(weekID uint) string {
	return fmt.Sprintf("week/%d", weekID)
}

func monthKey(month, year int) string {
	return fmt.Sprintf("month/%04d-%02d", year, month)
}
