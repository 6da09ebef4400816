// Package keylock serializes work on the same key inside one process while
// letting unrelated keys proceed in parallel.
package keylock

import (
	"hash/fnv"
	"sync"
)

const defaultStripes = 32

// Striped maps keys onto a fixed set of mutexes. Two keys may share a stripe,
// so holders must never take a second lock while holding one.
type Striped struct {
	stripes []sync.Mutex
}

// New creates a Striped lock with n stripes; n <= 0 selects the default of 32.
func New(n int) *Striped {
	if n <= 0 {
		n = defaultStripes
	}
	return &Striped{stripes: make([]sync.Mutex, n)}
}

// Lock acquires the stripe for key and returns its unlock function.
func (s *Striped) Lock(key string) (unlock func()) {
	mu := &s.stripes[s.index(key)]
	mu.Lock()
	return mu.Unlock
}

func (s *Striped) index(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(s.stripes)))
}
