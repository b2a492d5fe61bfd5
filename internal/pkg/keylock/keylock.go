package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locks hands out one mutex per key. Entries are dropped once no goroutine
// holds or waits on them, so the map only grows with concurrent keys.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func New() *Locks {
	return &Locks{locks: make(map[string]*entry)}
}

// Lock blocks until key is held and returns the matching unlock func.
func (l *Locks) Lock(key string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

func (l *Locks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
