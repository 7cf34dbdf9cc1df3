package entropy

import "sync"

// Latest retains the most recent draw published by the feed for read-side
// consumers. Zero value is ready to use.
type Latest struct {
	mu   sync.RWMutex
	draw Draw
	ok   bool
}

func (l *Latest) Set(d Draw) {
	l.mu.Lock()
	l.draw = d
	l.ok = true
	l.mu.Unlock()
}

func (l *Latest) Get() (Draw, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.draw, l.ok
}
