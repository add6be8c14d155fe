package registry

import "sync"

// pathLocks serializes read-modify-write cycles per document path, so two
// requests can no longer interleave on the same JSON file and silently
// drop each other's write.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for path and returns its unlock func.
func (p *pathLocks) lock(path string) func() {
	p.mu.Lock()
	m, ok := p.locks[path]
	if !ok {
		m = &sync.Mutex{}
		p.locks[path] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}
