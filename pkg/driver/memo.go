package driver

import "sync"

// memo caches a lookup after its first success. Failed lookups are retried.
// The lock is held during the lookup so concurrent callers run it once.
type memo struct {
	mu    sync.Mutex
	value string
	ok    bool
}

func (m *memo) get(lookup func() (string, bool)) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ok {
		return m.value, true
	}

	v, ok := lookup()
	if ok {
		m.value, m.ok = v, true
	}
	return v, ok
}

// flag caches a boolean probe after it first reports true.
type flag struct {
	mu sync.Mutex
	ok bool
}

func (f *flag) get(check func() bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ok {
		return true
	}
	f.ok = check()
	return f.ok
}
