package engine

// KeyAlive reports whether key material is still resident, for test
// assertions about zeroization.
func (e *Engine) KeyAlive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unlockedLocked()
}

// EntryCount exposes the in-memory entry count for rollback assertions.
func (e *Engine) EntryCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}
