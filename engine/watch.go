package engine

import "time"

// Watch starts a background check that locks the vault once the session
// deadline passes and then fires onLock. The lazy check in every operation
// already enforces the timeout; this only exists so a UI can hear about it
// without polling. The returned stop function is idempotent.
func (e *Engine) Watch(interval time.Duration, onLock func()) (stop func()) {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				e.mu.Lock()
				expired := e.unlockedLocked() && e.now().Sub(e.sessionStart) > SessionTimeout
				if expired {
					e.lockLocked()
				}
				e.mu.Unlock()

				if expired && onLock != nil {
					onLock()
				}
			}
		}
	}()

	var stopped bool
	return func() {
		if !stopped {
			stopped = true
			close(done)
		}
	}
}
