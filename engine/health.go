package engine

import (
	"context"

	"github.com/parthashirolkar/latch/health"
)

// Health builds the vault hygiene report. The engine lock is held only to
// snapshot credentials and, afterwards, to refresh the session; the breach
// lookups run with the lock released.
func (e *Engine) Health(ctx context.Context, breach *health.BreachClient) (health.Report, error) {
	e.mu.Lock()
	if err := e.checkSessionLocked(); err != nil {
		e.mu.Unlock()
		return health.Report{}, err
	}

	creds := make([]health.Credential, len(e.entries))
	for i, entry := range e.entries {
		creds[i] = health.Credential{
			EntryID:  entry.ID,
			Title:    entry.Title,
			Username: entry.Username,
			Password: entry.Password,
		}
	}
	hashed := health.Hash(creds)
	e.mu.Unlock()

	weak := health.Weak(creds)
	reused := health.Reused(creds)

	var breached []health.BreachedCredential
	unavailable := true
	if breach != nil {
		breached, unavailable = breach.Check(ctx, hashed)
	}

	e.mu.Lock()
	if e.unlockedLocked() {
		e.sessionStart = e.now()
	}
	report := health.Compose(creds, weak, reused, breached, unavailable)
	e.mu.Unlock()

	return report, nil
}
