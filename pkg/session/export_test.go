package session

// ActiveLocks exposes the lock map size to external tests.
func (m *Manager) ActiveLocks() int { return m.activeLocks() }
