package authkit

import (
	"context"
	"time"
)

// UpdateLastActivity stamps the session as active now. Call it from
// whatever counts as user activity in the host application.
func (m *Manager) UpdateLastActivity() {
	m.mu.Lock()
	if m.state.IsAuthenticated {
		m.state.LastActivity = time.Now()
	}
	m.mu.Unlock()
}

// IsSessionExpired reports whether the session has sat idle past the
// configured idle timeout. An unauthenticated session is never expired;
// there is nothing to expire.
func (m *Manager) IsSessionExpired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.IsAuthenticated {
		return false
	}
	return time.Since(m.state.LastActivity) > m.cfg.Session.IdleTimeout
}

// TimeUntilExpiry returns how long the current access token remains valid,
// clamped at zero.
func (m *Manager) TimeUntilExpiry() time.Duration {
	m.mu.Lock()
	expires := m.state.TokenExpiresAt
	m.mu.Unlock()
	if expires.IsZero() {
		return 0
	}
	d := time.Until(expires)
	if d < 0 {
		return 0
	}
	return d
}

// ExtendSession reacts to user activity. Usually it only stamps the
// activity clock, but when the access token is inside the refresh
// threshold it refreshes proactively so the token never expires mid-use.
// It is a no-op while unauthenticated or while a refresh is in flight.
func (m *Manager) ExtendSession(ctx context.Context) {
	m.mu.Lock()
	if !m.state.IsAuthenticated || m.refreshing {
		m.mu.Unlock()
		return
	}
	m.state.LastActivity = time.Now()
	expires := m.state.TokenExpiresAt
	m.mu.Unlock()

	if !expires.IsZero() && time.Until(expires) < m.cfg.Session.RefreshThreshold {
		m.RefreshSession(ctx)
	}
}
