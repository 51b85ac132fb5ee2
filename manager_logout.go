package authkit

import (
	"context"
	"time"

	"github.com/parceldesk/authkit/httpapi"
)

// Logout tears the session down. The local teardown is synchronous and
// unconditional: state is cleared and tokens revoked before Logout returns,
// regardless of whether the auth backend can be reached. Backend
// notification happens in the background and is never retried; a session
// the server still believes in simply expires there.
func (m *Manager) Logout(ctx context.Context) {
	pair, err := m.tokens.Get(ctx)
	if err != nil {
		m.log.Debug().Err(err).Msg("token read during logout failed")
	}

	m.mu.Lock()
	m.generation++
	m.state = m.state.cleared(time.Now())
	m.refreshing = false
	m.mu.Unlock()

	if err := m.tokens.Clear(ctx); err != nil {
		m.log.Warn().Err(err).Msg("token clear during logout failed")
	}
	m.detach("drop-snapshot", func(ctx context.Context) error {
		return m.snapshots.clear(ctx)
	})

	if pair.AccessToken != "" {
		token := pair.AccessToken
		m.detach("notify-logout", func(ctx context.Context) error {
			_, err := m.api.Post(ctx, epLogout, nil,
				httpapi.WithBearer(token), httpapi.WithoutRefresh())
			return err
		})
	}

	m.metricInc(MetricLogout)
}
