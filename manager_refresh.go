package authkit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/parceldesk/authkit/httpapi"
	"github.com/parceldesk/authkit/tokenstore"
)

// RefreshSession exchanges the stored refresh token for a new token pair.
// Concurrent callers share one network exchange: the first caller performs
// it, the rest receive its result. A refresh without a stored refresh token
// is a terminal condition and forces a local logout, as does a rejected
// exchange.
func (m *Manager) RefreshSession(ctx context.Context) RefreshResult {
	if m.closed.Load() {
		return RefreshResult{Success: false, Error: ErrClosed.Error()}
	}

	v, _, shared := m.group.Do(flightRefresh, func() (any, error) {
		return m.refreshOnce(ctx), nil
	})
	if shared {
		m.metricInc(MetricRefreshShared)
	}
	return v.(RefreshResult)
}

func (m *Manager) refreshOnce(ctx context.Context) RefreshResult {
	gen := m.currentGeneration()

	m.mu.Lock()
	m.refreshing = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.refreshing = false
		m.mu.Unlock()
	}()

	pair, err := m.tokens.Get(ctx)
	if err != nil {
		m.metricInc(MetricRefreshFailure)
		return RefreshResult{Success: false, Error: errorMessage(err)}
	}
	if pair.RefreshToken == "" {
		m.metricInc(MetricRefreshNoToken)
		m.forceLogout(ctx, gen)
		return RefreshResult{Success: false, Error: ErrNoRefreshToken.Error()}
	}

	body := map[string]string{"refreshToken": pair.RefreshToken}
	// The interception must stay off here: a 401 on this very endpoint
	// would otherwise recurse back into RefreshSession.
	res, err := m.api.Post(ctx, epRefresh, body, httpapi.WithoutRefresh())
	if err != nil {
		m.metricInc(MetricRefreshFailure)
		m.forceLogout(ctx, gen)
		return RefreshResult{Success: false, Error: errorMessage(err)}
	}

	var payload sessionPayload
	if err := json.Unmarshal(res.Data, &payload); err != nil || payload.AccessToken == "" {
		m.metricInc(MetricRefreshFailure)
		m.forceLogout(ctx, gen)
		return RefreshResult{Success: false, Error: ErrMalformedResponse.Error()}
	}

	now := time.Now()
	expiresAt := tokenExpiry(payload.AccessToken, payload.ExpiresIn, now)
	next := tokenstore.Pair{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresAt:    expiresAt,
	}
	if next.RefreshToken == "" {
		// Backend rotated only the access token; keep the old refresh token.
		next.RefreshToken = pair.RefreshToken
	}
	if err := m.tokens.Store(ctx, next); err != nil {
		m.metricInc(MetricRefreshFailure)
		return RefreshResult{Success: false, Error: errorMessage(err)}
	}

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		m.metricInc(MetricStaleResultDiscarded)
		m.detach("revoke-stale-refresh", func(ctx context.Context) error {
			return m.tokens.Clear(ctx)
		})
		return RefreshResult{Success: false, Error: ErrSessionSuperseded.Error()}
	}
	m.state.TokenExpiresAt = expiresAt
	m.state.LastActivity = now
	if payload.User != nil {
		m.state.User = payload.User
		m.state.AccessLevel = payload.level()
		m.state.AccountStatus = normalizedAccountStatus(payload.AccountStatus)
		m.state.ValidationStatus = normalizedValidationStatus(payload.ValidationStatus)
	}
	m.mu.Unlock()

	m.persistSnapshotAsync()
	m.detach("post-refresh-status", func(ctx context.Context) error {
		return m.UpdateAccountStatus(ctx)
	})

	m.metricInc(MetricRefreshSuccess)
	return RefreshResult{Success: true}
}

// forceLogout clears the session locally after a terminal refresh failure.
// It does not notify the auth backend: the backend already rejected the
// session, there is nothing left to revoke.
func (m *Manager) forceLogout(ctx context.Context, gen uint64) {
	m.mu.Lock()
	if m.generation != gen {
		// Someone else already tore the session down.
		m.mu.Unlock()
		return
	}
	m.generation++
	m.state = m.state.cleared(time.Now())
	m.mu.Unlock()

	if err := m.tokens.Clear(ctx); err != nil {
		m.log.Debug().Err(err).Msg("token clear after forced logout failed")
	}
	m.detach("drop-snapshot", func(ctx context.Context) error {
		return m.snapshots.clear(ctx)
	})
}
