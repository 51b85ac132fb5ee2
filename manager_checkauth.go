package authkit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/parceldesk/authkit/httpapi"
)

// profilePayload is the /api/auth/profile response body.
type profilePayload struct {
	User                      *User            `json:"user"`
	AccountStatus             AccountStatus    `json:"accountStatus"`
	ValidationStatus          ValidationStatus `json:"validationStatus"`
	FullAccess                bool             `json:"fullAccess"`
	LimitedAccess             bool             `json:"limitedAccess"`
	ProfileAccess             bool             `json:"profileAccess"`
	RequiresProfileCompletion bool             `json:"requiresProfileCompletion"`
	Requirements              []string         `json:"requirements"`
	HasBlueCheckmark          bool             `json:"hasBlueCheckmark"`
}

// CheckAuth establishes whether a session exists. An already-established
// authenticated session short-circuits without touching the network, and
// concurrent callers share a single probe. On a failed profile fetch it
// attempts exactly one refresh before declaring the session gone.
func (m *Manager) CheckAuth(ctx context.Context) CheckAuthResult {
	if m.closed.Load() {
		return CheckAuthResult{Authenticated: false}
	}

	m.mu.Lock()
	if m.refreshing || (m.state.Initialized && m.state.IsAuthenticated && m.state.User != nil) {
		user := m.state.User
		auth := m.state.IsAuthenticated
		m.mu.Unlock()
		m.metricInc(MetricCheckAuthShortCircuit)
		return CheckAuthResult{Authenticated: auth, User: user}
	}
	m.mu.Unlock()

	v, _, shared := m.group.Do(flightCheckAuth, func() (any, error) {
		return m.checkAuthOnce(ctx), nil
	})
	if shared {
		m.metricInc(MetricCheckAuthShared)
	}
	return v.(CheckAuthResult)
}

func (m *Manager) checkAuthOnce(ctx context.Context) CheckAuthResult {
	gen := m.currentGeneration()

	pair, err := m.tokens.Get(ctx)
	if err == nil && pair.Empty() {
		// No tokens anywhere: settled, unauthenticated. No network call.
		m.mu.Lock()
		m.state.Initialized = true
		m.state.IsAuthenticated = false
		m.mu.Unlock()
		m.persistSnapshotAsync()
		return CheckAuthResult{Authenticated: false}
	}
	if err != nil {
		m.log.Debug().Err(err).Msg("token lookup during auth check failed")
	}

	res, err := m.api.Get(ctx, epProfile, httpapi.WithoutRefresh())
	if err != nil {
		// One refresh attempt for any profile failure, then one retry with
		// the rotated token. A failed refresh settles the session as
		// logged-out rather than leaving it undecided.
		if rr := m.RefreshSession(ctx); !rr.Success {
			m.metricInc(MetricCheckAuthFailure)
			m.settleUnauthenticated(gen)
			return CheckAuthResult{Authenticated: false}
		}
		res, err = m.api.Get(ctx, epProfile, httpapi.WithoutRefresh())
		if err != nil {
			m.metricInc(MetricCheckAuthFailure)
			m.settleUnauthenticated(gen)
			return CheckAuthResult{Authenticated: false}
		}
	}

	var payload profilePayload
	if uerr := json.Unmarshal(res.Data, &payload); uerr != nil || payload.User == nil {
		// Some deployments return the user object bare.
		var user User
		if uerr2 := json.Unmarshal(res.Data, &user); uerr2 != nil || user.ID == "" {
			m.metricInc(MetricCheckAuthFailure)
			return CheckAuthResult{Authenticated: false}
		}
		payload = profilePayload{User: &user}
	}

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		m.metricInc(MetricStaleResultDiscarded)
		return CheckAuthResult{Authenticated: false}
	}
	m.state.User = payload.User
	m.state.IsAuthenticated = true
	m.state.Initialized = true
	m.state.AccountStatus = normalizedAccountStatus(payload.AccountStatus)
	m.state.ValidationStatus = normalizedValidationStatus(payload.ValidationStatus)
	m.state.AccessLevel = payload.level()
	m.state.Requirements = payload.Requirements
	m.state.HasBlueCheckmark = payload.HasBlueCheckmark
	m.state.LastActivity = time.Now()
	m.mu.Unlock()

	m.persistSnapshotAsync()
	m.detach("post-checkauth-status", func(ctx context.Context) error {
		return m.UpdateAccountStatus(ctx)
	})

	m.metricInc(MetricCheckAuthSuccess)
	return CheckAuthResult{Authenticated: true, User: payload.User}
}

func (p *profilePayload) level() AccessLevel {
	return (&sessionPayload{
		FullAccess:                p.FullAccess,
		LimitedAccess:             p.LimitedAccess,
		ProfileAccess:             p.ProfileAccess,
		RequiresProfileCompletion: p.RequiresProfileCompletion,
	}).level()
}

// settleUnauthenticated marks the session resolved-and-absent without
// bumping the generation; there was never a live session to supersede.
func (m *Manager) settleUnauthenticated(gen uint64) {
	m.mu.Lock()
	if m.generation == gen {
		m.state.Initialized = true
		m.state.IsAuthenticated = false
		m.state.User = nil
	}
	m.mu.Unlock()
	m.persistSnapshotAsync()
}
