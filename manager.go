package authkit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/parceldesk/authkit/httpapi"
	"github.com/parceldesk/authkit/tokenstore"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Auth backend endpoints. These strings are the wire contract; a backend is
// compatible iff it serves them byte-for-byte.
const (
	epLogin           = "/api/auth/login"
	epRegister        = "/api/auth/register"
	epRefresh         = "/api/auth/refresh"
	epLogout          = "/api/auth/logout"
	epProfile         = "/api/auth/profile"
	epStatus          = "/api/auth/status"
	epCompleteProfile = "/api/auth/complete-profile"
)

// singleflight keys for the two deduplicated operations.
const (
	flightRefresh   = "refresh"
	flightCheckAuth = "checkauth"
)

const fallbackTokenLifetime = 15 * time.Minute

// Manager is the session controller. It owns the single live copy of
// session state, coordinates the token store and the auth-service HTTP
// client, and is safe for concurrent use after [Builder.Build].
type Manager struct {
	cfg       Config
	log       zerolog.Logger
	metrics   *Metrics
	tokens    *tokenstore.Dual
	api       *httpapi.Client
	snapshots *snapshotStore

	mu         sync.Mutex
	state      sessionState
	refreshing bool
	// generation is bumped by every logout; async completions compare it to
	// detect that their result went stale while in flight.
	generation uint64

	group singleflight.Group

	// bgMu orders the closed check against bg.Add so Close never calls
	// bg.Wait concurrently with a new Add.
	bgMu      sync.Mutex
	bg        sync.WaitGroup
	closed    atomic.Bool
	stopWatch context.CancelFunc
}

// Snapshot returns a read-only copy of the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.snapshot()
}

// AuthClient exposes the auth-service HTTP adapter, mainly so callers can
// scope it to a tenant.
func (m *Manager) AuthClient() *httpapi.Client {
	return m.api
}

// MetricsSnapshot returns a point-in-time copy of the in-process counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// Close stops the signal watcher and waits for detached background tasks.
func (m *Manager) Close() {
	if m == nil || !m.closed.CompareAndSwap(false, true) {
		return
	}
	if m.stopWatch != nil {
		m.stopWatch()
	}
	// Holding bgMu here keeps a concurrent detach from slipping an Add in
	// between the closed swap and the Wait.
	m.bgMu.Lock()
	defer m.bgMu.Unlock()
	m.bg.Wait()
}

func (m *Manager) metricInc(id MetricID) {
	if m == nil {
		return
	}
	m.metrics.Inc(id)
}

// detach runs fn without a caller waiting on it. Failures are logged and
// never reach a result type.
func (m *Manager) detach(name string, fn func(ctx context.Context) error) {
	m.bgMu.Lock()
	if m.closed.Load() {
		m.bgMu.Unlock()
		return
	}
	m.bg.Add(1)
	m.bgMu.Unlock()
	go func() {
		defer m.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.HTTP.BackgroundTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			m.log.Debug().Str("task", name).Err(err).Msg("background task failed")
		}
	}()
}

// persistSnapshotAsync writes the durable state subset in the background.
func (m *Manager) persistSnapshotAsync() {
	m.mu.Lock()
	snap := persistedState(m.state)
	m.mu.Unlock()
	m.detach("persist-state", func(ctx context.Context) error {
		return m.snapshots.save(ctx, snap)
	})
}

func (m *Manager) currentGeneration() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

func (m *Manager) tokenSource() httpapi.TokenSource {
	return func(ctx context.Context) (string, error) {
		pair, err := m.tokens.Get(ctx)
		if err != nil {
			return "", err
		}
		return pair.AccessToken, nil
	}
}

// transportRefresher adapts the Manager into the adapter's 401 hook.
type transportRefresher struct{ m *Manager }

func (r transportRefresher) Refresh(ctx context.Context) error {
	res := r.m.RefreshSession(ctx)
	if !res.Success {
		return errors.New(res.Error)
	}
	return nil
}

// tokenExpiry derives the absolute expiry instant. The server's declared
// lifetime wins; when it is absent the JWT exp claim is consulted
// (unverified parse, the client never validates signatures).
func tokenExpiry(accessToken string, expiresIn int64, now time.Time) time.Time {
	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second)
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return now.Add(fallbackTokenLifetime)
}

// watchSignals consumes the cross-session signal channel and feeds it into
// the same mutation paths as direct calls.
func (m *Manager) watchSignals(ctx context.Context) {
	sigs, err := m.tokens.Watch(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("signal watch unavailable; cross-session sync disabled")
		return
	}
	for sig := range sigs {
		switch sig.Kind {
		case tokenstore.SignalLogout:
			m.applyRemoteLogout(ctx)
		case tokenstore.SignalLogin:
			// Another session stored fresh credentials. If this one is not
			// authenticated, pick them up.
			if !m.Snapshot().IsAuthenticated {
				m.detach("signal-checkauth", func(ctx context.Context) error {
					m.CheckAuth(ctx)
					return nil
				})
			}
		}
	}
}

// applyRemoteLogout clears local state after another session logged out.
// The durable store is already cleared by the signaling session; only the
// in-process token copy and the state need dropping here, and no signal is
// re-published.
func (m *Manager) applyRemoteLogout(ctx context.Context) {
	m.mu.Lock()
	wasAuthenticated := m.state.IsAuthenticated
	m.generation++
	m.state = m.state.cleared(time.Now())
	m.mu.Unlock()

	m.tokens.ClearLocal(ctx)
	if wasAuthenticated {
		m.metricInc(MetricRemoteLogoutSignal)
		m.log.Info().Msg("session cleared by remote logout signal")
	}
}
