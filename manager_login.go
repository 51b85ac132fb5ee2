package authkit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/parceldesk/authkit/access"
	"github.com/parceldesk/authkit/httpapi"
	"github.com/parceldesk/authkit/tokenstore"
)

// sessionPayload is the auth backend's login/refresh body. Which fields are
// populated decides the outcome: accessDenied wins, then a full session
// (user + both tokens), anything else is malformed.
type sessionPayload struct {
	AccessDenied              bool             `json:"accessDenied"`
	Message                   string           `json:"message"`
	User                      *User            `json:"user"`
	AccessToken               string           `json:"accessToken"`
	RefreshToken              string           `json:"refreshToken"`
	ExpiresIn                 int64            `json:"expiresIn"`
	AccountStatus             AccountStatus    `json:"accountStatus"`
	ValidationStatus          ValidationStatus `json:"validationStatus"`
	FullAccess                bool             `json:"fullAccess"`
	LimitedAccess             bool             `json:"limitedAccess"`
	ProfileAccess             bool             `json:"profileAccess"`
	RequiresProfileCompletion bool             `json:"requiresProfileCompletion"`
	Requirements              []string         `json:"requirements"`
	HasBlueCheckmark          bool             `json:"hasBlueCheckmark"`
}

func (p *sessionPayload) fullSession() bool {
	return p.User != nil && p.AccessToken != "" && p.RefreshToken != ""
}

func (p *sessionPayload) level() AccessLevel {
	return access.LevelFromFlags(p.FullAccess, p.LimitedAccess, p.ProfileAccess, p.RequiresProfileCompletion)
}

// Login authenticates against the auth backend. It never returns an error;
// denial, transport failure, and malformed payloads all resolve into a
// typed [LoginResult]. The refresh interception is disabled for this call:
// a refresh cannot fix rejected credentials.
func (m *Manager) Login(ctx context.Context, creds Credentials) LoginResult {
	gen := m.currentGeneration()

	res, err := m.api.Post(ctx, epLogin, creds, httpapi.WithoutRefresh())
	if err != nil {
		m.metricInc(MetricLoginFailure)
		return LoginResult{Success: false, Error: errorMessage(err), AccessLevel: access.NoAccess}
	}

	var payload sessionPayload
	if err := json.Unmarshal(res.Data, &payload); err != nil {
		m.metricInc(MetricLoginFailure)
		return LoginResult{Success: false, Error: ErrMalformedResponse.Error(), AccessLevel: access.NoAccess}
	}

	if payload.AccessDenied {
		return m.loginDenied(&payload, res.Message)
	}

	if !payload.fullSession() {
		m.metricInc(MetricLoginFailure)
		return LoginResult{Success: false, Error: ErrMalformedResponse.Error(), AccessLevel: access.NoAccess}
	}

	now := time.Now()
	expiresAt := tokenExpiry(payload.AccessToken, payload.ExpiresIn, now)
	pair := tokenstore.Pair{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresAt:    expiresAt,
	}
	if err := m.tokens.Store(ctx, pair); err != nil {
		m.metricInc(MetricLoginFailure)
		return LoginResult{Success: false, Error: errorMessage(err), AccessLevel: access.NoAccess}
	}

	level := payload.level()
	redirect := RedirectHome
	if level == access.ProfileOnly || payload.AccountStatus == access.AccountInactive {
		redirect = RedirectProfileCompletion
	}

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		// A logout raced this login; its result is stale and must not
		// resurrect the session. Revoke what was just stored.
		m.metricInc(MetricStaleResultDiscarded)
		m.detach("revoke-stale-login", func(ctx context.Context) error {
			return m.tokens.Clear(ctx)
		})
		return LoginResult{Success: false, Error: ErrSessionSuperseded.Error(), AccessLevel: access.NoAccess}
	}
	m.state.User = payload.User
	m.state.IsAuthenticated = true
	m.state.Initialized = true
	m.state.AccountStatus = normalizedAccountStatus(payload.AccountStatus)
	m.state.ValidationStatus = normalizedValidationStatus(payload.ValidationStatus)
	m.state.AccessLevel = level
	m.state.Requirements = payload.Requirements
	m.state.HasBlueCheckmark = payload.HasBlueCheckmark
	m.state.TokenExpiresAt = expiresAt
	m.state.LastActivity = now
	m.refreshing = false
	m.mu.Unlock()

	m.persistSnapshotAsync()
	m.detach("post-login-status", func(ctx context.Context) error {
		return m.UpdateAccountStatus(ctx)
	})

	m.metricInc(MetricLoginSuccess)
	return LoginResult{
		Success:       true,
		AccessLevel:   level,
		AccountStatus: normalizedAccountStatus(payload.AccountStatus),
		RedirectTo:    redirect,
		User:          payload.User,
	}
}

func (m *Manager) loginDenied(payload *sessionPayload, envelopeMessage string) LoginResult {
	msg := payload.Message
	if msg == "" {
		msg = envelopeMessage
	}
	if msg == "" {
		msg = "access denied"
	}

	m.mu.Lock()
	m.state = m.state.cleared(time.Now())
	if payload.AccountStatus != "" {
		m.state.AccountStatus = payload.AccountStatus
	}
	m.mu.Unlock()
	m.persistSnapshotAsync()

	m.metricInc(MetricLoginDenied)
	m.metricInc(MetricLoginFailure)
	return LoginResult{
		Success:       false,
		Error:         msg,
		AccessLevel:   access.NoAccess,
		AccountStatus: payload.AccountStatus,
	}
}

// registerPayload is the registration response body.
type registerPayload struct {
	AccountStatus AccountStatus `json:"accountStatus"`
	Message       string        `json:"message"`
	Requirements  []string      `json:"requirements"`
}

// Register creates an account. It never authenticates: the new account's
// status is stored so the UI can show next steps, but isAuthenticated stays
// false until a later Login.
func (m *Manager) Register(ctx context.Context, data RegisterData) RegisterResult {
	res, err := m.api.Post(ctx, epRegister, data, httpapi.WithoutRefresh())
	if err != nil {
		m.metricInc(MetricRegisterFailure)
		return RegisterResult{Success: false, Error: errorMessage(err)}
	}

	var payload registerPayload
	if err := json.Unmarshal(res.Data, &payload); err != nil {
		m.metricInc(MetricRegisterFailure)
		return RegisterResult{Success: false, Error: ErrMalformedResponse.Error()}
	}

	m.mu.Lock()
	m.state.AccountStatus = normalizedAccountStatus(payload.AccountStatus)
	m.state.Requirements = payload.Requirements
	m.mu.Unlock()
	m.persistSnapshotAsync()

	msg := payload.Message
	if msg == "" {
		msg = res.Message
	}

	m.metricInc(MetricRegisterSuccess)
	return RegisterResult{
		Success:       true,
		Message:       msg,
		AccountStatus: normalizedAccountStatus(payload.AccountStatus),
		Requirements:  payload.Requirements,
	}
}

func normalizedAccountStatus(s AccountStatus) AccountStatus {
	if s == "" {
		return access.AccountPending
	}
	return s
}

func normalizedValidationStatus(s ValidationStatus) ValidationStatus {
	if s == "" {
		return access.ValidationPending
	}
	return s
}

// errorMessage extracts the user-facing message from a classified adapter
// error, falling back to the raw error text.
func errorMessage(err error) string {
	var apiErr *httpapi.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
