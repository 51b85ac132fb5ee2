package authkit

import (
	"context"
	"encoding/json"

	"github.com/parceldesk/authkit/access"
)

// statusPayload is the /api/auth/status response body.
type statusPayload struct {
	AccountStatus             AccountStatus    `json:"accountStatus"`
	ValidationStatus          ValidationStatus `json:"validationStatus"`
	FullAccess                bool             `json:"fullAccess"`
	LimitedAccess             bool             `json:"limitedAccess"`
	ProfileAccess             bool             `json:"profileAccess"`
	RequiresProfileCompletion bool             `json:"requiresProfileCompletion"`
	Requirements              []string         `json:"requirements"`
	HasBlueCheckmark          bool             `json:"hasBlueCheckmark"`
}

// UpdateAccountStatus re-reads account standing from the backend and folds
// it into the session. It runs after login, refresh, and auth checks so the
// UI's gating reflects server-side moderation decisions without a re-login.
// Callers running it in the background log the returned error and move on.
func (m *Manager) UpdateAccountStatus(ctx context.Context) error {
	gen := m.currentGeneration()

	res, err := m.api.Get(ctx, epStatus)
	if err != nil {
		m.metricInc(MetricStatusRefreshFailure)
		return err
	}

	var payload statusPayload
	if err := json.Unmarshal(res.Data, &payload); err != nil {
		m.metricInc(MetricStatusRefreshFailure)
		return ErrMalformedResponse
	}

	level := (&sessionPayload{
		FullAccess:                payload.FullAccess,
		LimitedAccess:             payload.LimitedAccess,
		ProfileAccess:             payload.ProfileAccess,
		RequiresProfileCompletion: payload.RequiresProfileCompletion,
	}).level()

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		m.metricInc(MetricStaleResultDiscarded)
		return ErrSessionSuperseded
	}
	m.state.AccountStatus = normalizedAccountStatus(payload.AccountStatus)
	m.state.ValidationStatus = normalizedValidationStatus(payload.ValidationStatus)
	m.state.AccessLevel = level
	m.state.Requirements = payload.Requirements
	m.state.HasBlueCheckmark = payload.HasBlueCheckmark
	m.mu.Unlock()

	m.persistSnapshotAsync()
	return nil
}

// CompleteProfile submits the remaining profile fields for an account that
// authenticated with PROFILE_ONLY access. On success the returned user
// replaces the stored one and access is promoted to LIMITED; the backend's
// later validation pass decides whether it becomes FULL.
func (m *Manager) CompleteProfile(ctx context.Context, data ProfileData) CompleteProfileResult {
	gen := m.currentGeneration()

	res, err := m.api.Patch(ctx, epCompleteProfile, data)
	if err != nil {
		return CompleteProfileResult{Success: false, Error: errorMessage(err)}
	}

	var payload struct {
		User             *User            `json:"user"`
		AccountStatus    AccountStatus    `json:"accountStatus"`
		ValidationStatus ValidationStatus `json:"validationStatus"`
	}
	if err := json.Unmarshal(res.Data, &payload); err != nil || payload.User == nil {
		return CompleteProfileResult{Success: false, Error: ErrMalformedResponse.Error()}
	}

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		m.metricInc(MetricStaleResultDiscarded)
		return CompleteProfileResult{Success: false, Error: ErrSessionSuperseded.Error()}
	}
	m.state.User = payload.User
	m.state.AccessLevel = access.Limited
	if payload.AccountStatus != "" {
		m.state.AccountStatus = payload.AccountStatus
	}
	if payload.ValidationStatus != "" {
		m.state.ValidationStatus = payload.ValidationStatus
	}
	m.mu.Unlock()

	m.persistSnapshotAsync()
	return CompleteProfileResult{Success: true, User: payload.User}
}
