package authkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/parceldesk/authkit/access"
	"github.com/parceldesk/authkit/tokenstore"
	"github.com/redis/go-redis/v9"
)

// sessionState is the single live copy of session state, owned by the
// Manager and mutated only under its lock. Concurrency guards (in-flight
// handles, generation) live on the Manager, not here, and are never
// persisted.
type sessionState struct {
	User             *User
	IsAuthenticated  bool
	Initialized      bool
	AccountStatus    AccountStatus
	ValidationStatus ValidationStatus
	AccessLevel      AccessLevel
	Requirements     []string
	HasBlueCheckmark bool
	TokenExpiresAt   time.Time
	LastActivity     time.Time
}

func defaultState(now time.Time) sessionState {
	return sessionState{
		AccountStatus:    access.AccountPending,
		ValidationStatus: access.ValidationPending,
		AccessLevel:      access.NoAccess,
		LastActivity:     now,
	}
}

// cleared resets everything a logout must drop while keeping the session
// marked as initialized (the process has decided: unauthenticated).
func (s sessionState) cleared(now time.Time) sessionState {
	out := defaultState(now)
	out.Initialized = true
	return out
}

func (s sessionState) snapshot() Snapshot {
	return Snapshot{
		User:             s.User,
		IsAuthenticated:  s.IsAuthenticated,
		Initialized:      s.Initialized,
		AccountStatus:    s.AccountStatus,
		ValidationStatus: s.ValidationStatus,
		AccessLevel:      s.AccessLevel,
		Requirements:     append([]string(nil), s.Requirements...),
		HasBlueCheckmark: s.HasBlueCheckmark,
		TokenExpiresAt:   s.TokenExpiresAt,
		LastActivity:     s.LastActivity,
	}
}

// stateSnapshot is the persisted subset of session state that survives a
// process restart. Tokens are excluded on purpose: they live only in the
// token store backends.
type stateSnapshot struct {
	User             *User            `json:"user,omitempty"`
	LastActivity     time.Time        `json:"lastActivity"`
	AccountStatus    AccountStatus    `json:"accountStatus"`
	ValidationStatus ValidationStatus `json:"validationStatus"`
	AccessLevel      AccessLevel      `json:"accessLevel"`
}

// persistedState maps full session state onto its durable subset.
func persistedState(s sessionState) stateSnapshot {
	return stateSnapshot{
		User:             s.User,
		LastActivity:     s.LastActivity,
		AccountStatus:    s.AccountStatus,
		ValidationStatus: s.ValidationStatus,
		AccessLevel:      s.AccessLevel,
	}
}

// mergeSnapshot applies a persisted subset onto a freshly constructed
// default state. It never marks the result authenticated; only a live
// CheckAuth against stored tokens may do that.
func mergeSnapshot(base sessionState, snap stateSnapshot) sessionState {
	out := base
	out.User = snap.User
	if !snap.LastActivity.IsZero() {
		out.LastActivity = snap.LastActivity
	}
	if snap.AccountStatus != "" {
		out.AccountStatus = snap.AccountStatus
	}
	if snap.ValidationStatus != "" {
		out.ValidationStatus = snap.ValidationStatus
	}
	if snap.AccessLevel != "" {
		out.AccessLevel = snap.AccessLevel
	}
	return out
}

// snapshotStore persists the stateSnapshot JSON blob in Redis alongside the
// token keys, so a restarted process rehydrates the non-secret session
// fields before its first CheckAuth.
type snapshotStore struct {
	rdb redis.UniversalClient
	key string
	ttl time.Duration
}

func newSnapshotStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) *snapshotStore {
	return &snapshotStore{rdb: rdb, key: prefix + ":state", ttl: ttl}
}

func (s *snapshotStore) save(ctx context.Context, snap stateSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", tokenstore.ErrUnavailable, err)
	}
	return nil
}

func (s *snapshotStore) load(ctx context.Context) (stateSnapshot, bool, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return stateSnapshot{}, false, nil
		}
		return stateSnapshot{}, false, fmt.Errorf("%w: %v", tokenstore.ErrUnavailable, err)
	}

	var snap stateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return stateSnapshot{}, false, err
	}
	return snap, true, nil
}

func (s *snapshotStore) clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", tokenstore.ErrUnavailable, err)
	}
	return nil
}
