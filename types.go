package authkit

import (
	"time"

	"github.com/parceldesk/authkit/access"
)

// AccountStatus is re-exported from the access package so callers rarely
// need both imports.
type AccountStatus = access.AccountStatus

// ValidationStatus is re-exported from the access package.
type ValidationStatus = access.ValidationStatus

// AccessLevel is re-exported from the access package.
type AccessLevel = access.Level

// Role is the user's role with its flat permission list.
type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// User is the identity record carried by an authenticated session.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
	TenantID  string `json:"tenantId"`
}

// Permissions returns the user's permission list as an evaluable set.
func (u *User) Permissions() access.Set {
	if u == nil {
		return nil
	}
	return access.Set(u.Role.Permissions)
}

// Credentials is the login input.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterData is the registration input.
type RegisterData struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	TenantID  string `json:"tenantId,omitempty"`
}

// ProfileData is the free-form profile-completion payload; the server owns
// its schema.
type ProfileData map[string]any

// Redirect targets computed by Login.
const (
	// RedirectHome is the main app.
	RedirectHome = "/"
	// RedirectProfileCompletion is where profile-gated accounts land.
	RedirectProfileCompletion = "/profile/complete"
)

// LoginResult is the typed outcome of [Manager.Login]. Login never returns
// an error; every failure path resolves into this shape.
type LoginResult struct {
	Success       bool
	Error         string
	AccessLevel   AccessLevel
	AccountStatus AccountStatus
	RedirectTo    string
	User          *User
}

// RegisterResult is the typed outcome of [Manager.Register]. Registration
// never authenticates; it only reports the account's starting status and
// the server's next-step guidance.
type RegisterResult struct {
	Success       bool
	Error         string
	Message       string
	AccountStatus AccountStatus
	Requirements  []string
}

// RefreshResult is the typed outcome of [Manager.RefreshSession].
type RefreshResult struct {
	Success bool
	Error   string
}

// CheckAuthResult is the typed outcome of [Manager.CheckAuth]. Concurrent
// callers that overlap one in-flight check all receive the same value.
type CheckAuthResult struct {
	Authenticated bool
	User          *User
}

// CompleteProfileResult is the typed outcome of [Manager.CompleteProfile].
type CompleteProfileResult struct {
	Success bool
	Error   string
	User    *User
}

// Snapshot is a read-only copy of the session state for consumers that
// render from it. Tokens are deliberately absent; they never leave the
// token store.
type Snapshot struct {
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

// Decision derives the access-policy view of this snapshot.
func (s Snapshot) Decision() access.Decision {
	return access.Decision{
		Level:            s.AccessLevel,
		AccountStatus:    s.AccountStatus,
		ValidationStatus: s.ValidationStatus,
	}
}

// HasPermission reports whether the snapshot's user holds perm (or the
// wildcard).
func (s Snapshot) HasPermission(perm string) bool {
	return s.User.Permissions().Has(perm)
}
