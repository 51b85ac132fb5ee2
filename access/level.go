package access

// Level is the coarse access tier assigned to a session. The zero value is
// not valid; unknown or unset levels rank as [NoAccess].
type Level string

const (
	// NoAccess blocks the account from every surface.
	NoAccess Level = "NO_ACCESS"
	// ProfileOnly restricts the account to profile completion.
	ProfileOnly Level = "PROFILE_ONLY"
	// Limited grants the dashboard but not the full feature set.
	Limited Level = "LIMITED"
	// Full grants everything.
	Full Level = "FULL"
)

// AccountStatus is the server-owned workflow state of an account. Values are
// wire strings and must match the backend byte-for-byte.
type AccountStatus string

const (
	// AccountPending is an account awaiting initial approval.
	AccountPending AccountStatus = "PENDING"
	// AccountInactive is an approved account that has not completed its profile.
	AccountInactive AccountStatus = "INACTIVE"
	// AccountPendingValidation is an account whose profile is under review.
	AccountPendingValidation AccountStatus = "PENDING_VALIDATION"
	// AccountActive is a fully operational account.
	AccountActive AccountStatus = "ACTIVE"
	// AccountRejected is an account denied during review.
	AccountRejected AccountStatus = "REJECTED"
	// AccountSuspended is an account disabled by an operator.
	AccountSuspended AccountStatus = "SUSPENDED"
)

// ValidationStatus is the server-owned profile-review state, an independent
// axis from [AccountStatus].
type ValidationStatus string

const (
	// ValidationPending means the profile has not been reviewed yet.
	ValidationPending ValidationStatus = "PENDING"
	// Validated means the profile passed review.
	Validated ValidationStatus = "VALIDATED"
	// ValidationRejected means the profile failed review.
	ValidationRejected ValidationStatus = "REJECTED"
)

var levelRank = map[Level]int{
	NoAccess:    0,
	ProfileOnly: 1,
	Limited:     2,
	Full:        3,
}

func rank(l Level) int {
	r, ok := levelRank[l]
	if !ok {
		return 0
	}
	return r
}

// CanAccess reports whether current satisfies required in the tier order.
// An empty or unknown current level ranks as [NoAccess].
func CanAccess(current, required Level) bool {
	return rank(current) >= rank(required)
}

// LevelFromFlags derives the tier from the boolean flags the auth backend
// attaches to a login or status payload. Precedence is full > limited >
// profile; requiresProfileCompletion alone also yields [ProfileOnly].
func LevelFromFlags(full, limited, profile, requiresProfileCompletion bool) Level {
	switch {
	case full:
		return Full
	case limited:
		return Limited
	case profile || requiresProfileCompletion:
		return ProfileOnly
	default:
		return NoAccess
	}
}

// Decision bundles the derived tier with the raw statuses it was derived
// from, so predicates can consult both axes.
type Decision struct {
	Level            Level
	AccountStatus    AccountStatus
	ValidationStatus ValidationStatus
}

// CanAccessDashboard reports whether the session may reach the main app.
func (d Decision) CanAccessDashboard() bool {
	return CanAccess(d.Level, Limited)
}

// CanAccessFullFeatures reports whether the session may use everything.
func (d Decision) CanAccessFullFeatures() bool {
	return CanAccess(d.Level, Full)
}

// NeedsProfileCompletion reports whether the account must finish its profile
// before anything else.
func (d Decision) NeedsProfileCompletion() bool {
	return d.Level == ProfileOnly || d.AccountStatus == AccountInactive
}

// NeedsValidation reports whether the account is waiting on profile review.
func (d Decision) NeedsValidation() bool {
	return d.AccountStatus == AccountPendingValidation && d.ValidationStatus == ValidationPending
}

// IsAccountBlocked reports whether the account is shut out entirely.
func (d Decision) IsAccountBlocked() bool {
	if d.Level == NoAccess {
		return true
	}
	switch d.AccountStatus {
	case AccountPending, AccountRejected, AccountSuspended:
		return true
	}
	return false
}
