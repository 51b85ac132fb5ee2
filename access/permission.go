package access

// Wildcard grants every permission when present in a role's list.
const Wildcard = "*"

// Set is a role's flat permission list. There is no hierarchy and no
// inheritance; the only special member is [Wildcard].
type Set []string

// Has reports whether the set contains perm verbatim or the wildcard.
func (s Set) Has(perm string) bool {
	for _, p := range s {
		if p == Wildcard || p == perm {
			return true
		}
	}
	return false
}

// HasAny reports whether the set satisfies at least one of perms.
// An empty perms list is not satisfied.
func (s Set) HasAny(perms ...string) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether the set satisfies every one of perms.
// An empty perms list is trivially satisfied.
func (s Set) HasAll(perms ...string) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}
