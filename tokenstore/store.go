package tokenstore

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the durable backend cannot be reached.
var ErrUnavailable = errors.New("token storage unavailable")

// Pair is the bearer credential pair issued by the auth backend. Both tokens
// are always stored and cleared together; a Pair with only one of them set is
// a bug upstream.
type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Empty reports whether the pair carries no credentials at all.
func (p Pair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Backend is a single storage target for a token [Pair]. Get returns a zero
// Pair (and nil error) when nothing is stored.
type Backend interface {
	Store(ctx context.Context, pair Pair) error
	Get(ctx context.Context) (Pair, error)
	Clear(ctx context.Context) error
}
