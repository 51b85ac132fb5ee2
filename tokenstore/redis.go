package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const minAccessTTL = time.Second

// Redis is the durable backend. Keys live under a prefix; the access token
// expires with the server-declared token lifetime, the refresh token with
// its own longer TTL.
type Redis struct {
	rdb        redis.UniversalClient
	prefix     string
	refreshTTL time.Duration
}

// NewRedis creates a Redis-backed [Backend]. prefix sets the key namespace;
// refreshTTL bounds how long a stored refresh token survives.
func NewRedis(rdb redis.UniversalClient, prefix string, refreshTTL time.Duration) *Redis {
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Redis{
		rdb:        rdb,
		prefix:     prefix,
		refreshTTL: refreshTTL,
	}
}

func (r *Redis) accessKey() string  { return r.prefix + ":token:access" }
func (r *Redis) refreshKey() string { return r.prefix + ":token:refresh" }
func (r *Redis) expiryKey() string  { return r.prefix + ":token:expiry" }

// Store writes both tokens in one transaction so a reader never observes one
// without the other.
func (r *Redis) Store(ctx context.Context, pair Pair) error {
	accessTTL := time.Until(pair.ExpiresAt)
	if accessTTL < minAccessTTL {
		accessTTL = minAccessTTL
	}

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.accessKey(), pair.AccessToken, accessTTL)
		pipe.Set(ctx, r.refreshKey(), pair.RefreshToken, r.refreshTTL)
		pipe.Set(ctx, r.expiryKey(), strconv.FormatInt(pair.ExpiresAt.Unix(), 10), r.refreshTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get reads whatever survives in Redis. An access token whose TTL lapsed
// simply comes back empty; the caller decides whether the remaining refresh
// token is enough to recover.
func (r *Redis) Get(ctx context.Context) (Pair, error) {
	pipe := r.rdb.Pipeline()
	accessCmd := pipe.Get(ctx, r.accessKey())
	refreshCmd := pipe.Get(ctx, r.refreshKey())
	expiryCmd := pipe.Get(ctx, r.expiryKey())

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Pair{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var pair Pair
	if v, err := accessCmd.Result(); err == nil {
		pair.AccessToken = v
	}
	if v, err := refreshCmd.Result(); err == nil {
		pair.RefreshToken = v
	}
	if v, err := expiryCmd.Result(); err == nil {
		if unix, convErr := strconv.ParseInt(v, 10, 64); convErr == nil {
			pair.ExpiresAt = time.Unix(unix, 0)
		}
	}
	return pair, nil
}

// Clear removes both tokens in one transaction.
func (r *Redis) Clear(ctx context.Context) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.accessKey(), r.refreshKey(), r.expiryKey())
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
