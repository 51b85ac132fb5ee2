package tokenstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Marker keys are part of the durable-state contract and other sessions read
// them verbatim; do not rename.
const (
	loginMarkerKey  = "auth_login"
	logoutMarkerKey = "auth_logout"
)

// SignalKind distinguishes the two advisory cross-session signals.
type SignalKind string

const (
	// SignalLogin says some session just stored fresh credentials.
	SignalLogin SignalKind = "login"
	// SignalLogout says some session just cleared its credentials.
	SignalLogout SignalKind = "logout"
)

// Signal is one advisory event observed on the signal channel.
type Signal struct {
	Kind SignalKind
	At   time.Time
}

// Dual composes the in-process and durable backends and owns the marker
// contract: storing tokens writes the login marker and clears the logout
// marker, clearing tokens does the reverse, and both publish a [Signal]
// that other sessions can watch. Markers are advisory and eventually
// consistent; the last writer's intent wins in storage.
type Dual struct {
	mem     *Memory
	durable *Redis
	rdb     redis.UniversalClient
	channel string
}

// NewDual wires the two backends over one Redis client. channel names the
// pub/sub channel used for cross-session signaling.
func NewDual(rdb redis.UniversalClient, prefix string, refreshTTL time.Duration, channel string) *Dual {
	return &Dual{
		mem:     NewMemory(),
		durable: NewRedis(rdb, prefix, refreshTTL),
		rdb:     rdb,
		channel: channel,
	}
}

// Store writes the pair to both backends, stamps the login marker, clears
// any logout marker, and publishes a login signal. The durable copy is
// written first so a failure leaves both backends unchanged; a store that
// reports an error must not leave credentials behind in memory.
func (d *Dual) Store(ctx context.Context, pair Pair) error {
	if err := d.durable.Store(ctx, pair); err != nil {
		return err
	}
	_ = d.mem.Store(ctx, pair)

	now := markerStamp(time.Now())
	_, err := d.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, loginMarkerKey, now, 0)
		pipe.Del(ctx, logoutMarkerKey)
		pipe.Publish(ctx, d.channel, string(SignalLogin)+" "+now)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get prefers the in-process backend and falls back to the durable one,
// backfilling the in-process copy on a durable hit.
func (d *Dual) Get(ctx context.Context) (Pair, error) {
	pair, _ := d.mem.Get(ctx)
	if !pair.Empty() {
		return pair, nil
	}

	pair, err := d.durable.Get(ctx)
	if err != nil {
		return Pair{}, err
	}
	if !pair.Empty() {
		_ = d.mem.Store(ctx, pair)
	}
	return pair, nil
}

// Clear removes the pair from both backends, stamps the logout marker,
// clears the login marker, and publishes a logout signal. The in-process
// copy is cleared even when the durable store is unreachable.
func (d *Dual) Clear(ctx context.Context) error {
	_ = d.mem.Clear(ctx)
	if err := d.durable.Clear(ctx); err != nil {
		return err
	}

	now := markerStamp(time.Now())
	_, err := d.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, logoutMarkerKey, now, 0)
		pipe.Del(ctx, loginMarkerKey)
		pipe.Publish(ctx, d.channel, string(SignalLogout)+" "+now)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ClearLocal drops only the in-process copy. Used when another session
// already cleared the durable store and signaled; re-clearing durably would
// loop the signal back.
func (d *Dual) ClearLocal(ctx context.Context) {
	_ = d.mem.Clear(ctx)
}

// LastLogin returns the login marker timestamp, zero when absent.
func (d *Dual) LastLogin(ctx context.Context) (time.Time, error) {
	return d.marker(ctx, loginMarkerKey)
}

// LastLogout returns the logout marker timestamp, zero when absent.
func (d *Dual) LastLogout(ctx context.Context) (time.Time, error) {
	return d.marker(ctx, logoutMarkerKey)
}

func (d *Dual) marker(ctx context.Context, key string) (time.Time, error) {
	v, err := d.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return parseMarkerStamp(v), nil
}

// Watch subscribes to the signal channel and delivers parsed signals until
// ctx is cancelled. Unparseable payloads are dropped.
func (d *Dual) Watch(ctx context.Context) (<-chan Signal, error) {
	sub := d.rdb.Subscribe(ctx, d.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	out := make(chan Signal, 8)
	go func() {
		defer close(out)
		defer sub.Close()
		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				sig, ok := parseSignal(msg.Payload)
				if !ok {
					continue
				}
				select {
				case out <- sig:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func parseSignal(payload string) (Signal, bool) {
	kind, stamp, ok := strings.Cut(payload, " ")
	if !ok {
		return Signal{}, false
	}
	switch SignalKind(kind) {
	case SignalLogin, SignalLogout:
		return Signal{Kind: SignalKind(kind), At: parseMarkerStamp(stamp)}, true
	}
	return Signal{}, false
}

func markerStamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseMarkerStamp(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
