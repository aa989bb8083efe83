// Package throttle suppresses repeat low-stock alerts for the same item and
// warehouse within a cooldown window.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// KeyPrefix namespaces throttle entries in the shared store.
	KeyPrefix = "low_stock_alert"
	// DefaultTTL is the cooldown applied when none is configured.
	DefaultTTL = time.Hour
)

// Gate decides whether an alert for an (item, warehouse) pair was already
// sent inside the cooldown window. It is keyed per pair, never per recipient.
type Gate struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// Option customises a Gate.
type Option func(*Gate)

// WithTTL overrides the cooldown window.
func WithTTL(ttl time.Duration) Option {
	return func(g *Gate) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithClock sets the clock used for the stored timestamp.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate creates a gate over store.
func NewGate(store Store, opts ...Option) *Gate {
	g := &Gate{store: store, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// TTL returns the configured cooldown.
func (g *Gate) TTL() time.Duration { return g.ttl }

// Key builds the store key for a pair.
func Key(item, warehouse string) string {
	return fmt.Sprintf("%s:%s:%s", KeyPrefix, item, warehouse)
}

// ShouldSuppress reports whether a live entry exists for the pair.
func (g *Gate) ShouldSuppress(ctx context.Context, item, warehouse string) (bool, error) {
	_, err := g.store.Get(ctx, Key(item, warehouse))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrMiss) {
		return false, nil
	}
	return false, fmt.Errorf("read throttle %s/%s: %w", item, warehouse, err)
}

// MarkSent records the current time for the pair, restarting the cooldown.
func (g *Gate) MarkSent(ctx context.Context, item, warehouse string) error {
	if err := g.store.Set(ctx, Key(item, warehouse), g.stamp(), g.ttl); err != nil {
		return fmt.Errorf("write throttle %s/%s: %w", item, warehouse, err)
	}
	return nil
}

// Acquire atomically checks and marks the pair. It returns true when the
// caller won the right to send; false means an alert is already in flight or
// was sent within the cooldown.
func (g *Gate) Acquire(ctx context.Context, item, warehouse string) (bool, error) {
	ok, err := g.store.SetNX(ctx, Key(item, warehouse), g.stamp(), g.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire throttle %s/%s: %w", item, warehouse, err)
	}
	return ok, nil
}

func (g *Gate) stamp() string {
	return g.now().UTC().Format(time.RFC3339)
}
