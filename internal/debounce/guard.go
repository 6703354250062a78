// Package debounce suppresses duplicate interactive input: a short-lived
// "seen" marker per (user, element) pair on the shared expiring store absorbs
// double-taps before they reach the workflow.
package debounce

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/warungkas/warungkas/internal/kv"
)

const keyPrefix = "debounce:"

// DefaultWindow is how long a repeated click is suppressed.
const DefaultWindow = 3 * time.Second

// Guard debounces button clicks. Store failures fail open (the click is
// processed), same rationale as the rate limiter: a duplicate transaction
// prompt is cheaper than a dead button.
type Guard struct {
	store  kv.Store
	now    func() time.Time
	window time.Duration
}

// New creates a guard with the given debounce window (default 3 seconds).
func New(store kv.Store, window time.Duration) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Guard{
		store:  store,
		now:    time.Now,
		window: window,
	}
}

// ShouldSuppress reports whether this (user, element) click is a duplicate
// within the debounce window. The first click writes a marker and is
// processed; repeats within the window are suppressed without refreshing it.
func (g *Guard) ShouldSuppress(ctx context.Context, userID, elementID string) bool {
	key := g.key(userID, elementID)

	exists, err := g.store.Exists(ctx, key)
	if err != nil {
		slog.Warn("debounce store error, failing open", "user_id", userID, "element_id", elementID, "error", err)
		return false
	}
	if exists {
		return true
	}

	value := strconv.FormatInt(g.now().UnixMilli(), 10)
	if err := g.store.Set(ctx, key, value, g.window); err != nil {
		slog.Warn("failed to write debounce marker, failing open", "user_id", userID, "element_id", elementID, "error", err)
	}
	return false
}

// Remaining reconstructs how much of the debounce window is left for UI
// feedback. Zero when no marker exists or the window has elapsed.
func (g *Guard) Remaining(ctx context.Context, userID, elementID string) time.Duration {
	raw, found, err := g.store.Get(ctx, g.key(userID, elementID))
	if err != nil || !found {
		return 0
	}

	createdMs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}

	remaining := g.window - g.now().Sub(time.UnixMilli(createdMs))
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Clear removes one marker, overriding the window for recovery flows.
func (g *Guard) Clear(ctx context.Context, userID, elementID string) error {
	if err := g.store.Delete(ctx, g.key(userID, elementID)); err != nil {
		return fmt.Errorf("failed to clear debounce marker: %w", err)
	}
	return nil
}

// ClearAll removes every marker for one user.
func (g *Guard) ClearAll(ctx context.Context, userID string) error {
	keys, err := g.store.Keys(ctx, keyPrefix+userID+":")
	if err != nil {
		return fmt.Errorf("failed to list debounce markers for %s: %w", userID, err)
	}
	if err := g.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to clear debounce markers for %s: %w", userID, err)
	}
	return nil
}

// Sweep removes markers older than the debounce window. The per-key TTL
// already reclaims them; the sweep exists as a defensive maintenance hook,
// mirroring the session sweep. Returns the number removed.
func (g *Guard) Sweep(ctx context.Context) int {
	keys, err := g.store.Keys(ctx, keyPrefix)
	if err != nil {
		slog.Warn("debounce sweep enumeration failed", "error", err)
		return 0
	}

	now := g.now()
	removed := 0
	for _, key := range keys {
		raw, found, err := g.store.Get(ctx, key)
		if err != nil || !found {
			continue
		}
		createdMs, err := strconv.ParseInt(raw, 10, 64)
		if err == nil && now.Sub(time.UnixMilli(createdMs)) <= g.window {
			continue
		}
		if err := g.store.Delete(ctx, key); err != nil {
			continue
		}
		removed++
	}
	return removed
}

func (g *Guard) key(userID, elementID string) string {
	return keyPrefix + userID + ":" + elementID
}
