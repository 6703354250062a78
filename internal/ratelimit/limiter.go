// Package ratelimit implements a fixed-window request counter per
// conversation on the shared expiring store.
//
// Fixed windows are a deliberate choice over sliding windows or token
// buckets: the protected resource (outbound chat messages) tolerates brief
// boundary bursts up to twice the nominal rate, and the counter stays a
// single INCR per message.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/warungkas/warungkas/internal/kv"
)

const keyPrefix = "ratelimit:"

// ttlMargin keeps a counter key alive past its window boundary so a check
// racing the boundary still sees it.
const ttlMargin = 5 * time.Second

// Config tunes the limiter. Zero values fall back to the defaults below.
type Config struct {
	// Window is the fixed window length (default 60 seconds).
	Window time.Duration
	// MaxPerWindow is the number of messages allowed per window (default 15).
	MaxPerWindow int
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = time.Minute
	}
	if c.MaxPerWindow <= 0 {
		c.MaxPerWindow = 15
	}
	return c
}

// Result reports the outcome of one rate-limit check.
type Result struct {
	// ResetAt is when the current window ends and the counter resets.
	ResetAt time.Time
	// RetryAfter is how long to wait before retrying; zero when allowed.
	RetryAfter time.Duration
	// Remaining is how many messages are left in the window.
	Remaining int
	// Allowed reports whether the message may proceed.
	Allowed bool
}

// Stats aggregates limiter state across all tracked conversations.
type Stats struct {
	Tracked   int
	Saturated int
}

// Limiter counts messages per conversation per fixed window. Store failures
// fail open: availability of the bot outweighs strict enforcement of the chat
// platform's soft limit.
type Limiter struct {
	store kv.Store
	now   func() time.Time
	cfg   Config
}

// New creates a limiter on the given store.
func New(store kv.Store, cfg Config) *Limiter {
	return &Limiter{
		store: store,
		now:   time.Now,
		cfg:   cfg.withDefaults(),
	}
}

// CheckAndConsume records one message against the conversation's current
// window and reports whether it may proceed. A rejected message does not
// consume from the counter.
func (l *Limiter) CheckAndConsume(ctx context.Context, conversationID string) Result {
	now := l.now()
	windowStart, resetAt := l.window(now)
	key := l.key(conversationID, windowStart)

	count, err := l.readCount(ctx, key)
	if err != nil {
		return l.failOpen(conversationID, resetAt, err)
	}

	if count >= int64(l.cfg.MaxPerWindow) {
		return Result{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: ceilSeconds(resetAt.Sub(now)),
		}
	}

	newCount, err := l.store.Incr(ctx, key)
	if err != nil {
		return l.failOpen(conversationID, resetAt, err)
	}
	if newCount == 1 {
		// First message of the window owns setting the key's TTL.
		if err := l.store.Expire(ctx, key, l.cfg.Window+ttlMargin); err != nil {
			slog.Warn("failed to set rate-limit key TTL", "conversation_id", conversationID, "error", err)
		}
	}

	remaining := l.cfg.MaxPerWindow - int(newCount)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining, ResetAt: resetAt}
}

// Status reports the conversation's current window without consuming.
func (l *Limiter) Status(ctx context.Context, conversationID string) Result {
	now := l.now()
	windowStart, resetAt := l.window(now)

	count, err := l.readCount(ctx, l.key(conversationID, windowStart))
	if err != nil {
		return l.failOpen(conversationID, resetAt, err)
	}

	remaining := l.cfg.MaxPerWindow - int(count)
	if remaining < 0 {
		remaining = 0
	}
	res := Result{Allowed: count < int64(l.cfg.MaxPerWindow), Remaining: remaining, ResetAt: resetAt}
	if !res.Allowed {
		res.RetryAfter = ceilSeconds(resetAt.Sub(now))
	}
	return res
}

// Reset clears all counters for one conversation.
func (l *Limiter) Reset(ctx context.Context, conversationID string) error {
	keys, err := l.store.Keys(ctx, keyPrefix+conversationID+":")
	if err != nil {
		return fmt.Errorf("failed to list rate-limit keys for %s: %w", conversationID, err)
	}
	if err := l.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to reset rate limit for %s: %w", conversationID, err)
	}
	return nil
}

// ResetAll clears every rate-limit counter.
func (l *Limiter) ResetAll(ctx context.Context) error {
	keys, err := l.store.Keys(ctx, keyPrefix)
	if err != nil {
		return fmt.Errorf("failed to list rate-limit keys: %w", err)
	}
	if err := l.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to reset rate limits: %w", err)
	}
	return nil
}

// CollectStats reports how many conversations are tracked and how many have
// saturated their current window.
func (l *Limiter) CollectStats(ctx context.Context) (Stats, error) {
	keys, err := l.store.Keys(ctx, keyPrefix)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to list rate-limit keys: %w", err)
	}

	seen := make(map[string]bool)
	var stats Stats
	for _, key := range keys {
		conv := conversationFromKey(key)
		if conv == "" || seen[conv] {
			continue
		}
		seen[conv] = true
		stats.Tracked++

		count, err := l.readCount(ctx, key)
		if err == nil && count >= int64(l.cfg.MaxPerWindow) {
			stats.Saturated++
		}
	}
	return stats, nil
}

func (l *Limiter) window(now time.Time) (windowStart int64, resetAt time.Time) {
	windowMs := l.cfg.Window.Milliseconds()
	start := now.UnixMilli() / windowMs * windowMs
	return start, time.UnixMilli(start + windowMs)
}

func (l *Limiter) key(conversationID string, windowStart int64) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, conversationID, windowStart)
}

func (l *Limiter) readCount(ctx context.Context, key string) (int64, error) {
	raw, found, err := l.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt rate-limit counter at %q: %w", key, err)
	}
	return count, nil
}

func (l *Limiter) failOpen(conversationID string, resetAt time.Time, err error) Result {
	slog.Warn("rate-limit store error, failing open", "conversation_id", conversationID, "error", err)
	return Result{Allowed: true, Remaining: l.cfg.MaxPerWindow, ResetAt: resetAt}
}

func conversationFromKey(key string) string {
	rest := strings.TrimPrefix(key, keyPrefix)
	idx := strings.LastIndex(rest, ":")
	if idx <= 0 {
		return ""
	}
	return rest[:idx]
}

func ceilSeconds(d time.Duration) time.Duration {
	secs := (d + time.Second - 1) / time.Second
	if secs < 1 {
		secs = 1
	}
	return secs * time.Second
}
