// Package session manages per-user conversation state for multi-step
// transaction entry: TTL-governed sessions, the edit snapshot/restore
// protocol, and longer-lived partial-transaction recovery records.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/warungkas/warungkas/internal/common"
	"github.com/warungkas/warungkas/internal/kv"
	"github.com/warungkas/warungkas/internal/model"
)

// Key prefixes on the shared store.
const (
	sessionPrefix  = "session:"
	partialPrefix  = "partial:"
	cleanupLockKey = "cleanup:lock"
)

// Config tunes session lifetimes. Zero values fall back to the defaults below.
type Config struct {
	// SessionTTL is how long an idle session survives (default 10 minutes).
	SessionTTL time.Duration
	// PartialTTL is how long a recovery record survives (default 1 hour).
	PartialTTL time.Duration
	// CleanupLockTTL bounds how long a crashed sweep can hold the cleanup
	// lock (default 10 seconds).
	CleanupLockTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.SessionTTL <= 0 {
		c.SessionTTL = 10 * time.Minute
	}
	if c.PartialTTL <= 0 {
		c.PartialTTL = time.Hour
	}
	if c.CleanupLockTTL <= 0 {
		c.CleanupLockTTL = 10 * time.Second
	}
	return c
}

// Manager reads and writes session state on the shared expiring store.
//
// Error policy follows subsystem criticality: reads degrade to "no session" on
// store failure, fire-and-forget writes (Clear, Extend, ClearPartialData) log
// and swallow, and writes the caller depends on propagate.
type Manager struct {
	store kv.Store
	now   func() time.Time
	cfg   Config
}

// NewManager creates a session manager on the given store.
func NewManager(store kv.Store, cfg Config) *Manager {
	return &Manager{
		store: store,
		now:   time.Now,
		cfg:   cfg.withDefaults(),
	}
}

// Get returns the user's session, or nil when absent. Store errors are logged
// and reported as "no session": a forgotten user is a safe default, a crashed
// pipeline is not.
func (m *Manager) Get(ctx context.Context, userID string) *model.SessionState {
	state, err := m.load(ctx, userID)
	if err != nil {
		slog.Warn("session read failed, treating as absent", "user_id", userID, "error", err)
		return nil
	}
	return state
}

// Set persists the session, stamping LastActivityAt and refreshing the TTL to
// the full session timeout.
func (m *Manager) Set(ctx context.Context, userID string, state *model.SessionState) error {
	state.UserID = userID
	state.LastActivityAt = m.now()

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session for %s: %w", userID, err)
	}
	if err := m.store.Set(ctx, sessionPrefix+userID, string(data), m.cfg.SessionTTL); err != nil {
		return fmt.Errorf("%w: failed to write session for %s: %v", common.ErrStoreUnavailable, userID, err)
	}
	return nil
}

// Update applies the mutation to the user's session, creating a default
// main-menu session first if none exists, then persists the result.
//
// Known limitation: the read-modify-write is not atomic against a concurrent
// Update for the same user; the last write wins. The chat transport delivers
// one user's messages effectively serially, so no cross-process lock is taken.
func (m *Manager) Update(ctx context.Context, userID string, apply func(*model.SessionState)) (*model.SessionState, error) {
	state, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = newMainState(userID)
	}

	apply(state)

	if err := m.Set(ctx, userID, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Clear deletes the session. Idempotent; a store failure is logged and
// swallowed because the TTL reclaims the key anyway.
func (m *Manager) Clear(ctx context.Context, userID string) {
	if err := m.store.Delete(ctx, sessionPrefix+userID); err != nil {
		slog.Warn("failed to clear session", "user_id", userID, "error", err)
	}
}

// Extend refreshes the session TTL without touching its content. Best effort.
func (m *Manager) Extend(ctx context.Context, userID string) {
	if err := m.store.Expire(ctx, sessionPrefix+userID, m.cfg.SessionTTL); err != nil {
		slog.Warn("failed to extend session", "user_id", userID, "error", err)
	}
}

// StartEditing snapshots the mutable workflow fields and marks the named field
// as being edited. Requires an existing session.
func (m *Manager) StartEditing(ctx context.Context, userID, fieldName string) (*model.SessionState, error) {
	state, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("start editing %q for %s: %w", fieldName, userID, common.ErrNoSession)
	}

	state.PreEditSnapshot = state.Snapshot()
	state.IsEditing = true
	state.EditingField = fieldName

	if err := m.Set(ctx, userID, state); err != nil {
		return nil, err
	}
	return state, nil
}

// FinishEditing commits an in-progress edit: whatever values were written while
// editing are kept and the snapshot is discarded.
func (m *Manager) FinishEditing(ctx context.Context, userID string) (*model.SessionState, error) {
	state, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("finish editing for %s: %w", userID, common.ErrNoSession)
	}

	state.IsEditing = false
	state.EditingField = ""
	state.PreEditSnapshot = nil

	if err := m.Set(ctx, userID, state); err != nil {
		return nil, err
	}
	return state, nil
}

// CancelEditing restores the snapshotted fields verbatim and clears the edit
// markers. This is the only path that discards in-progress edits. Requires an
// existing session with a snapshot.
func (m *Manager) CancelEditing(ctx context.Context, userID string) (*model.SessionState, error) {
	state, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("cancel editing for %s: %w", userID, common.ErrNoSession)
	}
	if state.PreEditSnapshot == nil {
		return nil, fmt.Errorf("cancel editing for %s: %w", userID, common.ErrNoSnapshot)
	}

	state.Restore(state.PreEditSnapshot)
	state.IsEditing = false
	state.EditingField = ""
	state.PreEditSnapshot = nil

	if err := m.Set(ctx, userID, state); err != nil {
		return nil, err
	}
	return state, nil
}

// load returns the session or nil, propagating store and decode errors.
func (m *Manager) load(ctx context.Context, userID string) (*model.SessionState, error) {
	raw, found, err := m.store.Get(ctx, sessionPrefix+userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read session for %s: %v", common.ErrStoreUnavailable, userID, err)
	}
	if !found {
		return nil, nil
	}

	var state model.SessionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("failed to decode session for %s: %w", userID, err)
	}
	return &state, nil
}

func newMainState(userID string) *model.SessionState {
	return &model.SessionState{
		UserID: userID,
		Menu:   model.StageMain,
		Step:   0,
	}
}

// CleanupExpiredSessions deletes sessions idle past the session timeout. The
// store's per-key TTL already reclaims idle sessions; this sweep catches
// sessions whose TTL was refreshed (via Extend) without real user activity.
//
// At most one sweep runs at a time across all instances, coordinated by a
// short-TTL set-if-absent lock. A second concurrent call returns 0 without
// blocking. Returns the number of sessions deleted.
func (m *Manager) CleanupExpiredSessions(ctx context.Context) int {
	acquired, err := m.store.SetNX(ctx, cleanupLockKey,
		strconv.FormatInt(m.now().UnixMilli(), 10), m.cfg.CleanupLockTTL)
	if err != nil {
		slog.Warn("cleanup lock acquisition failed", "error", err)
		return 0
	}
	if !acquired {
		slog.Debug("cleanup already running elsewhere, skipping")
		return 0
	}
	defer func() {
		if err := m.store.Delete(ctx, cleanupLockKey); err != nil {
			slog.Warn("failed to release cleanup lock", "error", err)
		}
	}()

	keys, err := m.store.Keys(ctx, sessionPrefix)
	if err != nil {
		slog.Warn("cleanup key enumeration failed", "error", err)
		return 0
	}

	now := m.now()
	deleted := 0
	for _, key := range keys {
		raw, found, err := m.store.Get(ctx, key)
		if err != nil || !found {
			continue
		}

		var state model.SessionState
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			slog.Warn("deleting undecodable session", "key", key, "error", err)
			if delErr := m.store.Delete(ctx, key); delErr == nil {
				deleted++
			}
			continue
		}

		if now.Sub(state.LastActivityAt) <= m.cfg.SessionTTL {
			continue
		}
		if err := m.store.Delete(ctx, key); err != nil {
			slog.Warn("failed to delete expired session", "key", key, "error", err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		slog.Info("expired session sweep complete", "deleted", deleted, "scanned", len(keys))
	}
	return deleted
}
