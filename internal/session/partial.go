package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/warungkas/warungkas/internal/common"
	"github.com/warungkas/warungkas/internal/model"
)

// SavePartialData records an interrupted transaction entry for later recovery.
// Any prior record for the user is overwritten; retry count and timestamp are
// always reset, so at most one recovery attempt chain exists per user.
func (m *Manager) SavePartialData(ctx context.Context, userID string, partial *model.PartialTransaction) error {
	partial.UserID = userID
	partial.RetryCount = 0
	partial.Timestamp = m.now()

	data, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("failed to marshal partial data for %s: %w", userID, err)
	}
	if err := m.store.Set(ctx, partialPrefix+userID, string(data), m.cfg.PartialTTL); err != nil {
		return fmt.Errorf("%w: failed to write partial data for %s: %v", common.ErrStoreUnavailable, userID, err)
	}
	return nil
}

// GetPartialData returns the user's recovery record, or nil when absent.
// Store errors degrade to absent, same as session reads.
func (m *Manager) GetPartialData(ctx context.Context, userID string) *model.PartialTransaction {
	partial, err := m.loadPartial(ctx, userID)
	if err != nil {
		slog.Warn("partial data read failed, treating as absent", "user_id", userID, "error", err)
		return nil
	}
	return partial
}

// IncrementRetryCount bumps the recovery attempt counter and returns the new
// value. A missing record is a no-op returning 0.
func (m *Manager) IncrementRetryCount(ctx context.Context, userID string) (int, error) {
	partial, err := m.loadPartial(ctx, userID)
	if err != nil {
		return 0, err
	}
	if partial == nil {
		return 0, nil
	}

	partial.RetryCount++

	data, err := json.Marshal(partial)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal partial data for %s: %w", userID, err)
	}
	if err := m.store.Set(ctx, partialPrefix+userID, string(data), m.cfg.PartialTTL); err != nil {
		return 0, fmt.Errorf("%w: failed to write partial data for %s: %v", common.ErrStoreUnavailable, userID, err)
	}
	return partial.RetryCount, nil
}

// ClearPartialData removes the recovery record after a successful recovery or
// explicit abandonment. Best effort.
func (m *Manager) ClearPartialData(ctx context.Context, userID string) {
	if err := m.store.Delete(ctx, partialPrefix+userID); err != nil {
		slog.Warn("failed to clear partial data", "user_id", userID, "error", err)
	}
}

// HasRecoverableContext reports whether an interrupted transaction can be
// resumed for the user.
func (m *Manager) HasRecoverableContext(ctx context.Context, userID string) bool {
	found, err := m.store.Exists(ctx, partialPrefix+userID)
	if err != nil {
		slog.Warn("partial data existence check failed", "user_id", userID, "error", err)
		return false
	}
	return found
}

// RestoreFromPartialData rebuilds a fresh main-stage session seeded with the
// recovery record's fields and persists it. The record itself is left in
// place: the caller clears it once the rebuilt session completes.
func (m *Manager) RestoreFromPartialData(ctx context.Context, userID string) (*model.SessionState, error) {
	partial, err := m.loadPartial(ctx, userID)
	if err != nil {
		return nil, err
	}
	if partial == nil {
		return nil, fmt.Errorf("restore for %s: %w", userID, common.ErrNoPartialData)
	}

	state := newMainState(userID)
	state.TransactionType = partial.TransactionType
	state.Category = partial.Category
	state.Amount = partial.Amount
	state.Description = partial.Description

	if err := m.Set(ctx, userID, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (m *Manager) loadPartial(ctx context.Context, userID string) (*model.PartialTransaction, error) {
	raw, found, err := m.store.Get(ctx, partialPrefix+userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read partial data for %s: %v", common.ErrStoreUnavailable, userID, err)
	}
	if !found {
		return nil, nil
	}

	var partial model.PartialTransaction
	if err := json.Unmarshal([]byte(raw), &partial); err != nil {
		return nil, fmt.Errorf("failed to decode partial data for %s: %w", userID, err)
	}
	return &partial, nil
}
