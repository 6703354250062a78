package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/warungkas/warungkas/internal/common"
	"github.com/warungkas/warungkas/internal/model"
)

// SaveTransaction commits a transaction record.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO transactions (id, user_id, type, category, amount, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		txn.ID, txn.UserID, txn.Type, txn.Category, txn.Amount, txn.Description, txn.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
				sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
			return fmt.Errorf("%w: transaction %s", common.ErrDuplicateEntry, txn.ID)
		}
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	slog.Debug("saved transaction",
		"id", txn.ID,
		"user_id", txn.UserID,
		"type", txn.Type,
		"amount", txn.Amount)
	return nil
}

// GetTransactionsByPeriod returns a user's transactions within [start, end).
func (s *SQLiteStorage) GetTransactionsByPeriod(ctx context.Context, userID string, start, end time.Time) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, type, category, amount, description, created_at
		FROM transactions
		WHERE user_id = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		if err := rows.Scan(&txn.ID, &txn.UserID, &txn.Type, &txn.Category,
			&txn.Amount, &txn.Description, &txn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txns, nil
}

// SumByType totals a user's transactions of one type within [start, end).
func (s *SQLiteStorage) SumByType(ctx context.Context, userID string, txnType model.TransactionType, start, end time.Time) (float64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return 0, err
	}
	if !txnType.Valid() {
		return 0, fmt.Errorf("invalid transaction type %q", txnType)
	}

	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = ? AND type = ? AND created_at >= ? AND created_at < ?`

	var total float64
	err := s.db.QueryRowContext(ctx, query, userID, txnType, start, end).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return total, nil
}
