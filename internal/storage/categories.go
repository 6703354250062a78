package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/warungkas/warungkas/internal/model"
)

// GetCategoriesByType returns all active categories for one transaction type.
func (s *SQLiteStorage) GetCategoriesByType(ctx context.Context, txnType model.TransactionType) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if !txnType.Valid() {
		return nil, fmt.Errorf("invalid transaction type %q", txnType)
	}

	query := `
		SELECT id, name, type, is_active, created_at
		FROM categories
		WHERE type = ? AND is_active = 1
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, txnType)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Type, &cat.IsActive, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "type", txnType, "count", len(categories))
	return categories, nil
}
