package storage

import (
	"context"
	"fmt"

	"github.com/warungkas/warungkas/internal/model"
)

// validateContext ensures the context is usable before touching the database.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context is done: %w", err)
	}
	return nil
}

// validateString ensures a required string parameter is non-empty.
func validateString(value, name string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

// validateTransaction checks the fields a transaction must carry before commit.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("transaction cannot be nil")
	}
	if err := validateString(txn.ID, "transaction ID"); err != nil {
		return err
	}
	if err := validateString(txn.UserID, "transaction user ID"); err != nil {
		return err
	}
	if !txn.Type.Valid() {
		return fmt.Errorf("invalid transaction type %q", txn.Type)
	}
	if txn.Amount <= 0 {
		return fmt.Errorf("transaction amount must be positive, got %v", txn.Amount)
	}
	return nil
}
