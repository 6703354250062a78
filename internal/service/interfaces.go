// Package service defines the interfaces for external collaborators the
// orchestrator depends on: durable persistence and the chat transport.
package service

import (
	"context"
	"time"

	"github.com/warungkas/warungkas/internal/model"
)

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Transaction operations
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransactionsByPeriod(ctx context.Context, userID string, start, end time.Time) ([]model.Transaction, error)
	SumByType(ctx context.Context, userID string, txnType model.TransactionType, start, end time.Time) (float64, error)

	// Category operations
	GetCategoriesByType(ctx context.Context, txnType model.TransactionType) ([]model.Category, error)

	// User operations
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpsertUser(ctx context.Context, user *model.User) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Button is one interactive element attached to an outbound message. Data is
// the opaque payload echoed back as the element ID of the click event.
type Button struct {
	Label string
	Data  string
}

// Messenger delivers replies to a conversation.
type Messenger interface {
	SendText(ctx context.Context, conversationID, text string) error
	SendButtons(ctx context.Context, conversationID, text string, buttons []Button) error
}
