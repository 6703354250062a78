package model

import "time"

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

// Transaction types.
const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether the type is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Transaction is a committed bookkeeping entry.
type Transaction struct {
	CreatedAt   time.Time
	ID          string
	UserID      string
	Category    string
	Description string
	Type        TransactionType
	Amount      float64
}

// Category groups transactions for reporting.
type Category struct {
	CreatedAt time.Time
	Name      string
	Type      TransactionType
	ID        int
	IsActive  bool
}

// UserRole gates which commands a user may run.
type UserRole string

// User roles.
const (
	RoleOwner UserRole = "owner"
	RoleStaff UserRole = "staff"
)

// User is a registered chat user.
type User struct {
	CreatedAt time.Time
	ID        string
	Name      string
	Role      UserRole
}

// Event is one normalized inbound chat event, either free text or a button
// callback, produced by a transport adapter.
type Event struct {
	ReceivedAt     time.Time
	ConversationID string
	UserID         string
	Text           string
	ElementID      string
	IsButton       bool
}
