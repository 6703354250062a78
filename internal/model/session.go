package model

import "time"

// Stage identifies a step in the linear transaction-entry conversation.
type Stage string

// Workflow stages, in pipeline order.
const (
	StageMain             Stage = "main"
	StageTypeSelect       Stage = "type_select"
	StageCategorySelect   Stage = "category_select"
	StageAmountInput      Stage = "amount_input"
	StageDescriptionInput Stage = "description_input"
	StageConfirm          Stage = "confirm"
)

// Valid reports whether the stage is one of the known pipeline stages.
func (s Stage) Valid() bool {
	switch s {
	case StageMain, StageTypeSelect, StageCategorySelect, StageAmountInput,
		StageDescriptionInput, StageConfirm:
		return true
	}
	return false
}

// EditSnapshot preserves the four mutable workflow fields while an edit is in
// progress so a cancelled edit can restore them verbatim.
type EditSnapshot struct {
	TransactionType TransactionType `json:"transaction_type"`
	Category        string          `json:"category"`
	Amount          float64         `json:"amount"`
	Description     string          `json:"description"`
}

// SessionState is the per-user conversation state for one workflow.
//
// Invariant: PreEditSnapshot is non-nil exactly when an edit is in progress
// (IsEditing set, EditingField non-empty).
type SessionState struct {
	LastActivityAt  time.Time       `json:"last_activity_at"`
	PreEditSnapshot *EditSnapshot   `json:"pre_edit_snapshot,omitempty"`
	UserID          string          `json:"user_id"`
	Menu            Stage           `json:"menu"`
	TransactionType TransactionType `json:"transaction_type,omitempty"`
	Category        string          `json:"category,omitempty"`
	Description     string          `json:"description,omitempty"`
	EditingField    string          `json:"editing_field,omitempty"`
	Amount          float64         `json:"amount,omitempty"`
	Step            int             `json:"step"`
	IsEditing       bool            `json:"is_editing,omitempty"`
}

// Snapshot copies the four mutable workflow fields.
func (s *SessionState) Snapshot() *EditSnapshot {
	return &EditSnapshot{
		TransactionType: s.TransactionType,
		Category:        s.Category,
		Amount:          s.Amount,
		Description:     s.Description,
	}
}

// Restore writes the snapshotted fields back onto the session.
func (s *SessionState) Restore(snap *EditSnapshot) {
	s.TransactionType = snap.TransactionType
	s.Category = snap.Category
	s.Amount = snap.Amount
	s.Description = snap.Description
}

// PartialTransaction is the longer-lived recovery record for a transaction
// entry that was interrupted before commit. It outlives the session so the
// user can resume after a restart or reconnect.
type PartialTransaction struct {
	Timestamp       time.Time       `json:"timestamp"`
	UserID          string          `json:"user_id"`
	TransactionType TransactionType `json:"transaction_type,omitempty"`
	Category        string          `json:"category,omitempty"`
	Description     string          `json:"description,omitempty"`
	Amount          float64         `json:"amount,omitempty"`
	RetryCount      int             `json:"retry_count"`
}
