package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warungkas/warungkas/internal/model"
	"github.com/warungkas/warungkas/internal/service"
)

// Editable workflow fields.
const (
	fieldCategory    = "category"
	fieldAmount      = "amount"
	fieldDescription = "description"
)

// startWorkflow opens a transaction-entry session at the category stage.
func (o *Orchestrator) startWorkflow(ctx context.Context, ev model.Event, txnType model.TransactionType) error {
	_, err := o.sessions.Update(ctx, ev.UserID, func(s *model.SessionState) {
		s.Menu = model.StageCategorySelect
		s.Step = 1
		s.TransactionType = txnType
		s.Category = ""
		s.Amount = 0
		s.Description = ""
	})
	if err != nil {
		return err
	}
	return o.promptCategories(ctx, ev, txnType)
}

// advanceWorkflow routes input to the handler for the session's current stage.
func (o *Orchestrator) advanceWorkflow(ctx context.Context, ev model.Event, state *model.SessionState, input string) error {
	// Cancellation works at any stage.
	if input == btnCancel || strings.EqualFold(input, model.IntentCancel.CanonicalText()) {
		o.sessions.Clear(ctx, ev.UserID)
		return o.reply(ctx, ev, msgCancelled)
	}

	if state.IsEditing {
		return o.handleEditInput(ctx, ev, state, input)
	}

	switch state.Menu {
	case model.StageTypeSelect:
		return o.handleTypeSelect(ctx, ev, input)
	case model.StageCategorySelect:
		return o.handleCategorySelect(ctx, ev, state, input)
	case model.StageAmountInput:
		return o.handleAmountInput(ctx, ev, input)
	case model.StageDescriptionInput:
		return o.handleDescriptionInput(ctx, ev, input)
	case model.StageConfirm:
		return o.handleConfirmStage(ctx, ev, state, input)
	default:
		o.sessions.Clear(ctx, ev.UserID)
		return o.reply(ctx, ev, msgHelp)
	}
}

func (o *Orchestrator) handleTypeSelect(ctx context.Context, ev model.Event, input string) error {
	var txnType model.TransactionType
	switch {
	case input == btnTypePrefix+string(model.TypeIncome), strings.EqualFold(input, "masuk"):
		txnType = model.TypeIncome
	case input == btnTypePrefix+string(model.TypeExpense), strings.EqualFold(input, "keluar"):
		txnType = model.TypeExpense
	default:
		return o.replyButtons(ctx, ev, msgAskType, []service.Button{
			{Label: labelIncome, Data: btnTypePrefix + string(model.TypeIncome)},
			{Label: labelExpense, Data: btnTypePrefix + string(model.TypeExpense)},
		})
	}

	_, err := o.sessions.Update(ctx, ev.UserID, func(s *model.SessionState) {
		s.TransactionType = txnType
		s.Menu = model.StageCategorySelect
		s.Step++
	})
	if err != nil {
		return err
	}
	return o.promptCategories(ctx, ev, txnType)
}

func (o *Orchestrator) handleCategorySelect(ctx context.Context, ev model.Event, state *model.SessionState, input string) error {
	name := strings.TrimPrefix(input, btnCatPrefix)

	category, err := o.lookupCategory(ctx, state.TransactionType, name)
	if err != nil {
		return err
	}
	if category == "" {
		return o.promptCategories(ctx, ev, state.TransactionType)
	}

	_, err = o.sessions.Update(ctx, ev.UserID, func(s *model.SessionState) {
		s.Category = category
		s.Menu = model.StageAmountInput
		s.Step++
	})
	if err != nil {
		return err
	}
	return o.reply(ctx, ev, msgAskAmount)
}

func (o *Orchestrator) handleAmountInput(ctx context.Context, ev model.Event, input string) error {
	amount, ok := parseAmount(input)
	if !ok {
		return o.reply(ctx, ev, msgBadAmount)
	}

	_, err := o.sessions.Update(ctx, ev.UserID, func(s *model.SessionState) {
		s.Amount = amount
		s.Menu = model.StageDescriptionInput
		s.Step++
	})
	if err != nil {
		return err
	}
	return o.reply(ctx, ev, msgAskDescription)
}

func (o *Orchestrator) handleDescriptionInput(ctx context.Context, ev model.Event, input string) error {
	description := input
	if description == "-" {
		description = ""
	}

	state, err := o.sessions.Update(ctx, ev.UserID, func(s *model.SessionState) {
		s.Description = description
		s.Menu = model.StageConfirm
		s.Step++
	})
	if err != nil {
		return err
	}
	return o.showConfirmation(ctx, ev, state)
}

func (o *Orchestrator) handleConfirmStage(ctx context.Context, ev model.Event, state *model.SessionState, input string) error {
	switch {
	case input == btnConfirm:
		return o.commit(ctx, ev, state)
	case input == btnRetry:
		return o.retryCommit(ctx, ev)
	case strings.HasPrefix(input, btnEditPrefix):
		field := strings.TrimPrefix(input, btnEditPrefix)
		if field != fieldCategory && field != fieldAmount && field != fieldDescription {
			return o.showConfirmation(ctx, ev, state)
		}
		if _, err := o.sessions.StartEditing(ctx, ev.UserID, field); err != nil {
			return err
		}
		return o.reply(ctx, ev, msgAskNewValue(field))
	default:
		return o.showConfirmation(ctx, ev, state)
	}
}

// handleEditInput applies a new value to the field under edit, or restores the
// snapshot when the user backs out.
func (o *Orchestrator) handleEditInput(ctx context.Context, ev model.Event, state *model.SessionState, input string) error {
	if input == btnCancelEdit || strings.EqualFold(input, "batal edit") {
		restored, err := o.sessions.CancelEditing(ctx, ev.UserID)
		if err != nil {
			return err
		}
		return o.showConfirmation(ctx, ev, restored)
	}

	switch state.EditingField {
	case fieldAmount:
		amount, ok := parseAmount(input)
		if !ok {
			return o.reply(ctx, ev, msgBadAmount)
		}
		if _, err := o.sessions.Update(ctx, ev.UserID, func(s *model.SessionState) {
			s.Amount = amount
		}); err != nil {
			return err
		}
	case fieldCategory:
		name := strings.TrimPrefix(input, btnCatPrefix)
		category, err := o.lookupCategory(ctx, state.TransactionType, name)
		if err != nil {
			return err
		}
		if category == "" {
			return o.promptCategories(ctx, ev, state.TransactionType)
		}
		if _, err := o.sessions.Update(ctx, ev.UserID, func(s *model.SessionState) {
			s.Category = category
		}); err != nil {
			return err
		}
	case fieldDescription:
		description := input
		if description == "-" {
			description = ""
		}
		if _, err := o.sessions.Update(ctx, ev.UserID, func(s *model.SessionState) {
			s.Description = description
		}); err != nil {
			return err
		}
	}

	finished, err := o.sessions.FinishEditing(ctx, ev.UserID)
	if err != nil {
		return err
	}
	return o.showConfirmation(ctx, ev, finished)
}

// commit persists the transaction. On failure the entry is saved as partial
// data so the user can retry or resume after a disconnect.
func (o *Orchestrator) commit(ctx context.Context, ev model.Event, state *model.SessionState) error {
	txn := &model.Transaction{
		ID:          uuid.NewString(),
		UserID:      ev.UserID,
		Type:        state.TransactionType,
		Category:    state.Category,
		Amount:      state.Amount,
		Description: state.Description,
		CreatedAt:   time.Now(),
	}

	if err := o.storage.SaveTransaction(ctx, txn); err != nil {
		if saveErr := o.sessions.SavePartialData(ctx, ev.UserID, &model.PartialTransaction{
			TransactionType: state.TransactionType,
			Category:        state.Category,
			Amount:          state.Amount,
			Description:     state.Description,
		}); saveErr != nil {
			return fmt.Errorf("commit failed (%v) and partial save failed: %w", err, saveErr)
		}
		return o.replyButtons(ctx, ev, msgCommitFailed,
			[]service.Button{{Label: labelRetry, Data: btnRetry}})
	}

	o.sessions.Clear(ctx, ev.UserID)
	o.sessions.ClearPartialData(ctx, ev.UserID)
	return o.reply(ctx, ev, msgCommitted(txn))
}

// retryCommit re-attempts a failed commit from partial data.
func (o *Orchestrator) retryCommit(ctx context.Context, ev model.Event) error {
	partial := o.sessions.GetPartialData(ctx, ev.UserID)
	if partial == nil {
		return o.reply(ctx, ev, msgNothingPending)
	}

	retries, err := o.sessions.IncrementRetryCount(ctx, ev.UserID)
	if err != nil {
		return err
	}

	txn := &model.Transaction{
		ID:          uuid.NewString(),
		UserID:      ev.UserID,
		Type:        partial.TransactionType,
		Category:    partial.Category,
		Amount:      partial.Amount,
		Description: partial.Description,
		CreatedAt:   time.Now(),
	}
	if err := o.storage.SaveTransaction(ctx, txn); err != nil {
		if retries >= 3 {
			o.sessions.ClearPartialData(ctx, ev.UserID)
			o.sessions.Clear(ctx, ev.UserID)
			return o.reply(ctx, ev, msgGivingUp)
		}
		return o.replyButtons(ctx, ev, msgCommitFailed,
			[]service.Button{{Label: labelRetry, Data: btnRetry}})
	}

	o.sessions.Clear(ctx, ev.UserID)
	o.sessions.ClearPartialData(ctx, ev.UserID)
	return o.reply(ctx, ev, msgCommitted(txn))
}

// offerRecovery prompts a returning user to resume an interrupted entry.
func (o *Orchestrator) offerRecovery(ctx context.Context, ev model.Event) error {
	return o.replyButtons(ctx, ev, msgRecoveryFound, []service.Button{
		{Label: labelResume, Data: btnResume},
		{Label: labelDiscard, Data: btnDiscard},
	})
}

// resumePartial rebuilds a session from partial data and re-enters the
// pipeline at the first missing field.
func (o *Orchestrator) resumePartial(ctx context.Context, ev model.Event) error {
	restored, err := o.sessions.RestoreFromPartialData(ctx, ev.UserID)
	if err != nil {
		return err
	}

	next := nextStage(restored)
	state, err := o.sessions.Update(ctx, ev.UserID, func(s *model.SessionState) {
		s.Menu = next
	})
	if err != nil {
		return err
	}

	switch next {
	case model.StageTypeSelect:
		return o.replyButtons(ctx, ev, msgAskType, []service.Button{
			{Label: labelIncome, Data: btnTypePrefix + string(model.TypeIncome)},
			{Label: labelExpense, Data: btnTypePrefix + string(model.TypeExpense)},
		})
	case model.StageCategorySelect:
		return o.promptCategories(ctx, ev, state.TransactionType)
	case model.StageAmountInput:
		return o.reply(ctx, ev, msgAskAmount)
	case model.StageDescriptionInput:
		return o.reply(ctx, ev, msgAskDescription)
	default:
		return o.showConfirmation(ctx, ev, state)
	}
}

// nextStage finds the first workflow stage whose field is still missing.
func nextStage(s *model.SessionState) model.Stage {
	switch {
	case !s.TransactionType.Valid():
		return model.StageTypeSelect
	case s.Category == "":
		return model.StageCategorySelect
	case s.Amount <= 0:
		return model.StageAmountInput
	case s.Description == "":
		return model.StageDescriptionInput
	default:
		return model.StageConfirm
	}
}

func (o *Orchestrator) promptCategories(ctx context.Context, ev model.Event, txnType model.TransactionType) error {
	categories, err := o.storage.GetCategoriesByType(ctx, txnType)
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}

	buttons := make([]service.Button, 0, len(categories))
	for _, cat := range categories {
		buttons = append(buttons, service.Button{Label: cat.Name, Data: btnCatPrefix + cat.Name})
	}
	return o.replyButtons(ctx, ev, msgAskCategory, buttons)
}

// lookupCategory resolves user input to an active category name, empty when
// there is no case-insensitive match.
func (o *Orchestrator) lookupCategory(ctx context.Context, txnType model.TransactionType, name string) (string, error) {
	categories, err := o.storage.GetCategoriesByType(ctx, txnType)
	if err != nil {
		return "", fmt.Errorf("failed to list categories: %w", err)
	}
	for _, cat := range categories {
		if strings.EqualFold(cat.Name, strings.TrimSpace(name)) {
			return cat.Name, nil
		}
	}
	return "", nil
}

func (o *Orchestrator) showConfirmation(ctx context.Context, ev model.Event, state *model.SessionState) error {
	buttons := []service.Button{
		{Label: labelConfirm, Data: btnConfirm},
		{Label: labelEditCategory, Data: btnEditPrefix + fieldCategory},
		{Label: labelEditAmount, Data: btnEditPrefix + fieldAmount},
		{Label: labelEditDescription, Data: btnEditPrefix + fieldDescription},
		{Label: labelCancel, Data: btnCancel},
	}
	return o.replyButtons(ctx, ev, msgConfirmation(state), buttons)
}

// parseAmount accepts plain digits with optional Indonesian thousands
// separators ("500000", "500.000", "500,000").
func parseAmount(input string) (float64, bool) {
	cleaned := strings.NewReplacer(".", "", ",", "", " ", "", "rp", "", "Rp", "").Replace(strings.TrimSpace(input))
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount, true
}
