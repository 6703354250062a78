// Package bot wires the core components together: every inbound chat event
// passes the rate limiter and debounce guard, is classified or routed into the
// active workflow, and ends in a reply through the Messenger.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/warungkas/warungkas/internal/common"
	"github.com/warungkas/warungkas/internal/debounce"
	"github.com/warungkas/warungkas/internal/intent"
	"github.com/warungkas/warungkas/internal/model"
	"github.com/warungkas/warungkas/internal/ratelimit"
	"github.com/warungkas/warungkas/internal/service"
	"github.com/warungkas/warungkas/internal/session"
)

// classifyBudget is the classification latency budget; exceeding it is logged,
// not failed.
const classifyBudget = 100 * time.Millisecond

// Button payload vocabulary.
const (
	btnConfirm      = "confirm"
	btnCancel       = "cancel"
	btnRetry        = "retry"
	btnResume       = "resume"
	btnDiscard      = "discard"
	btnCancelEdit   = "cancel_edit"
	btnEditPrefix   = "edit:"
	btnCatPrefix    = "cat:"
	btnTypePrefix   = "type:"
	btnIntentPrefix = "intent:"
)

// Orchestrator advances one conversation per inbound event. All of its state
// lives in the shared store, so any instance can handle any event.
type Orchestrator struct {
	classifier *intent.Classifier
	sessions   *session.Manager
	limiter    *ratelimit.Limiter
	guard      *debounce.Guard
	storage    service.Storage
	messenger  service.Messenger
}

// New wires an orchestrator from explicitly constructed components.
func New(
	classifier *intent.Classifier,
	sessions *session.Manager,
	limiter *ratelimit.Limiter,
	guard *debounce.Guard,
	storage service.Storage,
	messenger service.Messenger,
) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		sessions:   sessions,
		limiter:    limiter,
		guard:      guard,
		storage:    storage,
		messenger:  messenger,
	}
}

// Run consumes events until the channel closes or ctx is cancelled. Events are
// handled concurrently: conversations are independent and all shared state is
// keyed per user on the store.
func (o *Orchestrator) Run(ctx context.Context, events <-chan model.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			go func(ev model.Event) {
				err := o.HandleEvent(ctx, ev)
				if err == nil {
					return
				}
				common.LogError(err, "event handling failed", common.Fields{
					"user_id":         ev.UserID,
					"conversation_id": ev.ConversationID,
				})
				var uerr *common.UserError
				if errors.As(err, &uerr) {
					_ = o.reply(ctx, ev, uerr.UserMessage)
				}
			}(ev)
		}
	}
}

// HandleEvent runs the full pipeline for one inbound event.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev model.Event) error {
	limit := o.limiter.CheckAndConsume(ctx, ev.ConversationID)
	if !limit.Allowed {
		return o.reply(ctx, ev, msgRateLimited(limit.RetryAfter))
	}

	if ev.IsButton && o.guard.ShouldSuppress(ctx, ev.UserID, ev.ElementID) {
		slog.Debug("duplicate button suppressed", "user_id", ev.UserID, "element_id", ev.ElementID)
		return nil
	}

	input := strings.TrimSpace(ev.Text)
	if ev.IsButton {
		input = ev.ElementID
	}

	state := o.sessions.Get(ctx, ev.UserID)
	if state != nil && (state.Menu != model.StageMain || state.IsEditing) {
		return o.advanceWorkflow(ctx, ev, state, input)
	}

	return o.handleCommand(ctx, ev, input)
}

// handleCommand classifies free text (or dispatches a menu button) when no
// workflow is in progress.
func (o *Orchestrator) handleCommand(ctx context.Context, ev model.Event, input string) error {
	if ev.IsButton {
		switch {
		case input == btnResume:
			return o.resumePartial(ctx, ev)
		case input == btnDiscard:
			o.sessions.ClearPartialData(ctx, ev.UserID)
			return o.reply(ctx, ev, msgDiscarded)
		case input == btnRetry:
			return o.retryCommit(ctx, ev)
		case strings.HasPrefix(input, btnIntentPrefix):
			return o.executeIntent(ctx, ev, model.Intent(strings.TrimPrefix(input, btnIntentPrefix)))
		default:
			// Stale button from a completed workflow.
			return o.reply(ctx, ev, msgNothingPending)
		}
	}

	o.registerUser(ctx, ev)

	if o.sessions.HasRecoverableContext(ctx, ev.UserID) {
		return o.offerRecovery(ctx, ev)
	}

	start := time.Now()
	cmd := o.classifier.Classify(input)
	if elapsed := time.Since(start); elapsed > classifyBudget {
		slog.Warn("classification exceeded latency budget",
			"elapsed", elapsed, "budget", classifyBudget)
	}

	if cmd == nil {
		return o.suggest(ctx, ev, input)
	}

	slog.Debug("command classified",
		"intent", cmd.Intent,
		"confidence", cmd.Confidence,
		"alias", cmd.MatchedAlias)

	if o.classifier.ShouldAutoExecute(cmd.Confidence) {
		return o.executeIntent(ctx, ev, cmd.Intent)
	}
	return o.confirmIntent(ctx, ev, cmd)
}

// suggest sends ranked alternatives for unrecognized input.
func (o *Orchestrator) suggest(ctx context.Context, ev model.Event, input string) error {
	suggestions := o.classifier.Suggest(input, 3)
	if len(suggestions) == 0 {
		return o.reply(ctx, ev, msgHelp)
	}

	buttons := make([]service.Button, 0, len(suggestions))
	for _, s := range suggestions {
		buttons = append(buttons, service.Button{
			Label: fmt.Sprintf("%s — %s", s.Text, s.Description),
			Data:  btnIntentPrefix + string(s.Intent),
		})
	}
	return o.replyButtons(ctx, ev, msgSuggest, buttons)
}

// confirmIntent asks before running a low-confidence match.
func (o *Orchestrator) confirmIntent(ctx context.Context, ev model.Event, cmd *model.ParsedCommand) error {
	buttons := []service.Button{
		{Label: labelYes, Data: btnIntentPrefix + string(cmd.Intent)},
		{Label: labelNo, Data: btnCancel},
	}
	return o.replyButtons(ctx, ev, msgConfirmIntent(cmd.Intent), buttons)
}

// executeIntent runs a recognized command.
func (o *Orchestrator) executeIntent(ctx context.Context, ev model.Event, in model.Intent) error {
	switch in {
	case model.IntentRecordSale:
		return o.startWorkflow(ctx, ev, model.TypeIncome)
	case model.IntentRecordExpense:
		return o.startWorkflow(ctx, ev, model.TypeExpense)
	case model.IntentViewBalance:
		return o.sendBalance(ctx, ev)
	case model.IntentViewReport:
		return o.sendReport(ctx, ev)
	case model.IntentCancel:
		o.sessions.Clear(ctx, ev.UserID)
		return o.reply(ctx, ev, msgCancelled)
	case model.IntentHelp:
		return o.reply(ctx, ev, msgHelp)
	default:
		return o.reply(ctx, ev, msgHelp)
	}
}

func (o *Orchestrator) sendBalance(ctx context.Context, ev model.Event) error {
	now := time.Now()
	start := time.Time{}

	income, err := o.storage.SumByType(ctx, ev.UserID, model.TypeIncome, start, now)
	if err != nil {
		return common.NewUserError(msgTemporaryTrouble, fmt.Errorf("failed to compute balance: %w", err))
	}
	expense, err := o.storage.SumByType(ctx, ev.UserID, model.TypeExpense, start, now)
	if err != nil {
		return common.NewUserError(msgTemporaryTrouble, fmt.Errorf("failed to compute balance: %w", err))
	}

	return o.reply(ctx, ev, msgBalance(income-expense))
}

func (o *Orchestrator) sendReport(ctx context.Context, ev model.Event) error {
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	income, err := o.storage.SumByType(ctx, ev.UserID, model.TypeIncome, monthStart, now)
	if err != nil {
		return common.NewUserError(msgTemporaryTrouble, fmt.Errorf("failed to build report: %w", err))
	}
	expense, err := o.storage.SumByType(ctx, ev.UserID, model.TypeExpense, monthStart, now)
	if err != nil {
		return common.NewUserError(msgTemporaryTrouble, fmt.Errorf("failed to build report: %w", err))
	}
	txns, err := o.storage.GetTransactionsByPeriod(ctx, ev.UserID, monthStart, now)
	if err != nil {
		return common.NewUserError(msgTemporaryTrouble, fmt.Errorf("failed to build report: %w", err))
	}

	return o.reply(ctx, ev, msgReport(len(txns), income, expense))
}

// registerUser records first contact so committed transactions always
// reference a known user. Failures are non-fatal.
func (o *Orchestrator) registerUser(ctx context.Context, ev model.Event) {
	user, err := o.storage.GetUser(ctx, ev.UserID)
	if err != nil || user != nil {
		return
	}
	if err := o.storage.UpsertUser(ctx, &model.User{ID: ev.UserID, Role: model.RoleStaff}); err != nil {
		slog.Warn("failed to register user", "user_id", ev.UserID, "error", err)
	}
}

func (o *Orchestrator) reply(ctx context.Context, ev model.Event, text string) error {
	if err := o.messenger.SendText(ctx, ev.ConversationID, text); err != nil {
		return fmt.Errorf("failed to deliver reply: %w", err)
	}
	return nil
}

func (o *Orchestrator) replyButtons(ctx context.Context, ev model.Event, text string, buttons []service.Button) error {
	if err := o.messenger.SendButtons(ctx, ev.ConversationID, text, buttons); err != nil {
		return fmt.Errorf("failed to deliver reply: %w", err)
	}
	return nil
}
