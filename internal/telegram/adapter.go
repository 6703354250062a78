// Package telegram adapts the Telegram Bot API to the service.Messenger
// contract and normalizes inbound updates into model.Event values. The core
// components never import this package.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/warungkas/warungkas/internal/model"
	"github.com/warungkas/warungkas/internal/service"
)

// Adapter wraps a Telegram bot connection.
type Adapter struct {
	api *tgbotapi.BotAPI
}

// New authenticates against the Telegram Bot API.
func New(token string) (*Adapter, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	slog.Info("telegram bot authorized", "username", api.Self.UserName)
	return &Adapter{api: api}, nil
}

// SendText delivers a plain text reply.
func (a *Adapter) SendText(_ context.Context, conversationID, text string) error {
	chatID, err := strconv.ParseInt(conversationID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid conversation id %q: %w", conversationID, err)
	}

	if _, err := a.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendButtons delivers a reply with an inline keyboard, one button per row.
func (a *Adapter) SendButtons(_ context.Context, conversationID, text string, buttons []service.Button) error {
	chatID, err := strconv.ParseInt(conversationID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid conversation id %q: %w", conversationID, err)
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data)))
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	if _, err := a.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message with buttons: %w", err)
	}
	return nil
}

// Events starts long polling and returns a channel of normalized inbound
// events. The channel closes when ctx is cancelled.
func (a *Adapter) Events(ctx context.Context) <-chan model.Event {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.api.GetUpdatesChan(u)
	events := make(chan model.Event)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				a.api.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if ev, ok := normalize(update); ok {
					events <- ev
				}
			}
		}
	}()

	return events
}

func normalize(update tgbotapi.Update) (model.Event, bool) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return model.Event{
			ConversationID: strconv.FormatInt(update.Message.Chat.ID, 10),
			UserID:         strconv.FormatInt(update.Message.From.ID, 10),
			Text:           update.Message.Text,
			ReceivedAt:     time.Now(),
		}, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return model.Event{
			ConversationID: strconv.FormatInt(update.CallbackQuery.Message.Chat.ID, 10),
			UserID:         strconv.FormatInt(update.CallbackQuery.From.ID, 10),
			ElementID:      update.CallbackQuery.Data,
			IsButton:       true,
			ReceivedAt:     time.Now(),
		}, true
	}
	return model.Event{}, false
}
