package notify

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/deveshub/medminder/internal/reminder"
)

// Router feeds Telegram button presses back into the reminder event handler.
type Router struct {
	bot      *tgbotapi.BotAPI
	notifier *Telegram
	handler  *reminder.Handler
	log      *zap.Logger
}

func NewRouter(bot *tgbotapi.BotAPI, notifier *Telegram, handler *reminder.Handler, log *zap.Logger) *Router {
	return &Router{bot: bot, notifier: notifier, handler: handler, log: log}
}

// Run consumes updates until the context is canceled.
func (r *Router) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := r.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			r.bot.StopReceivingUpdates()
			r.log.Info("telegram router stopping")
			return
		case upd := <-updates:
			r.handleUpdate(ctx, upd)
		}
	}
}

func (r *Router) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery == nil {
		return
	}
	cb := upd.CallbackQuery
	if !strings.HasPrefix(cb.Data, "rem:") {
		return
	}

	action, notificationID, custom, ok := parseCallback(cb.Data)
	if !ok {
		r.log.Debug("ignoring malformed callback", zap.String("data", cb.Data))
		r.answer(cb.ID, "")
		return
	}

	payload, live := r.notifier.Pending(notificationID)
	if !live {
		// Cancelled or superseded since the button was rendered.
		r.answer(cb.ID, "This reminder is no longer active")
		return
	}

	r.handler.HandleAction(ctx, reminder.ActionEvent{
		Action:              action,
		Payload:             payload,
		CustomSnoozeMinutes: custom,
	})
	r.answer(cb.ID, ackText(action))
}

// parseCallback decodes "rem:<action>:<notificationID>[:<minutes>]".
func parseCallback(data string) (reminder.Action, int, int, bool) {
	parts := strings.Split(data, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return "", 0, 0, false
	}
	var action reminder.Action
	switch parts[1] {
	case actionSnooze:
		action = reminder.ActionSnooze
	case actionTake:
		action = reminder.ActionTake
	case actionSkip:
		action = reminder.ActionSkip
	default:
		return "", 0, 0, false
	}
	notificationID, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, 0, false
	}
	custom := 0
	if len(parts) == 4 {
		custom, err = strconv.Atoi(parts[3])
		if err != nil || custom < 0 {
			return "", 0, 0, false
		}
	}
	return action, notificationID, custom, true
}

func ackText(action reminder.Action) string {
	switch action {
	case reminder.ActionTake:
		return "Recorded as taken"
	case reminder.ActionSkip:
		return "Recorded as skipped"
	case reminder.ActionSnooze:
		return "Snoozed"
	}
	return ""
}

func (r *Router) answer(id, text string) {
	if _, err := r.bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		r.log.Debug("answer callback failed", zap.Error(err))
	}
}
