// Package notify holds the notification-port adapters: Telegram for
// interactive delivery, a log-only fallback for headless runs.
package notify

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/deveshub/medminder/internal/alarm"
)

type shownReminder struct {
	messageID int
	payload   alarm.Payload
}

// Telegram renders a fired reminder as a message with inline action buttons.
// It remembers the armed payload per notification id so a button press can
// re-enter the event handler with the full fired context.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zap.Logger

	mu    sync.Mutex
	shown map[int]shownReminder
}

func NewTelegram(bot *tgbotapi.BotAPI, chatID int64, log *zap.Logger) *Telegram {
	return &Telegram{
		bot:    bot,
		chatID: chatID,
		log:    log,
		shown:  make(map[int]shownReminder),
	}
}

// Show posts the interactive reminder. Re-showing a notification id replaces
// the previous message, mirroring platform notification replacement.
func (t *Telegram) Show(p alarm.Payload) error {
	t.Cancel(p.NotificationID)

	msg := tgbotapi.NewMessage(t.chatID, reminderText(p))
	msg.ReplyMarkup = reminderKeyboard(p.NotificationID)
	sent, err := t.bot.Send(msg)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.shown[p.NotificationID] = shownReminder{messageID: sent.MessageID, payload: p}
	t.mu.Unlock()
	return nil
}

// Cancel removes the visible reminder, if any.
func (t *Telegram) Cancel(notificationID int) {
	t.mu.Lock()
	s, ok := t.shown[notificationID]
	delete(t.shown, notificationID)
	t.mu.Unlock()

	if !ok {
		return
	}
	if _, err := t.bot.Request(tgbotapi.NewDeleteMessage(t.chatID, s.messageID)); err != nil {
		t.log.Warn("delete reminder message failed", zap.Error(err))
	}
}

// Pending returns the armed payload behind a displayed notification. A miss
// means the notification was cancelled or superseded; the action is stale.
func (t *Telegram) Pending(notificationID int) (alarm.Payload, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.shown[notificationID]
	return s.payload, ok
}
