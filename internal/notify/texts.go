package notify

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/deveshub/medminder/internal/alarm"
)

const (
	actionTake   = "take"
	actionSkip   = "skip"
	actionSnooze = "snooze"
)

func reminderText(p alarm.Payload) string {
	header := "💊 Time to take"
	if p.FullScreen {
		header = "🚨 Time to take"
	}
	text := fmt.Sprintf("%s %s", header, p.MedicineName)
	if p.SnoozeCount > 0 {
		text += fmt.Sprintf("\n(snoozed %d of %d)", p.SnoozeCount, p.MaxSnoozeCount)
	}
	return text
}

// reminderKeyboard offers the three reminder actions plus snooze presets.
// Callback data: "rem:<action>:<notificationID>[:<minutes>]".
func reminderKeyboard(notificationID int) tgbotapi.InlineKeyboardMarkup {
	nid := strconv.Itoa(notificationID)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("😴 Snooze", "rem:"+actionSnooze+":"+nid),
			tgbotapi.NewInlineKeyboardButtonData("✅ Take", "rem:"+actionTake+":"+nid),
			tgbotapi.NewInlineKeyboardButtonData("⏭ Skip", "rem:"+actionSkip+":"+nid),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("5m", "rem:"+actionSnooze+":"+nid+":5"),
			tgbotapi.NewInlineKeyboardButtonData("15m", "rem:"+actionSnooze+":"+nid+":15"),
			tgbotapi.NewInlineKeyboardButtonData("30m", "rem:"+actionSnooze+":"+nid+":30"),
		),
	)
}
