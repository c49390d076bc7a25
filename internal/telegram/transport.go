package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"bookworm-bot/internal/confirm"
)

// Transport — реализация confirm.Transport поверх Bot API.
type Transport struct {
	Bot *tgbotapi.BotAPI
	Log zerolog.Logger
}

func (t *Transport) SendPrompt(ctx context.Context, chatID int64, p confirm.Prompt) (int, error) {
	msg := tgbotapi.NewMessage(chatID, p.Text)
	if kb, ok := keyboard(p); ok {
		msg.ReplyMarkup = kb
	}
	sent, err := t.Bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (t *Transport) EditPrompt(ctx context.Context, chatID int64, messageID int, p confirm.Prompt) error {
	var err error
	if kb, ok := keyboard(p); ok {
		_, err = t.Bot.Send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, p.Text, kb))
	} else {
		_, err = t.Bot.Send(tgbotapi.NewEditMessageText(chatID, messageID, p.Text))
	}
	return err
}

func (t *Transport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := t.Bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func (t *Transport) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := t.Bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// Toast отвечает на callback: с текстом — всплывашка, без — просто ack.
func (t *Transport) Toast(ctx context.Context, callbackID, text string) error {
	_, err := t.Bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func keyboard(p confirm.Prompt) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(p.Buttons) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(p.Buttons))
	for _, row := range p.Buttons {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, btns)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}
