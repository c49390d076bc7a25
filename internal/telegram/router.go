package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"bookworm-bot/internal/confirm"
	"bookworm-bot/internal/enrich"
	"bookworm-bot/internal/nlp"
	"bookworm-bot/internal/session"
)

type Router struct {
	Bot       *tgbotapi.BotAPI
	Confirmer *confirm.Confirmer
	Extractor nlp.Engine
	Log       zerolog.Logger
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	ctx := context.Background()

	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, *upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	if upd.Message.IsCommand() {
		r.handleCommand(upd)
		return
	}
	if upd.Message.Text != "" {
		r.handleText(ctx, *upd.Message)
	}
}

func (r *Router) handleCommand(upd tgbotapi.Update) {
	cid := upd.Message.Chat.ID
	switch upd.Message.Command() {
	case "start":
		r.send(cid, "Привет! Напишите отзыв о прочитанной книге — я найду её в каталоге и сохраню отзыв.\nНапример: «Прочитал Дюну Херберта, очень понравилось».")
	case "health":
		r.send(cid, "✅ OK")
	default:
		r.send(cid, "Неизвестная команда")
	}
}

func (r *Router) handleCallback(ctx context.Context, cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	uid := cb.From.ID
	data := cb.Data

	var err error
	switch {
	case strings.HasPrefix(data, confirm.CallbackPickPrefix):
		idx, convErr := strconv.Atoi(strings.TrimPrefix(data, confirm.CallbackPickPrefix))
		if convErr != nil {
			r.ackCallback(cb.ID, "")
			return
		}
		// на терминальных событиях callback закрывает сам Confirmer
		err = r.Confirmer.HandleSelection(ctx, uid, cb.ID, idx)
	case data == confirm.CallbackAcceptRaw:
		err = r.Confirmer.HandleAcceptRaw(ctx, uid, cb.ID)
	case data == confirm.CallbackISBN:
		r.ackCallback(cb.ID, "")
		err = r.Confirmer.HandleISBNEntry(ctx, uid)
	case data == confirm.CallbackManual:
		r.ackCallback(cb.ID, "")
		err = r.Confirmer.HandleManualEntry(ctx, uid)
	case data == confirm.CallbackCancel:
		r.ackCallback(cb.ID, "")
		err = r.Confirmer.HandleCancel(ctx, uid)
	default:
		r.ackCallback(cb.ID, "")
		return
	}

	switch {
	case err == nil:
	case errors.Is(err, confirm.ErrSessionNotFound):
		r.ackCallback(cb.ID, "⌛ Сессия устарела. Отправьте отзыв ещё раз.")
	default:
		r.Log.Error().Err(err).Int64("user_id", uid).Str("data", data).Msg("callback handling failed")
		r.ackCallback(cb.ID, "⚠️ Что-то пошло не так, попробуйте ещё раз.")
	}
}

func (r *Router) handleText(ctx context.Context, msg tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	uid := msg.From.ID

	handled, err := r.Confirmer.HandleText(ctx, uid, msg.MessageID, msg.Text)
	if err != nil {
		r.Log.Error().Err(err).Int64("user_id", uid).Msg("dialog text handling failed")
		return
	}
	if handled {
		return
	}

	// текст не для диалога — возможно, это новый отзыв
	r.maybeReview(ctx, msg)
}

func (r *Router) maybeReview(ctx context.Context, msg tgbotapi.Message) {
	info, err := r.Extractor.ExtractBookInfo(ctx, msg.Text)
	if err != nil {
		// сбой извлечения поднимается сюда и заканчивается ответом пользователю
		r.Log.Error().Err(err).Msg("book extraction failed")
		r.send(msg.Chat.ID, "⚠️ Не получилось разобрать отзыв, попробуйте ещё раз чуть позже.")
		return
	}
	if info == nil {
		// обычное сообщение, не отзыв — молчим
		return
	}

	extracted := enrich.ExtractedBookInfo{
		Title:      info.Title,
		Author:     info.Author,
		Confidence: enrich.Confidence(info.Confidence),
	}
	for _, alt := range info.AlternativeBooks {
		extracted.Alternatives = append(extracted.Alternatives, enrich.BookRef{Title: alt.Title, Author: alt.Author})
	}

	review := session.PendingReview{
		UserID:     msg.From.ID,
		UserName:   displayName(msg.From),
		ChatID:     msg.Chat.ID,
		MessageID:  msg.MessageID,
		Text:       msg.Text,
		ReceivedAt: time.Now(),
	}
	if err := r.Confirmer.Start(ctx, msg.From.ID, extracted, review); err != nil {
		r.Log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("confirmation start failed")
		r.send(msg.Chat.ID, "⚠️ Внутренняя ошибка, отзыв не обработан. Попробуйте позже.")
	}
}

func (r *Router) ackCallback(id, text string) {
	_, _ = r.Bot.Request(tgbotapi.NewCallback(id, text))
}

func (r *Router) send(chatID int64, text string) {
	_, _ = r.Bot.Send(tgbotapi.NewMessage(chatID, text))
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}
