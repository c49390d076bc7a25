package confirm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bookworm-bot/internal/enrich"
	"bookworm-bot/internal/nlp"
	"bookworm-bot/internal/session"
	"bookworm-bot/internal/store"
)

// ErrSessionNotFound — событие ссылается на несуществующую (истёкшую или
// уже завершённую) сессию. Не ошибка по сути: роутер отвечает пользователю
// «начните заново» и ничего не меняет.
var ErrSessionNotFound = errors.New("confirmation session not found")

// Данные callback-кнопок диалога.
const (
	CallbackPickPrefix = "rv:pick:" // + индекс кандидата
	CallbackAcceptRaw  = "rv:raw"
	CallbackISBN       = "rv:isbn"
	CallbackManual     = "rv:manual"
	CallbackCancel     = "rv:cancel"
)

// Confirmer ведёт пользователя от извлечённого упоминания книги до
// подтверждённой записи в каталоге: показывает кандидатов, принимает ISBN
// или ручной ввод, по выбору заводит книгу и сохраняет отзыв.
type Confirmer struct {
	Sessions  session.Store
	Enricher  Enricher
	Catalog   Catalog
	Reviews   Reviews
	Sentiment Sentimenter
	Finder    ISBNFinder
	Transport Transport
	AppURL    string // база deep-link мини-приложения, может быть пустой
	Log       zerolog.Logger
}

// Start заводит диалог подтверждения: обогащает извлечённую книгу,
// отправляет промпт и сохраняет сессию. Новая сессия молча перекрывает
// незавершённый диалог того же пользователя (last-write-wins).
func (c *Confirmer) Start(ctx context.Context, userID int64, info enrich.ExtractedBookInfo, review session.PendingReview) error {
	res, err := c.Enricher.Enrich(ctx, info)
	if err != nil {
		return fmt.Errorf("enrich: %w", err)
	}

	s := &session.Session{
		State:     session.StateShowingOptions,
		Review:    review,
		Extracted: info,
		Result:    &res,
		CreatedAt: time.Now(),
	}
	msgID, err := c.Transport.SendPrompt(ctx, review.ChatID, c.optionsPrompt(s))
	if err != nil {
		return fmt.Errorf("send prompt: %w", err)
	}
	s.PromptMessageID = msgID
	c.Sessions.Set(userID, s)
	return nil
}

// HandleSelection — пользователь ткнул в кандидата из списка.
func (c *Confirmer) HandleSelection(ctx context.Context, userID int64, callbackID string, index int) error {
	s := c.Sessions.Get(userID)
	if s == nil {
		return ErrSessionNotFound
	}
	if s.State != session.StateShowingOptions {
		return fmt.Errorf("selection in state %s", s.State)
	}
	if s.Result == nil || index < 0 || index >= len(s.Result.Matches) {
		return fmt.Errorf("candidate index %d out of range", index)
	}
	return c.resolve(ctx, userID, s, s.Result.Matches[index], callbackID)
}

// HandleAcceptRaw — совпадений нет, пользователь согласился добавить книгу
// ровно так, как её увидел движок извлечения, без внешних метаданных.
func (c *Confirmer) HandleAcceptRaw(ctx context.Context, userID int64, callbackID string) error {
	s := c.Sessions.Get(userID)
	if s == nil {
		return ErrSessionNotFound
	}
	if s.State != session.StateShowingOptions {
		return fmt.Errorf("accept raw in state %s", s.State)
	}
	if s.Result != nil && len(s.Result.Matches) > 0 {
		return fmt.Errorf("accept raw with %d candidates present", len(s.Result.Matches))
	}
	cand := enrich.EnrichedBook{Title: s.Extracted.Title, Author: s.Extracted.Author}
	return c.resolve(ctx, userID, s, cand, callbackID)
}

// HandleISBNEntry — пользователь выбрал поиск по ISBN.
func (c *Confirmer) HandleISBNEntry(ctx context.Context, userID int64) error {
	s := c.Sessions.Get(userID)
	if s == nil {
		return ErrSessionNotFound
	}
	if s.State != session.StateShowingOptions {
		return fmt.Errorf("isbn entry in state %s", s.State)
	}
	s.State = session.StateAwaitingISBN
	c.Sessions.Set(userID, s)
	return c.Transport.EditPrompt(ctx, s.Review.ChatID, s.PromptMessageID, c.isbnPrompt(""))
}

// HandleManualEntry — пользователь выбрал ручной ввод названия и автора.
func (c *Confirmer) HandleManualEntry(ctx context.Context, userID int64) error {
	s := c.Sessions.Get(userID)
	if s == nil {
		return ErrSessionNotFound
	}
	if s.State != session.StateShowingOptions {
		return fmt.Errorf("manual entry in state %s", s.State)
	}
	s.State = session.StateAwaitingTitle
	c.Sessions.Set(userID, s)
	return c.Transport.EditPrompt(ctx, s.Review.ChatID, s.PromptMessageID, c.titlePrompt())
}

// HandleCancel допустим из любого состояния: сессия удаляется сразу,
// дальнейшие события по ней получают ErrSessionNotFound.
func (c *Confirmer) HandleCancel(ctx context.Context, userID int64) error {
	s := c.Sessions.Get(userID)
	if s == nil {
		return ErrSessionNotFound
	}
	c.Sessions.Delete(userID)
	return c.Transport.EditPrompt(ctx, s.Review.ChatID, s.PromptMessageID,
		Prompt{Text: "❌ Хорошо, отменил. Отправьте отзыв ещё раз, когда будете готовы."})
}

// HandleText скармливает свободный текст пользователя текущему состоянию.
// false — текст диалогу не нужен (сессии нет или она не ждёт ввода);
// побочных эффектов в этом случае не бывает.
func (c *Confirmer) HandleText(ctx context.Context, userID int64, messageID int, text string) (bool, error) {
	s := c.Sessions.Get(userID)
	if s == nil {
		return false, nil
	}

	switch s.State {
	case session.StateAwaitingISBN:
		return true, c.consumeISBN(ctx, userID, s, messageID, text)
	case session.StateAwaitingTitle:
		return true, c.consumeTitle(ctx, userID, s, messageID, text)
	case session.StateAwaitingAuthor:
		return true, c.consumeAuthor(ctx, userID, s, messageID, text)
	default:
		// showing_options: свободный текст — не наше событие
		return false, nil
	}
}

func (c *Confirmer) consumeISBN(ctx context.Context, userID int64, s *session.Session, messageID int, text string) error {
	c.deleteQuiet(ctx, s.Review.ChatID, messageID)

	isbn, ok := NormalizeISBN(text)
	if !ok {
		// остаёмся в awaiting_isbn, ошибка показывается в том же промпте
		return c.Transport.EditPrompt(ctx, s.Review.ChatID, s.PromptMessageID,
			c.isbnPrompt("⚠️ Это не похоже на ISBN: нужно 10 или 13 знаков с верной контрольной суммой."))
	}

	vol, err := c.Finder.SearchByISBN(ctx, isbn)
	if err != nil {
		// на прямом ISBN-пути сбой внешнего источника виден пользователю
		c.Log.Warn().Err(err).Str("isbn", isbn).Msg("isbn lookup failed")
		vol = nil
	}
	if vol == nil {
		return c.Transport.EditPrompt(ctx, s.Review.ChatID, s.PromptMessageID,
			c.isbnPrompt(fmt.Sprintf("😕 По ISBN %s ничего не нашлось. Проверьте номер или отмените.", isbn)))
	}

	info := enrich.ExtractedBookInfo{
		Title:      vol.Title,
		Author:     vol.Author(),
		Confidence: enrich.ConfidenceHigh,
	}
	res, err := c.Enricher.Enrich(ctx, info)
	if err != nil {
		return c.failSession(ctx, userID, s, fmt.Errorf("enrich by isbn: %w", err))
	}
	// пока ходили наружу, диалог могли отменить — тогда выходим тихо
	if c.Sessions.Get(userID) != s {
		return nil
	}

	s.State = session.StateShowingOptions
	s.Extracted = info
	s.Result = &res
	c.Sessions.Set(userID, s)
	return c.Transport.EditPrompt(ctx, s.Review.ChatID, s.PromptMessageID, c.optionsPrompt(s))
}

func (c *Confirmer) consumeTitle(ctx context.Context, userID int64, s *session.Session, messageID int, text string) error {
	c.deleteQuiet(ctx, s.Review.ChatID, messageID)

	title := strings.TrimSpace(text)
	if title == "" {
		return c.Transport.EditPrompt(ctx, s.Review.ChatID, s.PromptMessageID, c.titlePrompt())
	}
	s.TempTitle = title
	s.State = session.StateAwaitingAuthor
	c.Sessions.Set(userID, s)
	return c.Transport.EditPrompt(ctx, s.Review.ChatID, s.PromptMessageID, c.authorPrompt(title))
}

func (c *Confirmer) consumeAuthor(ctx context.Context, userID int64, s *session.Session, messageID int, text string) error {
	c.deleteQuiet(ctx, s.Review.ChatID, messageID)

	author := strings.TrimSpace(text)
	if author == "-" {
		author = ""
	}
	cand := enrich.EnrichedBook{Title: s.TempTitle, Author: author}
	return c.resolve(ctx, userID, s, cand, "")
}

// resolve — терминальный переход: книга находится или заводится в каталоге
// (совпадение строго по нормализованной паре), отзыв проходит оценку тона и
// сохраняется, пересчитывается статистика книги, сессия удаляется.
func (c *Confirmer) resolve(ctx context.Context, userID int64, s *session.Session, cand enrich.EnrichedBook, callbackID string) error {
	book, err := c.Catalog.FindOrCreate(ctx, cand.Title, cand.Author, cand.ISBN, cand.CoverURL, cand.ExternalID)
	if err != nil {
		return c.failSession(ctx, userID, s, fmt.Errorf("find or create book: %w", err))
	}

	sentiment, err := c.Sentiment.AnalyzeSentiment(ctx, s.Review.Text)
	if err != nil {
		c.Log.Warn().Err(err).Msg("sentiment analysis failed")
		sentiment = nlp.SentimentUnknown
	}

	// отмена могла прийти, пока шли внешние вызовы
	if c.Sessions.Get(userID) != s {
		return nil
	}

	if _, err := c.Reviews.Create(ctx, store.Review{
		BookID:    book.ID,
		UserID:    s.Review.UserID,
		UserName:  s.Review.UserName,
		ChatID:    s.Review.ChatID,
		MessageID: s.Review.MessageID,
		Text:      s.Review.Text,
		Sentiment: string(sentiment),
	}); err != nil {
		return c.failSession(ctx, userID, s, fmt.Errorf("create review: %w", err))
	}

	count, err := c.Reviews.CountForBook(ctx, book.ID)
	if err != nil {
		return c.failSession(ctx, userID, s, fmt.Errorf("count reviews: %w", err))
	}
	var bd store.Breakdown
	if count > 1 {
		if bd, err = c.Reviews.SentimentBreakdown(ctx, book.ID); err != nil {
			return c.failSession(ctx, userID, s, fmt.Errorf("sentiment breakdown: %w", err))
		}
	}

	c.Sessions.Delete(userID)
	_ = c.Transport.EditPrompt(ctx, s.Review.ChatID, s.PromptMessageID,
		Prompt{Text: fmt.Sprintf("✅ Отзыв на «%s» сохранён.", book.Title)})

	if count <= 1 {
		// первый отзыв на книгу — достаточно тоста, без шума в чате
		c.ack(ctx, callbackID, s.Review.ChatID, "🎉 Отзыв сохранён — вы первый!")
		return nil
	}

	c.ack(ctx, callbackID, s.Review.ChatID, "")
	text := fmt.Sprintf("📚 «%s»: отзывов — %d (👍 %d · 👎 %d · 😐 %d)",
		book.Title, count, bd.Positive, bd.Negative, bd.Neutral)
	if link := c.bookLink(book.ID); link != "" {
		text += "\n" + link
	}
	_ = c.Transport.SendMessage(ctx, s.Review.ChatID, text)
	return nil
}

// failSession — фатальный сбой персистентности: сессия снимается, в промпте
// остаётся общая ошибка, сама ошибка поднимается наверх для лога.
func (c *Confirmer) failSession(ctx context.Context, userID int64, s *session.Session, err error) error {
	c.Sessions.Delete(userID)
	_ = c.Transport.EditPrompt(ctx, s.Review.ChatID, s.PromptMessageID,
		Prompt{Text: "⚠️ Внутренняя ошибка, отзыв не сохранён. Попробуйте позже."})
	return err
}

// ack отвечает на callback тостом; у текстовых событий callback'а нет,
// и подтверждение уходит коротким сообщением в чат.
func (c *Confirmer) ack(ctx context.Context, callbackID string, chatID int64, text string) {
	if callbackID != "" {
		_ = c.Transport.Toast(ctx, callbackID, text)
		return
	}
	if text != "" {
		_ = c.Transport.SendMessage(ctx, chatID, text)
	}
}

// Удаление потреблённого текста пользователя — best-effort: неудача
// логируется и не мешает переходу.
func (c *Confirmer) deleteQuiet(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := c.Transport.DeleteMessage(ctx, chatID, messageID); err != nil {
		c.Log.Warn().Err(err).Int("message_id", messageID).Msg("delete consumed message failed")
	}
}

// bookLink — deep link на карточку книги в мини-приложении.
func (c *Confirmer) bookLink(bookID int64) string {
	if strings.TrimSpace(c.AppURL) == "" {
		return ""
	}
	return fmt.Sprintf("%s?startapp=book_%d", strings.TrimRight(c.AppURL, "/"), bookID)
}
