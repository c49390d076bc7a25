package session

import (
	"time"

	"bookworm-bot/internal/enrich"
)

// Состояния диалога подтверждения. Терминальные исходы (подтверждено,
// отменено) отдельного состояния не имеют: сессия просто удаляется.
type State string

const (
	StateShowingOptions State = "showing_options"
	StateAwaitingISBN   State = "awaiting_isbn"
	StateAwaitingTitle  State = "awaiting_title"
	StateAwaitingAuthor State = "awaiting_author"
)

// PendingReview — исходный отзыв, ради которого идёт подтверждение.
type PendingReview struct {
	UserID     int64
	UserName   string
	ChatID     int64
	MessageID  int
	Text       string
	ReceivedAt time.Time
}

// Session — состояние диалога подтверждения одного пользователя.
// PromptMessageID — единственное сообщение бота, которое редактируется
// на каждом шаге; новых сообщений диалог не плодит.
type Session struct {
	State           State
	Review          PendingReview
	Extracted       enrich.ExtractedBookInfo
	Result          *enrich.EnrichmentResult
	TempTitle       string // введённое вручную название, пока ждём автора
	PromptMessageID int
	CreatedAt       time.Time
}
