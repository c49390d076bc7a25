package confirm

import (
	"context"

	"bookworm-bot/internal/enrich"
	"bookworm-bot/internal/googlebooks"
	"bookworm-bot/internal/nlp"
	"bookworm-bot/internal/store"
)

// Enricher — каскад обогащения (см. internal/enrich).
type Enricher interface {
	Enrich(ctx context.Context, info enrich.ExtractedBookInfo) (enrich.EnrichmentResult, error)
}

// Catalog — запись в каталог при разрешении диалога.
type Catalog interface {
	FindOrCreate(ctx context.Context, title, author, isbn, coverURL, externalID string) (store.Book, error)
}

// Reviews — персистентность отзывов.
type Reviews interface {
	Create(ctx context.Context, rv store.Review) (int64, error)
	CountForBook(ctx context.Context, bookID int64) (int, error)
	SentimentBreakdown(ctx context.Context, bookID int64) (store.Breakdown, error)
}

// Sentimenter — оценка тона исходного текста отзыва.
type Sentimenter interface {
	AnalyzeSentiment(ctx context.Context, text string) (nlp.Sentiment, error)
}

// ISBNFinder — прямой поиск по ISBN во внешнем источнике. В отличие от
// обогащения, сбой на этом пути показывается пользователю.
type ISBNFinder interface {
	SearchByISBN(ctx context.Context, isbn string) (*googlebooks.Volume, error)
}

// Button/Prompt — транспортно-нейтральное описание сообщения с кнопками;
// в tgbotapi его переводит адаптер в internal/telegram.
type Button struct {
	Label string
	Data  string
}

type Prompt struct {
	Text    string
	Buttons [][]Button
}

// Transport — чат, в котором живёт диалог. Обязателен для корректности
// только EditPrompt; остальное best-effort.
type Transport interface {
	SendPrompt(ctx context.Context, chatID int64, p Prompt) (messageID int, err error)
	EditPrompt(ctx context.Context, chatID int64, messageID int, p Prompt) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendMessage(ctx context.Context, chatID int64, text string) error
	Toast(ctx context.Context, callbackID, text string) error
}
