package nlp

import "context"

// Sentiment — тон отзыва. Пустое значение — оценить не удалось.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentUnknown  Sentiment = ""
)

// AltBook — ещё одна книга, упомянутая в том же тексте.
type AltBook struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// ExtractResult — что движок извлёк из текста отзыва.
type ExtractResult struct {
	Title            string    `json:"title"`
	Author           string    `json:"author"`
	Confidence       string    `json:"confidence"` // high | medium | low
	AlternativeBooks []AltBook `json:"alternativeBooks,omitempty"`
}

// Engine — LLM-движок: извлечение упоминания книги и оценка тона.
// ExtractBookInfo возвращает nil без ошибки, если в тексте книги нет.
type Engine interface {
	ExtractBookInfo(ctx context.Context, text string) (*ExtractResult, error)
	AnalyzeSentiment(ctx context.Context, text string) (Sentiment, error)
}
