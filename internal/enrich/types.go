package enrich

import "strconv"

// Уверенность движка извлечения в паре «название/автор».
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// BookRef — упоминание книги, как его увидел движок извлечения.
// Author == "" — автор в тексте не назван.
type BookRef struct {
	Title  string
	Author string
}

// ExtractedBookInfo — результат извлечения из текста отзыва.
// Неизменяем после получения; Alternatives — другие книги из того же
// текста, не более двух.
type ExtractedBookInfo struct {
	Title        string
	Author       string
	Confidence   Confidence
	Alternatives []BookRef
}

// Происхождение кандидата.
type Source string

const (
	SourceLocal    Source = "local"
	SourceExternal Source = "external"
	SourceNone     Source = "none"
)

// FieldSimilarity — сходство по полям, каждое в [0,1].
type FieldSimilarity struct {
	Title  float64
	Author float64
}

// EnrichedBook — кандидат на совпадение. LocalID > 0 только у книг
// из своего каталога; пустые строки означают отсутствие поля.
type EnrichedBook struct {
	Title      string
	Author     string
	ISBN       string
	CoverURL   string
	ExternalID string
	LocalID    int64
	Source     Source
	Similarity FieldSimilarity
}

// Score — средняя похожесть по названию и автору, ключ сортировки.
func (b EnrichedBook) Score() float64 {
	return (b.Similarity.Title + b.Similarity.Author) / 2
}

// Key — ключ дедупликации: нормализованная пара (название, автор).
// Без названия опираемся на идентификатор источника.
func (b EnrichedBook) Key() string {
	t := Normalize(b.Title)
	if t == "" {
		if b.ExternalID != "" {
			return "ext:" + b.ExternalID
		}
		if b.LocalID > 0 {
			return "local:" + strconv.FormatInt(b.LocalID, 10)
		}
	}
	return t + "|" + Normalize(b.Author)
}

// EnrichmentResult — итог обогащения: до трёх лучших кандидатов,
// отсортированных по убыванию Score, без дублей по Key.
type EnrichmentResult struct {
	Source  Source
	Matches []EnrichedBook
}
