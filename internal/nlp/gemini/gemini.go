package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"bookworm-bot/internal/nlp"
)

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// --------------------------- EXTRACT ---------------------------

const extractSystem = `Ты — модуль извлечения книг из отзывов читательского клуба.
Во входном тексте (обычно русском) найди книгу, о которой пишет автор отзыва.
Верни СТРОГО JSON:
{
  "found": boolean,              // есть ли в тексте отзыв о книге
  "title": string,               // название, как его можно записать в каталог
  "author": string,              // автор или "" если не назван
  "confidence": "high" | "medium" | "low",
  "alternativeBooks": [          // другие книги из того же текста, максимум 2
    {"title": string, "author": string}
  ]
}
Правила:
1) Не выдумывай автора — если он не назван явно, верни "".
2) Название нормализуй минимально: без кавычек-обёрток, без падежа упоминания
   («Дюну Херберта» -> title "Дюна", author "Херберт").
3) Если текст не про книгу (болтовня, вопрос, ссылка) — found=false.
Любой текст вне JSON — ошибка.`

// ExtractBookInfo извлекает из отзыва упоминание книги.
// Возвращает nil без ошибки, если книги в тексте нет.
func (e *Engine) ExtractBookInfo(ctx context.Context, text string) (*nlp.ExtractResult, error) {
	raw, err := e.generateJSON(ctx, extractSystem, text)
	if err != nil {
		return nil, fmt.Errorf("gemini extract: %w", err)
	}

	var out struct {
		Found bool `json:"found"`
		nlp.ExtractResult
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("gemini extract: bad JSON: %w", err)
	}
	if !out.Found || strings.TrimSpace(out.Title) == "" {
		return nil, nil
	}
	if len(out.AlternativeBooks) > 2 {
		out.AlternativeBooks = out.AlternativeBooks[:2]
	}
	res := out.ExtractResult
	res.Title = strings.TrimSpace(res.Title)
	res.Author = strings.TrimSpace(res.Author)
	return &res, nil
}

// --------------------------- SENTIMENT ---------------------------

const sentimentSystem = `Ты — модуль оценки тона книжного отзыва.
Верни СТРОГО JSON: {"sentiment": "positive" | "negative" | "neutral"}.
Оценивай отношение автора к книге, а не общий эмоциональный фон текста.`

func (e *Engine) AnalyzeSentiment(ctx context.Context, text string) (nlp.Sentiment, error) {
	raw, err := e.generateJSON(ctx, sentimentSystem, text)
	if err != nil {
		return nlp.SentimentUnknown, fmt.Errorf("gemini sentiment: %w", err)
	}

	var out struct {
		Sentiment string `json:"sentiment"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nlp.SentimentUnknown, fmt.Errorf("gemini sentiment: bad JSON: %w", err)
	}
	switch s := nlp.Sentiment(out.Sentiment); s {
	case nlp.SentimentPositive, nlp.SentimentNegative, nlp.SentimentNeutral:
		return s, nil
	default:
		return nlp.SentimentUnknown, nil
	}
}

// --------------------------- общий вызов ---------------------------

// generateJSON — один вызов модели со строгим JSON-ответом.
// Ретраи на случай 5xx/транзиентных сбоев, как и везде у нас с Gemini.
func (e *Engine) generateJSON(ctx context.Context, system, user string) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, genai.Text(user))
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt) * 300 * time.Millisecond)
			continue
		}
		txt := firstText(resp)
		if txt == "" {
			return "", fmt.Errorf("gemini: empty response")
		}
		return stripCodeFences(txt), nil
	}
	return "", lastErr
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				if s := strings.TrimSpace(string(t)); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func ptrFloat32(f float32) *float32 { return &f }
