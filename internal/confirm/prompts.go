package confirm

import (
	"fmt"
	"strings"

	"bookworm-bot/internal/enrich"
	"bookworm-bot/internal/session"
)

func (c *Confirmer) optionsPrompt(s *session.Session) Prompt {
	var matches []enrich.EnrichedBook
	if s.Result != nil {
		matches = s.Result.Matches
	}

	if len(matches) == 0 {
		text := fmt.Sprintf("🤔 Не нашёл «%s»%s ни в каталоге, ни во внешних источниках.\nЧто делаем?",
			s.Extracted.Title, byAuthor(s.Extracted.Author))
		return Prompt{
			Text: text,
			Buttons: [][]Button{
				{{Label: "➕ Добавить как есть", Data: CallbackAcceptRaw}},
				{{Label: "🔢 Найти по ISBN", Data: CallbackISBN}, {Label: "✏️ Ввести вручную", Data: CallbackManual}},
				{{Label: "Отмена", Data: CallbackCancel}},
			},
		}
	}

	var b strings.Builder
	b.WriteString("📖 Похоже, речь об одной из этих книг — выберите:\n")
	for i, m := range matches {
		fmt.Fprintf(&b, "%d) «%s»%s%s\n", i+1, m.Title, byAuthor(m.Author), sourceMark(m))
	}

	buttons := make([][]Button, 0, len(matches)+2)
	for i, m := range matches {
		buttons = append(buttons, []Button{{
			Label: fmt.Sprintf("%d) %s", i+1, shorten(m.Title, 28)),
			Data:  fmt.Sprintf("%s%d", CallbackPickPrefix, i),
		}})
	}
	buttons = append(buttons,
		[]Button{{Label: "🔢 По ISBN", Data: CallbackISBN}, {Label: "✏️ Вручную", Data: CallbackManual}},
		[]Button{{Label: "Это не та книга — отмена", Data: CallbackCancel}},
	)
	return Prompt{Text: b.String(), Buttons: buttons}
}

func (c *Confirmer) isbnPrompt(problem string) Prompt {
	text := "🔢 Введите ISBN книги (10 или 13 цифр, дефисы не важны)."
	if problem != "" {
		text = problem + "\n\n" + text
	}
	return Prompt{
		Text:    text,
		Buttons: [][]Button{{{Label: "Отмена", Data: CallbackCancel}}},
	}
}

func (c *Confirmer) titlePrompt() Prompt {
	return Prompt{
		Text:    "✏️ Напишите название книги одним сообщением.",
		Buttons: [][]Button{{{Label: "Отмена", Data: CallbackCancel}}},
	}
}

func (c *Confirmer) authorPrompt(title string) Prompt {
	return Prompt{
		Text:    fmt.Sprintf("Название: «%s».\nТеперь автора (или «-», если неизвестен).", title),
		Buttons: [][]Button{{{Label: "Отмена", Data: CallbackCancel}}},
	}
}

func byAuthor(a string) string {
	if strings.TrimSpace(a) == "" {
		return ""
	}
	return " — " + a
}

func sourceMark(m enrich.EnrichedBook) string {
	if m.Source == enrich.SourceLocal {
		return " · уже в каталоге"
	}
	return ""
}

func shorten(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
