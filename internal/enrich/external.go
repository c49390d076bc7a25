package enrich

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"bookworm-bot/internal/googlebooks"
)

// Finder — внешний источник метаданных (Google Books).
type Finder interface {
	SearchBooks(ctx context.Context, title, author string) ([]googlebooks.Volume, error)
	SearchByISBN(ctx context.Context, isbn string) (*googlebooks.Volume, error)
}

// externalMaxMatches — внешний матчер отдаёт не больше трёх лучших.
const externalMaxMatches = 3

// ExternalMatcher ищет кандидатов во внешнем источнике. Сбои API/сети
// поглощаются и превращаются в пустой результат: недоступность внешнего
// источника не должна валить обогащение. Limiter общий на весь прогон
// оркестратора — состояние троттлинга переживает серию запросов.
type ExternalMatcher struct {
	Finder  Finder
	Limiter *rate.Limiter
	Log     zerolog.Logger
}

func (m *ExternalMatcher) Search(ctx context.Context, title, author string, threshold float64) ([]EnrichedBook, error) {
	if m.Limiter != nil {
		if err := m.Limiter.Wait(ctx); err != nil {
			return nil, nil
		}
	}

	vols, err := m.Finder.SearchBooks(ctx, title, author)
	if err != nil {
		m.Log.Warn().Err(err).Str("title", title).Msg("external book search failed")
		return nil, nil
	}

	var out []EnrichedBook
	for _, v := range vols {
		sim, ok := matchFields(title, author, v.Title, v.Author(), threshold)
		if !ok {
			continue
		}
		out = append(out, bookFromVolume(v, sim))
	}
	sortByScore(out)
	if len(out) > externalMaxMatches {
		out = out[:externalMaxMatches]
	}
	return out, nil
}

func bookFromVolume(v googlebooks.Volume, sim FieldSimilarity) EnrichedBook {
	isbn := v.ISBN13
	if isbn == "" {
		isbn = v.ISBN10
	}
	return EnrichedBook{
		Title:      strings.TrimSpace(v.Title),
		Author:     v.Author(),
		ISBN:       isbn,
		CoverURL:   v.CoverURL,
		ExternalID: v.ID,
		Source:     SourceExternal,
		Similarity: sim,
	}
}
