package enrich

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// maxMatches — верхняя граница выдачи обогащения.
const maxMatches = 3

// maxAlternatives — сколько дополнительных книг из одного текста учитываем.
const maxAlternatives = 2

// Enricher прогоняет извлечённые книги через каскад «локальный каталог →
// внешний источник» и собирает до трёх лучших кандидатов.
type Enricher struct {
	local     *LocalMatcher
	finder    Finder
	threshold float64
	log       zerolog.Logger

	// Limit/Burst задают троттлинг внешних запросов одного прогона.
	Limit rate.Limit
	Burst int
}

func NewEnricher(catalog Catalog, finder Finder, threshold float64, log zerolog.Logger) *Enricher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Enricher{
		local:     NewLocalMatcher(catalog),
		finder:    finder,
		threshold: threshold,
		log:       log.With().Str("component", "enrich").Logger(),
		Limit:     rate.Every(250 * time.Millisecond),
		Burst:     1,
	}
}

// Enrich реализует каскад обогащения:
//  1. локальный каталог — для каждой упомянутой книги;
//  2. внешний источник — только для книг без единого локального попадания,
//     одним матчером (и одним rate limiter'ом) на весь прогон;
//  3. объединение, дедупликация по нормализованному ключу, топ-3.
//
// Ошибка локального каталога фатальна; сбои внешнего источника уже
// поглощены внутри ExternalMatcher.
func (e *Enricher) Enrich(ctx context.Context, info ExtractedBookInfo) (EnrichmentResult, error) {
	refs := make([]BookRef, 0, 1+maxAlternatives)
	refs = append(refs, BookRef{Title: info.Title, Author: info.Author})
	for i, alt := range info.Alternatives {
		if i >= maxAlternatives {
			break
		}
		refs = append(refs, alt)
	}

	var union []EnrichedBook
	var misses []BookRef
	for _, ref := range refs {
		matches, err := e.local.Search(ctx, ref.Title, ref.Author, e.threshold)
		if err != nil {
			return EnrichmentResult{}, err
		}
		if len(matches) == 0 {
			misses = append(misses, ref)
			continue
		}
		union = append(union, matches...)
	}

	if len(misses) > 0 && e.finder != nil {
		ext := &ExternalMatcher{
			Finder:  e.finder,
			Limiter: rate.NewLimiter(e.Limit, e.Burst),
			Log:     e.log,
		}
		for _, ref := range misses {
			matches, _ := ext.Search(ctx, ref.Title, ref.Author, e.threshold)
			union = append(union, matches...)
		}
	}

	if len(union) == 0 {
		return EnrichmentResult{Source: SourceNone, Matches: []EnrichedBook{}}, nil
	}

	source := SourceExternal
	for _, b := range union {
		if b.Source == SourceLocal {
			source = SourceLocal
			break
		}
	}

	sortByScore(union)
	return EnrichmentResult{Source: source, Matches: dedupe(union, maxMatches)}, nil
}

// dedupe оставляет первое (лучшее) вхождение каждого ключа, не больше limit.
func dedupe(books []EnrichedBook, limit int) []EnrichedBook {
	seen := make(map[string]struct{}, len(books))
	out := make([]EnrichedBook, 0, limit)
	for _, b := range books {
		key := b.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, b)
		if len(out) == limit {
			break
		}
	}
	return out
}
