package enrich

import (
	"context"
	"fmt"
	"sort"
)

// DefaultThreshold — минимальное сходство поля, при котором кандидат
// считается совпадением.
const DefaultThreshold = 0.9

// CatalogBook — строка локального каталога.
type CatalogBook struct {
	ID       int64
	Title    string
	Author   string
	ISBN     string
	CoverURL string
}

// Catalog — читающая сторона локального каталога. Каталог клубный,
// ограниченного размера, поэтому матчер сканирует его целиком.
type Catalog interface {
	ListAll(ctx context.Context) ([]CatalogBook, error)
}

// Matcher — общий контракт локального и внешнего поиска кандидатов.
type Matcher interface {
	Search(ctx context.Context, title, author string, threshold float64) ([]EnrichedBook, error)
}

// LocalMatcher ищет кандидатов в своём каталоге. Ошибка хранилища —
// фатальная и поднимается наверх как есть.
type LocalMatcher struct {
	Catalog Catalog
}

func NewLocalMatcher(c Catalog) *LocalMatcher { return &LocalMatcher{Catalog: c} }

func (m *LocalMatcher) Search(ctx context.Context, title, author string, threshold float64) ([]EnrichedBook, error) {
	books, err := m.Catalog.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog list: %w", err)
	}

	var out []EnrichedBook
	for _, cb := range books {
		sim, ok := matchFields(title, author, cb.Title, cb.Author, threshold)
		if !ok {
			continue
		}
		out = append(out, EnrichedBook{
			Title:      cb.Title,
			Author:     cb.Author,
			ISBN:       cb.ISBN,
			CoverURL:   cb.CoverURL,
			LocalID:    cb.ID,
			Source:     SourceLocal,
			Similarity: sim,
		})
	}
	sortByScore(out)
	return out, nil
}

// matchFields применяет общее правило матчеров: пороги по названию и по
// автору проверяются независимо, высокое сходство названия не компенсирует
// чужого автора. Если автора нет с любой стороны, поле не штрафуется (1.0).
func matchFields(title, author, candTitle, candAuthor string, threshold float64) (FieldSimilarity, bool) {
	ts := Similarity(title, candTitle)
	if ts < threshold {
		return FieldSimilarity{}, false
	}
	as := 1.0
	if author != "" && candAuthor != "" {
		as = Similarity(author, candAuthor)
		if as < threshold {
			return FieldSimilarity{}, false
		}
	}
	return FieldSimilarity{Title: ts, Author: as}, true
}

func sortByScore(books []EnrichedBook) {
	sort.SliceStable(books, func(i, j int) bool {
		return books[i].Score() > books[j].Score()
	})
}
