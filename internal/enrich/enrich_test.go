package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"bookworm-bot/internal/googlebooks"
)

type fakeCatalog struct {
	books []CatalogBook
	err   error
}

func (f *fakeCatalog) ListAll(ctx context.Context) ([]CatalogBook, error) {
	return f.books, f.err
}

type fakeFinder struct {
	vols        []googlebooks.Volume
	err         error
	searchCalls int
}

func (f *fakeFinder) SearchBooks(ctx context.Context, title, author string) ([]googlebooks.Volume, error) {
	f.searchCalls++
	return f.vols, f.err
}

func (f *fakeFinder) SearchByISBN(ctx context.Context, isbn string) (*googlebooks.Volume, error) {
	return nil, nil
}

// newEnricher собирает обогатитель без троттлинга, чтобы тесты не спали.
func newEnricher(cat Catalog, finder Finder, threshold float64) *Enricher {
	e := NewEnricher(cat, finder, threshold, zerolog.Nop())
	e.Limit = rate.Inf
	return e
}

func clubCatalog() *fakeCatalog {
	return &fakeCatalog{books: []CatalogBook{
		{ID: 1, Title: "Дюна", Author: "Фрэнк Герберт", ISBN: "9780441013593"},
		{ID: 2, Title: "Обитаемый остров", Author: "Аркадий и Борис Стругацкие"},
		{ID: 3, Title: "Война и мир", Author: "Лев Толстой"},
	}}
}

func TestEnrichLocalHit(t *testing.T) {
	t.Parallel()

	finder := &fakeFinder{}
	e := newEnricher(clubCatalog(), finder, DefaultThreshold)

	res, err := e.Enrich(context.Background(), ExtractedBookInfo{Title: "Дюна!", Author: "Фрэнк Герберт"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if res.Source != SourceLocal {
		t.Fatalf("source = %q, want %q", res.Source, SourceLocal)
	}
	if len(res.Matches) != 1 || res.Matches[0].LocalID != 1 {
		t.Fatalf("matches = %+v, want single catalog book #1", res.Matches)
	}
	if res.Matches[0].Similarity.Title != 1 || res.Matches[0].Similarity.Author != 1 {
		t.Fatalf("similarity = %+v, want exact", res.Matches[0].Similarity)
	}
	if finder.searchCalls != 0 {
		t.Fatalf("external source called %d times on a local hit", finder.searchCalls)
	}
}

func TestEnrichThresholdRejectsDifferentBook(t *testing.T) {
	t.Parallel()

	e := newEnricher(clubCatalog(), &fakeFinder{}, DefaultThreshold)

	res, err := e.Enrich(context.Background(), ExtractedBookInfo{Title: "Солярис", Author: "Станислав Лем"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if res.Source != SourceNone || len(res.Matches) != 0 {
		t.Fatalf("got %+v, want empty none-result", res)
	}
}

func TestEnrichTitleMatchDoesNotCompensateAuthor(t *testing.T) {
	t.Parallel()

	// название один в один, но автор чужой: кандидат отсекается
	e := newEnricher(clubCatalog(), &fakeFinder{}, DefaultThreshold)

	res, err := e.Enrich(context.Background(), ExtractedBookInfo{Title: "Дюна", Author: "Лев Толстой"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if len(res.Matches) != 0 {
		t.Fatalf("author mismatch must reject, got %+v", res.Matches)
	}
}

func TestEnrichMissingAuthorNeverExcludes(t *testing.T) {
	t.Parallel()

	cat := &fakeCatalog{books: []CatalogBook{
		{ID: 5, Title: "Процесс", Author: ""},
	}}
	e := newEnricher(cat, &fakeFinder{}, DefaultThreshold)

	// у кандидата нет автора
	res, err := e.Enrich(context.Background(), ExtractedBookInfo{Title: "Процесс", Author: "Франц Кафка"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if len(res.Matches) != 1 || res.Matches[0].Similarity.Author != 1 {
		t.Fatalf("candidate without author must match vacuously, got %+v", res.Matches)
	}

	// автора нет у запроса
	res, err = newEnricher(clubCatalog(), &fakeFinder{}, DefaultThreshold).
		Enrich(context.Background(), ExtractedBookInfo{Title: "Дюна"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if len(res.Matches) != 1 || res.Matches[0].LocalID != 1 {
		t.Fatalf("query without author must still match, got %+v", res.Matches)
	}
}

func TestEnrichExternalFallback(t *testing.T) {
	t.Parallel()

	finder := &fakeFinder{vols: []googlebooks.Volume{
		{ID: "gb1", Title: "Dune", Authors: []string{"Frank Herbert"}, ISBN13: "9780441013593"},
	}}
	e := newEnricher(&fakeCatalog{}, finder, DefaultThreshold)

	res, err := e.Enrich(context.Background(), ExtractedBookInfo{Title: "Dune", Author: "Frank Herbert"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if finder.searchCalls != 1 {
		t.Fatalf("external searches = %d, want 1", finder.searchCalls)
	}
	if res.Source != SourceExternal || len(res.Matches) != 1 {
		t.Fatalf("got %+v, want one external match", res)
	}
	m := res.Matches[0]
	if m.ExternalID != "gb1" || m.ISBN != "9780441013593" || m.Source != SourceExternal {
		t.Fatalf("external match = %+v", m)
	}
}

func TestEnrichExternalOnlyForLocalMisses(t *testing.T) {
	t.Parallel()

	finder := &fakeFinder{vols: []googlebooks.Volume{
		{ID: "gb2", Title: "Hyperion", Authors: []string{"Dan Simmons"}},
	}}
	e := newEnricher(clubCatalog(), finder, DefaultThreshold)

	info := ExtractedBookInfo{
		Title:  "Дюна",
		Author: "Фрэнк Герберт",
		Alternatives: []BookRef{
			{Title: "Hyperion", Author: "Dan Simmons"},
		},
	}
	res, err := e.Enrich(context.Background(), info)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if finder.searchCalls != 1 {
		t.Fatalf("external searches = %d, want 1 (only for the miss)", finder.searchCalls)
	}
	// при смешанной выдаче источник результата — локальный
	if res.Source != SourceLocal {
		t.Fatalf("source = %q, want %q on mixed result", res.Source, SourceLocal)
	}
	if len(res.Matches) != 2 {
		t.Fatalf("matches = %+v, want local + external", res.Matches)
	}
}

func TestEnrichExternalFailureIsSilent(t *testing.T) {
	t.Parallel()

	finder := &fakeFinder{err: errors.New("upstream 503")}
	e := newEnricher(&fakeCatalog{}, finder, DefaultThreshold)

	res, err := e.Enrich(context.Background(), ExtractedBookInfo{Title: "Дюна"})
	if err != nil {
		t.Fatalf("external failure must not surface, got %v", err)
	}
	if res.Source != SourceNone || len(res.Matches) != 0 {
		t.Fatalf("got %+v, want empty none-result", res)
	}
}

func TestEnrichCatalogFailureIsFatal(t *testing.T) {
	t.Parallel()

	e := newEnricher(&fakeCatalog{err: errors.New("db down")}, &fakeFinder{}, DefaultThreshold)

	if _, err := e.Enrich(context.Background(), ExtractedBookInfo{Title: "Дюна"}); err == nil {
		t.Fatal("catalog failure must propagate")
	}
}

func TestEnrichDedupeAndCap(t *testing.T) {
	t.Parallel()

	// три варианта одного ключа и две лишние близкие книги: после
	// дедупликации и обрезки остаётся не больше трёх уникальных
	cat := &fakeCatalog{books: []CatalogBook{
		{ID: 1, Title: "Дюна"},
		{ID: 2, Title: "дюна!"},
		{ID: 3, Title: "  ДЮНА  "},
		{ID: 4, Title: "Дина"},
		{ID: 5, Title: "Дена"},
		{ID: 6, Title: "Дуна"},
	}}
	e := newEnricher(cat, &fakeFinder{}, 0.5)

	res, err := e.Enrich(context.Background(), ExtractedBookInfo{Title: "Дюна"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if len(res.Matches) != 3 {
		t.Fatalf("len(matches) = %d, want 3", len(res.Matches))
	}
	seen := make(map[string]bool)
	for _, m := range res.Matches {
		if seen[m.Key()] {
			t.Fatalf("duplicate key %q in %+v", m.Key(), res.Matches)
		}
		seen[m.Key()] = true
	}
	// лучший кандидат — точное совпадение
	if res.Matches[0].Score() != 1 {
		t.Fatalf("best match score = %v, want 1", res.Matches[0].Score())
	}
}

func TestEnrichDedupeAcrossExternalSearches(t *testing.T) {
	t.Parallel()

	// обе упомянутые книги промахиваются мимо каталога, а внешний
	// источник на оба запроса отвечает одним и тем же томом: в выдаче
	// ключ остаётся один раз
	finder := &fakeFinder{vols: []googlebooks.Volume{
		{ID: "gb1", Title: "Dune", Authors: []string{"Frank Herbert"}},
	}}
	e := newEnricher(&fakeCatalog{}, finder, DefaultThreshold)

	info := ExtractedBookInfo{
		Title:        "Dune",
		Author:       "Frank Herbert",
		Alternatives: []BookRef{{Title: "Dune!"}},
	}
	res, err := e.Enrich(context.Background(), info)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if finder.searchCalls != 2 {
		t.Fatalf("external searches = %d, want 2", finder.searchCalls)
	}
	if len(res.Matches) != 1 {
		t.Fatalf("matches = %+v, want deduplicated single entry", res.Matches)
	}
	if res.Matches[0].ExternalID != "gb1" {
		t.Fatalf("match = %+v", res.Matches[0])
	}
}
