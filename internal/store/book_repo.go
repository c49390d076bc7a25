package store

import (
	"context"
	"database/sql"
	"time"

	"bookworm-bot/internal/enrich"
)

var ErrNotFound = sql.ErrNoRows

// Book — строка каталога. Пустая строка в nullable-полях означает отсутствие.
type Book struct {
	ID         int64
	Title      string
	Author     string
	ISBN       string
	CoverURL   string
	ExternalID string
	CreatedAt  time.Time
}

type BookRepo struct{ DB *sql.DB }

func NewBookRepo(db *sql.DB) *BookRepo { return &BookRepo{DB: db} }

// ListAll отдаёт весь каталог. Каталог клубный, ограниченного размера —
// матчер сканирует его целиком, пагинация здесь не нужна.
func (r *BookRepo) ListAll(ctx context.Context) ([]enrich.CatalogBook, error) {
	const q = `
select id, title,
       coalesce(author,'')    as author,
       coalesce(isbn,'')      as isbn,
       coalesce(cover_url,'') as cover_url
from books
order by id`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []enrich.CatalogBook
	for rows.Next() {
		var b enrich.CatalogBook
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.CoverURL); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// FindOrCreate находит книгу по нормализованной паре (название, автор) или
// заводит новую. Совпадение нормализованных форм — это и есть строгий порог
// 1.0: «Дюна» и «дюна!» попадают в одну строку. Метаданные (isbn, обложка,
// внешний id) дозаполняются, но никогда не перетирают уже известные.
func (r *BookRepo) FindOrCreate(ctx context.Context, title, author, isbn, coverURL, externalID string) (Book, error) {
	const q = `
insert into books (title, author, title_norm, author_norm, isbn, cover_url, external_id)
values ($1, nullif($2,''), $3, $4, nullif($5,''), nullif($6,''), nullif($7,''))
on conflict (title_norm, author_norm) do update
set isbn        = coalesce(books.isbn, excluded.isbn),
    cover_url   = coalesce(books.cover_url, excluded.cover_url),
    external_id = coalesce(books.external_id, excluded.external_id)
returning id, title,
          coalesce(author,''), coalesce(isbn,''),
          coalesce(cover_url,''), coalesce(external_id,''),
          created_at`
	row := r.DB.QueryRowContext(ctx, q,
		title, author,
		enrich.Normalize(title), enrich.Normalize(author),
		isbn, coverURL, externalID,
	)

	var b Book
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.CoverURL, &b.ExternalID, &b.CreatedAt); err != nil {
		return Book{}, err
	}
	return b, nil
}
