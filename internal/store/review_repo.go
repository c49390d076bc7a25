package store

import (
	"context"
	"database/sql"
	"time"
)

// Review — отзыв участника клуба, привязанный к книге каталога.
type Review struct {
	ID        int64
	BookID    int64
	UserID    int64
	UserName  string
	ChatID    int64
	MessageID int
	Text      string
	Sentiment string // positive | negative | neutral | ''
	CreatedAt time.Time
}

// Breakdown — раскладка отзывов книги по тону.
type Breakdown struct {
	Positive int
	Negative int
	Neutral  int
}

type ReviewRepo struct{ DB *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

func (r *ReviewRepo) Create(ctx context.Context, rv Review) (int64, error) {
	const q = `
insert into reviews (book_id, user_id, user_name, chat_id, message_id, text, sentiment)
values ($1,$2,$3,$4,$5,$6, nullif($7,''))
returning id`
	var id int64
	err := r.DB.QueryRowContext(ctx, q,
		rv.BookID, rv.UserID, rv.UserName, rv.ChatID, rv.MessageID, rv.Text, rv.Sentiment,
	).Scan(&id)
	return id, err
}

func (r *ReviewRepo) CountForBook(ctx context.Context, bookID int64) (int, error) {
	const q = `select count(*) from reviews where book_id = $1`
	var n int
	err := r.DB.QueryRowContext(ctx, q, bookID).Scan(&n)
	return n, err
}

func (r *ReviewRepo) SentimentBreakdown(ctx context.Context, bookID int64) (Breakdown, error) {
	const q = `
select count(*) filter (where sentiment = 'positive'),
       count(*) filter (where sentiment = 'negative'),
       count(*) filter (where sentiment = 'neutral')
from reviews
where book_id = $1`
	var b Breakdown
	err := r.DB.QueryRowContext(ctx, q, bookID).Scan(&b.Positive, &b.Negative, &b.Neutral)
	return b, err
}
