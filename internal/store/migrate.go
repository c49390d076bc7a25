package store

import (
	"context"
	"database/sql"
)

// Идемпотентная инициализация схемы при старте. Уникальный индекс по
// нормализованной паре — основа find-or-create со строгим совпадением.
const schema = `
create table if not exists books (
    id           bigserial primary key,
    title        text not null,
    author       text,
    title_norm   text not null,
    author_norm  text not null default '',
    isbn         text,
    cover_url    text,
    external_id  text,
    created_at   timestamptz not null default now(),
    unique (title_norm, author_norm)
);

create table if not exists reviews (
    id          bigserial primary key,
    book_id     bigint not null references books(id),
    user_id     bigint not null,
    user_name   text not null default '',
    chat_id     bigint not null,
    message_id  integer not null default 0,
    text        text not null,
    sentiment   text,
    created_at  timestamptz not null default now()
);

create index if not exists reviews_book_id_idx on reviews(book_id);
create index if not exists reviews_user_id_idx on reviews(user_id);
`

func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
