package posts

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the posts table when it does not exist yet
const Schema = `
	CREATE TABLE IF NOT EXISTS posts (
		id         SERIAL PRIMARY KEY,
		user_sub   TEXT        NOT NULL,
		content    TEXT        NOT NULL,
		image_url  TEXT        NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

type postgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository returns a Repository backed by a pgx pool
func NewPostgresRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// Migrate applies Schema
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create posts table: %w", err)
	}
	return nil
}

func (r *postgresRepository) Create(ctx context.Context, userSub, content, imageURL string) (*Post, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO posts (user_sub, content, image_url)
		VALUES ($1, $2, $3)
		RETURNING id, user_sub, content, image_url, created_at
	`, userSub, content, imageURL)

	p := &Post{}
	if err := row.Scan(&p.ID, &p.UserSub, &p.Content, &p.ImageURL, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}
	return p, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]*Post, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_sub, content, image_url, created_at
		FROM posts
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*Post, 0)
	for rows.Next() {
		p := &Post{}
		if err := rows.Scan(&p.ID, &p.UserSub, &p.Content, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}

	return posts, rows.Err()
}
