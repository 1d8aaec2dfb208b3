package posts

import (
	"context"
	"errors"
	"time"
)

// PlaceholderImageURL is stored for every post until image uploads exist
const PlaceholderImageURL = "dummy-image.jpg"

// MaxContentLength is the maximum number of characters in a post
const MaxContentLength = 2000

var (
	ErrEmptyContent    = errors.New("content is empty")
	ErrContentTooLarge = errors.New("content exceeds maximum allowed length")
	ErrMissingAuthor   = errors.New("author subject is empty")
)

// Post is a message published by an authenticated user
type Post struct {
	ID        int32     `json:"id"`
	UserSub   string    `json:"user_sub"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists posts
type Repository interface {
	Create(ctx context.Context, userSub, content, imageURL string) (*Post, error)
	List(ctx context.Context) ([]*Post, error)
}
