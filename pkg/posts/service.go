package posts

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Service applies the posting rules on top of a Repository
type Service struct {
	repo Repository
}

// NewService creates a Service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create publishes content on behalf of userSub
func (s *Service) Create(ctx context.Context, userSub, content string) (*Post, error) {
	if userSub == "" {
		return nil, ErrMissingAuthor
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, ErrContentTooLarge
	}

	return s.repo.Create(ctx, userSub, content, PlaceholderImageURL)
}

// List returns every post, newest first
func (s *Service) List(ctx context.Context) ([]*Post, error) {
	return s.repo.List(ctx)
}
