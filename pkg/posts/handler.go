package posts

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/boogy/aws-cognito-warden/pkg/middleware"
	"github.com/boogy/aws-cognito-warden/pkg/response"
)

// maxBodySize bounds the create request body
const maxBodySize = 64 << 10

// CreatePostRequest is the body of POST /posts
type CreatePostRequest struct {
	Content string `json:"content"`
}

// Handler exposes the Service over HTTP. Routes must sit behind the Authenticator.
type Handler struct {
	service *Service
}

// NewHandler creates a Handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /posts
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		return
	}

	var req CreatePostRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid JSON in request body")
		return
	}

	post, err := h.service.Create(r.Context(), id.Subject, req.Content)
	switch {
	case errors.Is(err, ErrEmptyContent), errors.Is(err, ErrContentTooLarge):
		response.Error(w, r, http.StatusBadRequest, response.CodeInvalidRequest, err.Error())
		return
	case err != nil:
		slog.Error("Failed to create post",
			slog.String("requestId", response.RequestIDFromContext(r.Context())),
			slog.String("sub", id.Subject),
			slog.String("error", err.Error()))
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "An internal error occurred")
		return
	}

	response.JSON(w, r, http.StatusCreated, "Post created", post)
}

// List handles GET /posts
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("Failed to list posts",
			slog.String("requestId", response.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()))
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "An internal error occurred")
		return
	}

	response.JSON(w, r, http.StatusOK, "", posts)
}
