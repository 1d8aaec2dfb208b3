package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/boogy/aws-cognito-warden/pkg/middleware"
	"github.com/boogy/aws-cognito-warden/pkg/posts"
	"github.com/boogy/aws-cognito-warden/pkg/response"
	"github.com/boogy/aws-cognito-warden/pkg/version"
)

// Options holds the collaborators wired into the router
type Options struct {
	Authenticator  *middleware.Authenticator
	Posts          *posts.Handler // nil when no database is configured
	AllowedOrigins []string
	CacheStats     func() map[string]interface{} // optional, reported by /health
}

// New builds the HTTP surface of the service
func New(opts Options) http.Handler {
	r := chi.NewRouter()

	allowedOrigins := opts.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "Not found")
	})

	// Public endpoints
	r.Get("/", text("Hello from AWS Cognito Warden!"))
	r.Get("/hoge", text("Hoge from AWS Cognito Warden!"))
	r.Get("/fuga", text("Fuga from AWS Cognito Warden!"))
	r.Get("/health", health(opts.CacheStats))

	// Protected endpoints
	r.Group(func(pr chi.Router) {
		pr.Use(opts.Authenticator.Handler)
		pr.Get("/protected", protected)
	})

	// Reading posts is public, creating one requires a token
	r.Route("/posts", func(pr chi.Router) {
		list, create := http.HandlerFunc(unavailable), http.HandlerFunc(unavailable)
		if opts.Posts != nil {
			list, create = opts.Posts.List, opts.Posts.Create
		}
		pr.Get("/", list)
		pr.With(opts.Authenticator.Handler).Post("/", create)
	})

	return r
}

func text(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}
}

func health(stats func() map[string]interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]interface{}{
			"status":  "ok",
			"version": version.Get().Version,
		}
		if stats != nil {
			data["cache"] = stats()
		}
		response.JSON(w, r, http.StatusOK, "ok", data)
	}
}

func protected(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "Unauthorized")
		return
	}

	email := "<none>"
	if id.Email != "" {
		email = id.Email
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "Hello, sub=%s / email=%s", id.Subject, email)
}

func unavailable(w http.ResponseWriter, r *http.Request) {
	response.Error(w, r, http.StatusServiceUnavailable, response.CodeUnavailable, "Posts are not available")
}
