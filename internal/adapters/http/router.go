package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/application"
	"github.com/viralforge/mesh/services/trust-compliance/M99-abuse-detection-service/internal/ports"
)

// Service is the slice of application.Service the admin routes need.
type Service interface {
	ValidateToken(ctx context.Context, token string) (ports.AuthClaims, error)
	CheckArticleByID(ctx context.Context, articleID int64) (application.SpamCheckResponse, error)
	CheckCommentByID(ctx context.Context, commentID int64) (application.SpamCheckResponse, error)
	CheckUserByID(ctx context.Context, userID int64) (application.SpamCheckResponse, error)
	CheckDomainForUser(ctx context.Context, userID int64) (application.DomainCheckResponse, error)
	DetectRingForUser(ctx context.Context, userID int64) (application.RingDetectionResponse, error)
}

type Handler struct {
	service Service
	ready   func(ctx context.Context) error
}

// NewHandler wires the routes. ready backs /readyz and may be nil.
func NewHandler(service Service, ready func(ctx context.Context) error) *Handler {
	return &Handler{service: service, ready: ready}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ok") })
	r.Get("/readyz", handler.readiness)

	r.Route("/v1", func(r chi.Router) {
		r.Use(handler.adminMiddleware)
		r.Post("/spam/articles/{article_id}/check", handler.checkArticle)
		r.Post("/spam/comments/{comment_id}/check", handler.checkComment)
		r.Post("/spam/users/{user_id}/check", handler.checkUser)
		r.Post("/domains/users/{user_id}/check", handler.checkDomain)
		r.Post("/reaction-rings/users/{user_id}/detect", handler.detectRing)
	})
	return r
}
