package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gatewise/checkin/internal/domain"
	"github.com/gatewise/checkin/internal/http/response"
	"github.com/gatewise/checkin/internal/repository"
	"github.com/gatewise/checkin/internal/service"
	"github.com/gatewise/checkin/pkg/auth"
	"github.com/gatewise/checkin/pkg/config"
	"github.com/gatewise/checkin/pkg/logger"
)

type contextKey string

const actorKey contextKey = "actor"

type Handlers struct {
	checkin service.CheckinService
	visits  repository.VisitRepository
	guests  repository.GuestRepository
	config  *config.Config
}

func New(checkin service.CheckinService, visits repository.VisitRepository, guests repository.GuestRepository, cfg *config.Config) *Handlers {
	return &Handlers{
		checkin: checkin,
		visits:  visits,
		guests:  guests,
		config:  cfg,
	}
}

// RequireRole authenticates the request and enforces a minimum staff role.
func (h *Handlers) RequireRole(min domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.Unauthorized(w, "Missing or invalid authorization header")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
			if err != nil {
				response.Unauthorized(w, "Invalid token")
				return
			}

			role, ok := domain.ParseRole(claims.Role)
			if !ok || !role.AtLeast(min) {
				response.Forbidden(w, "Insufficient permissions")
				return
			}

			actor := &domain.Actor{UserID: claims.Sub, Email: claims.Email, Role: role}
			ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Sub)
			ctx = context.WithValue(ctx, actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getActor(r *http.Request) *domain.Actor {
	if actor, ok := r.Context().Value(actorKey).(*domain.Actor); ok {
		return actor
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
