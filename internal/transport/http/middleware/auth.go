package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-room-booking/internal/models"
	"github.com/pribylovaa/go-room-booking/internal/pkg/log"
	"github.com/pribylovaa/go-room-booking/internal/service"
	"github.com/pribylovaa/go-room-booking/internal/transport/http/apierrors"
)

// AccessCookie — имя cookie с access-токеном ("Bearer <jwt>").
const AccessCookie = "access_token"

// Authenticator проверяет access-токен и возвращает его владельца.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// Authenticate извлекает JWT из cookie access_token (схема Bearer),
// загружает пользователя и кладёт его в контекст.
// Нет cookie или схема не Bearer -> 401 not_authenticated.
func Authenticate(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerFromCookie(r)

			user, err := a.Authenticate(r.Context(), token)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := log.With(r.Context(), slog.String("user_id", user.ID.String()))
			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}

// bearerFromCookie возвращает токен без схемы или "" при её отсутствии.
func bearerFromCookie(r *http.Request) string {
	c, err := r.Cookie(AccessCookie)
	if err != nil {
		return ""
	}

	scheme, token, ok := strings.Cut(c.Value, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

// RequireActive пропускает только активных пользователей.
// Ставится после Authenticate.
func RequireActive() Middleware {
	return guardWith(service.RequireActive)
}

// RequireSuperuser пропускает только суперпользователей. Сам флаг is_active
// он не смотрит: в роутере все маршруты суперпользователя стоят после
// RequireActive, так что неактивный суперпользователь получает 403 inactive_user.
// Ставится после Authenticate.
func RequireSuperuser() Middleware {
	return guardWith(service.RequireSuperuser)
}

func guardWith(guard func(*models.User) error) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := UserFrom(r.Context())
			if err := guard(user); err != nil {
				apierrors.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
