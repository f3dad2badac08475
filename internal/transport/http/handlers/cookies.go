package handlers

import (
	"net/http"
	"time"

	"github.com/pribylovaa/go-room-booking/internal/models"
	"github.com/pribylovaa/go-room-booking/internal/transport/http/middleware"
)

// RefreshCookie — имя cookie с непрозрачным refresh-токеном.
const RefreshCookie = "refresh_token"

// setAuthCookies выставляет access_token ("Bearer <jwt>") и refresh_token (UUID).
// Max-Age каждой cookie равен оставшемуся времени жизни токена.
func (h *Handlers) setAuthCookies(w http.ResponseWriter, pair *models.TokenPair) {
	http.SetCookie(w, h.cookie(middleware.AccessCookie, "Bearer "+pair.AccessToken, maxAge(pair.AccessExpiresAt)))
	http.SetCookie(w, h.cookie(RefreshCookie, pair.RefreshToken, maxAge(pair.RefreshExpiresAt)))
}

// clearAuthCookies истекает обе cookie.
func (h *Handlers) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(middleware.AccessCookie, "", -1))
	http.SetCookie(w, h.cookie(RefreshCookie, "", -1))
}

func (h *Handlers) cookie(name, value string, age int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   age,
		Secure:   h.cookies.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// maxAge — секунды до истечения, не меньше 1 для ещё живого токена.
func maxAge(expiresAt time.Time) int {
	secs := int(time.Until(expiresAt) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
