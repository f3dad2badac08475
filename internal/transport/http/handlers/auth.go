package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-room-booking/internal/service"
	"github.com/pribylovaa/go-room-booking/internal/transport/http/apierrors"
)

// Register — POST /auth/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:          in.Email,
		Name:           in.Name,
		Surname:        in.Surname,
		Patronymic:     in.Patronymic,
		Password:       in.Password,
		PasswordRepeat: in.PasswordRepeat,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, userFromModel(*user))
}

// Login — POST /auth/login: пара токенов в теле и в cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	pair, err := h.svc.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, tokenFromModel(pair))
}

// Refresh — POST /auth/refresh по cookie refresh_token.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	token, ok := refreshFromCookie(r)
	if !ok {
		apierrors.WriteError(w, r, service.ErrInvalidCredentials)
		return
	}

	pair, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, tokenFromModel(pair))
}

// Logout — POST /auth/logout: отзывает сессию из cookie и чистит cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := refreshFromCookie(r); ok {
		if err := h.svc.Logout(r.Context(), token); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}
	}

	h.clearAuthCookies(w)
	writeMessage(w, "Logged out successfully")
}

// Abort — POST /auth/abort: отзывает все сессии пользователя.
func (h *Handlers) Abort(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if _, err := h.svc.AbortSessions(r.Context(), user.ID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.clearAuthCookies(w)
	writeMessage(w, "All sessions was aborted")
}

// refreshFromCookie — UUID из cookie refresh_token.
func refreshFromCookie(r *http.Request) (uuid.UUID, bool) {
	c, err := r.Cookie(RefreshCookie)
	if err != nil || c.Value == "" {
		return uuid.Nil, false
	}

	token, err := uuid.Parse(c.Value)
	if err != nil {
		return uuid.Nil, false
	}

	return token, true
}
