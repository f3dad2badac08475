package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-room-booking/internal/transport/http/apierrors"
)

// Me — GET /users/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(*user))
}

// UpdateMe — PUT /users/me.
func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in selfUpdateRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	updated, err := h.svc.UpdateSelf(r.Context(), user.ID, in.toPatch())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(*updated))
}

// DeleteMe — DELETE /users/me: мягкое удаление и выход.
func (h *Handlers) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	token, _ := refreshFromCookie(r)
	if err := h.svc.DeactivateSelf(r.Context(), user.ID, token); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.clearAuthCookies(w)
	writeMessage(w, "User deleted successfully")
}

// ListUsers — GET /users.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	list, err := h.svc.ListUsers(r.Context(), page)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapList(list, userFromModel))
}

// GetUser — GET /users/{id}.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.User(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(*user))
}

// UpdateUser — PUT /users/{id}.
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in userUpdateRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	updated, err := h.svc.UpdateUser(r.Context(), id, in.toPatch())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(*updated))
}

// DeleteUser — DELETE /users/{id}: жёсткое удаление.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.DeleteUser(r.Context(), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeMessage(w, "User was deleted")
}
