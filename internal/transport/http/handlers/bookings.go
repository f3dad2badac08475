package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-room-booking/internal/models"
	"github.com/pribylovaa/go-room-booking/internal/service"
	"github.com/pribylovaa/go-room-booking/internal/transport/http/apierrors"
)

// CreateBooking — POST /bookings. Владелец брони всегда текущий пользователь.
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in bookingRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	input := in.toInput()
	input.UserID = user.ID

	booking, err := h.svc.CreateBooking(r.Context(), input)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, bookingFromModel(*booking))
}

// BulkCreateBookings — POST /bookings/bulk. user_id берётся из элементов.
func (h *Handlers) BulkCreateBookings(w http.ResponseWriter, r *http.Request) {
	var in []bookingRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	items := make([]service.BookingInput, 0, len(in))
	for _, v := range in {
		items = append(items, v.toInput())
	}

	bookings, err := h.svc.BulkCreateBookings(r.Context(), items)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, bookingFromModel(b))
	}

	writeJSON(w, http.StatusCreated, out)
}

// ListBookings — GET /bookings: брони текущего пользователя.
func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	page, err := parsePage(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	list, err := h.svc.ListUserBookings(r.Context(), user.ID, page)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapList(list, bookingFromModel))
}

// GetBooking — GET /bookings/{id}, владелец или суперпользователь.
func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, ok := h.ownedBooking(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, bookingFromModel(*booking))
}

// UpdateBooking — PUT /bookings/{id}.
func (h *Handlers) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in bookingPatchRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	booking, err := h.svc.UpdateBooking(r.Context(), id, in.toPatch())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, bookingFromModel(*booking))
}

// DeleteBooking — DELETE /bookings/{id}, владелец или суперпользователь.
func (h *Handlers) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	booking, ok := h.ownedBooking(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteBooking(r.Context(), booking.ID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeMessage(w, "Booking deleted successfully")
}

// ownedBooking загружает бронь из пути и проверяет доступ к ней.
// При false ответ уже записан.
func (h *Handlers) ownedBooking(w http.ResponseWriter, r *http.Request) (*models.Booking, bool) {
	user, err := currentUser(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return nil, false
	}

	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return nil, false
	}

	booking, err := h.svc.Booking(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return nil, false
	}

	if err := service.AuthorizeBooking(user, booking); err != nil {
		apierrors.WriteError(w, r, err)
		return nil, false
	}

	return booking, true
}
