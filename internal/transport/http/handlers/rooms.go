package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pribylovaa/go-room-booking/internal/availability"
	"github.com/pribylovaa/go-room-booking/internal/models"
	"github.com/pribylovaa/go-room-booking/internal/service"
	"github.com/pribylovaa/go-room-booking/internal/transport/http/apierrors"
)

// CreateRoom — POST /rooms.
func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var in roomRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	room, err := h.svc.CreateRoom(r.Context(), in.toInput())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, roomFromModel(*room))
}

// BulkCreateRooms — POST /rooms/bulk, JSON-массив номеров. Всё или ничего.
func (h *Handlers) BulkCreateRooms(w http.ResponseWriter, r *http.Request) {
	var in []roomRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	items := make([]service.RoomInput, 0, len(in))
	for _, v := range in {
		items = append(items, v.toInput())
	}

	rooms, err := h.svc.BulkCreateRooms(r.Context(), items)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := make([]roomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, roomFromModel(room))
	}

	writeJSON(w, http.StatusCreated, out)
}

// ListRooms — GET /rooms.
//
// Параметры: min_price, max_price, places, date_from, date_to
// (окно свободности), sort_by_price (asc|desc), offset, limit.
func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	q, err := parseRoomQuery(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	list, err := h.svc.ListRooms(r.Context(), q)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapList(list, roomFromModel))
}

// GetRoom — GET /rooms/{id}.
func (h *Handlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	room, err := h.svc.Room(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, roomFromModel(*room))
}

// UpdateRoom — PUT /rooms/{id}.
func (h *Handlers) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in roomPatchRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	room, err := h.svc.UpdateRoom(r.Context(), id, service.RoomPatch{
		Name:        in.Name,
		PricePerDay: in.PricePerDay,
		Places:      in.Places,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, roomFromModel(*room))
}

// DeleteRoom — DELETE /rooms/{id}.
func (h *Handlers) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.DeleteRoom(r.Context(), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeMessage(w, "Room deleted successfully")
}

func parseRoomQuery(r *http.Request) (service.RoomQuery, error) {
	var (
		q   service.RoomQuery
		err error
	)

	if q.Page, err = parsePage(r); err != nil {
		return q, err
	}

	v := r.URL.Query()

	if q.MinPrice, err = floatParam(v, "min_price"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = floatParam(v, "max_price"); err != nil {
		return q, err
	}
	if q.DateFrom, err = dateParam(v, "date_from"); err != nil {
		return q, err
	}
	if q.DateTo, err = dateParam(v, "date_to"); err != nil {
		return q, err
	}

	if s := v.Get("places"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, &service.ValidationError{Reason: "places must be an integer"}
		}
		q.Places = &n
	}

	q.Sort = models.SortOrder(v.Get("sort_by_price"))

	return q, nil
}

func floatParam(v url.Values, name string) (*float64, error) {
	s := v.Get(name)
	if s == "" {
		return nil, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &service.ValidationError{Reason: name + " must be a number"}
	}

	return &f, nil
}

func dateParam(v url.Values, name string) (*time.Time, error) {
	s := v.Get(name)
	if s == "" {
		return nil, nil
	}

	t, err := availability.ParseDate(s)
	if err != nil {
		return nil, &service.ValidationError{Reason: name + " must be YYYY-MM-DD"}
	}

	return &t, nil
}
