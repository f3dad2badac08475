// handlers реализует REST-эндпойнты сервиса бронирования поверх service.Service.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-room-booking/internal/config"
	"github.com/pribylovaa/go-room-booking/internal/models"
	"github.com/pribylovaa/go-room-booking/internal/service"
	"github.com/pribylovaa/go-room-booking/internal/transport/http/apierrors"
	"github.com/pribylovaa/go-room-booking/internal/transport/http/middleware"
)

const (
	defaultLimit = 100
	// maxBodyBytes ограничивает размер JSON-тела (bulk-запросы включительно).
	maxBodyBytes = 1 << 20
)

// Handlers агрегирует зависимости хендлеров.
type Handlers struct {
	svc     *service.Service
	cookies config.CookieConfig
}

func New(svc *service.Service, cookies config.CookieConfig) *Handlers {
	return &Handlers{svc: svc, cookies: cookies}
}

type messageResponse struct {
	Message string `json:"message"`
}

type listResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// decodeStrict — строгий JSON-декодер: неизвестные поля и хвост после
// объекта запрещены.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return badRequest(err)
	}

	if dec.More() {
		return badRequest(errors.New("unexpected data after JSON body"))
	}

	return nil
}

func badRequest(err error) error {
	return errors.Join(apierrors.ErrBadRequest, err)
}

// currentUser — пользователь, положенный middleware.Authenticate.
func currentUser(r *http.Request) (*models.User, error) {
	u, ok := middleware.UserFrom(r.Context())
	if !ok {
		return nil, service.ErrNotAuthenticated
	}
	return u, nil
}

// pathID разбирает UUID из параметра маршрута.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, &service.ValidationError{Reason: "invalid " + name}
	}
	return id, nil
}

// parsePage читает offset (по умолчанию 0) и limit (по умолчанию 100).
// Диапазоны проверяет сервис.
func parsePage(r *http.Request) (models.Page, error) {
	q := r.URL.Query()
	page := models.Page{Offset: 0, Limit: defaultLimit}

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, &service.ValidationError{Reason: "offset must be an integer"}
		}
		page.Offset = n
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, &service.ValidationError{Reason: "limit must be an integer"}
		}
		page.Limit = n
	}

	return page, nil
}

func mapList[T, R any](list *models.List[T], conv func(T) R) listResponse[R] {
	out := listResponse[R]{Data: make([]R, 0, len(list.Data)), Count: list.Count}
	for _, v := range list.Data {
		out.Data = append(out.Data, conv(v))
	}
	return out
}
