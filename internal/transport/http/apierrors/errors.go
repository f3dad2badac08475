// apierrors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает ошибку сервисного слоя, на выход даёт:
//   - корректный HTTP-статус;
//   - короткий стабильный код для клиента;
//   - безопасное message без утечки деталей.
//
// Источник истинности по маппингу: сентинелы и типы ошибок пакета service.
package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/go-room-booking/internal/pkg/log"
	"github.com/pribylovaa/go-room-booking/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrTooManyRequests — запрос отклонён лимитером. HTTP 429.
	ErrTooManyRequests = errors.New("too many requests")
	// ErrBadRequest — тело/параметры запроса не разобраны. HTTP 400.
	ErrBadRequest = errors.New("bad request")
)

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку сервиса в HTTP-статус и тело ответа.
//
// Поведение:
//   - err == nil - программная ошибка вызова: 500/internal, чтобы не
//     маскировать баг ответом "200 OK" с телом ошибки;
//   - *service.BulkItemError - статус вложенной ошибки, в message индекс элемента;
//   - неизвестная ошибка - 500/internal без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, response("internal", "internal error")
	}

	var bie *service.BulkItemError
	if errors.As(err, &bie) {
		status, resp := ToHTTP(bie.Err)
		resp.Error.Message = fmt.Sprintf("item %d: %s", bie.Index, resp.Error.Message)
		return status, resp
	}

	var ee *service.EntityError
	if errors.As(err, &ee) {
		switch {
		case errors.Is(ee.Err, service.ErrNotFound):
			return http.StatusNotFound, response("not_found", ee.Error())
		case errors.Is(ee.Err, service.ErrAlreadyExists):
			return http.StatusConflict, response("already_exists", ee.Error())
		}
	}

	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, response("invalid_argument", ve.Reason)
	}

	status, code, msg := base(err)
	return status, response(code, msg)
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет статус/тело, добавляет request_id из заголовка, если он есть.
// Для not_authenticated выставляет WWW-Authenticate: Bearer.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if status >= http.StatusInternalServerError {
		errText := "<nil>"
		if err != nil {
			errText = err.Error()
		}
		log.From(r.Context()).Error("request_failed",
			slog.String("path", r.URL.Path),
			slog.String("err", errText),
		)
	}

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	if resp.Error.Code == "not_authenticated" {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func response(code, msg string) ErrorResponse {
	return ErrorResponse{Error: APIError{Code: code, Message: msg}}
}

// base — маппинг сентинелов сервиса и контекста:
//   - InvalidCredentials/InvalidToken/TokenExpired/NotAuthenticated -> 401
//   - InactiveUser/NotEnoughPrivileges -> 403
//   - InvalidArgument/PasswordMismatch/BadRequest -> 400
//   - TooManyRequests -> 429
//   - context.Canceled -> 499 (клиент закрыл соединение)
//   - context.DeadlineExceeded -> 504
//   - прочее -> 500/internal
func base(err error) (int, string, string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "Invalid username or password"
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token", "Invalid token"
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, "token_expired", "Token has expired"
	case errors.Is(err, service.ErrNotAuthenticated):
		return http.StatusUnauthorized, "not_authenticated", "Not authenticated"
	case errors.Is(err, service.ErrInactiveUser):
		return http.StatusForbidden, "inactive_user", "User is not active"
	case errors.Is(err, service.ErrNotEnoughPrivileges):
		return http.StatusForbidden, "not_enough_privileges", "Not enough privileges"
	case errors.Is(err, service.ErrPasswordMismatch):
		return http.StatusBadRequest, "invalid_argument", "Passwords do not match"
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, "too_many_requests", "Too many requests"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
