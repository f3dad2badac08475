// service содержит бизнес-логику сервиса бронирования:
// регистрацию/аутентификацию пользователей, выпуск и ротацию токенов,
// управление номерами и бронями с проверкой пересечения дат.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для
//     конкурентного использования при потокобезопасном storage.Storage.
//   - Проверка пересечений и запись брони, а также ротация refresh-токена
//     выполняются в одной транзакции (storage.Storage.InTx).
//   - Ошибки возвращаются обёрнутыми ("op: err") и маппятся транспортом
//     на HTTP-статусы (см. комментарии к переменным ошибок ниже).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pribylovaa/go-room-booking/internal/config"
	"github.com/pribylovaa/go-room-booking/internal/events"
	"github.com/pribylovaa/go-room-booking/internal/metrics"
	"github.com/pribylovaa/go-room-booking/internal/pkg/log"
	"github.com/pribylovaa/go-room-booking/internal/storage"
)

var (
	// ErrInvalidCredentials — неверная пара email/пароль, пользователь не найден
	// или неактивен, либо refresh-cookie отсутствует/не является UUID. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidToken — токен не проходит проверку подписи/формата или
	// соответствующая сессия/пользователь не найдены. HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. HTTP 401.
	ErrTokenExpired = errors.New("token has expired")

	// ErrNotAuthenticated — access-cookie отсутствует. HTTP 401.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInactiveUser — пользователь деактивирован. HTTP 403.
	ErrInactiveUser = errors.New("user is not active")

	// ErrNotEnoughPrivileges — недостаточно прав. HTTP 403.
	ErrNotEnoughPrivileges = errors.New("not enough privileges")

	// ErrInvalidArgument — некорректные входные данные. HTTP 400.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPasswordMismatch — password и password_repeat не совпадают. HTTP 400.
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrRefreshTokenCollision — исчерпаны попытки сгенерировать уникальный
	// refresh-токен. HTTP 500.
	ErrRefreshTokenCollision = errors.New("refresh token collision")

	// ErrNotFound/ErrAlreadyExists не возвращаются напрямую: их оборачивает
	// EntityError с указанием сущности. HTTP 404/409.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Entity — вид сущности в EntityError.
type Entity string

const (
	EntityUser    Entity = "user"
	EntityRoom    Entity = "room"
	EntityBooking Entity = "booking"
)

// EntityError — ErrNotFound/ErrAlreadyExists с указанием сущности.
// Текст ошибки совпадает с сообщением клиенту: "Room not found",
// "Booking already exists".
type EntityError struct {
	Entity Entity
	Err    error
}

func (e *EntityError) Error() string {
	name := string(e.Entity)
	if name == "" {
		name = "entity"
	}

	return capitalize(name) + " " + e.Err.Error()
}

func (e *EntityError) Unwrap() error { return e.Err }

func notFound(entity Entity) error {
	return &EntityError{Entity: entity, Err: ErrNotFound}
}

func alreadyExists(entity Entity) error {
	return &EntityError{Entity: entity, Err: ErrAlreadyExists}
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}

	return string(s[0]-'a'+'A') + s[1:]
}

// BulkItemError — ошибка элемента пакетной операции. Пакет выполняется
// целиком или не выполняется вовсе; Index указывает первый отвергнутый элемент.
type BulkItemError struct {
	Index int
	Err   error
}

func (e *BulkItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *BulkItemError) Unwrap() error { return e.Err }

// Service описывает бизнес-логику сервиса бронирования.
type Service struct {
	storage   storage.Storage
	cfg       config.AuthConfig
	method    jwt.SigningMethod
	publisher events.Publisher
	metrics   *metrics.Metrics // может быть nil
	now       func() time.Time
}

// Option настраивает необязательные зависимости Service.
type Option func(*Service)

// WithPublisher задаёт издателя событий бронирований.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithMetrics задаёт прикладные метрики.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock подменяет источник текущего времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New создаёт новый экземпляр Service.
// Неизвестный или не-HMAC алгоритм в cfg.Algorithm заменяется на HS256.
func New(storage storage.Storage, cfg config.AuthConfig, opts ...Option) *Service {
	s := &Service{
		storage:   storage,
		cfg:       cfg,
		method:    signingMethod(cfg.Algorithm),
		publisher: events.Nop{},
		now:       func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func signingMethod(alg string) jwt.SigningMethod {
	if m, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC); ok {
		return m
	}

	slog.Default().Warn("jwt_algorithm_fallback",
		slog.String("requested", alg),
		slog.String("used", jwt.SigningMethodHS256.Alg()),
	)

	return jwt.SigningMethodHS256
}

// publish отправляет событие после коммита. Ошибка только логируется.
func (s *Service) publish(ctx context.Context, e events.Event) {
	const op = "service.publish"

	s.metrics.BookingMutation(string(e.Type))

	if err := s.publisher.Publish(ctx, e); err != nil {
		log.From(ctx).Warn("booking_event_publish_failed",
			slog.String("op", op),
			slog.String("type", string(e.Type)),
			slog.String("booking_id", e.BookingID.String()),
			slog.String("err", err.Error()),
		)
	}
}
