package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-room-booking/internal/availability"
	"github.com/pribylovaa/go-room-booking/internal/models"
)

var (
	// ErrNotFound — запись не найдена (или отсутствует связанная запись по FK).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/имя номера/refresh-токен).
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict — нарушение exclusion-ограничения: пересечение броней одного номера.
	ErrConflict = errors.New("conflict")
	// ErrInvalid — нарушение CHECK-ограничения.
	ErrInvalid = errors.New("invalid value")
)

// UserUpdate — частичное обновление пользователя: nil-поля не меняются.
type UserUpdate struct {
	Email        *string
	Name         *string
	Surname      *string
	Patronymic   *string
	PasswordHash *string
	IsActive     *bool
	IsSuperuser  *bool
}

// RoomUpdate — частичное обновление номера.
type RoomUpdate struct {
	Name        *string
	PricePerDay *float64
	Places      *int
}

// RoomFilter — необязательные условия выборки номеров, объединяемые через AND.
// Window != nil исключает номера, у которых есть бронь, пересекающая окно.
type RoomFilter struct {
	MinPrice *float64
	MaxPrice *float64
	Places   *int
	Window   *availability.Interval
	Sort     models.SortOrder
}

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// ListUsers возвращает страницу пользователей и их общее количество.
	ListUsers(ctx context.Context, page models.Page) ([]models.User, int, error)
	// UpdateUser применяет частичное обновление.
	UpdateUser(ctx context.Context, id uuid.UUID, update UserUpdate) (*models.User, error)
	// DeleteUser удаляет строку пользователя (каскадно — брони и сессии).
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// RoomStorage выполняет операции над номерами.
type RoomStorage interface {
	SaveRoom(ctx context.Context, room *models.Room) error
	RoomByID(ctx context.Context, id uuid.UUID) (*models.Room, error)
	ListRooms(ctx context.Context, filter RoomFilter, page models.Page) ([]models.Room, int, error)
	UpdateRoom(ctx context.Context, id uuid.UUID, update RoomUpdate) (*models.Room, error)
	// DeleteRoom идемпотентен: отсутствие номера ошибкой не считается.
	DeleteRoom(ctx context.Context, id uuid.UUID) error
}

// BookingStorage — операции над бронями вне транзакции.
// Все изменения дат и номеров идут через Tx.
type BookingStorage interface {
	BookingByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Booking, int, error)
	// DeleteBooking идемпотентен.
	DeleteBooking(ctx context.Context, id uuid.UUID) error
}

// SessionStorage выполняет операции над refresh-сессиями.
type SessionStorage interface {
	// SaveSession сохраняет новую сессию и заполняет ID/CreatedAt.
	SaveSession(ctx context.Context, session *models.RefreshSession) error
	// DeleteSessionByToken удаляет сессию по токену; отсутствие — не ошибка.
	DeleteSessionByToken(ctx context.Context, token uuid.UUID) error
	// DeleteUserSessions удаляет все сессии пользователя.
	DeleteUserSessions(ctx context.Context, userID uuid.UUID) (int64, error)
	// DeleteExpiredSessions удаляет сессии, истекшие к моменту now.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Tx — операции, выполняемые внутри одной транзакции.
// Проверка пересечений и запись брони, а также ротация refresh-токена
// выполняются только через Tx.
type Tx interface {
	// LockRooms берёт транзакционные advisory-блокировки номеров
	// в порядке возрастания ID.
	LockRooms(ctx context.Context, ids ...uuid.UUID) error
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	RoomByID(ctx context.Context, id uuid.UUID) (*models.Room, error)
	SaveRoom(ctx context.Context, room *models.Room) error
	// BookingByIDForUpdate читает бронь с блокировкой строки.
	BookingByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	// OverlappingBookings возвращает брони номера, пересекающие интервал.
	OverlappingBookings(ctx context.Context, roomID uuid.UUID, iv availability.Interval) ([]models.Booking, error)
	SaveBooking(ctx context.Context, booking *models.Booking) error
	UpdateBooking(ctx context.Context, booking *models.Booking) error
	// SessionByTokenForUpdate читает сессию с блокировкой строки.
	SessionByTokenForUpdate(ctx context.Context, token uuid.UUID) (*models.RefreshSession, error)
	// RotateSession перезаписывает токен и TTL, если строка всё ещё содержит oldToken.
	RotateSession(ctx context.Context, id int64, oldToken, newToken uuid.UUID, expiresIn int64) (*models.RefreshSession, error)
	DeleteSession(ctx context.Context, id int64) error
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	RoomStorage
	BookingStorage
	SessionStorage
	// InTx выполняет fn в транзакции: commit при nil, rollback при ошибке.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close()
}
