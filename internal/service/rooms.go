package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-room-booking/internal/availability"
	"github.com/pribylovaa/go-room-booking/internal/models"
	"github.com/pribylovaa/go-room-booking/internal/pkg/log"
	"github.com/pribylovaa/go-room-booking/internal/storage"
)

// RoomInput — данные нового номера.
type RoomInput struct {
	Name        string
	PricePerDay float64
	Places      int
}

// RoomPatch — частичное обновление номера.
type RoomPatch struct {
	Name        *string
	PricePerDay *float64
	Places      *int
}

// RoomQuery — фильтры, сортировка и страница для списка номеров.
// Окно доступности задаётся только парой DateFrom/DateTo.
type RoomQuery struct {
	MinPrice *float64
	MaxPrice *float64
	Places   *int
	DateFrom *time.Time
	DateTo   *time.Time
	Sort     models.SortOrder
	Page     models.Page
}

// CreateRoom создаёт номер. Имя уникально.
func (s *Service) CreateRoom(ctx context.Context, in RoomInput) (*models.Room, error) {
	const op = "service.rooms.CreateRoom"

	room, err := newRoom(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SaveRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("%s: %w", op, roomWriteError(err))
	}

	log.From(ctx).Info("room_created",
		slog.String("room_id", room.ID.String()),
		slog.String("name", room.Name),
	)

	return room, nil
}

// BulkCreateRooms создаёт все номера в одной транзакции: либо все, либо ни одного.
// Ошибка конкретного элемента возвращается как *BulkItemError.
func (s *Service) BulkCreateRooms(ctx context.Context, items []RoomInput) ([]models.Room, error) {
	const op = "service.rooms.BulkCreateRooms"

	rooms := make([]*models.Room, 0, len(items))
	for i, in := range items {
		room, err := newRoom(in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, &BulkItemError{Index: i, Err: err})
		}
		rooms = append(rooms, room)
	}

	err := s.storage.InTx(ctx, func(tx storage.Tx) error {
		for i, room := range rooms {
			if err := tx.SaveRoom(ctx, room); err != nil {
				return &BulkItemError{Index: i, Err: roomWriteError(err)}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]models.Room, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, *r)
	}

	log.From(ctx).Info("rooms_bulk_created", slog.Int("count", len(out)))

	return out, nil
}

// Room возвращает номер по ID.
func (s *Service) Room(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	const op = "service.rooms.Room"

	room, err := s.storage.RoomByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFound(EntityRoom))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return room, nil
}

// ListRooms возвращает страницу номеров под фильтром.
//
// Окно [DateFrom, DateTo) применяется, только если заданы обе даты, и
// исключает номера с пересекающейся бронью. Пустой результат -> EntityError{room, ErrNotFound}.
func (s *Service) ListRooms(ctx context.Context, q RoomQuery) (*models.List[models.Room], error) {
	const op = "service.rooms.ListRooms"

	filter, err := buildRoomFilter(q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validatePage(q.Page); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rooms, total, err := s.storage.ListRooms(ctx, filter, q.Page)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(rooms) == 0 {
		return nil, fmt.Errorf("%s: %w", op, notFound(EntityRoom))
	}

	return &models.List[models.Room]{Data: rooms, Count: total}, nil
}

func buildRoomFilter(q RoomQuery) (storage.RoomFilter, error) {
	filter := storage.RoomFilter{
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Places:   q.Places,
	}

	switch q.Sort {
	case models.SortNone, models.SortAsc, models.SortDesc:
		filter.Sort = q.Sort
	default:
		return filter, invalid("sort_by_price must be asc or desc")
	}

	if q.MinPrice != nil && *q.MinPrice < 0 {
		return filter, invalid("min_price must be >= 0")
	}
	if q.MaxPrice != nil && *q.MaxPrice < 0 {
		return filter, invalid("max_price must be >= 0")
	}
	if q.Places != nil && *q.Places <= 0 {
		return filter, invalid("places must be > 0")
	}

	if q.DateFrom != nil && q.DateTo != nil {
		iv, err := availability.NewInterval(*q.DateFrom, *q.DateTo)
		if err != nil {
			return filter, invalid("%s", err.Error())
		}
		filter.Window = &iv
	}

	return filter, nil
}

// UpdateRoom применяет частичное обновление номера.
func (s *Service) UpdateRoom(ctx context.Context, id uuid.UUID, patch RoomPatch) (*models.Room, error) {
	const op = "service.rooms.UpdateRoom"

	upd := storage.RoomUpdate{
		PricePerDay: patch.PricePerDay,
		Places:      patch.Places,
	}

	if patch.Name != nil {
		name, err := roomName(*patch.Name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		upd.Name = &name
	}
	if patch.PricePerDay != nil && *patch.PricePerDay < 0 {
		return nil, fmt.Errorf("%s: %w", op, invalid("price_per_day must be >= 0"))
	}
	if patch.Places != nil && *patch.Places <= 0 {
		return nil, fmt.Errorf("%s: %w", op, invalid("places must be > 0"))
	}

	room, err := s.storage.UpdateRoom(ctx, id, upd)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFound(EntityRoom))
		}

		return nil, fmt.Errorf("%s: %w", op, roomWriteError(err))
	}

	return room, nil
}

// DeleteRoom удаляет номер вместе с его бронями. Повторное удаление не ошибка.
func (s *Service) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	const op = "service.rooms.DeleteRoom"

	if err := s.storage.DeleteRoom(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("room_deleted", slog.String("room_id", id.String()))

	return nil
}

func newRoom(in RoomInput) (*models.Room, error) {
	name, err := roomName(in.Name)
	if err != nil {
		return nil, err
	}

	if in.PricePerDay < 0 {
		return nil, invalid("price_per_day must be >= 0")
	}
	if in.Places <= 0 {
		return nil, invalid("places must be > 0")
	}

	return &models.Room{
		ID:          uuid.New(),
		Name:        name,
		PricePerDay: in.PricePerDay,
		Places:      in.Places,
	}, nil
}

func roomName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", invalid("name must not be empty")
	}

	return name, nil
}

// roomWriteError маппит ошибки записи номера на ошибки сервиса.
func roomWriteError(err error) error {
	switch {
	case errors.Is(err, storage.ErrAlreadyExists):
		return alreadyExists(EntityRoom)
	case errors.Is(err, storage.ErrInvalid):
		return invalid("invalid room value")
	default:
		return err
	}
}
