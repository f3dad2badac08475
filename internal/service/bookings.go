package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-room-booking/internal/availability"
	"github.com/pribylovaa/go-room-booking/internal/events"
	"github.com/pribylovaa/go-room-booking/internal/models"
	"github.com/pribylovaa/go-room-booking/internal/pkg/log"
	"github.com/pribylovaa/go-room-booking/internal/storage"
)

// BookingInput — данные новой брони.
type BookingInput struct {
	UserID   uuid.UUID
	RoomID   uuid.UUID
	DateFrom time.Time
	DateTo   time.Time
}

// BookingPatch — частичное обновление брони.
type BookingPatch struct {
	UserID   *uuid.UUID
	RoomID   *uuid.UUID
	DateFrom *time.Time
	DateTo   *time.Time
}

// CreateBooking бронирует номер на [DateFrom, DateTo).
//
// Внутри одной транзакции:
//   - берётся блокировка номера;
//   - проверяется существование номера (иначе "Room not found");
//   - ищутся пересекающиеся брони (иначе "Booking already exists");
//   - бронь записывается.
//
// Ограничение исключения в БД страхует проверку: нарушение тоже даёт конфликт.
func (s *Service) CreateBooking(ctx context.Context, in BookingInput) (*models.Booking, error) {
	const op = "service.bookings.CreateBooking"

	iv, err := availability.NewInterval(in.DateFrom, in.DateTo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, invalid("%s", err.Error()))
	}

	booking := &models.Booking{
		ID:       uuid.New(),
		UserID:   in.UserID,
		RoomID:   in.RoomID,
		DateFrom: iv.From,
		DateTo:   iv.To,
	}

	err = s.storage.InTx(ctx, func(tx storage.Tx) error {
		if err := tx.LockRooms(ctx, booking.RoomID); err != nil {
			return err
		}

		if err := roomExists(ctx, tx, booking.RoomID); err != nil {
			return err
		}

		if err := s.checkConflict(ctx, tx, booking.RoomID, iv, uuid.Nil); err != nil {
			return err
		}

		if err := tx.SaveBooking(ctx, booking); err != nil {
			return s.bookingWriteError(ctx, err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("booking_created",
		slog.String("booking_id", booking.ID.String()),
		slog.String("room_id", booking.RoomID.String()),
		slog.Int("nights", iv.Nights()),
	)

	s.publish(ctx, events.NewBookingEvent(events.BookingCreated, *booking, s.now()))

	return booking, nil
}

// BulkCreateBookings создаёт брони атомарно: любая ошибка откатывает весь набор
// и возвращается как *BulkItemError с индексом элемента.
//
// Каждый элемент проверяется и против уже сохранённых броней, и против
// предыдущих элементов того же набора.
func (s *Service) BulkCreateBookings(ctx context.Context, items []BookingInput) ([]models.Booking, error) {
	const op = "service.bookings.BulkCreateBookings"

	if len(items) == 0 {
		return []models.Booking{}, nil
	}

	bookings := make([]models.Booking, 0, len(items))
	intervals := make([]availability.Interval, 0, len(items))
	for i, in := range items {
		iv, err := availability.NewInterval(in.DateFrom, in.DateTo)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, &BulkItemError{Index: i, Err: invalid("%s", err.Error())})
		}

		intervals = append(intervals, iv)
		bookings = append(bookings, models.Booking{
			ID:       uuid.New(),
			UserID:   in.UserID,
			RoomID:   in.RoomID,
			DateFrom: iv.From,
			DateTo:   iv.To,
		})
	}

	err := s.storage.InTx(ctx, func(tx storage.Tx) error {
		if err := tx.LockRooms(ctx, uniqueRoomIDs(bookings)...); err != nil {
			return err
		}

		accepted := make(map[uuid.UUID][]models.Booking)
		knownUsers := make(map[uuid.UUID]bool)
		knownRooms := make(map[uuid.UUID]bool)

		for i := range bookings {
			b := &bookings[i]

			if !knownUsers[b.UserID] {
				if err := userExists(ctx, tx, b.UserID); err != nil {
					return &BulkItemError{Index: i, Err: err}
				}
				knownUsers[b.UserID] = true
			}

			if !knownRooms[b.RoomID] {
				if err := roomExists(ctx, tx, b.RoomID); err != nil {
					return &BulkItemError{Index: i, Err: err}
				}
				knownRooms[b.RoomID] = true
			}

			if err := s.checkConflict(ctx, tx, b.RoomID, intervals[i], uuid.Nil); err != nil {
				return &BulkItemError{Index: i, Err: err}
			}

			if _, clash := availability.FirstConflict(intervals[i], accepted[b.RoomID], uuid.Nil); clash {
				s.metrics.BookingConflict()
				return &BulkItemError{Index: i, Err: alreadyExists(EntityBooking)}
			}

			if err := tx.SaveBooking(ctx, b); err != nil {
				return &BulkItemError{Index: i, Err: s.bookingWriteError(ctx, err)}
			}

			accepted[b.RoomID] = append(accepted[b.RoomID], *b)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("bookings_bulk_created", slog.Int("count", len(bookings)))

	now := s.now()
	for _, b := range bookings {
		s.publish(ctx, events.NewBookingEvent(events.BookingCreated, b, now))
	}

	return bookings, nil
}

// Booking возвращает бронь по ID.
func (s *Service) Booking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	const op = "service.bookings.Booking"

	booking, err := s.storage.BookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, notFound(EntityBooking))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return booking, nil
}

// ListUserBookings возвращает брони пользователя, отсортированные по date_from.
func (s *Service) ListUserBookings(ctx context.Context, userID uuid.UUID, page models.Page) (*models.List[models.Booking], error) {
	const op = "service.bookings.ListUserBookings"

	if err := validatePage(page); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bookings, total, err := s.storage.ListBookingsByUser(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(bookings) == 0 {
		return nil, fmt.Errorf("%s: %w", op, notFound(EntityBooking))
	}

	return &models.List[models.Booking]{Data: bookings, Count: total}, nil
}

// UpdateBooking применяет частичное обновление и заново проверяет
// пересечения для итогового номера и интервала, не считая саму бронь.
func (s *Service) UpdateBooking(ctx context.Context, id uuid.UUID, patch BookingPatch) (*models.Booking, error) {
	const op = "service.bookings.UpdateBooking"

	var updated models.Booking

	err := s.storage.InTx(ctx, func(tx storage.Tx) error {
		current, err := tx.BookingByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return notFound(EntityBooking)
			}
			return err
		}

		updated = applyBookingPatch(*current, patch)

		iv, err := availability.NewInterval(updated.DateFrom, updated.DateTo)
		if err != nil {
			return invalid("%s", err.Error())
		}
		updated.DateFrom, updated.DateTo = iv.From, iv.To

		if updated.UserID != current.UserID {
			if err := userExists(ctx, tx, updated.UserID); err != nil {
				return err
			}
		}

		if err := tx.LockRooms(ctx, updated.RoomID); err != nil {
			return err
		}

		if updated.RoomID != current.RoomID {
			if err := roomExists(ctx, tx, updated.RoomID); err != nil {
				return err
			}
		}

		if err := s.checkConflict(ctx, tx, updated.RoomID, iv, updated.ID); err != nil {
			return err
		}

		if err := tx.UpdateBooking(ctx, &updated); err != nil {
			return s.bookingWriteError(ctx, err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, events.NewBookingEvent(events.BookingUpdated, updated, s.now()))

	return &updated, nil
}

// DeleteBooking удаляет бронь. Отсутствующая бронь ошибкой не считается.
func (s *Service) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	const op = "service.bookings.DeleteBooking"

	booking, err := s.storage.BookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.DeleteBooking(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("booking_deleted", slog.String("booking_id", id.String()))

	s.publish(ctx, events.NewBookingEvent(events.BookingDeleted, *booking, s.now()))

	return nil
}

// AuthorizeBooking — доступ к брони есть у владельца и у суперпользователя.
func AuthorizeBooking(user *models.User, booking *models.Booking) error {
	if user == nil {
		return ErrNotAuthenticated
	}

	if user.IsSuperuser || user.ID == booking.UserID {
		return nil
	}

	return ErrNotEnoughPrivileges
}

// checkConflict ищет бронь номера, пересекающую iv (кроме exclude).
func (s *Service) checkConflict(ctx context.Context, tx storage.Tx, roomID uuid.UUID, iv availability.Interval, exclude uuid.UUID) error {
	booked, err := tx.OverlappingBookings(ctx, roomID, iv)
	if err != nil {
		return err
	}

	if existing, clash := availability.FirstConflict(iv, booked, exclude); clash {
		s.metrics.BookingConflict()
		log.From(ctx).Info("booking_conflict",
			slog.String("room_id", roomID.String()),
			slog.String("existing_booking_id", existing.ID.String()),
		)
		return alreadyExists(EntityBooking)
	}

	return nil
}

// bookingWriteError маппит ошибки записи брони; ErrConflict приходит от
// ограничения исключения в БД.
func (s *Service) bookingWriteError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, storage.ErrConflict):
		s.metrics.BookingConflict()
		log.From(ctx).Warn("booking_exclusion_violation")
		return alreadyExists(EntityBooking)
	case errors.Is(err, storage.ErrAlreadyExists):
		return alreadyExists(EntityBooking)
	case errors.Is(err, storage.ErrNotFound):
		return notFound(EntityRoom)
	case errors.Is(err, storage.ErrInvalid):
		return invalid("%s", availability.ErrEmptyInterval.Error())
	default:
		return err
	}
}

func applyBookingPatch(b models.Booking, patch BookingPatch) models.Booking {
	if patch.UserID != nil {
		b.UserID = *patch.UserID
	}
	if patch.RoomID != nil {
		b.RoomID = *patch.RoomID
	}
	if patch.DateFrom != nil {
		b.DateFrom = *patch.DateFrom
	}
	if patch.DateTo != nil {
		b.DateTo = *patch.DateTo
	}

	return b
}

func userExists(ctx context.Context, tx storage.Tx, id uuid.UUID) error {
	if _, err := tx.UserByID(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return notFound(EntityUser)
		}
		return err
	}

	return nil
}

func roomExists(ctx context.Context, tx storage.Tx, id uuid.UUID) error {
	if _, err := tx.RoomByID(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return notFound(EntityRoom)
		}
		return err
	}

	return nil
}

func uniqueRoomIDs(bookings []models.Booking) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(bookings))
	for _, b := range bookings {
		if !slices.Contains(ids, b.RoomID) {
			ids = append(ids, b.RoomID)
		}
	}

	return ids
}
