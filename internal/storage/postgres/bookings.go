package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-room-booking/internal/availability"
	"github.com/pribylovaa/go-room-booking/internal/models"
	"github.com/pribylovaa/go-room-booking/internal/storage"
)

const bookingColumns = `
id, user_id, room_id, date_from, date_to, created_at, updated_at
`

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking

	if err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.RoomID,
		&b.DateFrom,
		&b.DateTo,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &b, nil
}

func collectBookings(rows pgx.Rows, capacity int) ([]models.Booking, error) {
	defer rows.Close()

	bookings := make([]models.Booking, 0, capacity)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}

// BookingByID находит бронь по ID.
func (s *Storage) BookingByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	const op = "storage.postgres.BookingByID"

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	b, err := scanBooking(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return b, nil
}

// ListBookingsByUser возвращает страницу броней пользователя по возрастанию даты заезда.
func (s *Storage) ListBookingsByUser(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Booking, int, error) {
	const op = "storage.postgres.ListBookingsByUser"

	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM bookings WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY date_from, id
		LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, query, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	bookings, err := collectBookings(rows, page.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return bookings, total, nil
}

// DeleteBooking удаляет бронь; отсутствие брони ошибкой не считается.
func (s *Storage) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.DeleteBooking"

	if _, err := s.db.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// BookingByIDForUpdate читает бронь с блокировкой строки до конца транзакции.
func (t *txStorage) BookingByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	const op = "storage.postgres.BookingByIDForUpdate"

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	b, err := scanBooking(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return b, nil
}

// OverlappingBookings возвращает брони номера, пересекающие [iv.From, iv.To).
func (t *txStorage) OverlappingBookings(ctx context.Context, roomID uuid.UUID, iv availability.Interval) ([]models.Booking, error) {
	const op = "storage.postgres.OverlappingBookings"

	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE room_id = $1 AND date_from < $3 AND date_to > $2
		ORDER BY date_from`

	rows, err := t.tx.Query(ctx, query, roomID, iv.From, iv.To)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bookings, err := collectBookings(rows, 1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bookings, nil
}

// SaveBooking вставляет бронь. Пересечение с существующей бронью того же номера
// отсекается exclusion-ограничением и возвращается как storage.ErrConflict.
func (t *txStorage) SaveBooking(ctx context.Context, b *models.Booking) error {
	const op = "storage.postgres.SaveBooking"

	query := `
		INSERT INTO bookings(id, user_id, room_id, date_from, date_to)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := t.tx.QueryRow(ctx, query, b.ID, b.UserID, b.RoomID, b.DateFrom, b.DateTo).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	return nil
}

// UpdateBooking перезаписывает владельца, номер и даты брони.
func (t *txStorage) UpdateBooking(ctx context.Context, b *models.Booking) error {
	const op = "storage.postgres.UpdateBooking"

	query := `
		UPDATE bookings
		SET user_id = $2, room_id = $3, date_from = $4, date_to = $5, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`

	err := t.tx.QueryRow(ctx, query, b.ID, b.UserID, b.RoomID, b.DateFrom, b.DateTo).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	return nil
}

var _ storage.BookingStorage = (*Storage)(nil)
