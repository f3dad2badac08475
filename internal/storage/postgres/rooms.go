package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-room-booking/internal/models"
	"github.com/pribylovaa/go-room-booking/internal/storage"
)

// roomColumns — колонки rooms; цена читается как float8.
const roomColumns = `
id, name, price_per_day::float8, places, created_at, updated_at
`

func scanRoom(row pgx.Row) (*models.Room, error) {
	var room models.Room
	var places int32

	if err := row.Scan(
		&room.ID,
		&room.Name,
		&room.PricePerDay,
		&places,
		&room.CreatedAt,
		&room.UpdatedAt,
	); err != nil {
		return nil, err
	}
	room.Places = int(places)

	return &room, nil
}

// SaveRoom создает новый номер.
func (s *Storage) SaveRoom(ctx context.Context, room *models.Room) error {
	const op = "storage.postgres.SaveRoom"

	if err := saveRoom(ctx, s.db, room); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func saveRoom(ctx context.Context, q querier, room *models.Room) error {
	query := `
		INSERT INTO rooms(id, name, price_per_day, places)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		room.ID,
		room.Name,
		room.PricePerDay,
		int32(room.Places),
	).Scan(&room.CreatedAt, &room.UpdatedAt)

	if err != nil {
		return mapError(err)
	}

	return nil
}

// RoomByID находит номер по ID.
func (s *Storage) RoomByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	const op = "storage.postgres.RoomByID"

	room, err := roomByID(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return room, nil
}

func roomByID(ctx context.Context, q querier, id uuid.UUID) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`

	room, err := scanRoom(q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}

	return room, nil
}

// roomWhere собирает WHERE-часть выборки номеров.
// Условие доступности — отсутствие брони, пересекающей окно [from, to).
func roomWhere(filter storage.RoomFilter) (string, []any) {
	conds := make([]string, 0, 4)
	args := make([]any, 0, 5)

	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		conds = append(conds, fmt.Sprintf("r.price_per_day >= $%d", len(args)))
	}

	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		conds = append(conds, fmt.Sprintf("r.price_per_day <= $%d", len(args)))
	}

	if filter.Places != nil {
		args = append(args, int32(*filter.Places))
		conds = append(conds, fmt.Sprintf("r.places = $%d", len(args)))
	}

	if filter.Window != nil {
		args = append(args, filter.Window.To, filter.Window.From)
		conds = append(conds, fmt.Sprintf(`NOT EXISTS (
			SELECT 1 FROM bookings b
			WHERE b.room_id = r.id AND b.date_from < $%d AND b.date_to > $%d
		)`, len(args)-1, len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

func roomOrder(sort models.SortOrder) string {
	switch sort {
	case models.SortAsc:
		return " ORDER BY r.price_per_day ASC, r.id"
	case models.SortDesc:
		return " ORDER BY r.price_per_day DESC, r.id"
	default:
		return " ORDER BY r.created_at, r.id"
	}
}

// ListRooms возвращает страницу номеров под фильтром и их общее количество.
func (s *Storage) ListRooms(ctx context.Context, filter storage.RoomFilter, page models.Page) ([]models.Room, int, error) {
	const op = "storage.postgres.ListRooms"

	where, args := roomWhere(filter)

	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM rooms r`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	args = append(args, page.Limit, page.Offset)
	query := `SELECT ` + prefixed("r", roomColumns) + ` FROM rooms r` + where + roomOrder(filter.Sort) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	rooms := make([]models.Room, 0, page.Limit)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		rooms = append(rooms, *room)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return rooms, total, nil
}

// UpdateRoom выполняет частичный апдейт номера.
func (s *Storage) UpdateRoom(ctx context.Context, id uuid.UUID, update storage.RoomUpdate) (*models.Room, error) {
	const op = "storage.postgres.UpdateRoom"

	sets := []string{"updated_at = now()"}
	args := make([]any, 0, 4)

	if update.Name != nil {
		args = append(args, *update.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if update.PricePerDay != nil {
		args = append(args, *update.PricePerDay)
		sets = append(sets, fmt.Sprintf("price_per_day = $%d", len(args)))
	}
	if update.Places != nil {
		args = append(args, int32(*update.Places))
		sets = append(sets, fmt.Sprintf("places = $%d", len(args)))
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE rooms SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), roomColumns)

	room, err := scanRoom(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return room, nil
}

// DeleteRoom удаляет номер; брони номера удаляются каскадно.
func (s *Storage) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.DeleteRoom"

	if _, err := s.db.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// prefixed добавляет алиас таблицы к каждой колонке списка.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}

	return strings.Join(parts, ", ")
}
