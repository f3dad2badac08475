package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-room-booking/internal/models"
)

// txStorage — операции хранилища в рамках открытой транзакции.
type txStorage struct {
	tx pgx.Tx
}

// LockRooms берёт pg_advisory_xact_lock для каждого номера.
// Ключи берутся в отсортированном порядке, дубликаты пропускаются,
// поэтому две транзакции с пересекающимися наборами номеров не взаимоблокируются.
func (t *txStorage) LockRooms(ctx context.Context, ids ...uuid.UUID) error {
	const op = "storage.postgres.LockRooms"

	keys := make([]string, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, id.String())
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, key); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

func (t *txStorage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.postgres.tx.UserByID"

	user, err := userByID(ctx, t.tx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (t *txStorage) RoomByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	const op = "storage.postgres.tx.RoomByID"

	room, err := roomByID(ctx, t.tx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return room, nil
}

func (t *txStorage) SaveRoom(ctx context.Context, room *models.Room) error {
	const op = "storage.postgres.tx.SaveRoom"

	if err := saveRoom(ctx, t.tx, room); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
