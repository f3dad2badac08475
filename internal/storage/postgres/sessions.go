package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-room-booking/internal/models"
)

const sessionColumns = `
id, refresh_token, user_id, expires_in, created_at, updated_at
`

func scanSession(row pgx.Row) (*models.RefreshSession, error) {
	var rs models.RefreshSession

	if err := row.Scan(
		&rs.ID,
		&rs.RefreshToken,
		&rs.UserID,
		&rs.ExpiresIn,
		&rs.CreatedAt,
		&rs.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &rs, nil
}

// SaveSession сохраняет новую refresh-сессию. Если CreatedAt задан — используется он,
// иначе время сервера БД.
func (s *Storage) SaveSession(ctx context.Context, session *models.RefreshSession) error {
	const op = "storage.postgres.SaveSession"

	query := `
		INSERT INTO refresh_sessions(refresh_token, user_id, expires_in, created_at, updated_at)
		VALUES ($1, $2, $3, COALESCE($4, now()), COALESCE($4, now()))
		RETURNING ` + sessionColumns

	var createdAt *time.Time
	if !session.CreatedAt.IsZero() {
		createdAt = &session.CreatedAt
	}

	saved, err := scanSession(s.db.QueryRow(ctx, query,
		session.RefreshToken,
		session.UserID,
		session.ExpiresIn,
		createdAt,
	))
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	*session = *saved

	return nil
}

// DeleteSessionByToken удаляет сессию по значению refresh-токена.
func (s *Storage) DeleteSessionByToken(ctx context.Context, token uuid.UUID) error {
	const op = "storage.postgres.DeleteSessionByToken"

	if _, err := s.db.Exec(ctx, `DELETE FROM refresh_sessions WHERE refresh_token = $1`, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteUserSessions удаляет все сессии пользователя.
func (s *Storage) DeleteUserSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	const op = "storage.postgres.DeleteUserSessions"

	tag, err := s.db.Exec(ctx, `DELETE FROM refresh_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}

// DeleteExpiredSessions удаляет все сессии, для которых created_at + expires_in <= now.
func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.postgres.DeleteExpiredSessions"

	query := `
		DELETE FROM refresh_sessions
		WHERE created_at + make_interval(secs => expires_in) <= $1
	`

	tag, err := s.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}

// SessionByTokenForUpdate читает сессию и блокирует строку до конца транзакции.
// Конкурентный вызов с тем же токеном ждёт блокировку и после ротации
// строку уже не находит.
func (t *txStorage) SessionByTokenForUpdate(ctx context.Context, token uuid.UUID) (*models.RefreshSession, error) {
	const op = "storage.postgres.SessionByTokenForUpdate"

	query := `SELECT ` + sessionColumns + ` FROM refresh_sessions WHERE refresh_token = $1 FOR UPDATE`

	rs, err := scanSession(t.tx.QueryRow(ctx, query, token))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return rs, nil
}

// RotateSession перезаписывает токен и TTL на месте. created_at не меняется.
func (t *txStorage) RotateSession(ctx context.Context, id int64, oldToken, newToken uuid.UUID, expiresIn int64) (*models.RefreshSession, error) {
	const op = "storage.postgres.RotateSession"

	query := `
		UPDATE refresh_sessions
		SET refresh_token = $3, expires_in = $4, updated_at = now()
		WHERE id = $1 AND refresh_token = $2
		RETURNING ` + sessionColumns

	rs, err := scanSession(t.tx.QueryRow(ctx, query, id, oldToken, newToken, expiresIn))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return rs, nil
}

// DeleteSession удаляет сессию по ID внутри транзакции.
func (t *txStorage) DeleteSession(ctx context.Context, id int64) error {
	const op = "storage.postgres.DeleteSession"

	if _, err := t.tx.Exec(ctx, `DELETE FROM refresh_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
