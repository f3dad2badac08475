package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshSession — серверная запись refresh-сессии.
//
// Описание:
//   - RefreshToken — непрозрачный токен, который клиент хранит в cookie;
//     при каждом обновлении перезаписывается новым значением;
//   - ExpiresIn — время жизни в секундах, отсчитывается от CreatedAt;
//   - CreatedAt не меняется при ротации.
type RefreshSession struct {
	ID           int64
	RefreshToken uuid.UUID
	UserID       uuid.UUID
	ExpiresIn    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ExpiresAt возвращает момент истечения сессии.
func (s *RefreshSession) ExpiresAt() time.Time {
	return s.CreatedAt.Add(time.Duration(s.ExpiresIn) * time.Second)
}

// Expired сообщает, истекла ли сессия к моменту now (граница включительно).
func (s *RefreshSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt())
}
