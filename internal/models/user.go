package models

import (
	"time"

	"github.com/google/uuid"
)

// User - модель пользователя в системе.
//
// Email хранится в нижнем регистре и уникален среди всех пользователей.
// IsActive=false означает мягкое удаление (пользователь деактивировал себя сам).
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	Surname      string
	Patronymic   string
	PasswordHash string
	IsActive     bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
