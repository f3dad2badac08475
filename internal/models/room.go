package models

import (
	"time"

	"github.com/google/uuid"
)

// Room - номер, доступный для бронирования.
type Room struct {
	ID          uuid.UUID
	Name        string
	PricePerDay float64
	Places      int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SortOrder — направление сортировки списка номеров по цене.
type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)
