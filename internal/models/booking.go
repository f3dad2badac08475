package models

import (
	"time"

	"github.com/google/uuid"
)

// Booking - бронирование номера на полуоткрытый интервал дат [DateFrom, DateTo).
//
// DateFrom входит в интервал, DateTo — нет: бронь, заканчивающаяся в день
// начала другой, с ней не пересекается.
type Booking struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	RoomID    uuid.UUID
	DateFrom  time.Time
	DateTo    time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
