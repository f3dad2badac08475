// events публикует доменные события бронирований во внешний брокер.
// Ошибки публикации не должны влиять на исход запроса: вызывающий код
// логирует их и продолжает работу.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-room-booking/internal/models"
)

// Type — тип события бронирования.
type Type string

const (
	BookingCreated Type = "booking.created"
	BookingUpdated Type = "booking.updated"
	BookingDeleted Type = "booking.deleted"
)

// Event — полезная нагрузка сообщения. Даты в формате YYYY-MM-DD.
type Event struct {
	Type       Type      `json:"type"`
	BookingID  uuid.UUID `json:"booking_id"`
	UserID     uuid.UUID `json:"user_id"`
	RoomID     uuid.UUID `json:"room_id"`
	DateFrom   string    `json:"date_from"`
	DateTo     string    `json:"date_to"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewBookingEvent собирает событие по брони.
func NewBookingEvent(t Type, b models.Booking, at time.Time) Event {
	return Event{
		Type:       t,
		BookingID:  b.ID,
		UserID:     b.UserID,
		RoomID:     b.RoomID,
		DateFrom:   b.DateFrom.Format(time.DateOnly),
		DateTo:     b.DateTo.Format(time.DateOnly),
		OccurredAt: at.UTC(),
	}
}

// Publisher отправляет события. Реализации должны быть потокобезопасны.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop — издатель-заглушка, когда брокер не сконфигурирован.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
