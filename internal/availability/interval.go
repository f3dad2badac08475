// availability реализует арифметику полуоткрытых интервалов дат [From, To),
// на которой держится правило "не больше одной брони на пересекающийся
// интервал для одного номера".
//
// Пакет не ходит в хранилище: транзакционную часть (блокировка номера,
// выборка кандидатов, вставка) выполняет сервисный слой, а пакет лишь решает,
// конфликтуют ли интервалы.
package availability

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-room-booking/internal/models"
)

// DateLayout — формат дат на границе API.
const DateLayout = "2006-01-02"

// ErrEmptyInterval — date_from >= date_to: интервал нулевой или отрицательной длины.
var ErrEmptyInterval = errors.New("date_from must be before date_to")

// Interval — полуоткрытый интервал дат [From, To).
type Interval struct {
	From time.Time
	To   time.Time
}

// NewInterval нормализует границы до календарных дат в UTC и проверяет,
// что интервал непуст.
func NewInterval(from, to time.Time) (Interval, error) {
	iv := Interval{From: Date(from), To: Date(to)}
	if !iv.From.Before(iv.To) {
		return Interval{}, ErrEmptyInterval
	}

	return iv, nil
}

// Of возвращает интервал существующей брони.
func Of(b models.Booking) Interval {
	return Interval{From: Date(b.DateFrom), To: Date(b.DateTo)}
}

// Date отбрасывает время суток, оставляя дату в UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate разбирает дату в формате YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Overlaps: A.From < B.To && A.To > B.From. Касание границ пересечением не считается.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.From.Before(other.To) && iv.To.After(other.From)
}

// Nights — число суток в интервале.
func (iv Interval) Nights() int {
	return int(iv.To.Sub(iv.From).Hours() / 24)
}

// FirstConflict возвращает первую бронь из booked, пересекающуюся с proposed.
// Бронь с ID == exclude пропускается (обновление самой себя конфликтом не является).
func FirstConflict(proposed Interval, booked []models.Booking, exclude uuid.UUID) (models.Booking, bool) {
	for _, b := range booked {
		if exclude != uuid.Nil && b.ID == exclude {
			continue
		}

		if proposed.Overlaps(Of(b)) {
			return b, true
		}
	}

	return models.Booking{}, false
}
