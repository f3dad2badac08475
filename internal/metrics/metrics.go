// metrics описывает прикладные метрики Prometheus сервиса бронирования.
//
// Все методы безопасны для вызова на nil-получателе: сервис и middleware
// работают без метрик, если они не сконфигурированы.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "booking"

// Исходы ротации refresh-сессии.
const (
	RefreshRotated = "rotated"
	RefreshExpired = "expired"
	RefreshInvalid = "invalid"
)

type Metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	conflicts prometheus.Counter
	refreshes *prometheus.CounterVec
	bookings  *prometheus.CounterVec
	limited   prometheus.Counter
}

// New регистрирует метрики в reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		conflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Booking writes rejected because of overlapping dates.",
		}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "refresh_total",
			Help:      "Refresh token rotations by outcome.",
		}, []string{"outcome"}),
		bookings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Committed booking mutations by kind.",
		}, []string{"kind"}),
		limited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
}

// ObserveRequest учитывает завершённый HTTP-запрос.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) BookingConflict() {
	if m == nil {
		return
	}

	m.conflicts.Inc()
}

func (m *Metrics) Refresh(outcome string) {
	if m == nil {
		return
	}

	m.refreshes.WithLabelValues(outcome).Inc()
}

// BookingMutation учитывает закоммиченное изменение брони (created/updated/deleted).
func (m *Metrics) BookingMutation(kind string) {
	if m == nil {
		return
	}

	m.bookings.WithLabelValues(kind).Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}

	m.limited.Inc()
}
