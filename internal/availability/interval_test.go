package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-room-booking/internal/models"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func iv(t *testing.T, from, to string) Interval {
	t.Helper()
	v, err := NewInterval(day(t, from), day(t, to))
	require.NoError(t, err)
	return v
}

func TestNewInterval_RejectsEmptyAndInverted(t *testing.T) {
	t.Parallel()

	_, err := NewInterval(day(t, "2024-01-05"), day(t, "2024-01-05"))
	require.ErrorIs(t, err, ErrEmptyInterval)

	_, err = NewInterval(day(t, "2024-01-06"), day(t, "2024-01-05"))
	require.ErrorIs(t, err, ErrEmptyInterval)
}

func TestNewInterval_TruncatesTimeOfDay(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+3", 3*3600)
	from := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	to := time.Date(2024, 1, 3, 1, 0, 0, 0, loc)

	v, err := NewInterval(from, to)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), v.From)
	require.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), v.To)
	require.Equal(t, 2, v.Nights())
}

func TestOverlaps_HalfOpen(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a, b [2]string
		want bool
	}{
		{"touching end to start", [2]string{"2024-01-01", "2024-01-05"}, [2]string{"2024-01-05", "2024-01-10"}, false},
		{"touching start to end", [2]string{"2024-01-05", "2024-01-10"}, [2]string{"2024-01-01", "2024-01-05"}, false},
		{"partial overlap", [2]string{"2024-01-01", "2024-01-05"}, [2]string{"2024-01-03", "2024-01-07"}, true},
		{"contained", [2]string{"2024-01-01", "2024-01-10"}, [2]string{"2024-01-03", "2024-01-04"}, true},
		{"identical", [2]string{"2024-01-01", "2024-01-05"}, [2]string{"2024-01-01", "2024-01-05"}, true},
		{"disjoint", [2]string{"2024-01-01", "2024-01-02"}, [2]string{"2024-02-01", "2024-02-02"}, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			a := iv(t, tc.a[0], tc.a[1])
			b := iv(t, tc.b[0], tc.b[1])
			require.Equal(t, tc.want, a.Overlaps(b))
			require.Equal(t, tc.want, b.Overlaps(a), "overlap must be symmetric")
		})
	}
}

func TestFirstConflict_SkipsExcludedBooking(t *testing.T) {
	t.Parallel()

	self := models.Booking{ID: uuid.New(), DateFrom: day(t, "2024-01-01"), DateTo: day(t, "2024-01-05")}
	other := models.Booking{ID: uuid.New(), DateFrom: day(t, "2024-01-10"), DateTo: day(t, "2024-01-12")}
	booked := []models.Booking{self, other}

	_, found := FirstConflict(iv(t, "2024-01-02", "2024-01-06"), booked, self.ID)
	require.False(t, found)

	got, found := FirstConflict(iv(t, "2024-01-02", "2024-01-11"), booked, self.ID)
	require.True(t, found)
	require.Equal(t, other.ID, got.ID)

	got, found = FirstConflict(iv(t, "2024-01-02", "2024-01-03"), booked, uuid.Nil)
	require.True(t, found)
	require.Equal(t, self.ID, got.ID)
}
