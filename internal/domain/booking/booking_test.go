package booking

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayscape/internal/domain/shared/daterange"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newConfirmed(t *testing.T, in, out time.Time) *Booking {
	t.Helper()
	dr, err := daterange.New(in, out)
	require.NoError(t, err)
	b, err := NewBooking(CreateParams{
		ID:           "b1",
		ListingID:    "l1",
		GuestID:      "guest",
		Range:        dr,
		NightlyPrice: 100,
		CreatedAt:    day(2024, 5, 1),
	})
	require.NoError(t, err)
	return b
}

func TestNewBookingSnapshotsTotalAndDefaultsGuests(t *testing.T) {
	b := newConfirmed(t, day(2024, 6, 1), day(2024, 6, 4))
	assert.Equal(t, int64(300), b.TotalPrice)
	assert.Equal(t, 1, b.Guests)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, int64(1), b.Version)

	pending := b.PendingEvents()
	require.Len(t, pending, 1)
	assert.Equal(t, "booking.created", pending[0].EventName())
}

func TestNormalizeGuests(t *testing.T) {
	n, err := NormalizeGuests(0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = NormalizeGuests(10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = NormalizeGuests(11)
	assert.ErrorIs(t, err, ErrInvalidGuests)
	_, err = NormalizeGuests(-1)
	assert.ErrorIs(t, err, ErrInvalidGuests)
}

func TestValidateDateRangeOrder(t *testing.T) {
	now := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)

	_, err := ValidateDateRange(day(2024, 6, 4), day(2024, 6, 1), now, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	// an inverted range in the past still reports the range error first
	_, err = ValidateDateRange(day(2024, 5, 4), day(2024, 5, 1), now, time.UTC)
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = ValidateDateRange(day(2024, 5, 31), day(2024, 6, 2), now, time.UTC)
	assert.ErrorIs(t, err, ErrPastDate)

	dr, err := ValidateDateRange(day(2024, 6, 1), day(2024, 6, 2), now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, dr.Nights())
}

func TestValidateDateRangeUsesConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	// 2024-06-01 20:00 UTC is already June 2nd in loc
	now := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	_, err := ValidateDateRange(time.Date(2024, 6, 1, 0, 0, 0, 0, loc), time.Date(2024, 6, 3, 0, 0, 0, 0, loc), now, loc)
	assert.ErrorIs(t, err, ErrPastDate)

	_, err = ValidateDateRange(time.Date(2024, 6, 2, 0, 0, 0, 0, loc), time.Date(2024, 6, 3, 0, 0, 0, 0, loc), now, loc)
	assert.NoError(t, err)
}

func TestNightsIgnoreDaylightSavingShift(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		in, out time.Time
	}{
		{"autumn", time.Date(2024, 10, 26, 0, 0, 0, 0, loc), time.Date(2024, 10, 29, 0, 0, 0, 0, loc)},
		{"spring", time.Date(2024, 3, 30, 0, 0, 0, 0, loc), time.Date(2024, 4, 2, 0, 0, 0, 0, loc)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dr, err := ValidateDateRange(tc.in, tc.out, now, loc)
			require.NoError(t, err)
			assert.Equal(t, 3, dr.Nights())
			assert.Equal(t, int64(300), TotalPrice(100, dr))
			y, m, d := tc.in.Date()
			assert.True(t, dr.CheckIn.Equal(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)))
		})
	}
}

func TestValidateDateRangeKeepsInstants(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	in := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	dr, err := ValidateDateRange(in, in.Add(49*time.Hour), now, loc)
	require.NoError(t, err)
	assert.True(t, dr.CheckIn.Equal(in))
	assert.Equal(t, 3, dr.Nights())

	// 21:00 UTC on May 31st is 23:00 of the previous day in loc
	_, err = ValidateDateRange(time.Date(2024, 5, 31, 21, 0, 0, 0, time.UTC), in, now, loc)
	assert.ErrorIs(t, err, ErrPastDate)
}

func TestCancelRules(t *testing.T) {
	b := newConfirmed(t, day(2024, 6, 10), day(2024, 6, 12))
	b.Drain()

	_, err := b.Cancel("someone-else", day(2024, 6, 1))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = b.Cancel("guest", day(2024, 6, 10))
	assert.ErrorIs(t, err, ErrAlreadyStarted)
	assert.Equal(t, StatusConfirmed, b.Status)

	changed, err := b.Cancel("guest", day(2024, 6, 9))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusCancelled, b.Status)
	assert.Len(t, b.Drain(), 1)

	changed, err = b.Cancel("guest", day(2024, 6, 9))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, b.PendingEvents())
}

func TestCompleteOnlyAfterCheckout(t *testing.T) {
	b := newConfirmed(t, day(2024, 6, 10), day(2024, 6, 12))
	assert.ErrorIs(t, b.Complete(day(2024, 6, 11)), ErrInvalidState)
	require.NoError(t, b.Complete(day(2024, 6, 12)))
	assert.Equal(t, StatusCompleted, b.Status)
	assert.True(t, b.Status.OccupiesDates())
	assert.ErrorIs(t, b.Complete(day(2024, 6, 13)), ErrInvalidState)
}

func TestConflictsWithIgnoresCancelled(t *testing.T) {
	existing := newConfirmed(t, day(2024, 6, 10), day(2024, 6, 15))
	candidate := daterange.DateRange{CheckIn: day(2024, 6, 12), CheckOut: day(2024, 6, 18)}
	assert.True(t, ConflictsWith(existing, "l1", candidate))
	assert.False(t, ConflictsWith(existing, "other", candidate))

	existing.Status = StatusCancelled
	assert.False(t, ConflictsWith(existing, "l1", candidate))
}
