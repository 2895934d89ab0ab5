package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewRejectsEmptyOrInvertedRange(t *testing.T) {
	_, err := New(date(2024, 6, 4), date(2024, 6, 1))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(date(2024, 6, 1), date(2024, 6, 1))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(time.Time{}, date(2024, 6, 1))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestNightsRoundsUp(t *testing.T) {
	dr, err := New(date(2024, 6, 1), date(2024, 6, 4))
	require.NoError(t, err)
	assert.Equal(t, 3, dr.Nights())

	dr, err = New(date(2024, 6, 1), date(2024, 6, 2).Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, dr.Nights())

	assert.Equal(t, 0, DateRange{}.Nights())
}

func TestOverlapsMatchesThreeClausePredicate(t *testing.T) {
	existing := DateRange{CheckIn: date(2024, 6, 10), CheckOut: date(2024, 6, 15)}

	threeClause := func(b, c DateRange) bool {
		startsInside := !b.CheckIn.After(c.CheckIn) && c.CheckIn.Before(b.CheckOut)
		endsInside := b.CheckIn.Before(c.CheckOut) && !c.CheckOut.After(b.CheckOut)
		contains := !c.CheckIn.After(b.CheckIn) && !b.CheckOut.After(c.CheckOut)
		return startsInside || endsInside || contains
	}

	for in := 5; in <= 20; in++ {
		for out := in + 1; out <= 21; out++ {
			candidate := DateRange{CheckIn: date(2024, 6, in), CheckOut: date(2024, 6, out)}
			assert.Equal(t, threeClause(existing, candidate), existing.Overlaps(candidate), "candidate %d..%d", in, out)
			assert.Equal(t, existing.Overlaps(candidate), candidate.Overlaps(existing))
		}
	}
}

func TestBackToBackStaysDoNotOverlap(t *testing.T) {
	first := DateRange{CheckIn: date(2024, 6, 1), CheckOut: date(2024, 6, 4)}
	second := DateRange{CheckIn: date(2024, 6, 4), CheckOut: date(2024, 6, 6)}
	assert.False(t, first.Overlaps(second))
}
