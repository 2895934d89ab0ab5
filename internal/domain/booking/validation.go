package booking

import (
	"time"

	"stayscape/internal/domain/shared/daterange"
)

// ValidateDateRange checks ordering first and then that check-in is not
// before today in loc. Dates falling on midnight in loc are stored as UTC
// midnight of the same calendar day, so nights do not drift across DST.
func ValidateDateRange(checkIn, checkOut, now time.Time, loc *time.Location) (daterange.DateRange, error) {
	if checkIn.IsZero() || checkOut.IsZero() || !checkIn.Before(checkOut) {
		return daterange.DateRange{}, ErrInvalidDateRange
	}
	// a calendar date compares against today's date, an instant against midnight in loc
	threshold := startOfDay(now, loc)
	if date := CalendarDay(checkIn, loc); !date.Equal(checkIn) {
		checkIn, threshold = date, Today(now, loc)
	}
	checkOut = CalendarDay(checkOut, loc)
	if checkIn.Before(threshold) {
		return daterange.DateRange{}, ErrPastDate
	}
	dr, err := daterange.New(checkIn, checkOut)
	if err != nil {
		return daterange.DateRange{}, ErrInvalidDateRange
	}
	return dr, nil
}

// CalendarDay maps a midnight in loc to UTC midnight of that date. Other
// instants are returned unchanged.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(location(loc))
	if local.Hour() != 0 || local.Minute() != 0 || local.Second() != 0 || local.Nanosecond() != 0 {
		return t
	}
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is UTC midnight of now's calendar date in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(location(loc)).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(location(loc)).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, location(loc))
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
