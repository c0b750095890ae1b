package domain

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// MaxStayNights bounds a single booking.
const MaxStayNights = 365

// NormalizeDate drops the clock part and moves the date to UTC midnight.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrValidation, s)
	}
	return t, nil
}

// NightCount returns the number of nights in [checkIn, checkOut).
func NightCount(checkIn, checkOut time.Time) int {
	in, out := NormalizeDate(checkIn), NormalizeDate(checkOut)
	if !in.Before(out) {
		return 0
	}
	return int(out.Sub(in).Hours() / 24)
}

// NightsBetween lists every night in [checkIn, checkOut).
func NightsBetween(checkIn, checkOut time.Time) []time.Time {
	in, out := NormalizeDate(checkIn), NormalizeDate(checkOut)
	var nights []time.Time
	for d := in; d.Before(out); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d)
	}
	return nights
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share a night.
// Touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ValidateStay checks that checkOut follows checkIn and the stay is at most
// MaxStayNights long.
func ValidateStay(checkIn, checkOut time.Time) error {
	if !NormalizeDate(checkIn).Before(NormalizeDate(checkOut)) {
		return fmt.Errorf("%w: check-in must be before check-out", ErrValidation)
	}
	if n := NightCount(checkIn, checkOut); n > MaxStayNights {
		return fmt.Errorf("%w: stay of %d nights exceeds %d", ErrValidation, n, MaxStayNights)
	}
	return nil
}
