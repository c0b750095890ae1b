package availability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"hotelbooking/internal/config"
	"hotelbooking/internal/domain"
)

type DayStatus string

const (
	DayBooked    DayStatus = "booked"
	DayLimited   DayStatus = "limited"
	DayAvailable DayStatus = "available"
)

type DayAvailability struct {
	AvailableCount int64     `json:"available_count"`
	TotalCount     int64     `json:"total_count"`
	Status         DayStatus `json:"status"`
}

// Calendar is keyed by date in YYYY-MM-DD form.
type Calendar map[string]DayAvailability

// Service answers availability questions. It never writes.
type Service struct {
	bookings BookingReader
	rooms    RoomReader
	policy   config.AvailabilityPolicy
	cache    CalendarCache
	group    singleflight.Group
	loggerf  func(format string, args ...interface{})

	// generations count local invalidations so a calendar computed across a
	// write is never stored.
	genMu    sync.Mutex
	genAll   uint64
	genMonth map[string]uint64
}

// NewService builds the availability engine. cache may be nil.
func NewService(bookings BookingReader, rooms RoomReader, policy config.AvailabilityPolicy, cache CalendarCache, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{
		bookings: bookings,
		rooms:    rooms,
		policy:   policy,
		cache:    cache,
		loggerf:  loggerf,
		genMonth: map[string]uint64{},
	}
}

// IsRoomAvailable reports whether no non-cancelled booking of the room
// overlaps [checkIn, checkOut). excludeBookingID skips one booking, 0 skips none.
func (s *Service) IsRoomAvailable(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) (bool, error) {
	checkIn, checkOut = domain.NormalizeDate(checkIn), domain.NormalizeDate(checkOut)
	if !checkIn.Before(checkOut) {
		return false, ErrInvalidDateRange
	}
	n, err := s.bookings.CountOverlapping(ctx, roomID, checkIn, checkOut, excludeBookingID)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// AvailableUnitsOfType returns the free units of a pooled room type, floored at 0.
func (s *Service) AvailableUnitsOfType(ctx context.Context, typeKey string, checkIn, checkOut time.Time) (int64, error) {
	if typeKey == "" {
		return 0, ErrInvalidTypeKey
	}
	checkIn, checkOut = domain.NormalizeDate(checkIn), domain.NormalizeDate(checkOut)
	if !checkIn.Before(checkOut) {
		return 0, ErrInvalidDateRange
	}
	total, err := s.rooms.SumUnitsOfType(ctx, typeKey)
	if err != nil {
		return 0, err
	}
	overlapping, err := s.bookings.CountOverlappingOfType(ctx, typeKey, checkIn, checkOut)
	if err != nil {
		return 0, err
	}
	if free := total - overlapping; free > 0 {
		return free, nil
	}
	return 0, nil
}

// MonthlyAggregate returns one entry per calendar day of the month.
func (s *Service) MonthlyAggregate(ctx context.Context, year int, month time.Month) (Calendar, error) {
	if month < time.January || month > time.December || year < 2000 || year > 2100 {
		return nil, ErrInvalidMonth
	}
	key := monthKey(year, month)

	if s.cache != nil {
		cal, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.loggerf("level=warn msg=\"calendar cache read failed\" key=%s err=%v", key, err)
		} else if ok {
			return cal, nil
		}
	}

	gen := s.generation(key)
	v, err, _ := s.group.Do(fmt.Sprintf("%s#%d", key, gen), func() (interface{}, error) {
		cal, err := s.computeMonth(ctx, year, month)
		if err != nil {
			return nil, err
		}
		s.store(ctx, key, gen, cal)
		return cal, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Calendar), nil
}

// store caches cal unless the month was invalidated after gen was read. An
// invalidation racing the write is repaired by deleting the entry again.
func (s *Service) store(ctx context.Context, key string, gen uint64, cal Calendar) {
	if s.cache == nil || s.generation(key) != gen {
		return
	}
	if err := s.cache.Set(ctx, key, cal); err != nil {
		s.loggerf("level=warn msg=\"calendar cache write failed\" key=%s err=%v", key, err)
		return
	}
	if s.generation(key) != gen {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.loggerf("level=warn msg=\"calendar cache invalidation failed\" keys=%v err=%v", []string{key}, err)
		}
	}
}

func (s *Service) generation(key string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.genAll + s.genMonth[key]
}

func (s *Service) bump(keys ...string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if len(keys) == 0 {
		s.genAll++
		return
	}
	for _, k := range keys {
		s.genMonth[k]++
	}
}

func (s *Service) computeMonth(ctx context.Context, year int, month time.Month) (Calendar, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)

	total, err := s.rooms.SumActiveUnits(ctx)
	if err != nil {
		return nil, err
	}
	spans, err := s.bookings.ListActiveSpans(ctx, first, next)
	if err != nil {
		return nil, err
	}

	cal := make(Calendar, 31)
	for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
		var booked int64
		for _, sp := range spans {
			in, out := domain.NormalizeDate(sp.CheckIn), domain.NormalizeDate(sp.CheckOut)
			if !d.Before(in) && d.Before(out) {
				booked++
			}
		}
		free := total - booked
		if free < 0 {
			free = 0
		}
		cal[d.Format(domain.DateLayout)] = DayAvailability{
			AvailableCount: free,
			TotalCount:     total,
			Status:         s.classify(free),
		}
	}
	return cal, nil
}

func (s *Service) classify(free int64) DayStatus {
	switch {
	case free <= 0:
		return DayBooked
	case free <= int64(s.policy.LimitedMax):
		return DayLimited
	default:
		return DayAvailable
	}
}

// InvalidateStay drops cached calendars for every month the stay touches.
func (s *Service) InvalidateStay(ctx context.Context, checkIn, checkOut time.Time) {
	if s.cache == nil {
		return
	}
	checkIn, checkOut = domain.NormalizeDate(checkIn), domain.NormalizeDate(checkOut)
	var keys []string
	for m := time.Date(checkIn.Year(), checkIn.Month(), 1, 0, 0, 0, 0, time.UTC); m.Before(checkOut); m = m.AddDate(0, 1, 0) {
		keys = append(keys, monthKey(m.Year(), m.Month()))
	}
	if len(keys) == 0 {
		return
	}
	s.bump(keys...)
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.loggerf("level=warn msg=\"calendar cache invalidation failed\" keys=%v err=%v", keys, err)
	}
}

// InvalidateAll drops every cached calendar.
func (s *Service) InvalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.bump()
	if err := s.cache.Flush(ctx); err != nil {
		s.loggerf("level=warn msg=\"calendar cache flush failed\" err=%v", err)
	}
}

func monthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}
