package room

import (
	"fmt"
	"sort"
	"strings"

	"hotelbooking/internal/domain"
)

var (
	ErrRoomNotFound      = fmt.Errorf("%w: room not found", domain.ErrNotFound)
	ErrRoomInUse         = fmt.Errorf("%w: room has bookings and cannot be deleted", domain.ErrConflict)
	ErrExternalRoomTaken = fmt.Errorf("%w: external room id already mapped", domain.ErrConflict)
)

// FieldErrors lists the room fields that failed validation.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, rule := range e {
		parts = append(parts, field+" "+rule)
	}
	sort.Strings(parts)
	return "invalid room: " + strings.Join(parts, ", ")
}

func (e FieldErrors) Is(target error) bool {
	return target == domain.ErrValidation
}
