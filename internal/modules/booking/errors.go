package booking

import (
	"fmt"

	"hotelbooking/internal/domain"
)

var (
	ErrInvalidDateRange  = fmt.Errorf("%w: check_in must be before check_out", domain.ErrValidation)
	ErrInvalidGuests     = fmt.Errorf("%w: adults must be at least 1 and children cannot be negative", domain.ErrValidation)
	ErrInvalidAmount     = fmt.Errorf("%w: amount cannot be negative", domain.ErrValidation)
	ErrGuestInfoRequired = fmt.Errorf("%w: guest first name, last name and email are required", domain.ErrValidation)
	ErrCapacityExceeded  = fmt.Errorf("%w: party size exceeds room capacity", domain.ErrValidation)
	ErrInvalidStatus     = fmt.Errorf("%w: unknown booking status", domain.ErrValidation)
	ErrInvalidRefund     = fmt.Errorf("%w: refund amount must be between 0 and the booking total", domain.ErrValidation)
	ErrChannelRefund     = fmt.Errorf("%w: channel bookings are refunded on the channel", domain.ErrValidation)
	ErrNoIdsProvided     = fmt.Errorf("%w: no booking ids provided", domain.ErrValidation)
	ErrRoomNotFound      = fmt.Errorf("%w: room not found", domain.ErrNotFound)
	ErrBookingNotFound   = fmt.Errorf("%w: booking not found", domain.ErrNotFound)
	ErrIntentNotFound    = fmt.Errorf("%w: payment intent not found", domain.ErrNotFound)
	ErrNoMatchingRecords = fmt.Errorf("%w: no bookings matched", domain.ErrNotFound)
	ErrRoomNotAvailable  = fmt.Errorf("%w: room is not available for the selected dates", domain.ErrConflict)
	ErrInvalidTransition = fmt.Errorf("%w: status transition not allowed", domain.ErrState)
	ErrIntentClosed      = fmt.Errorf("%w: payment intent is no longer open", domain.ErrState)
	ErrAmountMismatch    = fmt.Errorf("%w: captured amount does not match the quote", domain.ErrPayment)
)
