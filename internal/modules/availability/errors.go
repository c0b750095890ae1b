package availability

import (
	"fmt"

	"hotelbooking/internal/domain"
)

var (
	ErrInvalidDateRange = fmt.Errorf("%w: check_in must be before check_out", domain.ErrValidation)
	ErrInvalidMonth     = fmt.Errorf("%w: month must be 1..12 and year 2000..2100", domain.ErrValidation)
	ErrInvalidTypeKey   = fmt.Errorf("%w: room type is required", domain.ErrValidation)
)
