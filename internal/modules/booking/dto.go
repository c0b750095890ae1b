package booking

import "hotelbooking/internal/domain"

type GuestRequest struct {
	FirstName       string `json:"first_name" binding:"required"`
	LastName        string `json:"last_name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Phone           string `json:"phone"`
	SpecialRequests string `json:"special_requests"`
	Language        string `json:"language"`
}

type CreateBookingRequest struct {
	RoomID   int64  `json:"room_id" binding:"required"`
	CheckIn  string `json:"check_in" binding:"required"`
	CheckOut string `json:"check_out" binding:"required"`
	Adults   int    `json:"adults"`
	Children int    `json:"children"`
	// TotalAmount overrides the nights x price quote when set.
	TotalAmount *float64     `json:"total_amount"`
	Guest       GuestRequest `json:"guest" binding:"required"`
}

type IntentResponse struct {
	IntentID    string  `json:"intent_id"`
	ClientToken string  `json:"client_token"`
	Amount      float64 `json:"amount"`
	AmountMinor int64   `json:"amount_minor"`
	Currency    string  `json:"currency"`
}

type ConfirmCardRequest struct {
	IntentID string `json:"intent_id" binding:"required"`
}

type CancelBookingRequest struct {
	Reason       string   `json:"reason"`
	RefundAmount *float64 `json:"refund_amount"`
	AdminNotes   string   `json:"admin_notes"`
}

type CancelResult struct {
	Booking      *domain.Booking `json:"booking"`
	RefundAmount float64         `json:"refund_amount"`
	RefundRef    string          `json:"refund_ref,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

type BulkStatusRequest struct {
	IDs    []int64 `json:"ids"`
	Status string  `json:"status" binding:"required"`
}

type BulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

type BulkResult struct {
	Affected int `json:"affected"`
}

type ListBookingsQuery struct {
	Status string `form:"status"`
	RoomID int64  `form:"room_id"`
	Email  string `form:"email"`
	From   string `form:"from"`
	To     string `form:"to"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

type ListBookingsResponse struct {
	Items []domain.Booking `json:"items"`
	Total int64            `json:"total"`
}
