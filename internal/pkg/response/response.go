package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hotelbooking/internal/domain"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// FromError writes the envelope for an error that wraps one of the domain
// error kinds. Unknown errors become a 500 with a generic message.
func FromError(c *gin.Context, err error) {
	status, code := Classify(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		Error(c, status, code, "Internal server error")
		return
	}
	Error(c, status, code, err.Error())
}

// Classify maps an error to its HTTP status and envelope code. Payment is
// checked before conflict so a failed automatic refund is never reported as
// a plain availability conflict.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrSignature):
		return http.StatusUnauthorized, "INVALID_SIGNATURE"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrPayment):
		return http.StatusBadGateway, "PAYMENT_ERROR"
	case errors.Is(err, domain.ErrState):
		return http.StatusConflict, "INVALID_STATE"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
