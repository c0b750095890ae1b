package channel

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"hotelbooking/internal/domain"
)

const SignatureHeader = "X-Channel-Signature"

var ErrInvalidSignature = fmt.Errorf("%w: channel webhook signature mismatch", domain.ErrSignature)

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks header against the raw body. A "sha256=" prefix
// is accepted.
func VerifySignature(secret string, body []byte, header string) error {
	if secret == "" {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(header), "sha256="))
	if err != nil || len(got) == 0 {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}
