package qrcode

import (
	"errors"
	"strings"

	qr "github.com/skip2/go-qrcode"
)

// Token is the payload encoded into a student's QR badge. Decoding the image
// back into a token is the scanner's job, not this system's; the scan
// endpoint only consumes resolved student ids.
const tokenPrefix = "STUDENT_"

// ErrInvalidToken is returned for payloads that are not student badges.
var ErrInvalidToken = errors.New("invalid student token")

// EncodeToken builds the badge payload for a student.
func EncodeToken(studentID, email string) string {
	return tokenPrefix + studentID + "_" + email
}

// DecodeToken extracts the student id from a badge payload. The email suffix
// is informational only and may itself contain underscores.
func DecodeToken(token string) (string, error) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return "", ErrInvalidToken
	}
	rest := strings.TrimPrefix(token, tokenPrefix)
	id, _, ok := strings.Cut(rest, "_")
	if !ok || id == "" {
		return "", ErrInvalidToken
	}
	return id, nil
}

// PNG renders a student badge as a QR code image.
func PNG(studentID, email string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qr.Encode(EncodeToken(studentID, email), qr.Medium, size)
}
