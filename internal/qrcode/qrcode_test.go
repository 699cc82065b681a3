package qrcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token := EncodeToken("abc-123", "kid@example.com")
	assert.Equal(t, "STUDENT_abc-123_kid@example.com", token)

	id, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", id)
}

func TestDecodeTokenEmailWithUnderscores(t *testing.T) {
	id, err := DecodeToken(EncodeToken("id-1", "first_last@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	for _, payload := range []string{"", "TEACHER_1_x@y", "STUDENT_", "STUDENT_noemail"} {
		_, err := DecodeToken(payload)
		assert.ErrorIs(t, err, ErrInvalidToken, "payload %q", payload)
	}
}

func TestPNG(t *testing.T) {
	png, err := PNG("id-1", "kid@example.com", 128)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
	// PNG magic bytes.
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
