package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrattend/internal/identity"
)

func TestIssueAndParse(t *testing.T) {
	token, exp, err := Issue("teacher-1", identity.RoleTeacher, "qrattend", "secret", time.Hour)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := Parse(token, "secret", "qrattend")
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", claims.Subject)
	assert.Equal(t, identity.RoleTeacher, claims.Role)
}

func TestParseRejectsWrongKey(t *testing.T) {
	token, _, err := Issue("student-1", identity.RoleStudent, "qrattend", "secret", time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, "other-secret", "qrattend")
	require.Error(t, err)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	token, _, err := Issue("student-1", identity.RoleStudent, "someone-else", "secret", time.Hour)
	require.NoError(t, err)

	_, err = Parse(token, "secret", "qrattend")
	require.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	token, _, err := Issue("student-1", identity.RoleStudent, "qrattend", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = Parse(token, "secret", "qrattend")
	require.Error(t, err)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}
