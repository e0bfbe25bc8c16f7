package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestSubjectFromToken(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{"sub": "user123"})

	sub, err := SubjectFromToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "user123", sub)
}

func TestSubjectFromTokenMissingSubject(t *testing.T) {
	raw := signedToken(t, jwt.MapClaims{"email": "someone@example.com"})

	_, err := SubjectFromToken(raw)
	assert.Error(t, err)
}

func TestSubjectFromTokenRejectsGarbage(t *testing.T) {
	_, err := SubjectFromToken("not-a-jwt")
	assert.Error(t, err)

	_, err = SubjectFromToken("")
	assert.Error(t, err)
}
