package util

import (
	"testing"
	"time"

	"mytestbuddies_backend/internal/model"

	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{Name: "Asha", Email: "asha@example.com", Role: model.Student}
	user.ID = 42

	token, err := GenerateJWT(user, "test-secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "test-secret")
	require.NoError(t, err)
	require.Equal(t, uint(42), claims.UserID)
	require.Equal(t, "asha@example.com", claims.Email)
	require.Equal(t, model.Student, claims.Role)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	user := &model.User{Email: "asha@example.com", Role: model.Student}
	user.ID = 1

	token, err := GenerateJWT(user, "right-secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseJWT(token, "wrong-secret")
	require.Error(t, err)
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	user := &model.User{Email: "asha@example.com", Role: model.Student}
	user.ID = 1

	token, err := GenerateJWT(user, "test-secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(token, "test-secret")
	require.Error(t, err)
}
