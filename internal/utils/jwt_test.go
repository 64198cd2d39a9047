package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateAndExtract(t *testing.T) {
	s := NewJWTService("test-secret")

	token, err := s.GenerateToken("a1b2c3d4-0000-0000-0000-000000000001")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	userID, err := s.ExtractUserID(token)
	assert.NoError(t, err)
	assert.Equal(t, "a1b2c3d4-0000-0000-0000-000000000001", userID)
}

func TestExtractRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-one").GenerateToken("user-id")
	assert.NoError(t, err)

	_, err = NewJWTService("secret-two").ExtractUserID(token)
	assert.Error(t, err)
}

func TestExtractRejectsGarbage(t *testing.T) {
	s := NewJWTService("test-secret")

	_, err := s.ExtractUserID("not-a-token")
	assert.Error(t, err)
}
