package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse4")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse4", hash)

	assert.True(t, VerifyPassword("correct-horse4", hash))
	assert.False(t, VerifyPassword("wrong-password1", hash))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "secure-pass9", false},
		{"too short", "ab1", true},
		{"common", "password", true},
		{"letters only", "abcdefghij", true},
		{"numbers only", "1234567890", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
