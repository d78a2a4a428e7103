package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hashService := &HashService{Cost: bcrypt.MinCost}

	tests := []struct {
		name        string
		password    string
		expectedErr error
	}{
		{
			name:     "valid password",
			password: "s3cret-operator",
		},
		{
			name:        "empty password",
			password:    "",
			expectedErr: ErrEmptyPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashed, err := hashService.HashPassword(tt.password)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Empty(t, hashed)
				return
			}
			assert.NoError(t, err)
			assert.NotEqual(t, tt.password, hashed)
		})
	}
}

func TestComparePassword(t *testing.T) {
	hashService := &HashService{Cost: bcrypt.MinCost}
	hashed, err := hashService.HashPassword("s3cret-operator")
	assert.NoError(t, err)

	tests := []struct {
		name     string
		hashed   string
		password string
		match    bool
	}{
		{name: "matching", hashed: hashed, password: "s3cret-operator", match: true},
		{name: "wrong password", hashed: hashed, password: "guess", match: false},
		{name: "empty password", hashed: hashed, password: "", match: false},
		{name: "no hash configured", hashed: "", password: "s3cret-operator", match: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, hashService.ComparePassword(tt.hashed, tt.password))
		})
	}
}
