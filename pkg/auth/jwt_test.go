package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateJWT(t *testing.T) {
	jwtService := NewJWTService(testSecret)

	tests := []struct {
		name        string
		subject     string
		expectedErr error
	}{
		{name: "user token", subject: "123456789012345678"},
		{name: "empty subject", subject: "", expectedErr: ErrInvalidClaims},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwtService.GenerateJWT(tt.subject, RoleUser, time.Now().Add(time.Hour))
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Empty(t, token)
				return
			}
			assert.NoError(t, err)
			assert.NotEmpty(t, token)
		})
	}
}

func TestValidateToken(t *testing.T) {
	jwtService := NewJWTService(testSecret)

	sign := func(claims jwt.Claims, secret string) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name        string
		setup       func() string
		expectedErr error
		role        Role
	}{
		{
			name: "valid admin token",
			setup: func() string {
				token, _ := jwtService.GenerateJWT("admin", RoleAdmin, time.Now().Add(time.Hour))
				return token
			},
			role: RoleAdmin,
		},
		{
			name:        "garbage",
			setup:       func() string { return "invalid.token.string" },
			expectedErr: ErrInvalidToken,
		},
		{
			name: "expired",
			setup: func() string {
				token, _ := jwtService.GenerateJWT("42", RoleUser, time.Now().Add(-time.Hour))
				return token
			},
			expectedErr: ErrInvalidToken,
		},
		{
			name: "signed with another secret",
			setup: func() string {
				token, _ := NewJWTService("other").GenerateJWT("42", RoleUser, time.Now().Add(time.Hour))
				return token
			},
			expectedErr: ErrInvalidToken,
		},
		{
			name: "missing user id",
			setup: func() string {
				return sign(jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix(), Issuer: issuer}, testSecret)
			},
			expectedErr: ErrInvalidClaims,
		},
		{
			name: "unknown role",
			setup: func() string {
				return sign(Claims{
					UserID:         "42",
					Role:           "root",
					StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix(), Issuer: issuer},
				}, testSecret)
			},
			expectedErr: ErrInvalidClaims,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := jwtService.ValidateToken(tt.setup())
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.role, claims.Role)
		})
	}
}
