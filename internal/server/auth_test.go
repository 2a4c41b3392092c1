package server

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenValidator_ValidateForUser(t *testing.T) {
	orgID, userID := uuid.New(), uuid.New()
	validator := NewTokenValidator(testSecret)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{
			name:  "accepts matching token",
			token: signToken(t, orgID, userID, false, time.Minute),
		},
		{
			name:    "rejects expired token",
			token:   signToken(t, orgID, userID, false, -time.Minute),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "rejects token for another org",
			token:   signToken(t, uuid.New(), userID, false, time.Minute),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "rejects token for another user",
			token:   signToken(t, orgID, uuid.New(), false, time.Minute),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "rejects garbage",
			token:   "not.a.token",
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := validator.ValidateForUser(tt.token, orgID, userID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, userID.String(), claims.Subject)
		})
	}
}

func TestTokenValidator_RejectsWrongSecret(t *testing.T) {
	orgID, userID := uuid.New(), uuid.New()
	validator := NewTokenValidator("another-secret-another-secret-12")

	_, err := validator.ValidateForUser(signToken(t, orgID, userID, false, time.Minute), orgID, userID)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenValidator_RejectsUnsignedAlgorithm(t *testing.T) {
	orgID, userID := uuid.New(), uuid.New()
	validator := NewTokenValidator(testSecret)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		OrgID: orgID.String(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = validator.ValidateForUser(token, orgID, userID)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenValidator_ValidateAdmin(t *testing.T) {
	orgID := uuid.New()
	validator := NewTokenValidator(testSecret)

	_, err := validator.ValidateAdmin(signToken(t, orgID, uuid.New(), true, time.Minute), orgID)
	require.NoError(t, err)

	_, err = validator.ValidateAdmin(signToken(t, orgID, uuid.New(), false, time.Minute), orgID)
	require.ErrorIs(t, err, ErrNotAdmin)

	_, err = validator.ValidateAdmin(signToken(t, uuid.New(), uuid.New(), true, time.Minute), orgID)
	require.ErrorIs(t, err, ErrInvalidToken)
}
