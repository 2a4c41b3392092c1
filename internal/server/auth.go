package server

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or
	// signed for a different org/user than the request claims.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNotAdmin is returned when a valid token lacks the admin claim.
	ErrNotAdmin = errors.New("admin claim required")
)

// Claims holds the JWT claims issued by the upstream identity service.
// Subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
	OrgID string `json:"org_id"`
	Admin bool   `json:"admin"`
}

// TokenValidator validates HS256 tokens against the shared secret.
type TokenValidator struct {
	secret []byte
}

func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{secret: []byte(secret)}
}

// ValidateForUser checks signature and expiry, and that the token was issued
// for exactly the given org and user. Called on the websocket handshake and
// again on every recheck interval.
func (v *TokenValidator) ValidateForUser(tokenString string, orgID, userID uuid.UUID) (*Claims, error) {
	claims, err := v.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.OrgID != orgID.String() || claims.Subject != userID.String() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateAdmin checks signature and expiry, that the token belongs to the
// given org, and that it carries the admin claim.
func (v *TokenValidator) ValidateAdmin(tokenString string, orgID uuid.UUID) (*Claims, error) {
	claims, err := v.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.OrgID != orgID.String() {
		return nil, ErrInvalidToken
	}
	if !claims.Admin {
		return nil, ErrNotAdmin
	}
	return claims, nil
}

func (v *TokenValidator) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
