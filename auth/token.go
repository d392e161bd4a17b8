package auth

import (
	"collab-gateway/domain"
	"collab-gateway/errors"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims defines the structure of the data stored inside the JWT.
// The principal ID travels in the standard "sub" claim.
type CustomClaims struct {
	DisplayName string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 credentials presented at handshake.
type TokenIssuer struct {
	secret []byte
	issuer string
	clock  clock.Clock
}

func NewTokenIssuer(secret []byte, issuer string, clk clock.Clock) TokenIssuer {
	return TokenIssuer{secret: secret, issuer: issuer, clock: clk}
}

// GenerateToken creates a signed JWT for a specific principal.
func (t TokenIssuer) GenerateToken(principal domain.Principal, duration time.Duration) (string, error) {
	now := t.clock.Now()
	claims := &CustomClaims{
		DisplayName: principal.DisplayName,
		Email:       principal.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(principal.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    t.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ValidateToken parses and validates the signature and expiration of a JWT string.
// It returns errors.ErrExpiredToken for an expired credential and
// errors.ErrInvalidToken for anything else that fails verification.
func (t TokenIssuer) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.clock.Now),
	)
	switch {
	case stderrors.Is(err, jwt.ErrTokenExpired):
		return nil, errors.ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}
