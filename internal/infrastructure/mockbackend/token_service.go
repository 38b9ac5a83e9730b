// Package mockbackend is a self-contained stand-in for the production
// backend: it issues JWTs, serves the session endpoints in both payload
// generations and fans realtime events out over WebSocket. It exists for
// local development and end-to-end testing of the client.
package mockbackend

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

type Claims struct {
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
	Role     domain.Role   `json:"role"`
	jwt.RegisteredClaims
}

// TokenService signs and validates access tokens with HMAC.
type TokenService struct {
	secret         []byte
	accessTokenTTL time.Duration
}

func NewTokenService(secret string, accessTokenTTL time.Duration) *TokenService {
	return &TokenService{
		secret:         []byte(secret),
		accessTokenTTL: accessTokenTTL,
	}
}

func (s *TokenService) GenerateToken(userID domain.UserID, username string, role domain.Role) (string, error) {
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
