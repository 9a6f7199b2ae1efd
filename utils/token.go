package authUtils

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// Claims carried by every session token.
const (
	ClaimUserID = "user_id"
	ClaimRole   = "role"
)

var ErrInvalidToken = errors.New("invalid authorization token")

// GenerateToken signs an HS256 JWT for the given user and role.
func GenerateToken(secret, userID, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		ClaimUserID: userID,
		ClaimRole:   role,
		"exp":       time.Now().Add(ttl).Unix(),
	})

	return token.SignedString([]byte(secret))
}

// ParseToken validates the signature and expiry and returns the user id and role.
func ParseToken(secret, tokenString string) (userID, role string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrInvalidToken
	}
	userID, _ = claims[ClaimUserID].(string)
	if userID == "" {
		return "", "", ErrInvalidToken
	}
	role, _ = claims[ClaimRole].(string)
	return userID, role, nil
}
