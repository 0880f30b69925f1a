package utils

import (
	"errors"
	"time"

	"servicehub/config"

	"github.com/golang-jwt/jwt"
)

// ErrNoJWTSecret is returned when JWT_SECRET is not configured. Admin
// endpoints stay closed in that case.
var ErrNoJWTSecret = errors.New("JWT_SECRET is not configured")

func secretKey() ([]byte, error) {
	if config.AppConfig.JWTSecret == "" {
		return nil, ErrNoJWTSecret
	}
	return []byte(config.AppConfig.JWTSecret), nil
}

// GenerateAdminToken creates a signed token carrying role=ADMIN for subject.
func GenerateAdminToken(subject string, duration time.Duration) (string, error) {
	key, err := secretKey()
	if err != nil {
		return "", err
	}
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": "ADMIN",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// ValidateToken parses and validates a token string and returns its claims.
func ValidateToken(tokenString string) (jwt.MapClaims, error) {
	key, err := secretKey()
	if err != nil {
		return nil, err
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
