package utils

import (
	"errors"
	"time"

	"advisorbot/config"

	"github.com/golang-jwt/jwt"
)

func sessionSecret() []byte {
	secret := config.AppConfig.SessionSecret
	if secret == "" {
		secret = "advisorbot-dev"
	}
	return []byte(secret)
}

// GenerateSessionToken creates a signed JWT carrying the chat session ID.
// The token expires after the specified duration.
func GenerateSessionToken(sessionID string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": sessionID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(sessionSecret())
}

// ValidateSessionToken parses and validates a token string.
func ValidateSessionToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return sessionSecret(), nil
	})
}

// SessionIDFromToken extracts the session ID (subject) from a valid token.
func SessionIDFromToken(tokenString string) (string, error) {
	token, err := ValidateSessionToken(tokenString)
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("token does not contain a valid 'sub' claim")
	}

	return sub, nil
}
