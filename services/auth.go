package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// APIAuthService validates HS256 bearer tokens for the HTTP API. With no
// secret configured the API runs open and validation is skipped entirely.
type APIAuthService struct {
	Secret string
}

func NewAPIAuthService(secret string) *APIAuthService {
	return &APIAuthService{Secret: secret}
}

// Enabled reports whether bearer auth is enforced.
func (s *APIAuthService) Enabled() bool {
	return s.Secret != ""
}

// ExtractTokenFromHeader strips the Bearer prefix from an Authorization header.
func (s *APIAuthService) ExtractTokenFromHeader(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}
	return strings.TrimSpace(parts[1]), nil
}

// ValidateToken checks the signature and registered claims of an HS256 token.
func (s *APIAuthService) ValidateToken(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// IssueToken mints a token for operators and integrations.
func (s *APIAuthService) IssueToken(subject string, ttl time.Duration) (string, error) {
	if !s.Enabled() {
		return "", errors.New("API_JWT_SECRET is not configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Secret))
}
