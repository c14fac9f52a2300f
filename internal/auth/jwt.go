package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Token kinds travel in the audience claim so one can never stand in for the other.
const (
	audienceAccess  = "restopos:access"
	audienceRefresh = "restopos:refresh"
)

var ErrNoSubject = errors.New("token carries no user")

// Claims identifies the caller. TableID is uuid.Nil unless Role is TABLE.
type Claims struct {
	UserID  uuid.UUID `json:"user_id"`
	Role    string    `json:"role"`
	TableID uuid.UUID `json:"table_id"`
	jwt.RegisteredClaims
}

func registered(audience, subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func sign(secret string, claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parse(secret, tokenStr, audience string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	return err
}

// GenerateToken issues a short-lived access token.
func GenerateToken(secret string, userID uuid.UUID, role string, tableID uuid.UUID) (string, error) {
	return sign(secret, Claims{
		UserID:           userID,
		Role:             role,
		TableID:          tableID,
		RegisteredClaims: registered(audienceAccess, userID.String(), AccessTokenTTL),
	})
}

// GenerateRefreshToken issues a token that can only be exchanged for a new pair.
func GenerateRefreshToken(secret string, userID uuid.UUID) (string, error) {
	return sign(secret, registered(audienceRefresh, userID.String(), RefreshTokenTTL))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if err := parse(secret, tokenStr, audienceAccess, claims); err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}
	if claims.UserID == uuid.Nil {
		return nil, ErrNoSubject
	}
	return claims, nil
}

// ValidateRefreshToken returns the user the refresh token was issued to.
func ValidateRefreshToken(secret, tokenStr string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	if err := parse(secret, tokenStr, audienceRefresh, claims); err != nil {
		return uuid.Nil, fmt.Errorf("refresh token: %w", err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, ErrNoSubject
	}
	return userID, nil
}
