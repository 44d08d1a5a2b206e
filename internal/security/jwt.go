package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token audiences keep admin and customer tokens from being interchangeable
// even when both are signed with the same secret.
const (
	tokenIssuer   = "storefront"
	userAudience  = "storefront:user"
	adminAudience = "storefront:admin"
)

var (
	// ErrInvalidToken indicates a token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token has expired.
	ErrExpiredToken = errors.New("token expired")
)

// UserClaims carries a storefront customer's identity. UserID is the
// identity provider's subject.
type UserClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AdminClaims carries an administrator's identity.
type AdminClaims struct {
	AdminID  uint64 `json:"admin_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func registered(audience string, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now().UTC()
	return jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func sign(secret string, claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// parseClaims verifies signature, issuer, audience and expiry, mapping every
// failure onto ErrExpiredToken or ErrInvalidToken.
func parseClaims[C jwt.Claims](secret, raw, audience string, claims C) (C, error) {
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(audience),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return claims, ErrExpiredToken
	case err != nil || !token.Valid:
		return claims, ErrInvalidToken
	}
	return claims, nil
}

// GenerateToken signs a customer token valid for ttl.
func GenerateToken(secret, userID, username, name, email string, ttl time.Duration) (string, error) {
	return sign(secret, UserClaims{
		UserID:           userID,
		Username:         username,
		Name:             name,
		Email:            email,
		RegisteredClaims: registered(userAudience, ttl),
	})
}

// ParseToken validates a customer token.
func ParseToken(secret, raw string) (*UserClaims, error) {
	claims, err := parseClaims(secret, raw, userAudience, &UserClaims{})
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateAdminToken signs an administrator token valid for ttl.
func GenerateAdminToken(secret string, adminID uint64, username string, ttl time.Duration) (string, error) {
	return sign(secret, AdminClaims{
		AdminID:          adminID,
		Username:         username,
		RegisteredClaims: registered(adminAudience, ttl),
	})
}

// ParseAdminToken validates an administrator token.
func ParseAdminToken(secret, raw string) (*AdminClaims, error) {
	claims, err := parseClaims(secret, raw, adminAudience, &AdminClaims{})
	if err != nil {
		return nil, err
	}
	if claims.AdminID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
