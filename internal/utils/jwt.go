package utils

import (
	"errors"
	"time" // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
	"github.com/google/uuid"       // Random JTI for refresh tokens
)

// Token lifetimes. The access token is short-lived; the refresh token is
// longer-lived and individually revocable by its JTI.
const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Token type claim values
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// JWT Claims
type Claims struct {
	UserID               uint   `json:"user_id"`    // Custom claim for user ID
	TokenType            string `json:"token_type"` // access or refresh
	jwt.RegisteredClaims        // Standard JWT claims
}

// TokenPair holds the session materials issued at login
type TokenPair struct {
	AccessToken  string `json:"access"`  // Short-lived access credential
	RefreshToken string `json:"refresh"` // Longer-lived refresh credential
}

// GenerateTokenPair creates an access and refresh token for a user
func GenerateTokenPair(userID uint, secret string) (TokenPair, error) {
	access, err := signToken(userID, TokenTypeAccess, AccessTokenTTL, secret)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := signToken(userID, TokenTypeRefresh, RefreshTokenTTL, secret)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// GenerateAccessToken mints a fresh short-lived access token
func GenerateAccessToken(userID uint, secret string) (string, error) {
	return signToken(userID, TokenTypeAccess, AccessTokenTTL, secret)
}

// signToken builds and signs a token of the given type and lifetime
func signToken(userID uint, tokenType string, ttl time.Duration, secret string) (string, error) {
	claims := Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(), // JTI keys the revocation list
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString([]byte(secret))                  // Sign the token with the secret
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// ParseRefreshToken parses a token and requires the refresh type claim
func ParseRefreshToken(tokenStr, secret string) (*Claims, error) {
	claims, err := ParseJWT(tokenStr, secret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, errors.New("not a refresh token")
	}
	return claims, nil
}
