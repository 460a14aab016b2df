package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long an issued session token stays valid.
const TokenTTL = 24 * time.Hour

// Claims carries the identity embedded in a session token
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies signed session tokens. The signing
// secret must be provided by configuration; there is no fallback.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenManager(secret, issuer string) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	if issuer == "" {
		issuer = "tradedock"
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: TokenTTL}, nil
}

// Issue mints a signed token bound to the given user id, expiring TokenTTL
// from now.
func (tm *TokenManager) Issue(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id required")
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Verify checks signature and expiry. Expired, malformed, wrongly signed
// and empty tokens all come back as a nil claims pointer with an error;
// callers collapse every failure to "unauthenticated".
func (tm *TokenManager) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("no token provided")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// ExtractBearer pulls the token out of an Authorization header
func ExtractBearer(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return parts[1], nil
}
