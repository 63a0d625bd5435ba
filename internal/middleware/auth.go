package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"stockfolio/internal/config"
	apperrors "stockfolio/internal/errors"
)

const (
	issuer             = "stockfolio-api"
	accessTokenExpiry  = 15 * time.Minute
	userIDKey          = "userID"
	tokenTypeAccess    = "access"
	tokenTypeRefresh   = "refresh"
	bearerSchemePrefix = "Bearer"
)

// getJWTKey returns the JWT key from configuration
func getJWTKey() []byte {
	return []byte(config.Get().JWTSecret)
}

// JWTClaims represents the claims in the JWT. The subject is the user id.
type JWTClaims struct {
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a short-lived access token for userID. Sessions
// are issued elsewhere; this exists for tooling and tests.
func GenerateAccessToken(userID string) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(getJWTKey())
}

// AuthMiddleware verifies the bearer JWT and stores its subject as the
// user id. Refresh tokens and tokens without a subject are rejected.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, raw, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if !ok || scheme != bearerSchemePrefix || raw == "" {
			abortWith(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Bearer token is required"))
			return
		}

		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return getJWTKey(), nil
		})
		if err != nil || !token.Valid || claims.TokenType == tokenTypeRefresh || claims.Subject == "" {
			abortWith(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid or expired token"))
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Next()
	}
}
