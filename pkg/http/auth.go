package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// AdminClaims is what an operator token must carry to reach the
// maintenance routes.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth validates HS256 operator tokens. Tokens are issued elsewhere;
// GenerateToken exists for tooling and tests.
type AdminAuth struct {
	secret []byte
	role   string
}

func NewAdminAuth(secret, role string) *AdminAuth {
	return &AdminAuth{secret: []byte(secret), role: role}
}

func (a *AdminAuth) ValidateToken(tokenString string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (a *AdminAuth) GenerateToken(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Middleware requires a bearer token with the admin role
func (a *AdminAuth) Middleware(rs *RestfulServer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			rs.fail(c, http.StatusUnauthorized, &apiError{Kind: "unauthorized", Message: "missing or malformed bearer token"})
			return
		}

		claims, err := a.ValidateToken(parts[1])
		if err != nil {
			rs.fail(c, http.StatusUnauthorized, &apiError{Kind: "unauthorized", Message: "invalid or expired token"})
			return
		}
		if claims.Role != a.role {
			rs.fail(c, http.StatusForbidden, &apiError{Kind: "forbidden", Message: "admin role required"})
			return
		}

		c.Set(contextKeyPrincipal, claims.Subject)
		c.Next()
	}
}
