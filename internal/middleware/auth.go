package middleware

import (
	"net/http"
	"strings"

	"github.com/cjmurphy27/barn-management-sub000/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ClaimsKey = "claims"

	// RoleAdmin may act on any barn.
	RoleAdmin = "admin"
)

// JWTClaims are the custom claims embedded in every access token. Tokens
// are issued elsewhere; this service only verifies them.
type JWTClaims struct {
	UserID  string   `json:"user_id"`
	Role    string   `json:"role"`
	BarnIDs []string `json:"barn_ids"`
	jwt.RegisteredClaims
}

// CanAccess reports whether the token grants access to barnID.
func (c *JWTClaims) CanAccess(barnID string) bool {
	if c.Role == RoleAdmin {
		return true
	}
	for _, id := range c.BarnIDs {
		if strings.EqualFold(id, barnID) {
			return true
		}
	}
	return false
}

// JWTAuth validates the Bearer token on every protected route.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New(apierror.CodeUnauthorized, "authentication required"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New(apierror.CodeUnauthorized, "invalid or expired token"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireBarnAccess rejects requests whose token does not cover the barn in
// the :barn_id path parameter. Must run after JWTAuth.
func RequireBarnAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !claims.CanAccess(c.Param("barn_id")) {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New(apierror.CodeForbidden, "no access to this barn"))
			return
		}
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}
