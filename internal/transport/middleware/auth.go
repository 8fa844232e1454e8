package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const identityKey = "identity"

// Claims are issued by the university login service. Only the subject, email
// and role are required.
type Claims struct {
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  entity.Role `json:"role"`
	jwt.RegisteredClaims
}

// Auth verifies the bearer token and stores the caller identity on the
// context. Requests without a valid token are refused with 401.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		const bearer = "Bearer "
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		claims := &Claims{}
		_, err := jwt.ParseWithClaims(strings.TrimPrefix(header, bearer), claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return key, nil
		})
		if err != nil {
			logrus.WithError(err).Warn("token rejected")
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}
		if claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}

		role := entity.RoleUser
		if claims.Role == entity.RoleAdmin {
			role = entity.RoleAdmin
		}
		c.Set(identityKey, entity.Identity{
			UserID: claims.Subject,
			Email:  claims.Email,
			Name:   claims.Name,
			Role:   role,
		})
		c.Next()
	}
}

// Identity returns the caller set by Auth, or the zero identity.
func Identity(c *gin.Context) entity.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(entity.Identity); ok {
			return id
		}
	}
	return entity.Identity{}
}

// SignToken issues a token for id. Used by tests and local tooling.
func SignToken(secret string, id entity.Identity, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = id.UserID
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Email:            id.Email,
		Name:             id.Name,
		Role:             id.Role,
		RegisteredClaims: claims,
	})
	return token.SignedString([]byte(secret))
}
