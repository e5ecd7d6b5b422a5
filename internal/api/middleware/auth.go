package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rhythmtaneja/SignFlow/internal/config"
	"github.com/rhythmtaneja/SignFlow/internal/db/models"
	"gorm.io/gorm"
)

type AuthMiddleware struct {
	secret []byte
	ttl    time.Duration
	db     *gorm.DB
}

func NewAuthMiddleware(cfg config.SecurityConfig, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
		db:     db,
	}
}

// IssueToken mints a session token for a registered user.
func (am *AuthMiddleware) IssueToken(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(am.ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(am.secret)
}

// RequireAuth authenticates the request. Tokens are accepted from the
// Authorization header, the x-auth-token header, or a token query parameter
// (the last one exists for links opened in a new browser tab, where headers
// cannot be set).
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "No token, authorization denied"})
			return
		}

		userID, err := am.verify(token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "Token expired", "expired": true})
				return
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"msg": "Token is not valid"})
			return
		}

		var user models.User
		if err := am.db.First(&user, "id = ?", userID).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "Token is not valid"})
			return
		}

		c.Set("userID", user.ID)
		c.Set("userName", user.Name)
		c.Set("userEmail", user.Email)
		c.Next()
	}
}

func (am *AuthMiddleware) verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return am.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("token carries no subject")
	}
	return claims.Subject, nil
}

func extractToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if h := c.GetHeader("x-auth-token"); h != "" {
		return h
	}
	return c.Query("token")
}
