package middleware

import (
	"context"
	"net/http"

	"github.com/Krish-Depani/account-security/apperrors"
	"github.com/Krish-Depani/account-security/models"
	"github.com/Krish-Depani/account-security/utils"
	"github.com/gin-gonic/gin"
)

const (
	SessionCookie = "access_token"

	accountKey = "account"
	claimsKey  = "claims"
)

// Authenticator resolves a session token to the stored account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Account, *utils.SessionClaims, error)
}

func abort(c *gin.Context, status int, message string, err interface{}) {
	c.AbortWithStatusJSON(status, gin.H{
		"status":  status,
		"message": message,
		"error":   err,
	})
}

// RequireAuth rejects requests without a valid, unrevoked session cookie.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			abort(c, http.StatusUnauthorized, "Authentication required", "No session found")
			return
		}

		account, claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			abort(c, apperrors.Status(err), "Authentication failed", apperrors.PublicMessage(err))
			return
		}

		c.Set(accountKey, account)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole must run after RequireAuth. The role comes from the account
// loaded for this request.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := CurrentAccount(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Authentication required", "No session found")
			return
		}
		for _, r := range roles {
			if account.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "Access denied", "Insufficient permissions")
	}
}

func CurrentAccount(c *gin.Context) (*models.Account, bool) {
	v, ok := c.Get(accountKey)
	if !ok {
		return nil, false
	}
	account, ok := v.(*models.Account)
	return account, ok && account != nil
}

func CurrentClaims(c *gin.Context) (*utils.SessionClaims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*utils.SessionClaims)
	return claims, ok
}
