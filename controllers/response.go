package controllers

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Krish-Depani/account-security/activity"
	"github.com/Krish-Depani/account-security/apperrors"
	"github.com/Krish-Depani/account-security/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// sendResponse is a helper function to send consistent JSON responses
func sendResponse(c *gin.Context, status int, message string, data interface{}, err interface{}) {
	c.JSON(status, Response{
		Status:  status,
		Message: message,
		Data:    data,
		Error:   err,
	})
}

// sendError renders err with its public message. The full error is attached
// to the context for the request logger.
func sendError(c *gin.Context, err error) {
	_ = c.Error(err)

	var data interface{}
	if appErr, ok := apperrors.As(err); ok && appErr.Kind == apperrors.KindLocked {
		minutes := int(math.Ceil(appErr.RetryAfter.Minutes()))
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(appErr.RetryAfter.Seconds()))))
		data = gin.H{"remainingMinutes": minutes}
	}
	sendResponse(c, apperrors.Status(err), apperrors.PublicMessage(err), data, apperrors.Code(err))
}

func requestMeta(c *gin.Context) activity.Meta {
	return activity.Meta{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}

type AccountResponse struct {
	ID            uuid.UUID  `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	Avatar        string     `json:"avatar"`
	EmailVerified bool       `json:"emailVerified"`
	MFAEnabled    bool       `json:"mfaEnabled"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func newAccountResponse(a *models.Account) AccountResponse {
	return AccountResponse{
		ID:            a.ID,
		Username:      a.Username,
		Email:         a.Email,
		Role:          a.Role,
		Avatar:        a.Avatar,
		EmailVerified: a.EmailVerified,
		MFAEnabled:    a.MFAEnabled,
		LastLogin:     a.LastLogin,
		CreatedAt:     a.CreatedAt,
	}
}

func unauthorized(c *gin.Context) {
	sendResponse(c, http.StatusUnauthorized, "Authentication required", nil, "No user found in context")
}
