package validators

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

func Validate(data interface{}) []ValidationError {
	var validationErrors []ValidationError

	err := validate.Struct(data)
	if err != nil {
		if errors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range errors {
				validationErrors = append(validationErrors, ValidationError{
					Field: e.Field(),
					Tag:   e.Tag(),
					Value: e.Param(),
				})
			}
		}
	}

	return validationErrors
}

func reject(c *gin.Context, message string, err interface{}) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"status":  http.StatusBadRequest,
		"message": message,
		"error":   err,
	})
}

// BindJSON decodes and validates the request body, writing a 400 response on
// failure.
func BindJSON[T any](c *gin.Context) (*T, bool) {
	var req T
	if err := c.ShouldBindJSON(&req); err != nil {
		reject(c, "Invalid request payload", nil)
		return nil, false
	}
	if errs := Validate(req); len(errs) > 0 {
		reject(c, "Validation failed", errs)
		return nil, false
	}
	return &req, true
}

// BindQuery is BindJSON for query parameters.
func BindQuery[T any](c *gin.Context) (*T, bool) {
	var req T
	if err := c.ShouldBindQuery(&req); err != nil {
		reject(c, "Invalid query parameters", nil)
		return nil, false
	}
	if errs := Validate(req); len(errs) > 0 {
		reject(c, "Validation failed", errs)
		return nil, false
	}
	return &req, true
}

type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	// Policy is enforced by the service so the message stays uniform.
	Password string `json:"password" validate:"required"`
}

type SigninRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	MFAToken   string `json:"mfaToken" validate:"omitempty,numeric,len=6"`
	BackupCode string `json:"backupCode" validate:"omitempty,hexadecimal,len=8"`
}

type ChangeExpiredPasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	MFAToken        string `json:"mfaToken" validate:"omitempty,numeric,len=6"`
	BackupCode      string `json:"backupCode" validate:"omitempty,hexadecimal,len=8"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type MFATokenRequest struct {
	Token string `json:"token" validate:"required"`
}
