package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/Krish-Depani/account-security/activity"
	"github.com/Krish-Depani/account-security/middleware"
	"github.com/Krish-Depani/account-security/models"
	"github.com/Krish-Depani/account-security/services"
	"github.com/Krish-Depani/account-security/validators"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthService interface {
	Signup(ctx context.Context, in services.SignupInput) (*models.Account, error)
	Signin(ctx context.Context, in services.SigninInput) (*services.SigninResult, error)
	ChangeExpiredPassword(ctx context.Context, in services.ExpiredPasswordInput) error
	VerifyEmail(ctx context.Context, token string, meta activity.Meta) (*models.Account, error)
	ResendVerification(ctx context.Context, email string, meta activity.Meta) error
	Signout(ctx context.Context, token string, meta activity.Meta)
	SetupMFA(ctx context.Context, accountID uuid.UUID, meta activity.Meta) (*services.MFASetup, error)
	EnableMFA(ctx context.Context, accountID uuid.UUID, token string, meta activity.Meta) error
	DisableMFA(ctx context.Context, accountID uuid.UUID, token string, meta activity.Meta) error
}

type AuthController struct {
	auth       AuthService
	secure     bool
	sessionTTL time.Duration
	startedAt  time.Time
}

func NewAuthController(auth AuthService, sessionTTL time.Duration, secure bool) *AuthController {
	return &AuthController{
		auth:       auth,
		secure:     secure,
		sessionTTL: sessionTTL,
		startedAt:  time.Now(),
	}
}

func (ac *AuthController) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookie, token, maxAge, "/", "", ac.secure, true)
}

// Health reports liveness.
func (ac *AuthController) Health(c *gin.Context) {
	sendResponse(c, http.StatusOK, "Server is running", gin.H{
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(ac.startedAt).Round(time.Second).String(),
	}, nil)
}

// CSRFToken issues the double-submit token.
func (ac *AuthController) CSRFToken(c *gin.Context) {
	token, err := middleware.IssueCSRFToken(c, ac.secure)
	if err != nil {
		sendError(c, err)
		return
	}
	sendResponse(c, http.StatusOK, "CSRF token issued", gin.H{"csrfToken": token}, nil)
}

// Signup handles user registration
func (ac *AuthController) Signup(c *gin.Context) {
	req, ok := validators.BindJSON[validators.SignupRequest](c)
	if !ok {
		return
	}

	account, err := ac.auth.Signup(c.Request.Context(), services.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Meta:     requestMeta(c),
	})
	if err != nil {
		sendError(c, err)
		return
	}

	sendResponse(c, http.StatusCreated, "User created successfully! Please check your email to verify your account.", gin.H{
		"requiresVerification": true,
		"user":                 newAccountResponse(account),
	}, nil)
}

// Signin authenticates and sets the session cookie, or asks for a second
// factor.
func (ac *AuthController) Signin(c *gin.Context) {
	req, ok := validators.BindJSON[validators.SigninRequest](c)
	if !ok {
		return
	}

	result, err := ac.auth.Signin(c.Request.Context(), services.SigninInput{
		Email:      req.Email,
		Password:   req.Password,
		MFAToken:   req.MFAToken,
		BackupCode: req.BackupCode,
		Meta:       requestMeta(c),
	})
	if err != nil {
		sendError(c, err)
		return
	}

	if result.RequiresMFA {
		sendResponse(c, http.StatusOK, "MFA token required", gin.H{"requiresMFA": true}, nil)
		return
	}

	ac.setSessionCookie(c, result.Token, int(ac.sessionTTL.Seconds()))
	sendResponse(c, http.StatusOK, "Login successful", gin.H{
		"user":      newAccountResponse(result.Account),
		"expiresAt": result.Claims.ExpiresAt.Time,
	}, nil)
}

// ChangeExpiredPassword lets an account locked out by password expiry set a
// new password. No session is issued.
func (ac *AuthController) ChangeExpiredPassword(c *gin.Context) {
	req, ok := validators.BindJSON[validators.ChangeExpiredPasswordRequest](c)
	if !ok {
		return
	}

	err := ac.auth.ChangeExpiredPassword(c.Request.Context(), services.ExpiredPasswordInput{
		Email:           req.Email,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		MFAToken:        req.MFAToken,
		BackupCode:      req.BackupCode,
		Meta:            requestMeta(c),
	})
	if err != nil {
		sendError(c, err)
		return
	}
	sendResponse(c, http.StatusOK, "Password changed successfully. Please sign in with your new password.", nil, nil)
}

func (ac *AuthController) VerifyEmail(c *gin.Context) {
	account, err := ac.auth.VerifyEmail(c.Request.Context(), c.Param("token"), requestMeta(c))
	if err != nil {
		sendError(c, err)
		return
	}
	sendResponse(c, http.StatusOK, "Email verified successfully! You can now sign in.", gin.H{
		"user": newAccountResponse(account),
	}, nil)
}

func (ac *AuthController) ResendVerification(c *gin.Context) {
	req, ok := validators.BindJSON[validators.ResendVerificationRequest](c)
	if !ok {
		return
	}
	if err := ac.auth.ResendVerification(c.Request.Context(), req.Email, requestMeta(c)); err != nil {
		sendError(c, err)
		return
	}
	sendResponse(c, http.StatusOK, "Verification email sent successfully!", nil, nil)
}

// Signout always succeeds and clears the cookie.
func (ac *AuthController) Signout(c *gin.Context) {
	token, _ := c.Cookie(middleware.SessionCookie)
	ac.auth.Signout(c.Request.Context(), token, requestMeta(c))

	ac.setSessionCookie(c, "", -1)
	sendResponse(c, http.StatusOK, "User has been logged out!", nil, nil)
}

func (ac *AuthController) SetupMFA(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		unauthorized(c)
		return
	}

	setup, err := ac.auth.SetupMFA(c.Request.Context(), account.ID, requestMeta(c))
	if err != nil {
		sendError(c, err)
		return
	}
	sendResponse(c, http.StatusOK, "Scan the QR code with your authenticator app, then confirm with a token.", setup, nil)
}

func (ac *AuthController) EnableMFA(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		unauthorized(c)
		return
	}
	req, ok := validators.BindJSON[validators.MFATokenRequest](c)
	if !ok {
		return
	}

	if err := ac.auth.EnableMFA(c.Request.Context(), account.ID, req.Token, requestMeta(c)); err != nil {
		sendError(c, err)
		return
	}
	sendResponse(c, http.StatusOK, "MFA enabled successfully!", nil, nil)
}

func (ac *AuthController) DisableMFA(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		unauthorized(c)
		return
	}
	req, ok := validators.BindJSON[validators.MFATokenRequest](c)
	if !ok {
		return
	}

	if err := ac.auth.DisableMFA(c.Request.Context(), account.ID, req.Token, requestMeta(c)); err != nil {
		sendError(c, err)
		return
	}
	sendResponse(c, http.StatusOK, "MFA disabled successfully!", nil, nil)
}
