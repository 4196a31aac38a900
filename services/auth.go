package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Krish-Depani/account-security/activity"
	"github.com/Krish-Depani/account-security/apperrors"
	"github.com/Krish-Depani/account-security/models"
	"github.com/Krish-Depani/account-security/store"
	"github.com/Krish-Depani/account-security/utils"
	"go.uber.org/zap"
)

const (
	msgUserNotFound       = "User not found!"
	msgWrongCredentials   = "Wrong credentials!"
	msgInvalidMFA         = "Invalid MFA token or backup code"
	msgVerifyFirst        = "Please verify your email before signing in. Check your inbox or request a new verification email."
	msgPasswordExpired    = "Your password has expired. Please change your password to continue."
	msgInvalidVerifyToken = "Invalid or expired verification token"
	msgAlreadyVerified    = "Email is already verified"
	msgDuplicateAccount   = "Email or username already registered"
	msgUnauthorized       = "Unauthorized"
	msgMFARequired        = "MFA token or backup code required"
	msgPasswordNotExpired = "Password has not expired. Sign in and change it from your account settings."
)

type SignupInput struct {
	Username string
	Email    string
	Password string
	Meta     activity.Meta
}

type SigninInput struct {
	Email      string
	Password   string
	MFAToken   string
	BackupCode string
	Meta       activity.Meta
}

// ExpiredPasswordInput authenticates a password change for an account whose
// password has expired and therefore cannot sign in.
type ExpiredPasswordInput struct {
	Email           string
	CurrentPassword string
	NewPassword     string
	MFAToken        string
	BackupCode      string
	Meta            activity.Meta
}

// SigninResult is either an MFA challenge or an issued session.
type SigninResult struct {
	RequiresMFA bool
	Account     *models.Account
	Token       string
	Claims      *utils.SessionClaims
}

type AuthService struct {
	Deps
	cfg Config
	now func() time.Time
}

func NewAuthService(deps Deps, cfg Config) *AuthService {
	deps.fill()
	return &AuthService{Deps: deps, cfg: cfg, now: time.Now}
}

// WithClock replaces the time source.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.Account, error) {
	if err := utils.ValidatePasswordPolicy(in.Password); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password", err)
	}
	token, tokenHash, err := utils.NewVerificationToken()
	if err != nil {
		return nil, apperrors.Internal("failed to generate verification token", err)
	}

	now := s.now()
	expires := now.Add(s.cfg.VerificationTTL)
	account := &models.Account{
		Username:              strings.TrimSpace(in.Username),
		Email:                 utils.NormalizeEmail(in.Email),
		PasswordHash:          hash,
		PasswordHistory:       models.PasswordHistory{hash},
		PasswordChangedAt:     now,
		Role:                  models.RoleUser,
		Avatar:                models.DefaultAvatar,
		VerificationTokenHash: &tokenHash,
		VerificationExpires:   &expires,
	}

	if err := s.Store.Create(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.Conflict(msgDuplicateAccount)
		}
		return nil, apperrors.Internal("failed to create account", err)
	}

	sent := true
	if err := s.Mailer.SendVerification(ctx, account.Email, account.Username, token); err != nil {
		sent = false
		s.Logger.Warn("failed to send verification email",
			zap.String("user_id", account.ID.String()),
			zap.Error(err),
		)
	}

	s.Recorder.Record(ctx, activity.New(account.ID, models.ActionRegistration, in.Meta, map[string]string{
		"username":         account.Username,
		"verificationSent": strconv.FormatBool(sent),
	}))
	return account, nil
}

// Signin runs the checks in a fixed order: lookup, lock, verification,
// password expiry, password, second factor.
func (s *AuthService) Signin(ctx context.Context, in SigninInput) (*SigninResult, error) {
	now := s.now()

	account, err := s.Store.FindByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		s.Metrics.Signin("not_found")
		return nil, apperrors.NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load account", err)
	}

	if account.IsLocked(now) {
		s.Metrics.Signin("locked")
		return nil, lockedError(account.LockUntil.Sub(now))
	}
	if !account.EmailVerified {
		s.Metrics.Signin("unverified")
		return nil, apperrors.Auth(msgVerifyFirst)
	}
	if utils.PasswordExpired(account.PasswordChangedAt, now, s.cfg.PasswordMaxAge) {
		s.Metrics.Signin("password_expired")
		return nil, apperrors.Expired(msgPasswordExpired)
	}

	if !utils.VerifyPassword(account.PasswordHash, in.Password) {
		return nil, s.failSignin(ctx, account, now, in.Meta, "invalid_password", msgWrongCredentials)
	}

	if account.MFAEnabled {
		if in.MFAToken == "" && in.BackupCode == "" {
			s.Metrics.Signin("mfa_required")
			return &SigninResult{RequiresMFA: true}, nil
		}
		ok, err := s.verifySecondFactor(ctx, account, in, now)
		if err != nil {
			return nil, apperrors.Internal("failed to verify second factor", err)
		}
		if !ok {
			return nil, s.failSignin(ctx, account, now, in.Meta, "invalid_mfa", msgInvalidMFA)
		}
	}

	if err := s.Store.ResetLoginAttempts(ctx, account.ID, now); err != nil {
		return nil, apperrors.Internal("failed to reset login attempts", err)
	}
	account.LoginAttempts = 0
	account.LockUntil = nil
	account.LastLogin = &now
	account.LastActivity = &now

	token, claims, err := s.Tokens.Issue(account.ID, account.Role)
	if err != nil {
		return nil, apperrors.Internal("failed to issue session", err)
	}

	s.Recorder.Record(ctx, activity.LoginAttempt(account.ID, true, in.Meta, nil))
	s.Metrics.Signin("success")

	return &SigninResult{Account: account, Token: token, Claims: claims}, nil
}

// ChangeExpiredPassword replaces an expired password. It applies the sign-in
// checks up to the expiry gate, so failures count towards the lockout and a
// locked account is refused before any credential is compared.
func (s *AuthService) ChangeExpiredPassword(ctx context.Context, in ExpiredPasswordInput) error {
	if err := utils.ValidatePasswordPolicy(in.NewPassword); err != nil {
		return err
	}
	now := s.now()

	account, err := s.Store.FindByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound(msgUserNotFound)
	}
	if err != nil {
		return apperrors.Internal("failed to load account", err)
	}

	if account.IsLocked(now) {
		return lockedError(account.LockUntil.Sub(now))
	}
	if !account.EmailVerified {
		return apperrors.Auth(msgVerifyFirst)
	}
	if !utils.VerifyPassword(account.PasswordHash, in.CurrentPassword) {
		return s.failSignin(ctx, account, now, in.Meta, "invalid_password", msgWrongCredentials)
	}
	if account.MFAEnabled {
		if in.MFAToken == "" && in.BackupCode == "" {
			return apperrors.Auth(msgMFARequired)
		}
		ok, err := s.verifySecondFactor(ctx, account, SigninInput{MFAToken: in.MFAToken, BackupCode: in.BackupCode}, now)
		if err != nil {
			return apperrors.Internal("failed to verify second factor", err)
		}
		if !ok {
			return s.failSignin(ctx, account, now, in.Meta, "invalid_mfa", msgInvalidMFA)
		}
	}

	if !utils.PasswordExpired(account.PasswordChangedAt, now, s.cfg.PasswordMaxAge) {
		return apperrors.Validation(msgPasswordNotExpired)
	}
	if utils.ReusesRecentPassword(account.PasswordHistory, in.NewPassword) {
		return apperrors.Validation(msgPasswordReused)
	}

	hash, err := utils.HashPassword(in.NewPassword)
	if err != nil {
		return apperrors.Internal("failed to hash password", err)
	}
	history := utils.AppendPasswordHistory(account.PasswordHistory, hash)
	if err := s.Store.UpdatePassword(ctx, account.ID, hash, history, now); err != nil {
		return apperrors.Internal("failed to update password", err)
	}

	s.Recorder.Record(ctx, activity.New(account.ID, models.ActionPasswordChanged, in.Meta, nil))
	return nil
}

func (s *AuthService) verifySecondFactor(ctx context.Context, account *models.Account, in SigninInput, now time.Time) (bool, error) {
	if in.MFAToken != "" {
		if account.MFASecret == nil {
			return false, nil
		}
		return utils.VerifyMFAToken(in.MFAToken, *account.MFASecret, now), nil
	}

	ok, err := s.Store.ConsumeBackupCode(ctx, account.ID, utils.HashBackupCode(in.BackupCode))
	if err != nil {
		return false, err
	}
	if ok {
		s.Metrics.MFA("backup_code_used")
	}
	return ok, nil
}

func (s *AuthService) failSignin(ctx context.Context, account *models.Account, now time.Time, meta activity.Meta, reason, msg string) error {
	attempts, lockUntil, err := s.Store.RegisterFailedLogin(ctx, account.ID, s.cfg.LockoutThreshold, s.cfg.LockoutDuration, now)
	if err != nil {
		return apperrors.Internal("failed to register login attempt", err)
	}

	s.Metrics.Signin(reason)
	s.Recorder.Record(ctx, activity.LoginAttempt(account.ID, false, meta, map[string]string{"reason": reason}))

	if attempts >= s.cfg.LockoutThreshold && lockUntil != nil && lockUntil.After(now) {
		s.Metrics.Lockout()
		s.Recorder.Record(ctx, activity.AccountLocked(account.ID, attempts, meta))
		s.Logger.Warn("account locked",
			zap.String("user_id", account.ID.String()),
			zap.Int("attempts", attempts),
			zap.Time("lock_until", *lockUntil),
		)
	}
	return apperrors.Auth(msg)
}

func lockedError(remaining time.Duration) error {
	minutes := int(math.Ceil(remaining.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return apperrors.Locked(fmt.Sprintf("Account is locked. Try again in %d minutes.", minutes), remaining)
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string, meta activity.Meta) (*models.Account, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperrors.Validation(msgInvalidVerifyToken)
	}

	account, err := s.Store.ConsumeVerificationToken(ctx, utils.HashToken(token), s.now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.Validation(msgInvalidVerifyToken)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to verify email", err)
	}

	s.Recorder.Record(ctx, activity.New(account.ID, models.ActionEmailVerified, meta, nil))
	return account, nil
}

// ResendVerification replaces the pending token. Delivery is the point of the
// operation, so a mail failure is returned to the caller.
func (s *AuthService) ResendVerification(ctx context.Context, email string, meta activity.Meta) error {
	account, err := s.Store.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound("User not found")
	}
	if err != nil {
		return apperrors.Internal("failed to load account", err)
	}
	if account.EmailVerified {
		return apperrors.Validation(msgAlreadyVerified)
	}

	token, tokenHash, err := utils.NewVerificationToken()
	if err != nil {
		return apperrors.Internal("failed to generate verification token", err)
	}
	if err := s.Store.SetVerificationToken(ctx, account.ID, tokenHash, s.now().Add(s.cfg.VerificationTTL)); err != nil {
		return apperrors.Internal("failed to store verification token", err)
	}

	if err := s.Mailer.SendVerification(ctx, account.Email, account.Username, token); err != nil {
		s.Logger.Error("failed to resend verification email",
			zap.String("user_id", account.ID.String()),
			zap.Error(err),
		)
		return apperrors.Dependency("Failed to send verification email", err)
	}

	s.Recorder.Record(ctx, activity.New(account.ID, models.ActionVerificationResent, meta, nil))
	return nil
}
