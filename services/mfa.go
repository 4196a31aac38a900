package services

import (
	"context"
	"errors"

	"github.com/Krish-Depani/account-security/activity"
	"github.com/Krish-Depani/account-security/apperrors"
	"github.com/Krish-Depani/account-security/models"
	"github.com/Krish-Depani/account-security/store"
	"github.com/Krish-Depani/account-security/utils"
	"github.com/google/uuid"
)

const (
	msgMFAAlreadyEnabled = "MFA is already enabled!"
	msgMFANotSetUp       = "MFA not set up!"
	msgMFANotEnabled     = "MFA is not enabled!"
	msgInvalidMFAToken   = "Invalid MFA token!"
)

type MFASetup struct {
	Secret      string   `json:"secret"`
	OTPAuthURL  string   `json:"otpauthUrl"`
	QRCode      string   `json:"qrCode"`
	BackupCodes []string `json:"backupCodes"`
}

func (s *AuthService) loadAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := s.Store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load account", err)
	}
	return account, nil
}

// SetupMFA stores a fresh secret and backup-code set. MFA stays disabled
// until EnableMFA confirms a token.
func (s *AuthService) SetupMFA(ctx context.Context, accountID uuid.UUID, meta activity.Meta) (*MFASetup, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.MFAEnabled {
		return nil, apperrors.Validation(msgMFAAlreadyEnabled)
	}

	key, err := utils.GenerateMFASecret(s.cfg.MFAIssuer, account.Email)
	if err != nil {
		return nil, apperrors.Internal("failed to generate MFA secret", err)
	}
	codes, err := utils.GenerateBackupCodes(utils.BackupCodeCount)
	if err != nil {
		return nil, apperrors.Internal("failed to generate backup codes", err)
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = utils.HashBackupCode(c)
	}

	if err := s.Store.SaveMFASetup(ctx, account.ID, key.Secret(), hashes); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.Validation(msgMFAAlreadyEnabled)
		}
		return nil, apperrors.Internal("failed to save MFA setup", err)
	}

	qr, err := utils.QRCodeDataURL(key)
	if err != nil {
		return nil, apperrors.Internal("failed to render QR code", err)
	}

	s.Metrics.MFA("setup")
	s.Recorder.Record(ctx, activity.New(account.ID, models.ActionMFASetup, meta, nil))

	return &MFASetup{
		Secret:      key.Secret(),
		OTPAuthURL:  key.URL(),
		QRCode:      qr,
		BackupCodes: codes,
	}, nil
}

func (s *AuthService) EnableMFA(ctx context.Context, accountID uuid.UUID, token string, meta activity.Meta) error {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.MFASecret == nil || *account.MFASecret == "" {
		return apperrors.Validation(msgMFANotSetUp)
	}
	if account.MFAEnabled {
		return apperrors.Validation(msgMFAAlreadyEnabled)
	}
	if !utils.VerifyMFAToken(token, *account.MFASecret, s.now()) {
		s.Metrics.MFA("enable_rejected")
		return apperrors.Validation(msgInvalidMFAToken)
	}

	if err := s.Store.EnableMFA(ctx, account.ID); err != nil {
		return apperrors.Internal("failed to enable MFA", err)
	}

	s.Metrics.MFA("enabled")
	s.Recorder.Record(ctx, activity.New(account.ID, models.ActionMFAEnabled, meta, nil))
	return nil
}

// DisableMFA requires a current token and purges the secret and every
// remaining backup code.
func (s *AuthService) DisableMFA(ctx context.Context, accountID uuid.UUID, token string, meta activity.Meta) error {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.MFAEnabled || account.MFASecret == nil {
		return apperrors.Validation(msgMFANotEnabled)
	}
	if !utils.VerifyMFAToken(token, *account.MFASecret, s.now()) {
		s.Metrics.MFA("disable_rejected")
		return apperrors.Validation(msgInvalidMFAToken)
	}

	if err := s.Store.DisableMFA(ctx, account.ID); err != nil {
		return apperrors.Internal("failed to disable MFA", err)
	}

	s.Metrics.MFA("disabled")
	s.Recorder.Record(ctx, activity.SecurityEvent(account.ID, models.ActionMFADisabled, meta, nil))
	return nil
}
