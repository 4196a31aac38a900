package store

import (
	"context"
	"errors"
	"time"

	"github.com/Krish-Depani/account-security/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// AccountStore persists accounts. Counter and backup-code mutations are single
// conditional statements so concurrent requests cannot lose updates.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	ListAccounts(ctx context.Context, search string, page, limit int) ([]models.Account, int64, error)

	// ConsumeVerificationToken marks the owner of an unexpired token verified
	// and clears the token in one statement.
	ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error)
	SetVerificationToken(ctx context.Context, id uuid.UUID, tokenHash string, expires time.Time) error

	// RegisterFailedLogin increments the attempt counter and stamps lock_until
	// once the counter reaches threshold. A lock that has already elapsed
	// restarts the counter at 1.
	RegisterFailedLogin(ctx context.Context, id uuid.UUID, threshold int, lockFor time.Duration, now time.Time) (attempts int, lockUntil *time.Time, err error)
	ResetLoginAttempts(ctx context.Context, id uuid.UUID, now time.Time) error

	UpdatePassword(ctx context.Context, id uuid.UUID, hash string, history []string, changedAt time.Time) error

	SaveMFASetup(ctx context.Context, id uuid.UUID, secret string, codeHashes []string) error
	EnableMFA(ctx context.Context, id uuid.UUID) error
	DisableMFA(ctx context.Context, id uuid.UUID) error
	// ConsumeBackupCode deletes the code and reports whether it existed.
	ConsumeBackupCode(ctx context.Context, id uuid.UUID, codeHash string) (bool, error)
	CountBackupCodes(ctx context.Context, id uuid.UUID) (int64, error)

	UpdateRole(ctx context.Context, id uuid.UUID, role string) error
	TouchActivity(ctx context.Context, id uuid.UUID, now time.Time) error
}
