package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Krish-Depani/account-security/models"
	"github.com/Krish-Depani/account-security/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const registerFailedLoginSQL = `
UPDATE accounts SET
	login_attempts = CASE WHEN lock_until IS NOT NULL AND lock_until <= ? THEN 1 ELSE login_attempts + 1 END,
	lock_until = CASE
		WHEN (CASE WHEN lock_until IS NOT NULL AND lock_until <= ? THEN 1 ELSE login_attempts + 1 END) >= ? THEN ?::timestamptz
		WHEN lock_until IS NOT NULL AND lock_until <= ? THEN NULL
		ELSE lock_until
	END,
	updated_at = ?
WHERE id = ?
RETURNING login_attempts, lock_until`

type PostgresStore struct {
	db     *gorm.DB
	cipher *utils.EmailCipher
}

func NewPostgresStore(db *gorm.DB, cipher *utils.EmailCipher) *PostgresStore {
	return &PostgresStore{db: db, cipher: cipher}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func (s *PostgresStore) decrypt(account *models.Account) (*models.Account, error) {
	email, err := s.cipher.Decrypt(account.Email)
	if err != nil {
		return nil, err
	}
	account.Email = email
	return account, nil
}

func (s *PostgresStore) Create(ctx context.Context, account *models.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	plain := account.Email

	// The unique constraint only covers the current index.
	if indexes := s.cipher.LookupIndexes(plain); len(indexes) > 1 {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Account{}).Where("email_index IN ?", indexes[1:]).Count(&n).Error; err != nil {
			return translate(err)
		}
		if n > 0 {
			return ErrDuplicate
		}
	}

	encrypted, err := s.cipher.Encrypt(plain)
	if err != nil {
		return err
	}
	account.Email = encrypted
	account.EmailIndex = s.cipher.Index(plain)

	err = s.db.WithContext(ctx).Create(account).Error
	account.Email = plain
	return translate(err)
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return s.decrypt(&account)
}

// FindByEmail also matches rows indexed before an index key was configured and
// rewrites them under the current index and encryption key.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).Where("email_index IN ?", s.cipher.LookupIndexes(email)).First(&account).Error; err != nil {
		return nil, translate(err)
	}
	stored := account.Email
	if _, err := s.decrypt(&account); err != nil {
		return nil, err
	}
	if err := s.upgradeEmail(ctx, &account, stored); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *PostgresStore) upgradeEmail(ctx context.Context, account *models.Account, stored string) error {
	index := s.cipher.Index(account.Email)
	if account.EmailIndex == index && (!s.cipher.Encrypted() || utils.IsEncrypted(stored)) {
		return nil
	}
	encrypted, err := s.cipher.Encrypt(account.Email)
	if err != nil {
		return err
	}
	if err := s.updateByID(ctx, account.ID, map[string]interface{}{
		"email":       encrypted,
		"email_index": index,
	}); err != nil {
		return fmt.Errorf("upgrade email index: %w", err)
	}
	account.EmailIndex = index
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListAccounts pages accounts newest first. A search matches usernames
// case-insensitively or an exact email through the blind index.
func (s *PostgresStore) ListAccounts(ctx context.Context, search string, page, limit int) ([]models.Account, int64, error) {
	search = strings.TrimSpace(search)
	scope := func(db *gorm.DB) *gorm.DB {
		if search != "" {
			db = db.Where("username ILIKE ? OR email_index IN ?", "%"+likeEscaper.Replace(search)+"%", s.cipher.LookupIndexes(search))
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	accounts := make([]models.Account, 0, limit)
	err := s.db.WithContext(ctx).Scopes(scope).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&accounts).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	for i := range accounts {
		if _, err := s.decrypt(&accounts[i]); err != nil {
			return nil, 0, err
		}
	}
	return accounts, total, nil
}

func (s *PostgresStore) ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error) {
	var account models.Account
	result := s.db.WithContext(ctx).Model(&account).
		Clauses(clause.Returning{}).
		Where("verification_token_hash = ? AND verification_expires > ? AND email_verified = ?", tokenHash, now, false).
		Updates(map[string]interface{}{
			"email_verified":          true,
			"verification_token_hash": nil,
			"verification_expires":    nil,
		})
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.decrypt(&account)
}

func (s *PostgresStore) SetVerificationToken(ctx context.Context, id uuid.UUID, tokenHash string, expires time.Time) error {
	return s.updateByID(ctx, id, map[string]interface{}{
		"verification_token_hash": tokenHash,
		"verification_expires":    expires,
	})
}

func (s *PostgresStore) RegisterFailedLogin(ctx context.Context, id uuid.UUID, threshold int, lockFor time.Duration, now time.Time) (int, *time.Time, error) {
	var row struct {
		LoginAttempts int
		LockUntil     *time.Time
	}
	result := s.db.WithContext(ctx).
		Raw(registerFailedLoginSQL, now, now, threshold, now.Add(lockFor), now, now, id).
		Scan(&row)
	if result.Error != nil {
		return 0, nil, fmt.Errorf("register failed login: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, nil, ErrNotFound
	}
	return row.LoginAttempts, row.LockUntil, nil
}

func (s *PostgresStore) ResetLoginAttempts(ctx context.Context, id uuid.UUID, now time.Time) error {
	return s.updateByID(ctx, id, map[string]interface{}{
		"login_attempts": 0,
		"lock_until":     nil,
		"last_login":     now,
		"last_activity":  now,
	})
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, history []string, changedAt time.Time) error {
	return s.updateByID(ctx, id, map[string]interface{}{
		"password_hash":       hash,
		"password_history":    models.PasswordHistory(history),
		"password_changed_at": changedAt,
	})
}

func (s *PostgresStore) SaveMFASetup(ctx context.Context, id uuid.UUID, secret string, codeHashes []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Account{}).
			Where("id = ? AND mfa_enabled = ?", id, false).
			Update("mfa_secret", secret)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("account_id = ?", id).Delete(&models.BackupCode{}).Error; err != nil {
			return err
		}
		codes := make([]models.BackupCode, 0, len(codeHashes))
		for _, h := range codeHashes {
			codes = append(codes, models.BackupCode{AccountID: id, CodeHash: h})
		}
		return tx.Create(&codes).Error
	})
}

func (s *PostgresStore) EnableMFA(ctx context.Context, id uuid.UUID) error {
	return s.updateByID(ctx, id, map[string]interface{}{"mfa_enabled": true})
}

func (s *PostgresStore) DisableMFA(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Account{}).Where("id = ?", id).Updates(map[string]interface{}{
			"mfa_enabled": false,
			"mfa_secret":  nil,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("account_id = ?", id).Delete(&models.BackupCode{}).Error
	})
}

func (s *PostgresStore) ConsumeBackupCode(ctx context.Context, id uuid.UUID, codeHash string) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("account_id = ? AND code_hash = ?", id, codeHash).
		Delete(&models.BackupCode{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *PostgresStore) CountBackupCodes(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.BackupCode{}).Where("account_id = ?", id).Count(&n).Error
	return n, err
}

func (s *PostgresStore) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	return s.updateByID(ctx, id, map[string]interface{}{"role": role})
}

func (s *PostgresStore) TouchActivity(ctx context.Context, id uuid.UUID, now time.Time) error {
	return s.updateByID(ctx, id, map[string]interface{}{"last_activity": now})
}

func (s *PostgresStore) updateByID(ctx context.Context, id uuid.UUID, values map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
