package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	DefaultAvatar = "https://cdn.pixabay.com/photo/2015/10/05/22/37/blank-profile-picture-973460_1280.png"
)

// Account is the persisted credential record. Email holds ciphertext when an
// encryption key is configured; EmailIndex is the lookup key in both cases.
type Account struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primarykey"`
	Username              string          `gorm:"unique;not null"`
	Email                 string          `gorm:"not null"`
	EmailIndex            string          `gorm:"unique;not null"`
	PasswordHash          string          `gorm:"not null"`
	PasswordHistory       PasswordHistory `gorm:"type:jsonb"`
	PasswordChangedAt     time.Time       `gorm:"not null"`
	Role                  string          `gorm:"not null;default:user"`
	Avatar                string
	EmailVerified         bool    `gorm:"default:false"`
	VerificationTokenHash *string `gorm:"index"`
	VerificationExpires   *time.Time
	MFAEnabled            bool    `gorm:"column:mfa_enabled;default:false"`
	MFASecret             *string `gorm:"column:mfa_secret"`
	LoginAttempts         int     `gorm:"default:0"`
	LockUntil             *time.Time
	LastLogin             *time.Time
	LastActivity          *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
	BackupCodes           []BackupCode `gorm:"foreignkey:AccountID;constraint:OnDelete:CASCADE"`
}

// IsLocked reports whether sign-in must be refused at now.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// BackupCode is one single-use MFA fallback credential, stored hashed.
type BackupCode struct {
	ID        uint      `gorm:"primarykey"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index:idx_backup_code,unique"`
	CodeHash  string    `gorm:"not null;index:idx_backup_code,unique"`
	CreatedAt time.Time
}

func (BackupCode) TableName() string { return "mfa_backup_codes" }

// PasswordHistory holds previous bcrypt hashes, oldest first.
type PasswordHistory []string

func (h PasswordHistory) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(h))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (h *PasswordHistory) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*h = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("password history: unsupported type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*h = out
	return nil
}
