package models

import (
	"time"

	"github.com/google/uuid"
)

type ActivityStatus string

const (
	StatusSuccess ActivityStatus = "success"
	StatusFailure ActivityStatus = "failure"
	StatusWarning ActivityStatus = "warning"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type Action string

const (
	ActionRegistration       Action = "user_registration"
	ActionEmailVerified      Action = "email_verified"
	ActionVerificationResent Action = "verification_email_resent"
	ActionLoginSuccess       Action = "login_success"
	ActionLoginFailed        Action = "login_failed"
	ActionSignout            Action = "user_signout"
	ActionMFASetup           Action = "mfa_setup"
	ActionMFAEnabled         Action = "mfa_enabled"
	ActionMFADisabled        Action = "mfa_disabled"
	ActionPasswordChanged    Action = "password_changed"
	ActionAccountLocked      Action = "account_locked"
	ActionRoleUpdated        Action = "role_updated"
)

// detailKeys bounds the detail map for each action. Emails never appear here:
// the accounts table may encrypt them, activity details are stored in clear.
var detailKeys = map[Action][]string{
	ActionRegistration:  {"username", "verificationSent"},
	ActionLoginSuccess:  {"location"},
	ActionLoginFailed:   {"reason"},
	ActionAccountLocked: {"attempts"},
	ActionRoleUpdated:   {"role", "previousRole"},
}

// AllowedDetails drops every key not documented for the action.
func (a Action) AllowedDetails(details map[string]string) map[string]string {
	keys := detailKeys[a]
	if len(keys) == 0 || len(details) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := details[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Activity is an append-only audit record.
type Activity struct {
	ID        uint              `gorm:"primarykey" json:"id"`
	UserID    uuid.UUID         `gorm:"type:uuid;not null;index:idx_activity_user_created,priority:1" json:"userId"`
	Action    Action            `gorm:"not null;index:idx_activity_action_created,priority:1" json:"action"`
	Details   map[string]string `gorm:"serializer:json" json:"details"`
	IPAddress string            `json:"ipAddress,omitempty"`
	UserAgent string            `json:"userAgent,omitempty"`
	Status    ActivityStatus    `gorm:"not null;default:success;index:idx_activity_status_created,priority:1" json:"status"`
	Severity  Severity          `gorm:"not null;default:low" json:"severity"`
	CreatedAt time.Time         `gorm:"index:idx_activity_user_created,priority:2;index:idx_activity_action_created,priority:2;index:idx_activity_status_created,priority:2" json:"createdAt"`
}
