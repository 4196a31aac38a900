package activity

import (
	"context"
	"strconv"
	"time"

	"github.com/Krish-Depani/account-security/models"
	"github.com/google/uuid"
)

// Entry is a single audit event before persistence.
type Entry struct {
	UserID    uuid.UUID
	Action    models.Action
	Details   map[string]string
	IPAddress string
	UserAgent string
	Status    models.ActivityStatus
	Severity  models.Severity

	// ResolveLocation fills details["location"] from IPAddress before the
	// entry is stored.
	ResolveLocation bool
}

// Meta carries request attributes copied onto every entry.
type Meta struct {
	IPAddress string
	UserAgent string
}

// Recorder accepts audit entries. Implementations must not block the caller
// and must not report failures back to it.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// NopRecorder discards every entry.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Entry) {}

func defaults(action models.Action) (models.ActivityStatus, models.Severity) {
	switch action {
	case models.ActionLoginFailed:
		return models.StatusFailure, models.SeverityMedium
	case models.ActionAccountLocked, models.ActionRoleUpdated:
		return models.StatusWarning, models.SeverityHigh
	case models.ActionMFASetup, models.ActionMFAEnabled, models.ActionMFADisabled, models.ActionPasswordChanged:
		return models.StatusSuccess, models.SeverityMedium
	default:
		return models.StatusSuccess, models.SeverityLow
	}
}

// Model converts the entry to its stored form, filling in default status and
// severity and dropping detail keys the action does not define.
func (e Entry) Model(now time.Time) *models.Activity {
	status, severity := defaults(e.Action)
	if e.Status != "" {
		status = e.Status
	}
	if e.Severity != "" {
		severity = e.Severity
	}
	return &models.Activity{
		UserID:    e.UserID,
		Action:    e.Action,
		Details:   e.Action.AllowedDetails(e.Details),
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		Status:    status,
		Severity:  severity,
		CreatedAt: now,
	}
}

func New(userID uuid.UUID, action models.Action, meta Meta, details map[string]string) Entry {
	return Entry{
		UserID:    userID,
		Action:    action,
		Details:   details,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
}

// LoginAttempt builds a login_success or login_failed entry. Successful
// logins carry the resolved location.
func LoginAttempt(userID uuid.UUID, success bool, meta Meta, details map[string]string) Entry {
	if !success {
		return New(userID, models.ActionLoginFailed, meta, details)
	}
	e := New(userID, models.ActionLoginSuccess, meta, details)
	e.ResolveLocation = true
	return e
}

// SecurityEvent builds an entry that always surfaces in the security log.
func SecurityEvent(userID uuid.UUID, action models.Action, meta Meta, details map[string]string) Entry {
	e := New(userID, action, meta, details)
	e.Severity = models.SeverityHigh
	return e
}

// AccountLocked is the security event recorded when a failure trips the lock.
func AccountLocked(userID uuid.UUID, attempts int, meta Meta) Entry {
	e := SecurityEvent(userID, models.ActionAccountLocked, meta, map[string]string{
		"attempts": strconv.Itoa(attempts),
	})
	e.Status = models.StatusWarning
	return e
}
