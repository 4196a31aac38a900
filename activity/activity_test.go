package activity

import (
	"testing"
	"time"

	"github.com/Krish-Depani/account-security/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEntryModel_Defaults(t *testing.T) {
	now := time.Now()
	id := uuid.New()

	tests := []struct {
		action   models.Action
		status   models.ActivityStatus
		severity models.Severity
	}{
		{models.ActionLoginSuccess, models.StatusSuccess, models.SeverityLow},
		{models.ActionLoginFailed, models.StatusFailure, models.SeverityMedium},
		{models.ActionAccountLocked, models.StatusWarning, models.SeverityHigh},
		{models.ActionRoleUpdated, models.StatusWarning, models.SeverityHigh},
		{models.ActionMFAEnabled, models.StatusSuccess, models.SeverityMedium},
		{models.ActionRegistration, models.StatusSuccess, models.SeverityLow},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			a := New(id, tt.action, Meta{}, nil).Model(now)
			assert.Equal(t, tt.status, a.Status)
			assert.Equal(t, tt.severity, a.Severity)
			assert.Equal(t, now, a.CreatedAt)
		})
	}
}

func TestEntryModel_BoundsDetails(t *testing.T) {
	e := New(uuid.New(), models.ActionLoginFailed, Meta{IPAddress: "1.2.3.4", UserAgent: "ua"}, map[string]string{
		"reason":   "invalid_password",
		"password": "leak",
	})
	a := e.Model(time.Now())
	assert.Equal(t, map[string]string{"reason": "invalid_password"}, a.Details)
	assert.Equal(t, "1.2.3.4", a.IPAddress)
	assert.Equal(t, "ua", a.UserAgent)

	a = New(uuid.New(), models.ActionSignout, Meta{}, map[string]string{"x": "y"}).Model(time.Now())
	assert.Empty(t, a.Details)
}

func TestEntryModel_NeverStoresEmail(t *testing.T) {
	for _, action := range []models.Action{models.ActionRegistration, models.ActionEmailVerified, models.ActionVerificationResent} {
		a := New(uuid.New(), action, Meta{}, map[string]string{
			"username": "alice",
			"email":    "a@x.com",
		}).Model(time.Now())
		assert.NotContains(t, a.Details, "email", action)
	}
}

func TestHelpers(t *testing.T) {
	id := uuid.New()

	success := LoginAttempt(id, true, Meta{}, nil)
	assert.Equal(t, models.ActionLoginSuccess, success.Action)
	assert.True(t, success.ResolveLocation)
	failed := LoginAttempt(id, false, Meta{}, nil)
	assert.Equal(t, models.ActionLoginFailed, failed.Action)
	assert.False(t, failed.ResolveLocation)

	ev := SecurityEvent(id, models.ActionPasswordChanged, Meta{}, nil).Model(time.Now())
	assert.Equal(t, models.SeverityHigh, ev.Severity)

	locked := AccountLocked(id, 5, Meta{}).Model(time.Now())
	assert.Equal(t, models.StatusWarning, locked.Status)
	assert.Equal(t, "5", locked.Details["attempts"])
}
