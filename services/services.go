package services

import (
	"context"
	"time"

	"github.com/Krish-Depani/account-security/activity"
	"github.com/Krish-Depani/account-security/metrics"
	"github.com/Krish-Depani/account-security/store"
	"github.com/Krish-Depani/account-security/utils"
	"go.uber.org/zap"
)

// VerificationMailer delivers the email-verification link.
type VerificationMailer interface {
	SendVerification(ctx context.Context, to, username, token string) error
}

// Denylist tracks revoked session ids until their natural expiry.
type Denylist interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type Config struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	PasswordMaxAge   time.Duration
	VerificationTTL  time.Duration
	MFAIssuer        string
}

// Deps bundles the collaborators shared by the services.
type Deps struct {
	Store    store.AccountStore
	Tokens   *utils.TokenIssuer
	Mailer   VerificationMailer
	Recorder activity.Recorder
	Denylist Denylist
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

func (d *Deps) fill() {
	if d.Recorder == nil {
		d.Recorder = activity.NopRecorder{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
}
