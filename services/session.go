package services

import (
	"context"
	"errors"

	"github.com/Krish-Depani/account-security/activity"
	"github.com/Krish-Depani/account-security/apperrors"
	"github.com/Krish-Depani/account-security/models"
	"github.com/Krish-Depani/account-security/store"
	"github.com/Krish-Depani/account-security/utils"
	"go.uber.org/zap"
)

// Authenticate resolves a session token to its account. The stored account,
// not the token, is the source of the role.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Account, *utils.SessionClaims, error) {
	if token == "" {
		return nil, nil, apperrors.Auth(msgUnauthorized)
	}
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, nil, apperrors.Auth(msgUnauthorized)
	}

	if s.Denylist != nil {
		revoked, err := s.Denylist.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			return nil, nil, apperrors.Dependency("failed to check session", err)
		}
		if revoked {
			return nil, nil, apperrors.Auth(msgUnauthorized)
		}
	}

	id, _ := claims.AccountID()
	account, err := s.Store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperrors.Auth(msgUnauthorized)
	}
	if err != nil {
		return nil, nil, apperrors.Internal("failed to load account", err)
	}

	now := s.now()
	if err := s.Store.TouchActivity(ctx, account.ID, now); err != nil {
		s.Logger.Warn("failed to update last activity", zap.String("user_id", account.ID.String()), zap.Error(err))
	} else {
		account.LastActivity = &now
	}
	return account, claims, nil
}

// Signout revokes the session if the token is still valid. It never fails:
// the cookie is cleared by the caller regardless.
func (s *AuthService) Signout(ctx context.Context, token string, meta activity.Meta) {
	if token == "" {
		return
	}
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return
	}

	if s.Denylist != nil {
		ttl := claims.ExpiresAt.Time.Sub(s.now())
		if err := s.Denylist.RevokeToken(ctx, claims.ID, ttl); err != nil {
			s.Logger.Warn("failed to revoke session", zap.String("jti", claims.ID), zap.Error(err))
		}
	}

	id, _ := claims.AccountID()
	s.Recorder.Record(ctx, activity.New(id, models.ActionSignout, meta, nil))
}
