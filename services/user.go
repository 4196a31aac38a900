package services

import (
	"context"
	"errors"
	"time"

	"github.com/Krish-Depani/account-security/activity"
	"github.com/Krish-Depani/account-security/apperrors"
	"github.com/Krish-Depani/account-security/models"
	"github.com/Krish-Depani/account-security/store"
	"github.com/Krish-Depani/account-security/utils"
	"github.com/google/uuid"
)

const (
	msgPasswordReused   = "You cannot reuse your last 3 passwords."
	msgCurrentIncorrect = "Current password is incorrect"
	msgInvalidRole      = `Invalid role. Must be "user" or "admin"`

	defaultUserPageSize = 20
	maxUserPageSize     = 100
)

// AccountPage is one page of the admin user listing.
type AccountPage struct {
	Users      []models.Account
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

type UserService struct {
	Deps
	now func() time.Time
}

func NewUserService(deps Deps) *UserService {
	deps.fill()
	return &UserService{Deps: deps, now: time.Now}
}

func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := s.Store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("User not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load account", err)
	}
	return account, nil
}

// List pages every account newest first. search matches usernames by
// substring or an email exactly.
func (s *UserService) List(ctx context.Context, search string, page, limit int) (*AccountPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultUserPageSize
	}
	if limit > maxUserPageSize {
		limit = maxUserPageSize
	}

	users, total, err := s.Store.ListAccounts(ctx, search, page, limit)
	if err != nil {
		return nil, apperrors.Internal("failed to list accounts", err)
	}
	return &AccountPage{
		Users:      users,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// UpdatePassword enforces policy and history, then replaces the hash. Nothing
// is written unless every check passes.
func (s *UserService) UpdatePassword(ctx context.Context, id uuid.UUID, current, next string, meta activity.Meta) error {
	if err := utils.ValidatePasswordPolicy(next); err != nil {
		return err
	}

	account, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(account.PasswordHash, current) {
		return apperrors.Auth(msgCurrentIncorrect)
	}
	if utils.ReusesRecentPassword(account.PasswordHistory, next) {
		return apperrors.Validation(msgPasswordReused)
	}

	hash, err := utils.HashPassword(next)
	if err != nil {
		return apperrors.Internal("failed to hash password", err)
	}
	history := utils.AppendPasswordHistory(account.PasswordHistory, hash)
	if err := s.Store.UpdatePassword(ctx, account.ID, hash, history, s.now()); err != nil {
		return apperrors.Internal("failed to update password", err)
	}

	s.Recorder.Record(ctx, activity.New(account.ID, models.ActionPasswordChanged, meta, nil))
	return nil
}

// UpdateRole changes the stored role of another account. Sessions pick up the
// change on their next request.
func (s *UserService) UpdateRole(ctx context.Context, targetID uuid.UUID, role string, meta activity.Meta) (*models.Account, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, apperrors.Validation(msgInvalidRole)
	}

	account, err := s.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	previous := account.Role

	if err := s.Store.UpdateRole(ctx, account.ID, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, apperrors.Internal("failed to update role", err)
	}
	account.Role = role

	s.Recorder.Record(ctx, activity.New(account.ID, models.ActionRoleUpdated, meta, map[string]string{
		"role":         role,
		"previousRole": previous,
	}))
	return account, nil
}
