package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Krish-Depani/account-security/activity"
	"github.com/Krish-Depani/account-security/models"
	"github.com/Krish-Depani/account-security/store"
	"github.com/Krish-Depani/account-security/utils"
	"github.com/google/uuid"
)

type fakeStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.Account
	codes    map[uuid.UUID]map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: map[uuid.UUID]*models.Account{},
		codes:    map[uuid.UUID]map[string]bool{},
	}
}

func cloneAccount(a *models.Account) *models.Account {
	cp := *a
	cp.PasswordHistory = append(models.PasswordHistory(nil), a.PasswordHistory...)
	return &cp
}

func (f *fakeStore) get(id uuid.UUID) *models.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[id]; ok {
		return cloneAccount(a)
	}
	return nil
}

func (f *fakeStore) mutate(id uuid.UUID, fn func(a *models.Account)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(a)
	return nil
}

func (f *fakeStore) Create(_ context.Context, account *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Username == account.Username || utils.NormalizeEmail(a.Email) == utils.NormalizeEmail(account.Email) {
			return store.ErrDuplicate
		}
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	f.accounts[account.ID] = cloneAccount(account)
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	if a := f.get(id); a != nil {
		return a, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == utils.NormalizeEmail(email) {
			return cloneAccount(a), nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListAccounts(_ context.Context, search string, page, limit int) ([]models.Account, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	search = strings.ToLower(strings.TrimSpace(search))
	matched := make([]models.Account, 0, len(f.accounts))
	for _, a := range f.accounts {
		if search == "" || strings.Contains(strings.ToLower(a.Username), search) || a.Email == search {
			matched = append(matched, *cloneAccount(a))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].Username < matched[j].Username
	})
	total := int64(len(matched))
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (f *fakeStore) ConsumeVerificationToken(_ context.Context, tokenHash string, now time.Time) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.VerificationTokenHash != nil && *a.VerificationTokenHash == tokenHash &&
			a.VerificationExpires != nil && a.VerificationExpires.After(now) && !a.EmailVerified {
			a.EmailVerified = true
			a.VerificationTokenHash = nil
			a.VerificationExpires = nil
			return cloneAccount(a), nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) SetVerificationToken(_ context.Context, id uuid.UUID, tokenHash string, expires time.Time) error {
	return f.mutate(id, func(a *models.Account) {
		a.VerificationTokenHash = &tokenHash
		a.VerificationExpires = &expires
	})
}

func (f *fakeStore) RegisterFailedLogin(_ context.Context, id uuid.UUID, threshold int, lockFor time.Duration, now time.Time) (int, *time.Time, error) {
	var attempts int
	var lockUntil *time.Time
	err := f.mutate(id, func(a *models.Account) {
		expired := a.LockUntil != nil && !a.LockUntil.After(now)
		if expired {
			a.LoginAttempts = 1
			a.LockUntil = nil
		} else {
			a.LoginAttempts++
		}
		if a.LoginAttempts >= threshold {
			until := now.Add(lockFor)
			a.LockUntil = &until
		}
		attempts, lockUntil = a.LoginAttempts, a.LockUntil
	})
	return attempts, lockUntil, err
}

func (f *fakeStore) ResetLoginAttempts(_ context.Context, id uuid.UUID, now time.Time) error {
	return f.mutate(id, func(a *models.Account) {
		a.LoginAttempts = 0
		a.LockUntil = nil
		a.LastLogin = &now
		a.LastActivity = &now
	})
}

func (f *fakeStore) UpdatePassword(_ context.Context, id uuid.UUID, hash string, history []string, changedAt time.Time) error {
	return f.mutate(id, func(a *models.Account) {
		a.PasswordHash = hash
		a.PasswordHistory = append(models.PasswordHistory(nil), history...)
		a.PasswordChangedAt = changedAt
	})
}

func (f *fakeStore) SaveMFASetup(_ context.Context, id uuid.UUID, secret string, codeHashes []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok || a.MFAEnabled {
		return store.ErrNotFound
	}
	a.MFASecret = &secret
	set := make(map[string]bool, len(codeHashes))
	for _, h := range codeHashes {
		set[h] = true
	}
	f.codes[id] = set
	return nil
}

func (f *fakeStore) EnableMFA(_ context.Context, id uuid.UUID) error {
	return f.mutate(id, func(a *models.Account) { a.MFAEnabled = true })
}

func (f *fakeStore) DisableMFA(_ context.Context, id uuid.UUID) error {
	err := f.mutate(id, func(a *models.Account) {
		a.MFAEnabled = false
		a.MFASecret = nil
	})
	if err == nil {
		f.mu.Lock()
		delete(f.codes, id)
		f.mu.Unlock()
	}
	return err
}

func (f *fakeStore) ConsumeBackupCode(_ context.Context, id uuid.UUID, codeHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.codes[id][codeHash] {
		return false, nil
	}
	delete(f.codes[id], codeHash)
	return true, nil
}

func (f *fakeStore) CountBackupCodes(_ context.Context, id uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.codes[id])), nil
}

func (f *fakeStore) UpdateRole(_ context.Context, id uuid.UUID, role string) error {
	return f.mutate(id, func(a *models.Account) { a.Role = role })
}

func (f *fakeStore) TouchActivity(_ context.Context, id uuid.UUID, now time.Time) error {
	return f.mutate(id, func(a *models.Account) { a.LastActivity = &now })
}

type fakeMailer struct {
	mu     sync.Mutex
	tokens []string
	err    error
}

func (m *fakeMailer) SendVerification(_ context.Context, _, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.tokens = append(m.tokens, token)
	return nil
}

func (m *fakeMailer) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tokens) == 0 {
		return ""
	}
	return m.tokens[len(m.tokens)-1]
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []activity.Entry
}

func (r *fakeRecorder) Record(_ context.Context, e activity.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *fakeRecorder) find(action models.Action) []activity.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []activity.Entry
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type fakeDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func (d *fakeDenylist) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	if d.revoked == nil {
		d.revoked = map[string]time.Duration{}
	}
	d.revoked[jti] = ttl
	return nil
}

func (d *fakeDenylist) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	_, ok := d.revoked[jti]
	return ok, nil
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
