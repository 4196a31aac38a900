package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Krish-Depani/account-security/activity"
	"github.com/Krish-Depani/account-security/apperrors"
	"github.com/Krish-Depani/account-security/controllers"
	"github.com/Krish-Depani/account-security/database"
	"github.com/Krish-Depani/account-security/middleware"
	"github.com/Krish-Depani/account-security/models"
	"github.com/Krish-Depani/account-security/services"
	"github.com/Krish-Depani/account-security/utils"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type tokenAuthenticator map[string]*models.Account

func (t tokenAuthenticator) Authenticate(_ context.Context, token string) (*models.Account, *utils.SessionClaims, error) {
	account, ok := t[token]
	if !ok {
		return nil, nil, apperrors.Auth("Unauthorized")
	}
	return account, &utils.SessionClaims{Role: account.Role}, nil
}

type noopUsers struct{}

func (noopUsers) Get(context.Context, uuid.UUID) (*models.Account, error) {
	return nil, apperrors.NotFound("User not found")
}
func (noopUsers) List(context.Context, string, int, int) (*services.AccountPage, error) {
	return &services.AccountPage{Page: 1, Limit: 20}, nil
}
func (noopUsers) UpdatePassword(context.Context, uuid.UUID, string, string, activity.Meta) error {
	return nil
}
func (noopUsers) UpdateRole(context.Context, uuid.UUID, string, activity.Meta) (*models.Account, error) {
	return nil, apperrors.NotFound("User not found")
}

type noopActivities struct{}

func (noopActivities) List(context.Context, activity.Query) (*activity.Page, error) {
	return &activity.Page{Page: 1, Limit: 20}, nil
}
func (noopActivities) Export(context.Context, activity.Query) ([]models.Activity, error) {
	return nil, nil
}
func (noopActivities) Dashboard(context.Context, time.Time) (*activity.Dashboard, error) {
	return &activity.Dashboard{}, nil
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r := gin.New()
	SetupRoutes(r, Deps{
		Auth:     controllers.NewAuthController(nil, 24*time.Hour, false),
		User:     controllers.NewUserController(noopUsers{}),
		Activity: controllers.NewActivityController(noopActivities{}, noopUsers{}),
		Authenticator: tokenAuthenticator{
			"user-token":  {ID: uuid.New(), Role: models.RoleUser},
			"admin-token": {ID: uuid.New(), Role: models.RoleAdmin},
		},
		Limiter:     database.NewRedisClient(client),
		SigninLimit: Limit{Requests: 10, Window: time.Minute},
		SignupLimit: Limit{Requests: 5, Window: time.Hour},
		Logger:      zap.NewNop(),
	})
	return r
}

func request(r *gin.Engine, method, path, session, csrf string) int {
	req := httptest.NewRequest(method, path, strings.NewReader(`{"currentPassword":"a","newPassword":"b"}`))
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: session})
	}
	if csrf != "" {
		req.AddCookie(&http.Cookie{Name: middleware.CSRFCookie, Value: csrf})
		req.Header.Set(middleware.CSRFHeader, csrf)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRoutes(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		name    string
		method  string
		path    string
		session string
		csrf    string
		want    int
	}{
		{"health is public", http.MethodGet, "/api/auth/health", "", "", http.StatusOK},
		{"me needs a session", http.MethodGet, "/api/user/me", "", "", http.StatusUnauthorized},
		{"me with session", http.MethodGet, "/api/user/me", "user-token", "", http.StatusOK},
		{"unknown session", http.MethodGet, "/api/user/me", "forged", "", http.StatusUnauthorized},
		{"password without csrf", http.MethodPost, "/api/user/password", "user-token", "", http.StatusForbidden},
		{"password with csrf", http.MethodPost, "/api/user/password", "user-token", "abc123", http.StatusOK},
		{"dashboard for user", http.MethodGet, "/api/activity/admin/dashboard", "user-token", "", http.StatusForbidden},
		{"dashboard for admin", http.MethodGet, "/api/activity/admin/dashboard", "admin-token", "", http.StatusOK},
		{"own logs", http.MethodGet, "/api/activity/logs", "user-token", "", http.StatusOK},
		{"users list for user", http.MethodGet, "/api/activity/admin/users", "user-token", "", http.StatusForbidden},
		{"users list for admin", http.MethodGet, "/api/activity/admin/users?search=bob", "admin-token", "", http.StatusOK},
		{"users list needs a session", http.MethodGet, "/api/activity/admin/users", "", "", http.StatusUnauthorized},
		{"expired password change is public", http.MethodPost, "/api/auth/change-expired-password", "", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, request(r, tt.method, tt.path, tt.session, tt.csrf))
		})
	}
}

func TestChangeExpiredPasswordIsRateLimited(t *testing.T) {
	r := newRouter(t)

	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusBadRequest, request(r, http.MethodPost, "/api/auth/change-expired-password", "", ""), "hit %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, request(r, http.MethodPost, "/api/auth/change-expired-password", "", ""))
	assert.NotEqual(t, http.StatusTooManyRequests, request(r, http.MethodPost, "/api/auth/signin", "", ""), "signin keeps its own budget")
}
