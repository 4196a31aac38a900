package activity

import (
	"context"
	"time"

	"github.com/Krish-Depani/account-security/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	ExportLimit  = 1000
)

// LoginActions are the actions shown in login history.
var LoginActions = []models.Action{models.ActionLoginSuccess, models.ActionLoginFailed}

// Query filters activity listings. Zero values mean "any".
type Query struct {
	UserID     uuid.UUID
	Actions    []models.Action
	Status     models.ActivityStatus
	Severities []models.Severity
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}

func (q *Query) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
}

func (q Query) scope(db *gorm.DB) *gorm.DB {
	if q.UserID != uuid.Nil {
		db = db.Where("user_id = ?", q.UserID)
	}
	switch len(q.Actions) {
	case 0:
	case 1:
		db = db.Where("action = ?", q.Actions[0])
	default:
		db = db.Where("action IN ?", q.Actions)
	}
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	switch len(q.Severities) {
	case 0:
	case 1:
		db = db.Where("severity = ?", q.Severities[0])
	default:
		db = db.Where("severity IN ?", q.Severities)
	}
	if q.From != nil {
		db = db.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("created_at <= ?", *q.To)
	}
	return db
}

type Page struct {
	Logs       []models.Activity `json:"logs"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	Total      int64             `json:"total"`
	TotalPages int               `json:"totalPages"`
}

type ActionCount struct {
	Action models.Action `json:"action"`
	Count  int64         `json:"count"`
}

type Dashboard struct {
	TotalUsers       int64         `json:"totalUsers"`
	RecentActivities int64         `json:"recentActivities"`
	FailedLogins     int64         `json:"failedLogins"`
	CriticalEvents   int64         `json:"criticalEvents"`
	ActionStats      []ActionCount `json:"actionStats"`
}

// Repository stores activities in postgres and serves the read side.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Write(ctx context.Context, a *models.Activity) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// List returns one page of activities, newest first.
func (r *Repository) List(ctx context.Context, q Query) (*Page, error) {
	q.normalize()

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Activity{}).Scopes(q.scope).Count(&total).Error; err != nil {
		return nil, err
	}

	logs := make([]models.Activity, 0, q.Limit)
	err := r.db.WithContext(ctx).Scopes(q.scope).
		Order("created_at DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}

	pages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	return &Page{Logs: logs, Page: q.Page, Limit: q.Limit, Total: total, TotalPages: pages}, nil
}

// Export returns up to ExportLimit activities for the query, newest first.
func (r *Repository) Export(ctx context.Context, q Query) ([]models.Activity, error) {
	logs := make([]models.Activity, 0)
	err := r.db.WithContext(ctx).Scopes(q.scope).
		Order("created_at DESC").
		Limit(ExportLimit).
		Find(&logs).Error
	return logs, err
}

// Dashboard summarises activity since the given instant.
func (r *Repository) Dashboard(ctx context.Context, since time.Time) (*Dashboard, error) {
	db := r.db.WithContext(ctx)
	var d Dashboard

	if err := db.Model(&models.Account{}).Count(&d.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Activity{}).Where("created_at >= ?", since).Count(&d.RecentActivities).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Activity{}).
		Where("action = ? AND created_at >= ?", models.ActionLoginFailed, since).
		Count(&d.FailedLogins).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Activity{}).
		Where("severity = ? AND created_at >= ?", models.SeverityCritical, since).
		Count(&d.CriticalEvents).Error; err != nil {
		return nil, err
	}

	d.ActionStats = make([]ActionCount, 0)
	err := db.Model(&models.Activity{}).
		Select("action, count(*) AS count").
		Where("created_at >= ?", since).
		Group("action").
		Order("count DESC").
		Scan(&d.ActionStats).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}
