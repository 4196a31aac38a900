package controllers

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/Krish-Depani/account-security/activity"
	"github.com/Krish-Depani/account-security/apperrors"
	"github.com/Krish-Depani/account-security/middleware"
	"github.com/Krish-Depani/account-security/models"
	"github.com/Krish-Depani/account-security/validators"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ActivityReader interface {
	List(ctx context.Context, q activity.Query) (*activity.Page, error)
	Export(ctx context.Context, q activity.Query) ([]models.Activity, error)
	Dashboard(ctx context.Context, since time.Time) (*activity.Dashboard, error)
}

type ActivityController struct {
	activities ActivityReader
	users      UserService
	now        func() time.Time
}

func NewActivityController(activities ActivityReader, users UserService) *ActivityController {
	return &ActivityController{activities: activities, users: users, now: time.Now}
}

func (ac *ActivityController) list(c *gin.Context, message string, q activity.Query) {
	page, err := ac.activities.List(c.Request.Context(), q)
	if err != nil {
		sendError(c, apperrors.Internal("failed to list activity", err))
		return
	}
	sendResponse(c, http.StatusOK, message, page, nil)
}

func endOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	end := t.Add(24*time.Hour - time.Nanosecond)
	return &end
}

// Logs lists the caller's own activity.
func (ac *ActivityController) Logs(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		unauthorized(c)
		return
	}
	req, ok := validators.BindQuery[validators.ActivityQuery](c)
	if !ok {
		return
	}

	q := activity.Query{
		UserID: account.ID,
		Status: models.ActivityStatus(req.Status),
		Page:   req.Page,
		Limit:  req.Limit,
	}
	if req.Action != "" {
		q.Actions = []models.Action{models.Action(req.Action)}
	}
	if req.Severity != "" {
		q.Severities = []models.Severity{models.Severity(req.Severity)}
	}
	ac.list(c, "Activity logs retrieved", q)
}

func (ac *ActivityController) Security(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		unauthorized(c)
		return
	}
	req, ok := validators.BindQuery[validators.PageQuery](c)
	if !ok {
		return
	}
	ac.list(c, "Security logs retrieved", activity.Query{
		UserID:     account.ID,
		Severities: []models.Severity{models.SeverityHigh},
		Page:       req.Page,
		Limit:      req.Limit,
	})
}

func (ac *ActivityController) LoginHistory(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		unauthorized(c)
		return
	}
	req, ok := validators.BindQuery[validators.PageQuery](c)
	if !ok {
		return
	}
	ac.list(c, "Login history retrieved", activity.Query{
		UserID:  account.ID,
		Actions: activity.LoginActions,
		Page:    req.Page,
		Limit:   req.Limit,
	})
}

// Export returns up to activity.ExportLimit records as JSON or CSV.
func (ac *ActivityController) Export(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		unauthorized(c)
		return
	}
	req, ok := validators.BindQuery[validators.ExportQuery](c)
	if !ok {
		return
	}

	q := activity.Query{UserID: account.ID}
	if req.StartDate != nil && req.EndDate != nil {
		q.From, q.To = req.StartDate, endOfDay(req.EndDate)
	}
	logs, err := ac.activities.Export(c.Request.Context(), q)
	if err != nil {
		sendError(c, apperrors.Internal("failed to export activity", err))
		return
	}

	if req.Format == "csv" {
		var buf bytes.Buffer
		if err := activity.WriteCSV(&buf, logs); err != nil {
			sendError(c, apperrors.Internal("failed to render csv", err))
			return
		}
		c.Header("Content-Disposition", "attachment; filename=activity_logs.csv")
		c.Data(http.StatusOK, "text/csv", buf.Bytes())
		return
	}

	sendResponse(c, http.StatusOK, "Activity logs exported", gin.H{
		"logs":         logs,
		"exportDate":   ac.now().UTC(),
		"totalRecords": len(logs),
	}, nil)
}

// AdminLogs lists activity across all accounts.
func (ac *ActivityController) AdminLogs(c *gin.Context) {
	req, ok := validators.BindQuery[validators.AdminActivityQuery](c)
	if !ok {
		return
	}

	q := activity.Query{
		Status: models.ActivityStatus(req.Status),
		Page:   req.Page,
		Limit:  req.Limit,
	}
	if req.UserID != "" {
		q.UserID = uuid.MustParse(req.UserID)
	}
	if req.Action != "" {
		q.Actions = []models.Action{models.Action(req.Action)}
	}
	if req.Severity != "" {
		q.Severities = []models.Severity{models.Severity(req.Severity)}
	}
	if req.StartDate != nil && req.EndDate != nil {
		q.From, q.To = req.StartDate, endOfDay(req.EndDate)
	}
	ac.list(c, "Activity logs retrieved", q)
}

// AdminDashboard summarises the last 24 hours.
func (ac *ActivityController) AdminDashboard(c *gin.Context) {
	dashboard, err := ac.activities.Dashboard(c.Request.Context(), ac.now().Add(-24*time.Hour))
	if err != nil {
		sendError(c, apperrors.Internal("failed to build dashboard", err))
		return
	}
	sendResponse(c, http.StatusOK, "Dashboard retrieved", dashboard, nil)
}

// AdminUsers lists accounts with optional username or email search.
func (ac *ActivityController) AdminUsers(c *gin.Context) {
	req, ok := validators.BindQuery[validators.AdminUsersQuery](c)
	if !ok {
		return
	}

	page, err := ac.users.List(c.Request.Context(), req.Search, req.Page, req.Limit)
	if err != nil {
		sendError(c, err)
		return
	}
	users := make([]AccountResponse, 0, len(page.Users))
	for i := range page.Users {
		users = append(users, newAccountResponse(&page.Users[i]))
	}
	sendResponse(c, http.StatusOK, "Users retrieved", gin.H{
		"users":      users,
		"page":       page.Page,
		"limit":      page.Limit,
		"total":      page.Total,
		"totalPages": page.TotalPages,
	}, nil)
}

func (ac *ActivityController) AdminUserDetails(c *gin.Context) {
	id, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		sendError(c, apperrors.Validation("Invalid user id"))
		return
	}
	ctx := c.Request.Context()

	account, err := ac.users.Get(ctx, id)
	if err != nil {
		sendError(c, err)
		return
	}

	recent, err := ac.activities.List(ctx, activity.Query{UserID: id, Limit: 10})
	if err != nil {
		sendError(c, apperrors.Internal("failed to list activity", err))
		return
	}
	logins, err := ac.activities.List(ctx, activity.Query{UserID: id, Actions: activity.LoginActions, Limit: 20})
	if err != nil {
		sendError(c, apperrors.Internal("failed to list activity", err))
		return
	}
	security, err := ac.activities.List(ctx, activity.Query{
		UserID:     id,
		Severities: []models.Severity{models.SeverityHigh, models.SeverityCritical},
		Limit:      10,
	})
	if err != nil {
		sendError(c, apperrors.Internal("failed to list activity", err))
		return
	}

	sendResponse(c, http.StatusOK, "User details retrieved", gin.H{
		"user":             newAccountResponse(account),
		"recentActivities": recent.Logs,
		"loginHistory":     logins.Logs,
		"securityEvents":   security.Logs,
	}, nil)
}

func (ac *ActivityController) UpdateUserRole(c *gin.Context) {
	id, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		sendError(c, apperrors.Validation("Invalid user id"))
		return
	}
	req, ok := validators.BindJSON[validators.UpdateRoleRequest](c)
	if !ok {
		return
	}

	account, err := ac.users.UpdateRole(c.Request.Context(), id, req.Role, requestMeta(c))
	if err != nil {
		sendError(c, err)
		return
	}
	sendResponse(c, http.StatusOK, "User role updated", gin.H{"user": newAccountResponse(account)}, nil)
}
