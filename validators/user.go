package validators

import "time"

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type PageQuery struct {
	Page  int `form:"page" validate:"omitempty,min=1"`
	Limit int `form:"limit" validate:"omitempty,min=1,max=100"`
}

type ActivityQuery struct {
	PageQuery
	Action   string `form:"action" validate:"omitempty,max=64"`
	Status   string `form:"status" validate:"omitempty,oneof=success failure warning"`
	Severity string `form:"severity" validate:"omitempty,oneof=low medium high critical"`
}

type AdminActivityQuery struct {
	ActivityQuery
	UserID    string     `form:"userId" validate:"omitempty,uuid"`
	StartDate *time.Time `form:"startDate" time_format:"2006-01-02"`
	EndDate   *time.Time `form:"endDate" time_format:"2006-01-02"`
}

type AdminUsersQuery struct {
	PageQuery
	Search string `form:"search" validate:"omitempty,max=64"`
}

type ExportQuery struct {
	Format    string     `form:"format" validate:"omitempty,oneof=json csv"`
	StartDate *time.Time `form:"startDate" time_format:"2006-01-02"`
	EndDate   *time.Time `form:"endDate" time_format:"2006-01-02"`
}
