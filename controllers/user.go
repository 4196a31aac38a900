package controllers

import (
	"context"
	"net/http"

	"github.com/Krish-Depani/account-security/activity"
	"github.com/Krish-Depani/account-security/middleware"
	"github.com/Krish-Depani/account-security/models"
	"github.com/Krish-Depani/account-security/services"
	"github.com/Krish-Depani/account-security/validators"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Account, error)
	List(ctx context.Context, search string, page, limit int) (*services.AccountPage, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, current, next string, meta activity.Meta) error
	UpdateRole(ctx context.Context, targetID uuid.UUID, role string, meta activity.Meta) (*models.Account, error)
}

type UserController struct {
	users UserService
}

func NewUserController(users UserService) *UserController {
	return &UserController{
		users: users,
	}
}

func (uc *UserController) GetCurrentUser(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		unauthorized(c)
		return
	}

	sendResponse(c, http.StatusOK, "User details retrieved", gin.H{
		"user": newAccountResponse(account),
	}, nil)
}

func (uc *UserController) UpdatePassword(c *gin.Context) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		unauthorized(c)
		return
	}
	req, ok := validators.BindJSON[validators.UpdatePasswordRequest](c)
	if !ok {
		return
	}

	if err := uc.users.UpdatePassword(c.Request.Context(), account.ID, req.CurrentPassword, req.NewPassword, requestMeta(c)); err != nil {
		sendError(c, err)
		return
	}
	sendResponse(c, http.StatusOK, "Password updated successfully", nil, nil)
}
