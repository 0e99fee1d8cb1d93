// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/middleware"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/errorspkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/web"
)

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	Get(ctx context.Context, owner string, id int64) (domain.Account, error)
	List(ctx context.Context, owner string, activeOnly bool) ([]domain.Account, error)
	Deactivate(ctx context.Context, owner string, id int64) (domain.Account, error)
	ProvisionDefaultAccounts(ctx context.Context, owner string) ([]domain.Account, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns account handler.
func NewHandler(as Service) Handler {
	return Handler{service: as}
}

type data struct {
	Account domain.Account `json:"account"`
}

type dataAccounts struct {
	Accounts []domain.Account `json:"accounts"`
}

func errorResponse(gctx *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAccountType),
		errors.Is(err, domain.ErrInvalidSubtype),
		errors.Is(err, domain.ErrNegativeBalance),
		errors.Is(err, domain.ErrOwnerNotFound):
		gctx.JSON(http.StatusBadRequest, web.Error(err))
	case errors.Is(err, domain.ErrAccountOwnerMismatch):
		gctx.JSON(http.StatusForbidden, web.Error(err))
	case errors.Is(err, domain.ErrAccountNotFound):
		gctx.JSON(http.StatusNotFound, web.Error(err))
	default:
		zerolog.Ctx(gctx.Request.Context()).Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
	}
}

type createRequest struct {
	Name        string      `json:"name" binding:"required,max=255"`
	Type        string      `json:"type" binding:"required,accounttype"`
	Subtype     string      `json:"subtype" binding:"required,accountsubtype"`
	Balance     json.Number `json:"balance" binding:"omitempty,balance"`
	Description string      `json:"description" binding:"max=1000"`
}

// Create handles http request to create account.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	balance := decimal.Zero
	if req.Balance != "" {
		balance = decimal.RequireFromString(req.Balance.String())
	}

	createdAccount, err := h.service.Create(ctx, domain.CreateAccountParams{
		Owner:       middleware.Owner(gctx),
		Name:        req.Name,
		Type:        domain.AccountType(req.Type),
		Subtype:     domain.AccountSubtype(req.Subtype),
		Balance:     balance,
		Description: req.Description,
	})
	if err != nil {
		errorResponse(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{createdAccount}})
}

type getRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// Get handles http request to get account.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	acc, err := h.service.Get(ctx, middleware.Owner(gctx), req.ID)
	if err != nil {
		errorResponse(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{acc}})
}

type listRequest struct {
	ActiveOnly *bool `form:"active_only"`
}

// List handles http request to list accounts.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	activeOnly := req.ActiveOnly == nil || *req.ActiveOnly

	accounts, err := h.service.List(ctx, middleware.Owner(gctx), activeOnly)
	if err != nil {
		errorResponse(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: dataAccounts{accounts}})
}

// Deactivate handles http request to deactivate account.
func (h *Handler) Deactivate(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	acc, err := h.service.Deactivate(ctx, middleware.Owner(gctx), req.ID)
	if err != nil {
		errorResponse(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{acc}})
}

// Provision handles http request to create the default chart of accounts.
func (h *Handler) Provision(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	accounts, err := h.service.ProvisionDefaultAccounts(ctx, middleware.Owner(gctx))
	if err != nil {
		errorResponse(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: dataAccounts{accounts}})
}
