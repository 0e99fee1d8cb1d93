// Package transactiondelivery manages delivery layer of transactions.
package transactiondelivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/middleware"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/errorspkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/web"
)

// Service provides service layer interface needed by transaction delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transactiondelivery
type Service interface {
	Post(ctx context.Context, arg domain.PostTransactionParams) (domain.Transaction, error)
	Get(ctx context.Context, owner string, id int64) (domain.Transaction, error)
	Reverse(ctx context.Context, owner string, id int64) error
	List(ctx context.Context, owner string, pageID, pageSize int32) (domain.TransactionPage, error)
}

// Handler facilitates transaction delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transaction handler.
func NewHandler(ts Service) Handler {
	return Handler{service: ts}
}

type data struct {
	Transaction domain.Transaction `json:"transaction"`
}

func errorResponse(gctx *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSameAccount):
		gctx.JSON(http.StatusBadRequest, web.Error(err))
	case errors.Is(err, domain.ErrAccountOwnerMismatch),
		errors.Is(err, domain.ErrTransactionOwnerMismatch):
		gctx.JSON(http.StatusForbidden, web.Error(err))
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTransactionNotFound):
		gctx.JSON(http.StatusNotFound, web.Error(err))
	default:
		zerolog.Ctx(gctx.Request.Context()).Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
	}
}

type postRequest struct {
	FromAccountID   int64       `json:"from_account_id" binding:"required,min=1"`
	ToAccountID     int64       `json:"to_account_id" binding:"required,min=1,nefield=FromAccountID"`
	Amount          json.Number `json:"amount" binding:"required,amount"`
	Description     string      `json:"description" binding:"required,max=255"`
	TransactionDate string      `json:"transaction_date" binding:"required,date"`
	Reference       *string     `json:"reference" binding:"omitempty,max=255"`
	Notes           *string     `json:"notes" binding:"omitempty,max=1000"`
}

// Post handles http request to post a transaction between two accounts.
func (h *Handler) Post(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req postRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	// Both were checked by the binding validators.
	amount := decimal.RequireFromString(req.Amount.String())
	date, _ := time.Parse(domain.DateLayout, req.TransactionDate)

	tx, err := h.service.Post(ctx, domain.PostTransactionParams{
		Owner:           middleware.Owner(gctx),
		FromAccountID:   req.FromAccountID,
		ToAccountID:     req.ToAccountID,
		Amount:          amount,
		Description:     req.Description,
		TransactionDate: date,
		Reference:       req.Reference,
		Notes:           req.Notes,
	})
	if err != nil {
		errorResponse(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{tx}})
}

type getRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// Get handles http request to get a transaction with its journal entries.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	tx, err := h.service.Get(ctx, middleware.Owner(gctx), req.ID)
	if err != nil {
		errorResponse(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{tx}})
}

// Reverse handles http request to reverse a transaction.
func (h *Handler) Reverse(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	if err := h.service.Reverse(ctx, middleware.Owner(gctx), req.ID); err != nil {
		errorResponse(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{})
}

type listRequest struct {
	PageID   int32 `form:"page_id" binding:"omitempty,min=1"`
	PageSize int32 `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// List handles http request to list transactions page by page.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	page, err := h.service.List(ctx, middleware.Owner(gctx), req.PageID, req.PageSize)
	if err != nil {
		errorResponse(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: page})
}
