// Package dashboarddelivery manages delivery layer of the ledger dashboard.
package dashboarddelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/middleware"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/errorspkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/web"
)

// Service provides service layer interface needed by dashboard delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package dashboarddelivery
type Service interface {
	Summary(ctx context.Context, owner string) (domain.Summary, error)
}

// Handler facilitates dashboard delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns dashboard handler.
func NewHandler(ds Service) Handler {
	return Handler{service: ds}
}

// Get handles http request to get the owner's ledger summary.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	summary, err := h.service.Summary(ctx, middleware.Owner(gctx))
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: summary})
}
